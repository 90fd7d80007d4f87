package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"coupondrop/entity"
	"coupondrop/lib/api/response"
	"coupondrop/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	Login(username, password string) (string, error)
	Coupons() ([]*entity.Coupon, error)
	ClaimHistory() ([]*entity.ClaimRecord, error)
	UpdateCoupon(id string, upd *entity.CouponUpdate) (*entity.Coupon, error)
	DeleteCoupon(id string) error
}

// Login exchanges admin credentials for a session token. Unknown username
// and wrong password produce the same 401 body.
func Login(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var creds entity.Credentials
		if err := render.Bind(r, &creds); err != nil {
			logger.Debug("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}
		logger = logger.With(slog.String("username", creds.Username))

		token, err := handler.Login(creds.Username, creds.Password)
		if err != nil {
			if errors.Is(err, entity.ErrInvalidCredentials) {
				logger.Debug("login rejected")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("Invalid credentials"))
				return
			}
			logger.Error("login", sl.Err(err))
			serverError(w, r)
			return
		}
		logger.Info("admin logged in")

		render.JSON(w, r, response.Token(token))
	}
}

// Coupons returns the whole inventory, claimed and available.
func Coupons(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		coupons, err := handler.Coupons()
		if err != nil {
			logger.Error("fetch coupons", sl.Err(err))
			serverError(w, r)
			return
		}

		render.JSON(w, r, coupons)
	}
}

// ClaimHistory returns claimed coupons, most recent update first.
func ClaimHistory(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		records, err := handler.ClaimHistory()
		if err != nil {
			logger.Error("fetch claim history", sl.Err(err))
			serverError(w, r)
			return
		}

		render.JSON(w, r, records)
	}
}

// Update applies a partial edit to one coupon. An empty payload returns
// the record unchanged.
func Update(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)
		id := chi.URLParam(r, "id")

		var upd entity.CouponUpdate
		if err := render.Bind(r, &upd); err != nil {
			logger.Debug("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		coupon, err := handler.UpdateCoupon(id, &upd)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Coupon not found"))
			case errors.Is(err, entity.ErrDuplicateCode):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("Coupon code already exists"))
			default:
				logger.Error("update coupon", sl.Err(err))
				serverError(w, r)
			}
			return
		}

		render.JSON(w, r, response.WithCoupon("Coupon updated successfully", coupon))
	}
}

// Delete removes a coupon unconditionally.
func Delete(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)
		id := chi.URLParam(r, "id")

		err := handler.DeleteCoupon(id)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("Coupon not found"))
				return
			}
			logger.Error("delete coupon", sl.Err(err))
			serverError(w, r)
			return
		}

		render.JSON(w, r, response.Info("Coupon deleted successfully"))
	}
}

func serverError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.Error("Server error"))
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.admin"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
