package coupon

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"coupondrop/entity"
	"coupondrop/lib/api/remote"
	"coupondrop/lib/api/response"
	"coupondrop/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Core interface {
	AvailableCoupons() ([]*entity.Coupon, error)
	ClaimNext(identity string) (*entity.Coupon, error)
	ClaimCoupon(identity, id string) (*entity.Coupon, error)
	AddCoupon(code string) (*entity.Coupon, error)
}

// Available lists coupons still open for claiming.
func Available(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		coupons, err := handler.AvailableCoupons()
		if err != nil {
			logger.Error("fetch available coupons", sl.Err(err))
			serverError(w, r)
			return
		}

		render.JSON(w, r, coupons)
	}
}

// Claim auto-assigns the oldest available coupon to the requester's IP and
// sets the advisory claimed cookie on success.
func Claim(log *slog.Logger, handler Core, cookieMaxAge int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)
		identity := remote.IP(r)

		coupon, err := handler.ClaimNext(identity)
		if err != nil {
			claimFailed(logger, w, r, err)
			return
		}

		setClaimedCookie(w, cookieMaxAge)
		render.JSON(w, r, response.Claimed(coupon.Code))
	}
}

// ClaimById claims one specific coupon. An id that names nothing claimable
// gets the same not-available answer as an empty pool.
func ClaimById(log *slog.Logger, handler Core, cookieMaxAge int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)
		identity := remote.IP(r)
		id := chi.URLParam(r, "id")

		coupon, err := handler.ClaimCoupon(identity, id)
		if err != nil {
			claimFailed(logger, w, r, err)
			return
		}

		setClaimedCookie(w, cookieMaxAge)
		render.JSON(w, r, response.Claimed(coupon.Code))
	}
}

// Add creates a coupon in the pool. The code may be omitted to get a
// generated one.
func Add(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := requestLogger(log, r)

		var payload entity.CouponAdd
		if err := render.Bind(r, &payload); err != nil {
			logger.Debug("bind request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		coupon, err := handler.AddCoupon(payload.Code)
		if err != nil {
			if errors.Is(err, entity.ErrDuplicateCode) {
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.Error("Coupon code already exists"))
				return
			}
			logger.Error("add coupon", sl.Err(err))
			serverError(w, r)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.WithCoupon("Coupon added successfully", coupon))
	}
}

func claimFailed(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, entity.ErrClaimCooldown):
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, response.Error("Wait before claiming again!"))
	case errors.Is(err, entity.ErrNoCouponsAvailable):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("No coupons available"))
	default:
		logger.Error("claim coupon", sl.Err(err))
		serverError(w, r)
	}
}

func setClaimedCookie(w http.ResponseWriter, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     "claimed",
		Value:    "true",
		MaxAge:   maxAge,
		HttpOnly: true,
		Path:     "/",
	})
}

func serverError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, response.Error("Server error"))
}

func requestLogger(log *slog.Logger, r *http.Request) *slog.Logger {
	return log.With(
		sl.Module("http.handlers.coupon"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}
