package authenticate

import (
	"log/slog"
	"net/http"
	"strings"

	"coupondrop/lib/api/cont"
	"coupondrop/lib/api/response"
	"coupondrop/lib/sl"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Authenticate interface {
	AuthenticateByToken(token string) (string, error)
}

// New gates a route group behind a bearer token. A missing header and a
// rejected token both answer 403; the bodies differ so an admin client can
// tell a lost header from an expired session.
func New(log *slog.Logger, auth Authenticate) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			header := r.Header.Get("Authorization")
			if len(header) == 0 {
				logger.Debug("authorization header not found")
				authFailed(w, r, "Unauthorized")
				return
			}
			token := header
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
			if len(token) == 0 {
				logger.Debug("empty bearer token")
				authFailed(w, r, "Unauthorized")
				return
			}

			if auth == nil {
				authFailed(w, r, "Invalid token")
				return
			}
			adminId, err := auth.AuthenticateByToken(token)
			if err != nil {
				logger.Debug("token rejected", sl.Secret("token", token), sl.Err(err))
				authFailed(w, r, "Invalid token")
				return
			}

			ctx := cont.PutAdminId(r.Context(), adminId)
			next.ServeHTTP(w, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusForbidden)
	render.JSON(w, r, response.Error(message))
}
