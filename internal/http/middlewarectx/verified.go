package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// VerifiedOnly пропускает запрос, только если e-mail пользователя подтверждён.
// Ставится после JWTMiddleware.
func VerifiedOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.VerifiedOnly"

			user, ok := UserFromContext(r.Context())
			if !ok {
				log.Error("user identification missing",
					slog.String("op", op),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				response.Unauthorized(w, r, "user identification missing")
				return
			}
			if !user.IsVerified {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("email is not verified"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
