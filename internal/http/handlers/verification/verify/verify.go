// Package verify обрабатывает переход по ссылке подтверждения e-mail.
//
// Сессионный токен не нужен: сам токен подтверждения аутентифицирует запрос.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/http/view"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

// Service подтверждает e-mail по токену.
type Service interface {
	Verify(ctx context.Context, token string) (auth.VerifyResult, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение e-mail
// @Description Проверяет токен из письма и отмечает e-mail подтверждённым. Повторный переход по ссылке безопасен.
// @Tags Verification
// @Produce  html
// @Param token query string true "Токен подтверждения"
// @Success 200 {string} string "HTML-страница подтверждения"
// @Failure 401 {object} response.ErrorResponse "Неверный или просроченный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /verification [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.verification.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	res, err := h.service.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			log.Info("verification rejected", sl.Err(err))
			response.Unauthorized(w, r, "invalid token or expired token")
			return
		}
		log.Error("verification failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	err = view.RenderVerification(w, view.Verification{
		Username:        res.User.Username,
		AlreadyVerified: res.Status == auth.VerifyAlreadyVerified,
	})
	if err != nil {
		log.Error("failed to render verification page", sl.Err(err))
	}
}
