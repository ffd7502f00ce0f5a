// Package business возвращает бизнес текущего пользователя.
//
// Бизнес создаётся после регистрации, поэтому короткое время его может не быть:
// в этом случае отвечаем 404 с заголовком Retry-After.
package business

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// retryAfterSeconds значение заголовка Retry-After для ещё не созданного бизнеса.
const retryAfterSeconds = "1"

// Service возвращает бизнес владельца.
type Service interface {
	GetBusiness(ctx context.Context, ownerUID string) (*models.Business, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Бизнес текущего пользователя
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.Business} "Бизнес"
// @Failure 401 {object} response.ErrorResponse "Неверный или просроченный токен"
// @Failure 403 {object} response.ErrorResponse "E-mail не подтверждён"
// @Failure 404 {object} response.ErrorResponse "Бизнес ещё создаётся"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/business [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.business"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user identification missing")
		response.Unauthorized(w, r, "user identification missing")
		return
	}

	b, err := h.service.GetBusiness(r.Context(), user.UUID)
	if err != nil {
		if errors.Is(err, storage.ErrBusinessNotFound) {
			log.Info("business not provisioned yet", slog.String("user_uid", user.UUID))
			w.Header().Set("Retry-After", retryAfterSeconds)
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("business not found"))
			return
		}
		log.Error("failed to get business", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(b))
}
