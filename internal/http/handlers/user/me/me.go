// Package me возвращает профиль пользователя, владеющего сессионным токеном.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// JoinDateLayout формат даты регистрации в ответе.
const JoinDateLayout = "Jan 02 2006"

// Profile данные профиля.
type Profile struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"a@x.com"`
	Verified bool   `json:"verified"`
	JoinDate string `json:"join_date" example:"Mar 01 2024"`
}

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Профиль текущего пользователя
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=Profile} "Профиль"
// @Failure 401 {object} response.ErrorResponse "Неверный или просроченный токен"
// @Router /user/me [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.me"

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		h.log.Error("user identification missing",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())))
		response.Unauthorized(w, r, "user identification missing")
		return
	}

	render.JSON(w, r, response.StatusOKWithData(Profile{
		Username: user.Username,
		Email:    user.Email,
		Verified: user.IsVerified,
		JoinDate: user.JoinDate.Format(JoinDateLayout),
	}))
}
