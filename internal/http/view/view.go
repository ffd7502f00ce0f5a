// Package view рендерит HTML-страницу подтверждения e-mail.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var verification = template.Must(template.ParseFS(templatesFS, "templates/verification.html"))

// Verification данные страницы подтверждения.
type Verification struct {
	Username        string
	AlreadyVerified bool
}

// RenderVerification пишет страницу подтверждения со статусом 200.
// Шаблон исполняется в буфер, чтобы ошибка не оставила полуответ.
func RenderVerification(w http.ResponseWriter, data Verification) error {
	const op = "view.RenderVerification"
	var buf bytes.Buffer
	if err := verification.Execute(&buf, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}
