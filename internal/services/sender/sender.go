// Package sender отправляет письма, полученные из очереди уведомлений.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/smtp"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// ErrBadMessage сообщение из очереди не удалось разобрать.
var ErrBadMessage = errors.New("bad message")

const verificationSubject = "Account verification"

var verificationBody = template.Must(template.New("verification_email").Parse(`<!DOCTYPE html>
<html>
<body>
<div style="display:flex;align-items:center;justify-content:center;flex-direction:column">
<h3>Account verification</h3>
<br>
<p>Hi {{.Username}}, thanks for choosing our services. Please click on the link below to verify your email.</p>
<a style="margin-top:1rem;padding:1rem;border-radius:0.5rem;font-size:1rem;text-decoration:none;background:#0275d8;color:white" href="{{.Link}}">Verify your email</a>
<p>Please ignore this email if you did not register. Nothing else will happen.</p>
</div>
</body>
</html>`))

// SenderService собирает письма и отправляет их через SMTP сессию.
type SenderService struct {
	dialer smtp.Dialer
	log    *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, dialer smtp.Dialer) *SenderService {
	return &SenderService{
		dialer: dialer,
		log:    log,
	}
}

// SendVerificationEmail разбирает models.VerificationMessage и отправляет
// письмо со ссылкой подтверждения каждому получателю.
func (s *SenderService) SendVerificationEmail(ctx context.Context, body []byte) error {
	const op = "sender.SendVerificationEmail"
	var message models.VerificationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, ErrBadMessage, err)
	}
	if len(message.Recipients) == 0 || message.Link == "" {
		s.log.Error("verification message without recipients or link", slog.String("op", op),
			slog.String("user_uid", message.UserUID))
		return fmt.Errorf("%s: %w: empty recipients or link", op, ErrBadMessage)
	}

	var html strings.Builder
	if err := verificationBody.Execute(&html, message); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendEmail(ctx, message.Recipients, verificationSubject, html.String()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("verification email sent", slog.String("user_uid", message.UserUID))
	return nil
}

// sendEmail отправляет одно письмо. После успешного закрытия DATA письмо
// принято сервером, поэтому ошибка QUIT только логируется.
func (s *SenderService) sendEmail(ctx context.Context, to []string, subject, bodyHTML string) error {
	from := s.dialer.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		bodyHTML,
	}, "\r\n")

	session, err := s.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = session.Close()
	}()

	if err := session.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := session.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := session.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		_ = wc.Close()
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = session.Quit(); err != nil {
		s.log.Warn("SMTP QUIT failed after message was accepted", sl.Err(err))
	}
	return nil
}
