package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/account-service/internal/config"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

const defaultSendTimeout = 30 * time.Second

// ErrStartTLSUnsupported сервер не предлагает STARTTLS, письма открытым текстом не отправляются.
var ErrStartTLSUnsupported = errors.New("smtp server does not support STARTTLS")

// Transport открывает SMTP сессии по STARTTLS.
type Transport struct {
	host    string
	addr    string
	user    string
	pass    string
	timeout time.Duration
	log     *slog.Logger
}

// NewTransport создаёт Transport. Нулевой cfg.SendTimeout заменяется на 30s.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Transport{
		host:    cfg.SMTPHost,
		addr:    net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort),
		user:    cfg.SMTPUser,
		pass:    cfg.SMTPPass,
		timeout: timeout,
		log:     log.With(slog.String("smtp_addr", net.JoinHostPort(cfg.SMTPHost, cfg.SMTPPort))),
	}
}

// session снимает привязку соединения к ctx при завершении.
type session struct {
	*smtp.Client
	release func() bool
}

func (s *session) Quit() error {
	defer s.release()
	return s.Client.Quit()
}

func (s *session) Close() error {
	s.release()
	return s.Client.Close()
}

// Dial открывает сессию. На соединение ставится общий срок: ранний из
// ctx.Deadline и now+timeout. Отмена ctx обрывает текущую операцию.
func (t *Transport) Dial(ctx context.Context) (Session, error) {
	const op = "smtp.Dial"

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	release := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	client, err := smtp.NewClient(conn, t.host)
	if err != nil {
		release()
		_ = conn.Close()
		t.log.Error("SMTP handshake failed", sl.Err(err))
		return nil, fmt.Errorf("%s: handshake: %w", op, err)
	}
	if err := t.secure(client); err != nil {
		release()
		_ = client.Close()
		t.log.Error("SMTP session setup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &session{Client: client, release: release}, nil
}

// secure включает TLS и, если задан пользователь, выполняет PLAIN аутентификацию.
func (t *Transport) secure(client *smtp.Client) error {
	if ok, _ := client.Extension("STARTTLS"); !ok {
		return ErrStartTLSUnsupported
	}
	if err := client.StartTLS(&tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}); err != nil {
		return fmt.Errorf("starttls: %w", err)
	}
	if t.user == "" {
		return nil
	}
	if err := client.Auth(smtp.PlainAuth("", t.user, t.pass, t.host)); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

// Sender возвращает адрес отправителя.
func (t *Transport) Sender() string {
	return t.user
}
