// Package provisioning создаёт бизнес нового пользователя и ставит в очередь
// письмо со ссылкой подтверждения e-mail.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/magabrotheeeer/account-service/internal/events"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// Этапы для метрики ProvisioningFailures.
const (
	stageBusiness = "business"
	stageMail     = "mail"
)

// BusinessRepository хранилище бизнесов.
type BusinessRepository interface {
	CreateBusiness(ctx context.Context, name, ownerUID string) (*models.Business, error)
	GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error)
}

// Publisher публикует сообщение в обменник уведомлений.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service реагирует на создание пользователя.
type Service struct {
	log           *slog.Logger
	businesses    BusinessRepository
	publisher     Publisher
	verifications jwt.Maker
	publicURL     string
}

// New создаёт Service. publicURL используется как основа ссылки подтверждения.
func New(log *slog.Logger, businesses BusinessRepository, publisher Publisher, verifications jwt.Maker, publicURL string) *Service {
	return &Service{
		log:           log,
		businesses:    businesses,
		publisher:     publisher,
		verifications: verifications,
		publicURL:     strings.TrimRight(publicURL, "/"),
	}
}

// HandleUserCreated создаёт бизнес с именем пользователя и отправляет письмо.
// Если бизнес создать не удалось, письмо не отправляется.
func (s *Service) HandleUserCreated(ctx context.Context, e events.UserCreated) error {
	const op = "provisioning.HandleUserCreated"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", e.User.UUID))

	_, err := s.businesses.CreateBusiness(ctx, e.User.Username, e.User.UUID)
	switch {
	case errors.Is(err, storage.ErrBusinessExists):
		log.Info("business already provisioned")
	case err != nil:
		metrics.ProvisioningFailures.WithLabelValues(stageBusiness).Inc()
		log.Error("failed to create business", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	default:
		log.Info("business created")
	}

	if err := s.SendVerification(ctx, e.User); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendVerification выпускает токен подтверждения и публикует письмо со ссылкой.
func (s *Service) SendVerification(ctx context.Context, user models.User) error {
	const op = "provisioning.SendVerification"
	token, err := s.verifications.GenerateToken(user.UUID)
	if err != nil {
		metrics.ProvisioningFailures.WithLabelValues(stageMail).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.TokensIssued.WithLabelValues(string(jwt.PurposeVerification)).Inc()

	link, err := s.VerificationLink(token)
	if err != nil {
		metrics.ProvisioningFailures.WithLabelValues(stageMail).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := models.VerificationMessage{
		UserUID:    user.UUID,
		Username:   user.Username,
		Recipients: []string{user.Email},
		Link:       link,
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingKeyVerification, msg); err != nil {
		metrics.ProvisioningFailures.WithLabelValues(stageMail).Inc()
		s.log.Error("failed to publish verification email", slog.String("op", op),
			slog.String("user_uid", user.UUID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// VerificationLink строит ссылку вида <publicURL>/verification?token=<token>.
func (s *Service) VerificationLink(token string) (string, error) {
	const op = "provisioning.VerificationLink"
	u, err := url.Parse(s.publicURL + "/verification")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	u.RawQuery = url.Values{"token": []string{token}}.Encode()
	return u.String(), nil
}

// GetBusiness возвращает бизнес пользователя.
// storage.ErrBusinessNotFound сразу после регистрации временная.
func (s *Service) GetBusiness(ctx context.Context, ownerUID string) (*models.Business, error) {
	const op = "provisioning.GetBusiness"
	b, err := s.businesses.GetBusinessByOwner(ctx, ownerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
