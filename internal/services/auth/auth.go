// Package auth содержит логику регистрации, входа, подтверждения e-mail
// и проверки сессионных токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/account-service/internal/events"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/metrics"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

var (
	// ErrUnauthorized токен не прошёл проверку или его пользователь не существует.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials неверное имя пользователя или пароль.
	// Оба случая намеренно неразличимы.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingField не заполнено обязательное поле регистрации.
	ErrMissingField = errors.New("missing required field")
	// ErrNotVerified e-mail пользователя ещё не подтверждён.
	ErrNotVerified = errors.New("email not verified")
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, user models.User) error
}

// UserCache кэш пользователей для проверки токенов.
type UserCache interface {
	GetUser(ctx context.Context, userUID string) (*models.User, bool, error)
	SetUser(ctx context.Context, user *models.User) error
	InvalidateUser(ctx context.Context, userUID string) error
}

// EventPublisher публикует событие создания пользователя.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, e events.UserCreated) error
}

// VerificationSender выпускает новый токен подтверждения и ставит письмо в очередь.
type VerificationSender interface {
	SendVerification(ctx context.Context, user models.User) error
}

// VerifyStatus итог подтверждения e-mail.
type VerifyStatus int

const (
	// VerifyNewlyVerified флаг is_verified установлен этим вызовом.
	VerifyNewlyVerified VerifyStatus = iota + 1
	// VerifyAlreadyVerified пользователь был подтверждён раньше, ничего не изменено.
	VerifyAlreadyVerified
)

// VerifyResult результат Verify.
type VerifyResult struct {
	Status VerifyStatus
	User   *models.User
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	log           *slog.Logger
	users         UserRepository
	cache         UserCache
	events        EventPublisher
	verifier      VerificationSender
	sessions      jwt.Maker
	verifications jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
// sessions и verifications обязаны быть мейкерами разных назначений.
func NewAuthService(
	log *slog.Logger,
	users UserRepository,
	cache UserCache,
	events EventPublisher,
	verifier VerificationSender,
	sessions jwt.Maker,
	verifications jwt.Maker,
) *AuthService {
	return &AuthService{
		log:           log,
		users:         users,
		cache:         cache,
		events:        events,
		verifier:      verifier,
		sessions:      sessions,
		verifications: verifications,
	}
}

// Register создаёт неподтверждённого пользователя и публикует UserCreated.
//
// Ошибка обработчиков события не отменяет регистрацию: пользователь уже сохранён.
func (s *AuthService) Register(ctx context.Context, username, email, rawPassword string) (*models.User, error) {
	const op = "auth.Register"
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	switch {
	case username == "":
		return nil, fmt.Errorf("%s: %w: username", op, ErrMissingField)
	case email == "":
		return nil, fmt.Errorf("%s: %w: email", op, ErrMissingField)
	case rawPassword == "":
		return nil, fmt.Errorf("%s: %w: password", op, ErrMissingField)
	}

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.users.CreateUser(ctx, models.User{
		UUID:         uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.Registrations.Inc()

	log := s.log.With(slog.String("op", op), slog.String("user_uid", user.UUID))
	log.Info("user registered")
	if err := s.events.PublishUserCreated(ctx, events.UserCreated{User: *user}); err != nil {
		log.Error("user created handlers failed", sl.Err(err))
	}
	return user, nil
}

// Login проверяет пароль пользователя и выпускает сессионный токен.
// Подтверждение e-mail для входа не требуется.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Время ответа не должно выдавать отсутствие пользователя.
			_ = password.CompareDummy(rawPassword)
			metrics.Logins.WithLabelValues(metrics.ResultFailure).Inc()
			return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		metrics.Logins.WithLabelValues(metrics.ResultFailure).Inc()
		return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	token, err := s.sessions.GenerateToken(user.UUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	metrics.Logins.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.TokensIssued.WithLabelValues(string(jwt.PurposeSession)).Inc()
	return token, nil
}

// Authenticate проверяет сессионный токен и возвращает его пользователя.
// Хэш пароля в результате не заполняется.
//
// В кэш попадают только подтверждённые пользователи: флаг is_verified не
// откатывается, поэтому такая запись не может устареть по нему. Неподтверждённый
// пользователь всегда читается из хранилища.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	const op = "auth.Authenticate"
	if token == "" {
		return nil, fmt.Errorf("%s: %w: empty token", op, ErrUnauthorized)
	}
	claims, err := s.sessions.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	if s.cache != nil {
		cached, found, err := s.cache.GetUser(ctx, claims.UserID)
		if err != nil {
			s.log.Warn("user cache read failed", slog.String("op", op), sl.Err(err))
		}
		if found && cached.IsVerified {
			return cached, nil
		}
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user.PasswordHash = ""
	if s.cache != nil && user.IsVerified {
		if err := s.cache.SetUser(ctx, user); err != nil {
			s.log.Warn("user cache write failed", slog.String("op", op), sl.Err(err))
		}
	}
	return user, nil
}

// Verify подтверждает e-mail владельца токена подтверждения.
//
// Повторное предъявление действующего токена успешно и ничего не меняет.
func (s *AuthService) Verify(ctx context.Context, token string) (VerifyResult, error) {
	const op = "auth.Verify"
	claims, err := s.verifications.ParseToken(token)
	if err != nil {
		metrics.Verifications.WithLabelValues(metrics.ResultFailure).Inc()
		return VerifyResult{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			metrics.Verifications.WithLabelValues(metrics.ResultFailure).Inc()
			return VerifyResult{}, fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		}
		return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		metrics.Verifications.WithLabelValues(metrics.ResultAlready).Inc()
		return VerifyResult{Status: VerifyAlreadyVerified, User: user}, nil
	}

	user.IsVerified = true
	if err := s.users.SaveUser(ctx, *user); err != nil {
		return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if s.cache != nil {
		if err := s.cache.InvalidateUser(ctx, user.UUID); err != nil {
			s.log.Warn("user cache invalidate failed", slog.String("op", op), sl.Err(err))
		}
	}
	metrics.Verifications.WithLabelValues(metrics.ResultSuccess).Inc()
	s.log.Info("email verified", slog.String("op", op), slog.String("user_uid", user.UUID))
	return VerifyResult{Status: VerifyNewlyVerified, User: user}, nil
}

// ResendVerification повторно отправляет письмо с подтверждением.
// Для неизвестного или уже подтверждённого e-mail ничего не делает и не
// сообщает об этом вызывающему.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.IsVerified {
		return nil
	}
	if err := s.verifier.SendVerification(ctx, *user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
