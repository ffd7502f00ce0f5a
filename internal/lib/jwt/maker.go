// Package jwt реализует генерацию и проверку подписанных токенов двух назначений:
// сессионных (session) и токенов подтверждения e-mail (verification).
//
// Maker определяет интерфейс для создания и проверки токенов.
// MakerImpl конкретная реализация, привязанная к одному назначению,
// собственному секретному ключу и сроку жизни токена.
package jwt

import (
	"errors"
	"time"
)

// Purpose назначение токена. Записывается в claim purpose и в audience.
type Purpose string

const (
	// PurposeSession токен доступа к защищённым эндпоинтам.
	PurposeSession Purpose = "session"
	// PurposeVerification одноразовый по смыслу токен подтверждения e-mail.
	PurposeVerification Purpose = "verification"
)

// Ошибки проверки токена. ParseToken возвращает только их.
var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrWrongPurpose     = errors.New("token purpose mismatch")
)

// Maker описывает интерфейс для генерации и парсинга токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя с идентификатором userID.
	GenerateToken(userID string) (string, error)
	// ParseToken проверяет подпись, срок жизни и назначение токена.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker для одного назначения токенов.
type MakerImpl struct {
	purpose   Purpose          // Назначение токенов этого мейкера.
	secretKey []byte           // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration    // Время жизни токена.
	issuer    string           // Значение claim iss.
	now       func() time.Time // Источник текущего времени.
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithIssuer задаёт значение claim iss, которое проверяется при парсинге.
func WithIssuer(issuer string) Option {
	return func(m *MakerImpl) {
		m.issuer = issuer
	}
}

// WithClock подменяет источник времени. Используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) {
		m.now = now
	}
}

// NewJWTMaker создаёт MakerImpl для заданного назначения, секретного ключа и TTL.
func NewJWTMaker(purpose Purpose, secretKey string, ttl time.Duration, opts ...Option) *MakerImpl {
	m := &MakerImpl{
		purpose:   purpose,
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Purpose возвращает назначение токенов мейкера.
func (j *MakerImpl) Purpose() Purpose {
	return j.purpose
}

// TTL возвращает время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
