package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClockSkew допустимое расхождение часов между экземплярами сервиса
// при проверке exp, nbf и iat.
const ClockSkew = 30 * time.Second

// CustomClaims описывает данные, хранящиеся в токене.
type CustomClaims struct {
	UserID               string  `json:"user_id"` // Идентификатор пользователя
	Purpose              Purpose `json:"purpose"` // Назначение токена
	jwt.RegisteredClaims         // ExpiresAt, IssuedAt, Audience и пр.
}

// GenerateToken создает токен для userID, подписывая его секретным ключом мейкера.
//
// Время жизни токена определяется полем tokenTTL, audience совпадает с назначением.
func (j *MakerImpl) GenerateToken(userID string) (string, error) {
	const op = "jwt.GenerateToken"
	if userID == "" {
		return "", fmt.Errorf("%s: empty user id", op)
	}
	now := j.now()
	claims := CustomClaims{
		UserID:  userID,
		Purpose: j.purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    j.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{string(j.purpose)},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит токен, проверяет подпись, срок жизни и назначение.
//
// Любая ошибка сводится к одной из ErrMalformed, ErrInvalidSignature,
// ErrExpired или ErrWrongPurpose, детали библиотеки наружу не выходят.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithAudience(string(j.purpose)),
		jwt.WithTimeFunc(j.now),
		jwt.WithLeeway(ClockSkew),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	if claims.Purpose != j.purpose {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongPurpose)
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
	}
	return claims, nil
}

// classify сводит ошибки golang-jwt к закрытому набору ошибок пакета.
// Порядок важен: подпись проверяется раньше claims.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrWrongPurpose
	default:
		return ErrMalformed
	}
}
