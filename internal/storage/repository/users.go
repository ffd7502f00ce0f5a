package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// Имена ограничений уникальности. users_email_key с миграции 000003
// является уникальным индексом по lower(email).
const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
)

// CreateUser сохраняет нового пользователя и возвращает его с датой регистрации.
//
// При совпадении username или e-mail возвращает *storage.DuplicateKeyError.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, username, email, password_hash, is_verified)
			  VALUES ($1, $2, $3, $4, FALSE)
			  RETURNING is_verified, join_date;`
	err := s.DB.QueryRowContext(ctx, query,
		user.UUID, user.Username, user.Email, user.PasswordHash,
	).Scan(&user.IsVerified, &user.JoinDate)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%s: %w", op, duplicateField(constraint))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	return s.getUserBy(ctx, op, "uid = $1", userUID)
}

// GetUserByUsername возвращает пользователя по его username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	return s.getUserBy(ctx, op, "username = $1", username)
}

// GetUserByEmail возвращает пользователя по e-mail без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	return s.getUserBy(ctx, op, "lower(email) = lower($1)", email)
}

// getUserBy выбирает пользователя по условию на уникальный ключ.
// cond подставляется только из литералов этого файла.
func (s *Storage) getUserBy(ctx context.Context, op, cond, value string) (*models.User, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, password_hash, is_verified, join_date
			  FROM users
			  WHERE ` + cond
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, value).Scan(
		&u.UUID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified, &u.JoinDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// SaveUser сохраняет изменяемые поля пользователя.
//
// Флаг is_verified может только устанавливаться: сброс в false игнорируется.
// Дата регистрации не перезаписывается.
func (s *Storage) SaveUser(ctx context.Context, user models.User) error {
	const op = "storage.SaveUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET username = $1,
			      email = $2,
			      password_hash = $3,
			      is_verified = is_verified OR $4
			  WHERE uid = $5`
	res, err := s.DB.ExecContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.IsVerified, user.UUID)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return fmt.Errorf("%s: %w", op, duplicateField(constraint))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func duplicateField(constraint string) error {
	switch constraint {
	case constraintUsername:
		return &storage.DuplicateKeyError{Field: "username"}
	case constraintEmail:
		return &storage.DuplicateKeyError{Field: "email"}
	default:
		return &storage.DuplicateKeyError{Field: "uid"}
	}
}
