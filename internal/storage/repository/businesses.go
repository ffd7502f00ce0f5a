package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/storage"
)

// CreateBusiness создаёт бизнес для владельца ownerUID.
//
// Владелец может иметь только один бизнес, повторный вызов возвращает
// storage.ErrBusinessExists.
func (s *Storage) CreateBusiness(ctx context.Context, name, ownerUID string) (*models.Business, error) {
	const op = "storage.CreateBusiness"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	b := &models.Business{
		BusinessName: name,
		OwnerUID:     ownerUID,
	}
	query := `INSERT INTO businesses (business_name, owner_uid)
			  VALUES ($1, $2)
			  RETURNING id, created_at;`
	err := s.DB.QueryRowContext(ctx, query, name, ownerUID).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrBusinessExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

// GetBusinessByOwner возвращает бизнес пользователя ownerUID.
//
// Сразу после регистрации бизнес может ещё не существовать:
// storage.ErrBusinessNotFound в этом случае временная.
func (s *Storage) GetBusinessByOwner(ctx context.Context, ownerUID string) (*models.Business, error) {
	const op = "storage.GetBusinessByOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, business_name, owner_uid, created_at
			  FROM businesses
			  WHERE owner_uid = $1`
	b := &models.Business{}
	err := s.DB.QueryRowContext(ctx, query, ownerUID).Scan(&b.ID, &b.BusinessName, &b.OwnerUID, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrBusinessNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
