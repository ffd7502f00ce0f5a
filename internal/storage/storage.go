// Package storage описывает ошибки хранилища учётных записей, общие для
// всех реализаций. Реализация на PostgreSQL находится в пакете repository.
package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound пользователь с заданным ключом не существует.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists username или e-mail уже заняты.
	ErrUserExists = errors.New("user already exists")
	// ErrBusinessNotFound бизнес пользователя ещё не создан или не существует.
	ErrBusinessNotFound = errors.New("business not found")
	// ErrBusinessExists у пользователя уже есть бизнес.
	ErrBusinessExists = errors.New("business already exists")
)

// DuplicateKeyError сообщает, какое уникальное поле вызвало конфликт.
// errors.Is(err, ErrUserExists) для неё истинно.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// Is позволяет сравнивать DuplicateKeyError с ErrUserExists.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrUserExists
}
