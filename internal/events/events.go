// Package events доставляет доменные события внутри процесса.
//
// Подписчики вызываются синхронно в горутине издателя, в порядке подписки.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/magabrotheeeer/account-service/internal/models"
)

// UserCreated публикуется один раз после фиксации нового пользователя.
// Сохранение существующего пользователя это событие не порождает.
type UserCreated struct {
	User models.User
}

// UserCreatedHandler обработчик события UserCreated.
type UserCreatedHandler func(ctx context.Context, e UserCreated) error

// Bus шина событий.
type Bus struct {
	mu          sync.RWMutex
	userCreated []UserCreatedHandler
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeUserCreated регистрирует обработчик. Вызывается при сборке приложения.
func (b *Bus) SubscribeUserCreated(h UserCreatedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userCreated = append(b.userCreated, h)
}

// PublishUserCreated вызывает всех подписчиков. Ошибка одного обработчика
// не мешает вызвать остальных, все ошибки объединяются.
func (b *Bus) PublishUserCreated(ctx context.Context, e UserCreated) error {
	const op = "events.PublishUserCreated"
	b.mu.RLock()
	handlers := make([]UserCreatedHandler, len(b.userCreated))
	copy(handlers, b.userCreated)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
