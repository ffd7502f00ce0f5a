// Package models содержит доменные модели сервиса учётных записей:
// пользователя, связанный с ним бизнес и сообщения очереди уведомлений.
// Структуры используются в бизнес‑логике и при работе с хранилищем.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID         string    `json:"uuid"`        // Уникальный идентификатор, неизменяемый
	Username     string    `json:"username"`    // Имя пользователя (уникальное)
	Email        string    `json:"email"`       // Электронная почта (уникальная)
	PasswordHash string    `json:"-"`           // Хэш пароля, никогда не сериализуется
	IsVerified   bool      `json:"is_verified"` // Подтверждён ли e-mail
	JoinDate     time.Time `json:"join_date"`   // Дата регистрации
}

// Business запись, автоматически создаваемая для каждого пользователя.
type Business struct {
	ID           int64     `json:"id"`
	BusinessName string    `json:"business_name"` // По умолчанию совпадает с Username владельца
	OwnerUID     string    `json:"owner_uid"`     // Владелец, связь 1:1
	CreatedAt    time.Time `json:"created_at"`
}
