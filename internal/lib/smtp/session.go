// Package smtp открывает SMTP сессии для отправки писем подтверждения.
package smtp

import (
	"context"
	"io"
)

// Session одна SMTP сессия: одно письмо, затем Quit или Close.
type Session interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает сессии к почтовому серверу.
type Dialer interface {
	// Dial открывает защищённую и аутентифицированную сессию.
	// Все операции сессии ограничены сроком ctx и таймаутом отправки.
	Dial(ctx context.Context) (Session, error)
	// Sender адрес отправителя писем.
	Sender() string
}
