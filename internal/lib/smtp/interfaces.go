// Package smtp открывает сессии с SMTP-сервером для отправки уведомлений.
package smtp

import "io"

// Client — сессия с SMTP-сервером.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Dialer открывает новую сессию и сообщает адрес отправителя.
type Dialer interface {
	Connect() (Client, error)
	Sender() string
}
