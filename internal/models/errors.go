package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — принципал существует, но связанной записи нет.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials — неверная пара логин/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountExists — email или username уже заняты.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidToken — токен сессии не прошёл проверку.
	ErrInvalidToken = errors.New("invalid session token")
)

// TransportError — бэкенд недоступен во время обращения к сессии или профилю.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport оборачивает err в TransportError, nil остаётся nil.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// IsTransport сообщает, вызвана ли ошибка недоступностью бэкенда.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
