// Package models содержит доменные структуры портала: учётную запись и принципала,
// профиль пользователя, формы входа и регистрации, а также ошибки,
// которыми обмениваются слой хранения, адаптер идентификации и резолвер сессии.
package models

import "time"

// Principal представляет аутентифицированную личность, которой владеет бэкенд идентификации.
// Резолвер сессии только наблюдает принципала и никогда его не изменяет.
type Principal struct {
	ID    string `json:"id"`    // Непрозрачный идентификатор (uuid)
	Email string `json:"email"` // Электронная почта, указанная при регистрации
}

// Account — учётные данные принципала, хранящиеся в таблице principals.
type Account struct {
	PrincipalID  string    // Уникальный идентификатор принципала
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // bcrypt-хэш пароля
	CreatedAt    time.Time // Дата создания учётной записи
}

// Principal возвращает публичное представление учётной записи.
func (a *Account) Principal() *Principal {
	return &Principal{ID: a.PrincipalID, Email: a.Email}
}

// SessionRecord описывает запись браузерной сессии в redis.
type SessionRecord struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Principal возвращает принципала, которому принадлежит сессия.
func (s *SessionRecord) Principal() *Principal {
	return &Principal{ID: s.PrincipalID, Email: s.Email}
}
