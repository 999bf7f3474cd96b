package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

const sessionPrefix = "auth:record:"

// SessionStore хранит записи сессий в redis под ключом "auth:record:<id>"
// с TTL, равным оставшемуся сроку жизни сессии.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore создаёт хранилище сессий.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string {
	return sessionPrefix + id
}

// Create сохраняет запись сессии.
func (s *SessionStore) Create(ctx context.Context, rec *models.SessionRecord) error {
	const op = "cache.SessionStore.Create"
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, sessionKey(rec.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Get возвращает запись сессии или nil, если сессии нет или она истекла.
func (s *SessionStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	const op = "cache.SessionStore.Get"
	b, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var rec models.SessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if time.Now().After(rec.ExpiresAt) {
		_ = s.client.Del(ctx, sessionKey(id)).Err()
		return nil, nil
	}
	return &rec, nil
}

// Extend продлевает сессию до expiresAt. Возвращает nil, если сессии уже нет.
func (s *SessionStore) Extend(ctx context.Context, id string, expiresAt time.Time) (*models.SessionRecord, error) {
	const op = "cache.SessionStore.Extend"
	rec, err := s.Get(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	rec.ExpiresAt = expiresAt
	if err := s.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

// Delete удаляет запись сессии.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	const op = "cache.SessionStore.Delete"
	if err := s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
