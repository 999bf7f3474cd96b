// Package identity реализует бэкенд идентификации портала: регистрацию, вход,
// продление и завершение сессий, а также клиента сессии для резолвера.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/ems-portal/internal/cache"
	"github.com/magabrotheeeer/ems-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/ems-portal/internal/lib/password"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// AccountStorage описывает контракт хранилища учётных записей и профилей.
type AccountStorage interface {
	CreateAccount(ctx context.Context, account models.Account, profile models.Profile) (string, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetProfile(ctx context.Context, principalID string) (*models.Profile, error)
}

// SessionStore хранит записи браузерных сессий.
type SessionStore interface {
	Create(ctx context.Context, rec *models.SessionRecord) error
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	Extend(ctx context.Context, id string, expiresAt time.Time) (*models.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// ProfileCache — кэш профилей.
type ProfileCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Notifier публикует изменения сессий и доставляет их подписчикам.
type Notifier interface {
	Publish(ctx context.Context, sid string, event cache.Event, p *models.Principal) error
	Subscribe(sid string, fn func(*models.Principal)) func()
	Deliver(sid string, p *models.Principal)
}

// Session — выданная браузеру сессия.
type Session struct {
	ID        string
	Token     string
	ExpiresAt time.Time
	Principal *models.Principal
}

// Service отвечает за регистрацию, вход и жизненный цикл сессий.
type Service struct {
	log        *slog.Logger
	accounts   AccountStorage
	sessions   SessionStore
	profiles   ProfileCache
	hub        Notifier
	tokens     jwt.Maker
	tokenTTL   time.Duration
	profileTTL time.Duration
}

// New создаёт сервис идентификации.
func New(log *slog.Logger, accounts AccountStorage, sessions SessionStore, profiles ProfileCache,
	hub Notifier, tokens jwt.Maker, tokenTTL, profileTTL time.Duration) *Service {
	return &Service{
		log:        log,
		accounts:   accounts,
		sessions:   sessions,
		profiles:   profiles,
		hub:        hub,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		profileTTL: profileTTL,
	}
}

// SignUp создаёт учётную запись с профилем на пробном периоде и сразу открывает сессию.
func (s *Service) SignUp(ctx context.Context, form models.SignupForm) (*Session, error) {
	const op = "identity.SignUp"

	hashed, err := password.GetHash(form.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	trialEnd := trial.EndDate(time.Now().UTC())
	account := models.Account{
		Email:        form.Email,
		Username:     form.Username,
		PasswordHash: hashed,
	}
	profile := models.Profile{
		Username:             form.Username,
		FirstName:            form.FirstName,
		LastName:             form.LastName,
		PrimaryCertification: models.Certification(form.Certification),
		SubscriptionType:     models.SubscriptionTrial,
		TrialEndDate:         &trialEnd,
		Role:                 models.RoleStudent,
		AgencyName:           form.AgencyName,
	}

	id, err := s.accounts.CreateAccount(ctx, account, profile)
	if err != nil {
		if errors.Is(err, models.ErrAccountExists) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, models.Transport(op, err)
	}
	s.log.Info("account created", sl.Principal(id))

	return s.startSession(ctx, &models.Principal{ID: id, Email: form.Email})
}

// SignIn проверяет пару идентификатор/пароль и открывает новую сессию.
// Неизвестный пользователь и неверный пароль неразличимы: models.ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, form models.LoginForm) (*Session, error) {
	const op = "identity.SignIn"

	var (
		account *models.Account
		err     error
	)
	switch form.Method {
	case models.LoginByUsername:
		account, err = s.accounts.GetAccountByUsername(ctx, form.Identifier)
	default:
		account, err = s.accounts.GetAccountByEmail(ctx, form.Identifier)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return nil, models.Transport(op, err)
	}
	if err := password.CompareHash(account.PasswordHash, form.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	return s.startSession(ctx, account.Principal())
}

// Authenticate проверяет токен из cookie и возвращает id сессии.
func (s *Service) Authenticate(token string) (string, error) {
	const op = "identity.Authenticate"
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, models.ErrInvalidToken, err)
	}
	return claims.SessionID, nil
}

// Refresh продлевает сессию sid, выдаёт новый токен и оповещает подписчиков.
// Кэш профиля сбрасывается, чтобы резолвер перечитал профиль.
func (s *Service) Refresh(ctx context.Context, sid string) (*Session, error) {
	const op = "identity.Refresh"

	expiresAt := time.Now().UTC().Add(s.tokenTTL)
	rec, err := s.sessions.Extend(ctx, sid, expiresAt)
	if err != nil {
		return nil, models.Transport(op, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}
	token, err := s.tokens.GenerateToken(sid, rec.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.profiles.Invalidate(ctx, profileKey(rec.PrincipalID)); err != nil {
		s.log.Warn("failed to invalidate profile cache", sl.Principal(rec.PrincipalID), sl.Err(err))
	}

	p := rec.Principal()
	s.publish(ctx, sid, cache.EventTokenRefreshed, p)
	return &Session{ID: sid, Token: token, ExpiresAt: rec.ExpiresAt, Principal: p}, nil
}

// SignOut удаляет сессию sid и оповещает подписчиков об её отсутствии.
func (s *Service) SignOut(ctx context.Context, sid string) error {
	const op = "identity.SignOut"
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return models.Transport(op, err)
	}
	if err := s.hub.Publish(ctx, sid, cache.EventSignedOut, nil); err != nil {
		// записи уже нет, локальные резолверы должны узнать об этом без redis
		s.hub.Deliver(sid, nil)
		return models.Transport(op, err)
	}
	s.log.Info("session signed out", sl.Session(sid))
	return nil
}

// Client возвращает бэкенд сессии sid для резолвера.
func (s *Service) Client(sid string) *Client {
	return &Client{svc: s, sid: sid}
}

func (s *Service) startSession(ctx context.Context, p *models.Principal) (*Session, error) {
	const op = "identity.startSession"

	now := time.Now().UTC()
	rec := &models.SessionRecord{
		ID:          uuid.NewString(),
		PrincipalID: p.ID,
		Email:       p.Email,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.tokenTTL),
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, models.Transport(op, err)
	}
	token, err := s.tokens.GenerateToken(rec.ID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publish(ctx, rec.ID, cache.EventSignedIn, p)
	s.log.Info("session started", sl.Session(rec.ID), sl.Principal(p.ID))
	return &Session{ID: rec.ID, Token: token, ExpiresAt: rec.ExpiresAt, Principal: p}, nil
}

func (s *Service) publish(ctx context.Context, sid string, event cache.Event, p *models.Principal) {
	if err := s.hub.Publish(ctx, sid, event, p); err != nil {
		s.log.Warn("failed to publish session event",
			sl.Session(sid),
			slog.String("event", string(event)),
			sl.Err(err),
		)
	}
}

func profileKey(principalID string) string {
	return "profile:" + principalID
}
