// Package notifier находит профили с истекающим или истёкшим пробным периодом
// и публикует уведомления о них в очередь.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/ems-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/ems-portal/internal/lib/sl"
	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// Repository — хранилище профилей и отметок об отправленных уведомлениях.
type Repository interface {
	ListTrialProfiles(ctx context.Context, before time.Time) ([]models.ProfileContact, error)
	MarkTrialNotified(ctx context.Context, profileID, urgency string) (bool, error)
	UnmarkTrialNotified(ctx context.Context, profileID, urgency string) error
}

// Publisher публикует сообщение с ключом маршрутизации.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Metrics учитывает опубликованные уведомления.
type Metrics interface {
	TrialNotification(urgency string)
}

// Service — планировщик уведомлений о пробном периоде.
type Service struct {
	repo      Repository
	publisher Publisher
	metrics   Metrics
	log       *slog.Logger
	window    time.Duration
	now       func() time.Time
}

// New создаёт Service. window — за сколько до окончания периода профиль попадает в выборку.
func New(log *slog.Logger, repo Repository, publisher Publisher, metrics Metrics, window time.Duration) *Service {
	if window <= 0 {
		window = trial.ExpiringSoonDays * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		window:    window,
		now:       time.Now,
	}
}

// Run выполняет проход сразу и затем каждые interval, пока не отменён ctx.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	n, err := s.RunOnce(ctx, s.now())
	if err != nil {
		s.log.Error("trial notification pass failed", sl.Err(err))
		return
	}
	s.log.Info("trial notification pass finished", slog.Int("published", n))
}

// RunOnce публикует по одному уведомлению каждой срочности для каждого профиля.
// Возвращает число опубликованных сообщений.
func (s *Service) RunOnce(ctx context.Context, now time.Time) (int, error) {
	const op = "notifier.RunOnce"

	contacts, err := s.repo.ListTrialProfiles(ctx, now.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(contacts) == 0 {
		s.log.Debug("no trial profiles in window")
		return 0, nil
	}

	published := 0
	for _, c := range contacts {
		if ctx.Err() != nil {
			return published, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		ok, err := s.notify(ctx, c, now)
		if err != nil {
			s.log.Error("failed to notify profile", sl.Principal(c.Profile.ID), sl.Err(err))
			continue
		}
		if ok {
			published++
		}
	}
	return published, nil
}

func (s *Service) notify(ctx context.Context, c models.ProfileContact, now time.Time) (bool, error) {
	const op = "notifier.notify"

	status := trial.Derive(&c.Profile, now)
	key, ok := routingKey(status.Urgency)
	if !ok {
		return false, nil
	}
	urgency := status.Urgency.String()

	marked, err := s.repo.MarkTrialNotified(ctx, c.Profile.ID, urgency)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !marked {
		return false, nil
	}

	notice := models.TrialNotification{
		ProfileID:     c.Profile.ID,
		Email:         c.Email,
		FirstName:     c.Profile.DisplayName(),
		Urgency:       urgency,
		DaysRemaining: status.DaysRemaining,
		TrialEndDate:  *status.EndsAt,
	}
	if err := s.publisher.Publish(ctx, key, notice); err != nil {
		if uerr := s.repo.UnmarkTrialNotified(ctx, c.Profile.ID, urgency); uerr != nil {
			s.log.Error("failed to unmark notification", sl.Principal(c.Profile.ID), sl.Err(uerr))
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.TrialNotification(urgency)
	s.log.Info("trial notification published",
		sl.Principal(c.Profile.ID),
		slog.String("urgency", urgency),
		slog.Int("days_remaining", status.DaysRemaining),
	)
	return true, nil
}

func routingKey(u trial.Urgency) (string, bool) {
	switch u {
	case trial.UrgencyExpiringSoon:
		return rabbitmq.RoutingTrialExpiring, true
	case trial.UrgencyExpired:
		return rabbitmq.RoutingTrialExpired, true
	}
	return "", false
}
