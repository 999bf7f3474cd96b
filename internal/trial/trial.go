// Package trial вычисляет состояние пробного периода по профилю пользователя:
// сколько дней осталось, какая доля периода использована и насколько срочно
// нужно показывать предложение перейти на платный тариф.
//
// Все функции чистые: текущее время передаётся явно.
package trial

import (
	"time"

	"github.com/magabrotheeeer/ems-portal/internal/models"
)

const (
	// TotalDays — длина пробного периода в днях.
	TotalDays = 14
	// ExpiringSoonDays — порог, начиная с которого период считается истекающим.
	ExpiringSoonDays = 3

	day = 24 * time.Hour
)

// Urgency — класс срочности пробного периода.
type Urgency int

const (
	// UrgencyNone — пробный период неприменим, баннер не показывается.
	UrgencyNone Urgency = iota
	UrgencyActive
	UrgencyExpiringSoon
	UrgencyExpired
)

func (u Urgency) String() string {
	switch u {
	case UrgencyActive:
		return "active"
	case UrgencyExpiringSoon:
		return "expiring_soon"
	case UrgencyExpired:
		return "expired"
	default:
		return "none"
	}
}

// MarshalText сериализует срочность строкой.
func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// Status — готовые к отображению метрики пробного периода.
type Status struct {
	Applicable        bool       `json:"applicable"`
	DaysRemaining     int        `json:"days_remaining"`
	DaysUsed          int        `json:"days_used"`
	TotalTrialDays    int        `json:"total_trial_days"`
	PercentageElapsed float64    `json:"percentage_elapsed"`
	Urgency           Urgency    `json:"urgency"`
	EndsAt            *time.Time `json:"ends_at,omitempty"`
}

// ShowBanner сообщает, нужно ли показывать баннер пробного периода.
func (s Status) ShowBanner() bool {
	return s.Applicable && s.Urgency != UrgencyNone
}

// None — результат для профиля без пробного периода.
func None() Status {
	return Status{TotalTrialDays: TotalDays, Urgency: UrgencyNone}
}

// Derive вычисляет статус пробного периода для профиля на момент now.
// Для nil-профиля, платной подписки или отсутствия даты окончания возвращается None.
func Derive(p *models.Profile, now time.Time) Status {
	if p == nil || p.SubscriptionType != models.SubscriptionTrial || p.TrialEndDate == nil {
		return None()
	}
	days := DaysRemaining(*p.TrialEndDate, now)
	end := *p.TrialEndDate
	return Status{
		Applicable:        true,
		DaysRemaining:     days,
		DaysUsed:          clampInt(TotalDays-days, 0, TotalDays),
		TotalTrialDays:    TotalDays,
		PercentageElapsed: PercentageElapsed(days),
		Urgency:           Classify(days),
		EndsAt:            &end,
	}
}

// DaysRemaining возвращает max(0, ceil((end - now) / 24h)).
func DaysRemaining(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	days := left / day
	if left%day != 0 {
		days++
	}
	return int(days)
}

// Classify относит число оставшихся дней к классу срочности:
// 0 — истёк, 1..3 — истекает, больше 3 — активен.
func Classify(daysRemaining int) Urgency {
	switch {
	case daysRemaining <= 0:
		return UrgencyExpired
	case daysRemaining <= ExpiringSoonDays:
		return UrgencyExpiringSoon
	default:
		return UrgencyActive
	}
}

// PercentageElapsed возвращает долю использованного периода в процентах, в пределах [0, 100].
func PercentageElapsed(daysRemaining int) float64 {
	pct := float64(TotalDays-daysRemaining) / float64(TotalDays) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// EndDate возвращает дату окончания пробного периода, начатого в момент start.
func EndDate(start time.Time) time.Time {
	return start.Add(TotalDays * day)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
