// Package metrics собирает метрики портала в Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/ems-portal/internal/session"
)

// Collector реализует счётчики резолвера сессий, route guard, входа и уведомлений.
type Collector struct {
	transitions   *prometheus.CounterVec
	staleResults  prometheus.Counter
	profileFetch  *prometheus.CounterVec
	guard         *prometheus.CounterVec
	auth          *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewCollector создаёт Collector и регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Переходы резолвера сессии по целевому состоянию",
		}, []string{"state"}),
		staleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "session_stale_results_total",
			Help: "Отброшенные результаты загрузки профиля устаревшего поколения",
		}),
		profileFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_fetch_total",
			Help: "Загрузки профиля по результату",
		}, []string{"result"}),
		guard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_decisions_total",
			Help: "Решения route guard по действию",
		}, []string{"action"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Запросы регистрации, входа и выхода по результату",
		}, []string{"op", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trial_notifications_total",
			Help: "Опубликованные уведомления о пробном периоде",
		}, []string{"urgency"}),
	}

	reg.MustRegister(
		c.transitions,
		c.staleResults,
		c.profileFetch,
		c.guard,
		c.auth,
		c.notifications,
	)
	return c
}

// Transition учитывает переход резолвера в состояние status.
func (c *Collector) Transition(status session.Status) {
	c.transitions.WithLabelValues(status.String()).Inc()
}

// StaleResult учитывает отброшенный результат.
func (c *Collector) StaleResult() {
	c.staleResults.Inc()
}

// ProfileFetch учитывает завершённую загрузку профиля.
func (c *Collector) ProfileFetch(result string) {
	c.profileFetch.WithLabelValues(result).Inc()
}

// GuardDecision учитывает решение route guard.
func (c *Collector) GuardDecision(action string) {
	c.guard.WithLabelValues(action).Inc()
}

// AuthRequest учитывает запрос к эндпоинтам идентификации.
func (c *Collector) AuthRequest(op, result string) {
	c.auth.WithLabelValues(op, result).Inc()
}

// TrialNotification учитывает опубликованное уведомление.
func (c *Collector) TrialNotification(urgency string) {
	c.notifications.WithLabelValues(urgency).Inc()
}

// Nop — заглушка для тестов и утилит без /metrics.
type Nop struct{}

func (Nop) Transition(session.Status)  {}
func (Nop) StaleResult()               {}
func (Nop) ProfileFetch(string)        {}
func (Nop) GuardDecision(string)       {}
func (Nop) AuthRequest(string, string) {}
func (Nop) TrialNotification(string)   {}
