package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/magabrotheeeer/ems-portal/internal/config"
)

// Options параметры резолвера.
type Options struct {
	LookupTimeout time.Duration
	FetchTimeout  time.Duration
	Retry         config.Retry
	Metrics       Metrics
}

// OptionsFromConfig собирает Options из секции session конфига.
func OptionsFromConfig(cfg config.Session, m Metrics) Options {
	return Options{
		LookupTimeout: cfg.LookupTimeout,
		FetchTimeout:  cfg.FetchTimeout,
		Retry:         cfg.Retry,
		Metrics:       m,
	}
}

func (o Options) withDefaults() Options {
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 5 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 3 * time.Second
	}
	if o.Retry.InitialInterval <= 0 {
		o.Retry.InitialInterval = 200 * time.Millisecond
	}
	if o.Retry.MaxInterval <= 0 {
		o.Retry.MaxInterval = 2 * time.Second
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry.MaxAttempts = 1
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	return o
}

// newBackOff строит политику повторов: экспоненциальная задержка, не больше MaxAttempts попыток.
func (o Options) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.Retry.InitialInterval
	b.MaxInterval = o.Retry.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(o.Retry.MaxAttempts-1))
}
