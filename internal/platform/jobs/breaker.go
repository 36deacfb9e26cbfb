package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shutterbay/api/internal/services"
)

// ErrMailerUnavailable is returned while the breaker is open.
var ErrMailerUnavailable = errors.New("mailer unavailable")

// BreakerMailer stops calling a failing mailer for a cool-down period after consecutive failures.
type BreakerMailer struct {
	next    services.Mailer
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// BreakerSettings tunes BreakerMailer. Zero values fall back to defaults.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

// NewBreakerMailer wraps next with a circuit breaker.
func NewBreakerMailer(next services.Mailer, settings BreakerSettings) (*BreakerMailer, error) {
	if next == nil {
		return nil, errors.New("breaker mailer: next mailer is required")
	}
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	timeout := settings.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: settings.OnStateChange,
	})
	return &BreakerMailer{next: next, breaker: cb}, nil
}

// SendEmail forwards to the wrapped mailer unless the breaker is open.
func (b *BreakerMailer) SendEmail(ctx context.Context, msg services.EmailMessage) error {
	_, err := b.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.SendEmail(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrMailerUnavailable, err)
	}
	return err
}

// State exposes the breaker state for readiness reporting.
func (b *BreakerMailer) State() gobreaker.State {
	return b.breaker.State()
}
