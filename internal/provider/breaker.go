package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/geo-cache-service/internal/domain/model"
	"github.com/guttosm/geo-cache-service/internal/metrics"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the per-provider circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the circuit once reached.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
	}
}

// Breaker guards a provider with a circuit breaker so a failing upstream is
// skipped quickly instead of costing every request a full timeout.
type Breaker struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker[any]
}

// BatchBreaker is a Breaker whose inner provider also supports batches.
type BatchBreaker struct {
	*Breaker
	batch BatchProvider
}

// WithBreaker wraps p. The returned value implements BatchProvider when p does.
func WithBreaker(p Provider, cfg BreakerConfig) Provider {
	b := newBreaker(p, cfg)
	if bp, ok := p.(BatchProvider); ok {
		return &BatchBreaker{Breaker: b, batch: bp}
	}
	return b
}

func newBreaker(p Provider, cfg BreakerConfig) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 1
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = 1
	}
	name := "provider_" + p.Name()
	metrics.SetCircuitBreakerState(name, 0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: isProviderSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state changed")
			metrics.SetCircuitBreakerState(name, stateGauge(to))
		},
	})
	return &Breaker{inner: p, cb: cb}
}

// isProviderSuccess treats "no match" and caller cancellation as healthy
// answers; only upstream faults count toward tripping.
func isProviderSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNoResult) ||
		errors.Is(err, ErrUnsupportedKind) ||
		errors.Is(err, context.Canceled)
}

func stateGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

// Name returns the wrapped provider's name.
func (b *Breaker) Name() string {
	return b.inner.Name()
}

// Supports delegates to the wrapped provider.
func (b *Breaker) Supports(kind model.RequestKind) bool {
	return b.inner.Supports(kind)
}

// State returns the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Resolve runs the wrapped Resolve through the breaker.
func (b *Breaker) Resolve(ctx context.Context, req model.Request) (RawResult, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.inner.Resolve(ctx, req)
	})
	if err != nil {
		return RawResult{}, b.wrap(err)
	}
	return out.(RawResult), nil
}

// ResolveBatch runs the wrapped ResolveBatch through the breaker. Per-item
// failures do not count against the circuit.
func (b *BatchBreaker) ResolveBatch(ctx context.Context, reqs []model.Request) ([]BatchItem, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.batch.ResolveBatch(ctx, reqs)
	})
	if err != nil {
		return nil, b.wrap(err)
	}
	return out.([]BatchItem), nil
}

func (b *Breaker) wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", b.inner.Name(), err)
	}
	return err
}
