package storage

import (
	"context"

	"github.com/fund-engine/internal/circuitbreaker"
	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/models"
)

// GuardedSink wraps an event sink with a circuit breaker so a degraded
// history backend cannot slow down the ledger's hot path. Events appended
// while the circuit is open are dropped; history is observability, not
// ledger state.
type GuardedSink struct {
	inner   fund.EventSink
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuardedSink wraps inner with a circuit breaker using default thresholds.
func NewGuardedSink(inner fund.EventSink) *GuardedSink {
	return &GuardedSink{
		inner:   inner,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("event-history")),
	}
}

// Append forwards the event to the inner sink under the circuit breaker.
func (s *GuardedSink) Append(ctx context.Context, event models.FundEvent) error {
	return s.breaker.Execute(ctx, func() error {
		return s.inner.Append(ctx, event)
	})
}

// BreakerState exposes the breaker state for health reporting.
func (s *GuardedSink) BreakerState() circuitbreaker.State {
	return s.breaker.GetState()
}
