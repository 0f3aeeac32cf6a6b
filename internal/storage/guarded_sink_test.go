package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/fund-engine/internal/circuitbreaker"
	"github.com/fund-engine/internal/models"
)

type fakeSink struct {
	calls int
	err   error
}

func (s *fakeSink) Append(ctx context.Context, event models.FundEvent) error {
	s.calls++
	return s.err
}

func TestGuardedSink_ForwardsAppends(t *testing.T) {
	inner := &fakeSink{}
	sink := NewGuardedSink(inner)
	ctx := testContext(t)

	if err := sink.Append(ctx, models.FundEvent{Kind: "deposit"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if state := sink.BreakerState(); state != circuitbreaker.StateClosed {
		t.Errorf("breaker state = %s, want closed", state)
	}
}

func TestGuardedSink_OpensAfterRepeatedFailures(t *testing.T) {
	inner := &fakeSink{err: errors.New("history down")}
	sink := NewGuardedSink(inner)
	ctx := testContext(t)

	// Drive enough failures to trip the breaker
	for i := 0; i < 20; i++ {
		_ = sink.Append(ctx, models.FundEvent{Kind: "deposit"})
	}

	if state := sink.BreakerState(); state != circuitbreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", state)
	}

	// With the circuit open the inner sink is no longer called
	before := inner.calls
	err := sink.Append(ctx, models.FundEvent{Kind: "withdraw"})
	if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		t.Errorf("Append() error = %v, want ErrCircuitOpen", err)
	}
	if inner.calls != before {
		t.Errorf("inner calls = %d, want unchanged %d", inner.calls, before)
	}
}
