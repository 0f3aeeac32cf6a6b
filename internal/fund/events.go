package fund

import (
	"context"

	"github.com/fund-engine/internal/models"
)

// EventSink receives fund events after a state transition commits. Sinks
// are observability collaborators; a sink failure never rolls back the
// operation that produced the event.
type EventSink interface {
	Append(ctx context.Context, event models.FundEvent) error
}

// NoopSink discards events.
type NoopSink struct{}

// Append implements EventSink
func (NoopSink) Append(ctx context.Context, event models.FundEvent) error {
	return nil
}
