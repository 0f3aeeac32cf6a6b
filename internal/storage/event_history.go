package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/retry"
	"github.com/fund-engine/internal/types"
)

// EventHistory is the append-only fund event log backed by ClickHouse. It
// implements fund.EventSink. Appends sit off the atomic ledger path and are
// retried with backoff; a lost event never fails the operation it recorded.
type EventHistory struct {
	db          *ClickHouseDB
	retryConfig *retry.RetryConfig
}

// NewEventHistory creates a ClickHouse-backed event history
func NewEventHistory(db *ClickHouseDB) *EventHistory {
	return &EventHistory{
		db: db,
		retryConfig: &retry.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
}

// Append writes one fund event
func (h *EventHistory) Append(ctx context.Context, event models.FundEvent) error {
	query := `
		INSERT INTO fund_events (id, kind, principal, amount, shares, proposal_id, height, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	result := retry.WithExponentialBackoff(ctx, h.retryConfig, func(ctx context.Context, attempt int) error {
		return h.db.Exec(ctx, query,
			event.ID,
			string(event.Kind),
			event.Principal.Hex(),
			event.Amount,
			event.Shares,
			event.ProposalID,
			event.Height,
			event.CreatedAt,
		)
	})
	if !result.Success {
		return fmt.Errorf("failed to append fund event: %w", result.LastError)
	}
	return nil
}

// RecentEvents returns the newest events, most recent first
func (h *EventHistory) RecentEvents(ctx context.Context, limit int) ([]models.FundEvent, error) {
	query := `
		SELECT id, kind, principal, amount, shares, proposal_id, height, created_at
		FROM fund_events
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := h.db.Conn().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund events: %w", err)
	}
	defer rows.Close()

	var events []models.FundEvent
	for rows.Next() {
		var event models.FundEvent
		var kind, principal string

		if err := rows.Scan(
			&event.ID,
			&kind,
			&principal,
			&event.Amount,
			&event.Shares,
			&event.ProposalID,
			&event.Height,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund event: %w", err)
		}
		event.Kind = types.EventKind(kind)
		event.Principal = common.HexToAddress(principal)
		events = append(events, event)
	}
	return events, rows.Err()
}

// PrincipalEvents returns a principal's events, most recent first
func (h *EventHistory) PrincipalEvents(ctx context.Context, principal types.Principal, limit int) ([]models.FundEvent, error) {
	query := `
		SELECT id, kind, principal, amount, shares, proposal_id, height, created_at
		FROM fund_events
		WHERE principal = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := h.db.Conn().Query(ctx, query, principal.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund events: %w", err)
	}
	defer rows.Close()

	var events []models.FundEvent
	for rows.Next() {
		var event models.FundEvent
		var kind, rowPrincipal string

		if err := rows.Scan(
			&event.ID,
			&kind,
			&rowPrincipal,
			&event.Amount,
			&event.Shares,
			&event.ProposalID,
			&event.Height,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund event: %w", err)
		}
		event.Kind = types.EventKind(kind)
		event.Principal = common.HexToAddress(rowPrincipal)
		events = append(events, event)
	}
	return events, rows.Err()
}
