package models

import (
	"time"

	"github.com/fund-engine/internal/types"
)

// FundEvent is one row of the append-only event history. Events are written
// after a state transition commits; they are observability data, not part of
// the atomic ledger state.
type FundEvent struct {
	ID         string          `json:"id"`
	Kind       types.EventKind `json:"kind"`
	Principal  types.Principal `json:"principal"`
	Amount     uint64          `json:"amount"`     // base-asset units moved (0 when n/a)
	Shares     uint64          `json:"shares"`     // shares minted/burned/moved (0 when n/a)
	ProposalID uint64          `json:"proposalId"` // 0 when not proposal-related
	Height     types.Height    `json:"height"`
	CreatedAt  time.Time       `json:"createdAt"`
}
