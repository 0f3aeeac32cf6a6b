package fund

import (
	"context"

	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
)

// Tx is a transactional view over the whole ledger state. All reads and
// writes of one public operation go through a single Tx; either every write
// commits or none does.
type Tx interface {
	FundState(ctx context.Context) (models.FundState, error)
	PutFundState(ctx context.Context, state models.FundState) error

	ShareBalance(ctx context.Context, p types.Principal) (uint64, error)
	PutShareBalance(ctx context.Context, p types.Principal, balance uint64) error
	TotalShareSupply(ctx context.Context) (uint64, error)
	PutTotalShareSupply(ctx context.Context, supply uint64) error

	ShareAccount(ctx context.Context, p types.Principal) (models.ShareAccount, bool, error)
	PutShareAccount(ctx context.Context, account models.ShareAccount) error

	Allocation(ctx context.Context, asset types.AssetSymbol) (models.AllocationEntry, bool, error)
	PutAllocation(ctx context.Context, entry models.AllocationEntry) error
	Allocations(ctx context.Context) ([]models.AllocationEntry, error)

	Proposal(ctx context.Context, id uint64) (models.Proposal, bool, error)
	PutProposal(ctx context.Context, proposal models.Proposal) error

	HasBallot(ctx context.Context, proposalID uint64, voter types.Principal) (bool, error)
	PutBallot(ctx context.Context, ballot models.Ballot) error
}

// Ledger owns the shared fund state and hands out transactions. Update runs
// fn inside an exclusive read-write transaction: if fn returns an error, no
// write is applied. View runs fn read-only.
type Ledger interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}
