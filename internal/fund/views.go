package fund

import (
	"context"

	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
)

// FundInfo is the read-only summary of the fund.
type FundInfo struct {
	Initialized       bool                     `json:"initialized"`
	Paused            bool                     `json:"paused"`
	TotalValue        uint64                   `json:"totalValue"`
	TotalShareSupply  uint64                   `json:"totalShareSupply"`
	SharePrice        uint64                   `json:"sharePrice"`
	ManagementFeeBps  uint64                   `json:"managementFeeBps"`
	PerformanceFeeBps uint64                   `json:"performanceFeeBps"`
	MinDeposit        uint64                   `json:"minDeposit"`
	ProposalCounter   uint64                   `json:"proposalCounter"`
	Allocations       []models.AllocationEntry `json:"allocations"`
}

// UserBalance is the read-only view of one principal's position.
type UserBalance struct {
	Principal         types.Principal `json:"principal"`
	Shares            uint64          `json:"shares"`
	TotalDeposited    uint64          `json:"totalDeposited"`
	LastDepositHeight types.Height    `json:"lastDepositHeight"`
}

// FundInfo returns the fund summary. Never fails on valid input.
func (e *Engine) FundInfo(ctx context.Context) (FundInfo, error) {
	var info FundInfo
	err := e.ledger.View(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		supply, err := tx.TotalShareSupply(ctx)
		if err != nil {
			return err
		}
		allocations, err := tx.Allocations(ctx)
		if err != nil {
			return err
		}
		info = FundInfo{
			Initialized:       state.Initialized,
			Paused:            state.Paused,
			TotalValue:        state.TotalValue,
			TotalShareSupply:  supply,
			SharePrice:        sharePrice(state.TotalValue, supply),
			ManagementFeeBps:  state.ManagementFeeBps,
			PerformanceFeeBps: state.PerformanceFeeBps,
			MinDeposit:        state.MinDeposit,
			ProposalCounter:   state.ProposalCounter,
			Allocations:       allocations,
		}
		return nil
	})
	return info, err
}

// UserBalance returns a principal's share balance and deposit history.
// Principals with no history get a zero-valued view, not an error.
func (e *Engine) UserBalance(ctx context.Context, p types.Principal) (UserBalance, error) {
	balance := UserBalance{Principal: p}
	err := e.ledger.View(ctx, func(tx Tx) error {
		shares, err := tx.ShareBalance(ctx, p)
		if err != nil {
			return err
		}
		balance.Shares = shares

		account, ok, err := tx.ShareAccount(ctx, p)
		if err != nil {
			return err
		}
		if ok {
			balance.TotalDeposited = account.TotalDeposited
			balance.LastDepositHeight = account.LastDepositHeight
		}
		return nil
	})
	return balance, err
}

// GetProposal returns a proposal by id, or nil when absent.
func (e *Engine) GetProposal(ctx context.Context, id uint64) (*models.Proposal, error) {
	var result *models.Proposal
	err := e.ledger.View(ctx, func(tx Tx) error {
		proposal, ok, err := tx.Proposal(ctx, id)
		if err != nil {
			return err
		}
		if ok {
			result = &proposal
		}
		return nil
	})
	return result, err
}

// GetAllocation returns one allocation table entry
func (e *Engine) GetAllocation(ctx context.Context, asset types.AssetSymbol) (models.AllocationEntry, error) {
	var entry models.AllocationEntry
	err := e.ledger.View(ctx, func(tx Tx) error {
		found, ok, lookupErr := tx.Allocation(ctx, asset)
		if lookupErr != nil {
			return lookupErr
		}
		if !ok {
			return ErrUnknownAsset
		}
		entry = found
		return nil
	})
	return entry, err
}
