// Package models defines the persisted entities of the fund ledger state.
// Entities are value types; mutation goes through With* constructors that
// return an updated copy, written back atomically by the ledger.
package models

import (
	"github.com/fund-engine/internal/types"
)

// FundState is the singleton record mutated by every fund operation.
type FundState struct {
	Initialized       bool            `json:"initialized"`
	Paused            bool            `json:"paused"`
	TotalValue        uint64          `json:"totalValue"` // base-asset units held
	ManagementFeeBps  uint64          `json:"managementFeeBps"`
	PerformanceFeeBps uint64          `json:"performanceFeeBps"`
	MinDeposit        uint64          `json:"minDeposit"`
	ProposalCounter   uint64          `json:"proposalCounter"`
	Owner             types.Principal `json:"owner"`
}

// WithTotalValue returns a copy with totalValue replaced
func (s FundState) WithTotalValue(v uint64) FundState {
	s.TotalValue = v
	return s
}

// WithNextProposal returns a copy with the proposal counter advanced,
// along with the newly allocated id.
func (s FundState) WithNextProposal() (FundState, uint64) {
	s.ProposalCounter++
	return s, s.ProposalCounter
}

// ShareAccount tracks cumulative deposit history per principal. The share
// balance itself lives in the ledger's balance table, not here.
type ShareAccount struct {
	Principal         types.Principal `json:"principal"`
	TotalDeposited    uint64          `json:"totalDeposited"`
	LastDepositHeight types.Height    `json:"lastDepositHeight"`
}

// WithDeposit returns a copy with the deposit accumulated at the given height
func (a ShareAccount) WithDeposit(amount uint64, height types.Height) ShareAccount {
	a.TotalDeposited += amount
	a.LastDepositHeight = height
	return a
}

// AllocationEntry is one row of the allocation table, keyed by asset symbol.
// Created at fund initialization, mutated only by the rebalance executor.
type AllocationEntry struct {
	Asset               types.AssetSymbol `json:"asset"`
	TargetPercentageBps uint64            `json:"targetPercentageBps"`
	CurrentAmount       uint64            `json:"currentAmount"`
	LastRebalanceHeight types.Height      `json:"lastRebalanceHeight"`
}

// WithRebalance returns a copy with the current amount rewritten at the given height
func (e AllocationEntry) WithRebalance(amount uint64, height types.Height) AllocationEntry {
	e.CurrentAmount = amount
	e.LastRebalanceHeight = height
	return e
}
