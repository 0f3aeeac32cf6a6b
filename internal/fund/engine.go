// Package fund implements the state-transition core of the pooled fund:
// share accounting, governance, and conditional rebalancing. Every public
// operation is one atomic ledger transaction; preconditions are checked in
// order and the first failure aborts with no partial effect.
package fund

import (
	"context"
	"time"

	"github.com/fund-engine/internal/logging"
	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
	"github.com/google/uuid"
)

// Params holds the fund parameters fixed at initialization.
type Params struct {
	Owner             types.Principal
	MinDeposit        uint64
	ManagementFeeBps  uint64
	PerformanceFeeBps uint64
}

// Engine executes fund operations against a Ledger, stamped with the height
// supplied by the Clock. Committed transitions are reported to the EventSink.
type Engine struct {
	ledger Ledger
	clock  Clock
	events EventSink
	params Params
}

// NewEngine creates a fund engine
func NewEngine(ledger Ledger, clock Clock, events EventSink, params Params) *Engine {
	if events == nil {
		events = NoopSink{}
	}
	return &Engine{
		ledger: ledger,
		clock:  clock,
		events: events,
		params: params,
	}
}

// InitializeFund writes the fund state and the fixed allocation table.
// Owner-only. There is no re-entry guard: calling it again overwrites the
// fund state and resets allocations.
func (e *Engine) InitializeFund(ctx context.Context, caller types.Principal) error {
	if caller != e.params.Owner {
		return ErrOwnerOnly
	}

	err := e.ledger.Update(ctx, func(tx Tx) error {
		state := models.FundState{
			Initialized:       true,
			Paused:            false,
			TotalValue:        0,
			ManagementFeeBps:  e.params.ManagementFeeBps,
			PerformanceFeeBps: e.params.PerformanceFeeBps,
			MinDeposit:        e.params.MinDeposit,
			ProposalCounter:   0,
			Owner:             e.params.Owner,
		}
		if err := tx.PutFundState(ctx, state); err != nil {
			return err
		}

		allocations := []models.AllocationEntry{
			{Asset: types.AssetSTX, TargetPercentageBps: DefaultSTXTargetBps},
			{Asset: types.AssetStable, TargetPercentageBps: DefaultStableTargetBps},
		}
		for _, entry := range allocations {
			if err := tx.PutAllocation(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.FromContext(ctx).WithField("owner", caller.Hex()).Info("Fund initialized")
	return nil
}

// SetPaused toggles the fund's paused flag. Owner-only.
func (e *Engine) SetPaused(ctx context.Context, caller types.Principal, paused bool) error {
	if caller != e.params.Owner {
		return ErrOwnerOnly
	}

	return e.ledger.Update(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		state.Paused = paused
		return tx.PutFundState(ctx, state)
	})
}

// sharePrice computes the price of one share in base units at SharePrecision.
// Integer division truncates; with zero supply the price is the fixed initial
// price, so the function is total.
func sharePrice(totalValue, totalSupply uint64) uint64 {
	if totalSupply == 0 {
		return InitialSharePrice
	}
	return totalValue * SharePrecision / totalSupply
}

// SharePrice returns the current share price in base units at SharePrecision
func (e *Engine) SharePrice(ctx context.Context) (uint64, error) {
	var price uint64
	err := e.ledger.View(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		supply, err := tx.TotalShareSupply(ctx)
		if err != nil {
			return err
		}
		price = sharePrice(state.TotalValue, supply)
		return nil
	})
	return price, err
}

// Deposit mints shares against a base-asset deposit at the current price.
// The base-asset transfer into fund custody is the host ledger's concern;
// this transition records the resulting claim.
func (e *Engine) Deposit(ctx context.Context, caller types.Principal, amount uint64) (uint64, error) {
	height := e.clock.Height()
	var minted uint64

	err := e.ledger.Update(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		if state.Paused {
			return ErrFundPaused
		}
		if amount < state.MinDeposit {
			return ErrBelowMinimum
		}

		supply, err := tx.TotalShareSupply(ctx)
		if err != nil {
			return err
		}
		minted = amount * SharePrecision / sharePrice(state.TotalValue, supply)

		balance, err := tx.ShareBalance(ctx, caller)
		if err != nil {
			return err
		}
		if err := tx.PutShareBalance(ctx, caller, balance+minted); err != nil {
			return err
		}
		if err := tx.PutTotalShareSupply(ctx, supply+minted); err != nil {
			return err
		}

		account, ok, err := tx.ShareAccount(ctx, caller)
		if err != nil {
			return err
		}
		if !ok {
			account = models.ShareAccount{Principal: caller}
		}
		if err := tx.PutShareAccount(ctx, account.WithDeposit(amount, height)); err != nil {
			return err
		}

		return tx.PutFundState(ctx, state.WithTotalValue(state.TotalValue+amount))
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, models.FundEvent{
		Kind:      types.EventDeposit,
		Principal: caller,
		Amount:    amount,
		Shares:    minted,
		Height:    height,
	})
	return minted, nil
}

// Withdraw burns shares and pays out at the price read on pre-burn supply.
// Reading the price before the burn is load-bearing for the last withdrawer's
// rounding and must not be reordered.
func (e *Engine) Withdraw(ctx context.Context, caller types.Principal, shareAmount uint64) (uint64, error) {
	height := e.clock.Height()
	var payout uint64

	err := e.ledger.Update(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		if state.Paused {
			return ErrFundPaused
		}

		balance, err := tx.ShareBalance(ctx, caller)
		if err != nil {
			return err
		}
		if balance < shareAmount {
			return ErrInsufficientBalance
		}

		supply, err := tx.TotalShareSupply(ctx)
		if err != nil {
			return err
		}
		payout = shareAmount * sharePrice(state.TotalValue, supply) / SharePrecision

		if err := tx.PutShareBalance(ctx, caller, balance-shareAmount); err != nil {
			return err
		}
		if err := tx.PutTotalShareSupply(ctx, supply-shareAmount); err != nil {
			return err
		}
		return tx.PutFundState(ctx, state.WithTotalValue(state.TotalValue-payout))
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, models.FundEvent{
		Kind:      types.EventWithdraw,
		Principal: caller,
		Amount:    payout,
		Shares:    shareAmount,
		Height:    height,
	})
	return payout, nil
}

// Transfer moves shares between principals. The caller must be the sender;
// total supply is unchanged.
func (e *Engine) Transfer(ctx context.Context, caller, from, to types.Principal, amount uint64) error {
	if caller != from {
		return ErrNotTokenOwner
	}

	err := e.ledger.Update(ctx, func(tx Tx) error {
		fromBalance, err := tx.ShareBalance(ctx, from)
		if err != nil {
			return err
		}
		if fromBalance < amount {
			return ErrInsufficientBalance
		}
		toBalance, err := tx.ShareBalance(ctx, to)
		if err != nil {
			return err
		}
		if err := tx.PutShareBalance(ctx, from, fromBalance-amount); err != nil {
			return err
		}
		return tx.PutShareBalance(ctx, to, toBalance+amount)
	})
	if err != nil {
		return err
	}

	e.emit(ctx, models.FundEvent{
		Kind:      types.EventTransfer,
		Principal: from,
		Shares:    amount,
		Height:    e.clock.Height(),
	})
	return nil
}

// ManagementFee computes the pro-rata management fee on a balance over a
// block span. Pure; no entry point invokes it automatically — fee sweeping
// belongs to an external scheduler collaborator.
func ManagementFee(balance, feeBps, blocksElapsed uint64) uint64 {
	return balance * feeBps * blocksElapsed / (AnnualBlocks * BpsDenominator)
}

// CreateProposal opens a governance proposal. The caller must hold shares;
// the voting window closes VotingWindowBlocks past the current height.
func (e *Engine) CreateProposal(ctx context.Context, caller types.Principal, title, description string, proposalType types.ProposalType, targetValue uint64) (uint64, error) {
	height := e.clock.Height()

	if !types.ValidProposalType(proposalType) || targetValue == 0 ||
		title == "" || len(title) > MaxTitleLen || len(description) > MaxDescriptionLen {
		return 0, ErrInvalidProposal
	}

	var id uint64
	err := e.ledger.Update(ctx, func(tx Tx) error {
		balance, err := tx.ShareBalance(ctx, caller)
		if err != nil {
			return err
		}
		if balance == 0 {
			return ErrInsufficientVotingPower
		}

		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		state, id = state.WithNextProposal()
		if err := tx.PutFundState(ctx, state); err != nil {
			return err
		}

		return tx.PutProposal(ctx, models.Proposal{
			ID:          id,
			Proposer:    caller,
			Title:       title,
			Description: description,
			Type:        proposalType,
			TargetValue: targetValue,
			EndHeight:   height + VotingWindowBlocks,
		})
	})
	if err != nil {
		return 0, err
	}

	e.emit(ctx, models.FundEvent{
		Kind:       types.EventProposalCreated,
		Principal:  caller,
		ProposalID: id,
		Height:     height,
	})
	return id, nil
}

// Vote casts a ballot weighted by the caller's share balance at vote time.
// One ballot per (proposal, voter); votes at the end height still count.
func (e *Engine) Vote(ctx context.Context, caller types.Principal, proposalID uint64, support bool) error {
	height := e.clock.Height()

	err := e.ledger.Update(ctx, func(tx Tx) error {
		proposal, ok, err := tx.Proposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProposalNotFound
		}

		balance, err := tx.ShareBalance(ctx, caller)
		if err != nil {
			return err
		}
		if balance == 0 {
			return ErrInsufficientVotingPower
		}

		voted, err := tx.HasBallot(ctx, proposalID, caller)
		if err != nil {
			return err
		}
		if voted {
			return ErrAlreadyVoted
		}
		if height > proposal.EndHeight {
			return ErrVotingPeriodEnded
		}

		if err := tx.PutBallot(ctx, models.Ballot{
			ProposalID: proposalID,
			Voter:      caller,
			Support:    support,
			Height:     height,
		}); err != nil {
			return err
		}
		return tx.PutProposal(ctx, proposal.WithVote(support, balance))
	})
	if err != nil {
		return err
	}

	e.emit(ctx, models.FundEvent{
		Kind:       types.EventVote,
		Principal:  caller,
		ProposalID: proposalID,
		Height:     height,
	})
	return nil
}

// RebalanceResult is the outcome of an executed rebalancing. Both the
// fee-charged and fee-skipped branches produce this same shape.
type RebalanceResult struct {
	Rebalanced       bool   `json:"rebalanced"`
	STXAmount        uint64 `json:"stxAmount"`
	StableAmount     uint64 `json:"stableAmount"`
	PerformanceFee   uint64 `json:"performanceFee"`
	PerformanceScore int64  `json:"performanceScore"`
}

// ExecuteRebalancing validates a passed rebalance proposal and rewrites the
// allocation table, conditionally charging a performance fee. Gates are
// evaluated in order; the first failure aborts with no partial effect.
// Quorum is measured against total share supply, not votes cast.
func (e *Engine) ExecuteRebalancing(ctx context.Context, caller types.Principal, proposalID uint64) (RebalanceResult, error) {
	height := e.clock.Height()
	var result RebalanceResult

	err := e.ledger.Update(ctx, func(tx Tx) error {
		proposal, ok, err := tx.Proposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrProposalNotFound
		}

		supply, err := tx.TotalShareSupply(ctx)
		if err != nil {
			return err
		}
		totalVotes := proposal.TotalVotes()
		if totalVotes < supply/QuorumSupplyDivisor {
			return ErrInsufficientVotingPower
		}
		if proposal.VotesFor < totalVotes*ApprovalNumerator/ApprovalDenominator {
			return ErrInsufficientVotingPower
		}
		if height <= proposal.EndHeight {
			return ErrVotingPeriodEnded
		}
		if proposal.Executed {
			return ErrInvalidAmount
		}
		if proposal.Type != types.ProposalRebalance {
			return ErrInvalidAmount
		}

		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}

		stx, ok, err := tx.Allocation(ctx, types.AssetSTX)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}
		stable, ok, err := tx.Allocation(ctx, types.AssetStable)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownAsset
		}

		stxTarget := state.TotalValue * stx.TargetPercentageBps / BpsDenominator
		stableTarget := state.TotalValue * stable.TargetPercentageBps / BpsDenominator

		rebalanceDelta := stxTarget - stx.CurrentAmount
		if stx.CurrentAmount > stxTarget {
			rebalanceDelta = stx.CurrentAmount - stxTarget
		}

		var score int64
		if state.TotalValue > 0 {
			score = (int64(state.TotalValue) - int64(InitialSharePrice)) * int64(BpsDenominator) / int64(InitialSharePrice)
		}

		if err := tx.PutAllocation(ctx, stx.WithRebalance(stxTarget, height)); err != nil {
			return err
		}
		if err := tx.PutAllocation(ctx, stable.WithRebalance(stableTarget, height)); err != nil {
			return err
		}
		if err := tx.PutProposal(ctx, proposal.WithExecuted()); err != nil {
			return err
		}

		var fee uint64
		if score > PerformanceThresholdBps {
			fee = rebalanceDelta * state.PerformanceFeeBps / BpsDenominator
			if fee > state.TotalValue {
				return ErrInvalidAmount
			}
			if err := tx.PutFundState(ctx, state.WithTotalValue(state.TotalValue-fee)); err != nil {
				return err
			}
		}

		result = RebalanceResult{
			Rebalanced:       true,
			STXAmount:        stxTarget,
			StableAmount:     stableTarget,
			PerformanceFee:   fee,
			PerformanceScore: score,
		}
		return nil
	})
	if err != nil {
		return RebalanceResult{}, err
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"proposalId":     proposalID,
		"performanceFee": result.PerformanceFee,
	}).Info("Rebalancing executed")

	e.emit(ctx, models.FundEvent{
		Kind:       types.EventRebalance,
		Principal:  caller,
		Amount:     result.PerformanceFee,
		ProposalID: proposalID,
		Height:     height,
	})
	return result, nil
}

// emit reports a committed transition to the event sink. Sink failures are
// logged, never propagated: history is observability, not ledger state.
func (e *Engine) emit(ctx context.Context, event models.FundEvent) {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()

	if err := e.events.Append(ctx, event); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("kind", event.Kind).Warn("Failed to append fund event")
	}
}
