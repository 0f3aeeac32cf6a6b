package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fund-engine/internal/fund"
	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
	"github.com/jackc/pgx/v5"
)

// fundStateLockID keys the advisory lock that serializes write transactions.
// One writer at a time over the whole ledger state matches the host chain's
// single-writer transaction semantics.
const fundStateLockID = 0x46554e44 // "FUND"

// PostgresLedger implements fund.Ledger on a Postgres pool. Every Update
// runs inside one SQL transaction holding an exclusive advisory lock, so a
// failed operation leaves no partial write.
type PostgresLedger struct {
	db *PostgresDB
}

// NewPostgresLedger creates a Postgres-backed fund ledger
func NewPostgresLedger(db *PostgresDB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Update runs fn in an exclusive read-write transaction
func (l *PostgresLedger) Update(ctx context.Context, fn func(tx fund.Tx) error) error {
	tx, err := l.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, fundStateLockID); err != nil {
		return fmt.Errorf("failed to acquire ledger lock: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// View runs fn in a read-only transaction
func (l *PostgresLedger) View(ctx context.Context, fn func(tx fund.Tx) error) error {
	tx, err := l.db.Pool().BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// pgTx implements fund.Tx over one pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FundState(ctx context.Context) (models.FundState, error) {
	query := `
		SELECT initialized, paused, total_value, management_fee_bps,
		       performance_fee_bps, min_deposit, proposal_counter, owner_principal
		FROM fund_state
		WHERE id = 1
	`

	var state models.FundState
	var totalValue, managementFeeBps, performanceFeeBps, minDeposit, proposalCounter int64
	var owner string

	err := t.tx.QueryRow(ctx, query).Scan(
		&state.Initialized,
		&state.Paused,
		&totalValue,
		&managementFeeBps,
		&performanceFeeBps,
		&minDeposit,
		&proposalCounter,
		&owner,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Fund not initialized yet: zero-valued state.
			return models.FundState{}, nil
		}
		return models.FundState{}, fmt.Errorf("failed to get fund state: %w", err)
	}

	state.TotalValue = uint64(totalValue)
	state.ManagementFeeBps = uint64(managementFeeBps)
	state.PerformanceFeeBps = uint64(performanceFeeBps)
	state.MinDeposit = uint64(minDeposit)
	state.ProposalCounter = uint64(proposalCounter)
	state.Owner = common.HexToAddress(owner)
	return state, nil
}

func (t *pgTx) PutFundState(ctx context.Context, state models.FundState) error {
	query := `
		INSERT INTO fund_state (id, initialized, paused, total_value, management_fee_bps,
		                        performance_fee_bps, min_deposit, proposal_counter, owner_principal)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			initialized = EXCLUDED.initialized,
			paused = EXCLUDED.paused,
			total_value = EXCLUDED.total_value,
			management_fee_bps = EXCLUDED.management_fee_bps,
			performance_fee_bps = EXCLUDED.performance_fee_bps,
			min_deposit = EXCLUDED.min_deposit,
			proposal_counter = EXCLUDED.proposal_counter,
			owner_principal = EXCLUDED.owner_principal
	`

	_, err := t.tx.Exec(ctx, query,
		state.Initialized,
		state.Paused,
		int64(state.TotalValue),
		int64(state.ManagementFeeBps),
		int64(state.PerformanceFeeBps),
		int64(state.MinDeposit),
		int64(state.ProposalCounter),
		state.Owner.Hex(),
	)
	if err != nil {
		return fmt.Errorf("failed to put fund state: %w", err)
	}
	return nil
}

func (t *pgTx) ShareBalance(ctx context.Context, p types.Principal) (uint64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `SELECT balance FROM share_balances WHERE principal = $1`, p.Hex()).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get share balance: %w", err)
	}
	return uint64(balance), nil
}

func (t *pgTx) PutShareBalance(ctx context.Context, p types.Principal, balance uint64) error {
	query := `
		INSERT INTO share_balances (principal, balance)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET balance = EXCLUDED.balance
	`
	if _, err := t.tx.Exec(ctx, query, p.Hex(), int64(balance)); err != nil {
		return fmt.Errorf("failed to put share balance: %w", err)
	}
	return nil
}

func (t *pgTx) TotalShareSupply(ctx context.Context) (uint64, error) {
	var supply int64
	err := t.tx.QueryRow(ctx, `SELECT supply FROM share_supply WHERE id = 1`).Scan(&supply)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get share supply: %w", err)
	}
	return uint64(supply), nil
}

func (t *pgTx) PutTotalShareSupply(ctx context.Context, supply uint64) error {
	query := `
		INSERT INTO share_supply (id, supply)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET supply = EXCLUDED.supply
	`
	if _, err := t.tx.Exec(ctx, query, int64(supply)); err != nil {
		return fmt.Errorf("failed to put share supply: %w", err)
	}
	return nil
}

func (t *pgTx) ShareAccount(ctx context.Context, p types.Principal) (models.ShareAccount, bool, error) {
	query := `
		SELECT total_deposited, last_deposit_height
		FROM share_accounts
		WHERE principal = $1
	`

	account := models.ShareAccount{Principal: p}
	var totalDeposited, lastDepositHeight int64

	err := t.tx.QueryRow(ctx, query, p.Hex()).Scan(&totalDeposited, &lastDepositHeight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ShareAccount{}, false, nil
		}
		return models.ShareAccount{}, false, fmt.Errorf("failed to get share account: %w", err)
	}

	account.TotalDeposited = uint64(totalDeposited)
	account.LastDepositHeight = uint64(lastDepositHeight)
	return account, true, nil
}

func (t *pgTx) PutShareAccount(ctx context.Context, account models.ShareAccount) error {
	query := `
		INSERT INTO share_accounts (principal, total_deposited, last_deposit_height)
		VALUES ($1, $2, $3)
		ON CONFLICT (principal) DO UPDATE SET
			total_deposited = EXCLUDED.total_deposited,
			last_deposit_height = EXCLUDED.last_deposit_height
	`
	_, err := t.tx.Exec(ctx, query,
		account.Principal.Hex(),
		int64(account.TotalDeposited),
		int64(account.LastDepositHeight),
	)
	if err != nil {
		return fmt.Errorf("failed to put share account: %w", err)
	}
	return nil
}

func (t *pgTx) Allocation(ctx context.Context, asset types.AssetSymbol) (models.AllocationEntry, bool, error) {
	query := `
		SELECT target_bps, current_amount, last_rebalance_height
		FROM allocations
		WHERE asset = $1
	`

	entry := models.AllocationEntry{Asset: asset}
	var targetBps, currentAmount, lastRebalanceHeight int64

	err := t.tx.QueryRow(ctx, query, string(asset)).Scan(&targetBps, &currentAmount, &lastRebalanceHeight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AllocationEntry{}, false, nil
		}
		return models.AllocationEntry{}, false, fmt.Errorf("failed to get allocation: %w", err)
	}

	entry.TargetPercentageBps = uint64(targetBps)
	entry.CurrentAmount = uint64(currentAmount)
	entry.LastRebalanceHeight = uint64(lastRebalanceHeight)
	return entry, true, nil
}

func (t *pgTx) PutAllocation(ctx context.Context, entry models.AllocationEntry) error {
	query := `
		INSERT INTO allocations (asset, target_bps, current_amount, last_rebalance_height)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (asset) DO UPDATE SET
			target_bps = EXCLUDED.target_bps,
			current_amount = EXCLUDED.current_amount,
			last_rebalance_height = EXCLUDED.last_rebalance_height
	`
	_, err := t.tx.Exec(ctx, query,
		string(entry.Asset),
		int64(entry.TargetPercentageBps),
		int64(entry.CurrentAmount),
		int64(entry.LastRebalanceHeight),
	)
	if err != nil {
		return fmt.Errorf("failed to put allocation: %w", err)
	}
	return nil
}

func (t *pgTx) Allocations(ctx context.Context) ([]models.AllocationEntry, error) {
	query := `
		SELECT asset, target_bps, current_amount, last_rebalance_height
		FROM allocations
		ORDER BY asset
	`

	rows, err := t.tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var entries []models.AllocationEntry
	for rows.Next() {
		var entry models.AllocationEntry
		var asset string
		var targetBps, currentAmount, lastRebalanceHeight int64

		if err := rows.Scan(&asset, &targetBps, &currentAmount, &lastRebalanceHeight); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		entry.Asset = types.AssetSymbol(asset)
		entry.TargetPercentageBps = uint64(targetBps)
		entry.CurrentAmount = uint64(currentAmount)
		entry.LastRebalanceHeight = uint64(lastRebalanceHeight)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (t *pgTx) Proposal(ctx context.Context, id uint64) (models.Proposal, bool, error) {
	query := `
		SELECT proposer, title, description, proposal_type, target_value,
		       votes_for, votes_against, end_height, executed
		FROM proposals
		WHERE id = $1
	`

	proposal := models.Proposal{ID: id}
	var proposer, proposalType string
	var targetValue, votesFor, votesAgainst, endHeight int64

	err := t.tx.QueryRow(ctx, query, int64(id)).Scan(
		&proposer,
		&proposal.Title,
		&proposal.Description,
		&proposalType,
		&targetValue,
		&votesFor,
		&votesAgainst,
		&endHeight,
		&proposal.Executed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Proposal{}, false, nil
		}
		return models.Proposal{}, false, fmt.Errorf("failed to get proposal: %w", err)
	}

	proposal.Proposer = common.HexToAddress(proposer)
	proposal.Type = types.ProposalType(proposalType)
	proposal.TargetValue = uint64(targetValue)
	proposal.VotesFor = uint64(votesFor)
	proposal.VotesAgainst = uint64(votesAgainst)
	proposal.EndHeight = uint64(endHeight)
	return proposal, true, nil
}

func (t *pgTx) PutProposal(ctx context.Context, proposal models.Proposal) error {
	query := `
		INSERT INTO proposals (id, proposer, title, description, proposal_type, target_value,
		                       votes_for, votes_against, end_height, executed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			votes_for = EXCLUDED.votes_for,
			votes_against = EXCLUDED.votes_against,
			executed = EXCLUDED.executed
	`
	_, err := t.tx.Exec(ctx, query,
		int64(proposal.ID),
		proposal.Proposer.Hex(),
		proposal.Title,
		proposal.Description,
		string(proposal.Type),
		int64(proposal.TargetValue),
		int64(proposal.VotesFor),
		int64(proposal.VotesAgainst),
		int64(proposal.EndHeight),
		proposal.Executed,
	)
	if err != nil {
		return fmt.Errorf("failed to put proposal: %w", err)
	}
	return nil
}

func (t *pgTx) HasBallot(ctx context.Context, proposalID uint64, voter types.Principal) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM ballots WHERE proposal_id = $1 AND voter = $2)`
	if err := t.tx.QueryRow(ctx, query, int64(proposalID), voter.Hex()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ballot: %w", err)
	}
	return exists, nil
}

func (t *pgTx) PutBallot(ctx context.Context, ballot models.Ballot) error {
	// Ballots are insert-only; the primary key enforces one per (proposal, voter).
	query := `
		INSERT INTO ballots (proposal_id, voter, support, height)
		VALUES ($1, $2, $3, $4)
	`
	_, err := t.tx.Exec(ctx, query,
		int64(ballot.ProposalID),
		ballot.Voter.Hex(),
		ballot.Support,
		int64(ballot.Height),
	)
	if err != nil {
		return fmt.Errorf("failed to put ballot: %w", err)
	}
	return nil
}
