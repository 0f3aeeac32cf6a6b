package fund

import (
	"context"
	"sort"
	"sync"

	"github.com/fund-engine/internal/models"
	"github.com/fund-engine/internal/types"
)

// MemoryLedger is an in-process Ledger. Update stages writes on a deep copy
// of the state and swaps it in only when the closure succeeds, so a failed
// operation leaves no partial effect. One transaction runs at a time.
type MemoryLedger struct {
	mu    sync.Mutex
	state *memoryState
}

type ballotKey struct {
	proposalID uint64
	voter      types.Principal
}

type memoryState struct {
	fund        models.FundState
	balances    map[types.Principal]uint64
	supply      uint64
	accounts    map[types.Principal]models.ShareAccount
	allocations map[types.AssetSymbol]models.AllocationEntry
	proposals   map[uint64]models.Proposal
	ballots     map[ballotKey]models.Ballot
}

func newMemoryState() *memoryState {
	return &memoryState{
		balances:    make(map[types.Principal]uint64),
		accounts:    make(map[types.Principal]models.ShareAccount),
		allocations: make(map[types.AssetSymbol]models.AllocationEntry),
		proposals:   make(map[uint64]models.Proposal),
		ballots:     make(map[ballotKey]models.Ballot),
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		fund:        s.fund,
		supply:      s.supply,
		balances:    make(map[types.Principal]uint64, len(s.balances)),
		accounts:    make(map[types.Principal]models.ShareAccount, len(s.accounts)),
		allocations: make(map[types.AssetSymbol]models.AllocationEntry, len(s.allocations)),
		proposals:   make(map[uint64]models.Proposal, len(s.proposals)),
		ballots:     make(map[ballotKey]models.Ballot, len(s.ballots)),
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.allocations {
		c.allocations[k] = v
	}
	for k, v := range s.proposals {
		c.proposals[k] = v
	}
	for k, v := range s.ballots {
		c.ballots[k] = v
	}
	return c
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{state: newMemoryState()}
}

// Update runs fn in an exclusive transaction with all-or-nothing semantics
func (l *MemoryLedger) Update(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staged := l.state.clone()
	if err := fn(&memTx{state: staged}); err != nil {
		return err
	}
	l.state = staged
	return nil
}

// View runs fn against a read-only snapshot
func (l *MemoryLedger) View(ctx context.Context, fn func(tx Tx) error) error {
	l.mu.Lock()
	snapshot := l.state.clone()
	l.mu.Unlock()

	return fn(&memTx{state: snapshot})
}

// memTx implements Tx over a staged state copy.
type memTx struct {
	state *memoryState
}

func (t *memTx) FundState(ctx context.Context) (models.FundState, error) {
	return t.state.fund, nil
}

func (t *memTx) PutFundState(ctx context.Context, state models.FundState) error {
	t.state.fund = state
	return nil
}

func (t *memTx) ShareBalance(ctx context.Context, p types.Principal) (uint64, error) {
	return t.state.balances[p], nil
}

func (t *memTx) PutShareBalance(ctx context.Context, p types.Principal, balance uint64) error {
	t.state.balances[p] = balance
	return nil
}

func (t *memTx) TotalShareSupply(ctx context.Context) (uint64, error) {
	return t.state.supply, nil
}

func (t *memTx) PutTotalShareSupply(ctx context.Context, supply uint64) error {
	t.state.supply = supply
	return nil
}

func (t *memTx) ShareAccount(ctx context.Context, p types.Principal) (models.ShareAccount, bool, error) {
	account, ok := t.state.accounts[p]
	return account, ok, nil
}

func (t *memTx) PutShareAccount(ctx context.Context, account models.ShareAccount) error {
	t.state.accounts[account.Principal] = account
	return nil
}

func (t *memTx) Allocation(ctx context.Context, asset types.AssetSymbol) (models.AllocationEntry, bool, error) {
	entry, ok := t.state.allocations[asset]
	return entry, ok, nil
}

func (t *memTx) PutAllocation(ctx context.Context, entry models.AllocationEntry) error {
	t.state.allocations[entry.Asset] = entry
	return nil
}

func (t *memTx) Allocations(ctx context.Context) ([]models.AllocationEntry, error) {
	entries := make([]models.AllocationEntry, 0, len(t.state.allocations))
	for _, entry := range t.state.allocations {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Asset < entries[j].Asset
	})
	return entries, nil
}

func (t *memTx) Proposal(ctx context.Context, id uint64) (models.Proposal, bool, error) {
	proposal, ok := t.state.proposals[id]
	return proposal, ok, nil
}

func (t *memTx) PutProposal(ctx context.Context, proposal models.Proposal) error {
	t.state.proposals[proposal.ID] = proposal
	return nil
}

func (t *memTx) HasBallot(ctx context.Context, proposalID uint64, voter types.Principal) (bool, error) {
	_, ok := t.state.ballots[ballotKey{proposalID: proposalID, voter: voter}]
	return ok, nil
}

func (t *memTx) PutBallot(ctx context.Context, ballot models.Ballot) error {
	t.state.ballots[ballotKey{proposalID: ballot.ProposalID, voter: ballot.Voter}] = ballot
	return nil
}
