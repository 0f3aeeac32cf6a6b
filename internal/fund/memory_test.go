package fund

import (
	"context"
	"errors"
	"testing"

	"github.com/fund-engine/internal/models"
)

// A failing Update must leave no partial effect, even when writes happened
// before the error.
func TestMemoryLedger_UpdateRollsBackOnError(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Update(ctx, func(tx Tx) error {
		return tx.PutFundState(ctx, models.FundState{Initialized: true, TotalValue: 100})
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	boom := errors.New("boom")
	err := ledger.Update(ctx, func(tx Tx) error {
		if err := tx.PutFundState(ctx, models.FundState{Initialized: true, TotalValue: 999}); err != nil {
			return err
		}
		if err := tx.PutShareBalance(ctx, alice, 42); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	if err := ledger.View(ctx, func(tx Tx) error {
		state, err := tx.FundState(ctx)
		if err != nil {
			return err
		}
		if state.TotalValue != 100 {
			t.Errorf("totalValue = %d, want rolled-back 100", state.TotalValue)
		}
		balance, err := tx.ShareBalance(ctx, alice)
		if err != nil {
			return err
		}
		if balance != 0 {
			t.Errorf("balance = %d, want rolled-back 0", balance)
		}
		return nil
	}); err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestMemoryLedger_AllocationsSorted(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Update(ctx, func(tx Tx) error {
		for _, entry := range []models.AllocationEntry{
			{Asset: "STX", TargetPercentageBps: 6000},
			{Asset: "STABLE", TargetPercentageBps: 4000},
		} {
			if err := tx.PutAllocation(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := ledger.View(ctx, func(tx Tx) error {
		entries, err := tx.Allocations(ctx)
		if err != nil {
			return err
		}
		if len(entries) != 2 || entries[0].Asset != "STABLE" || entries[1].Asset != "STX" {
			t.Errorf("Allocations() = %+v, want sorted [STABLE STX]", entries)
		}
		return nil
	}); err != nil {
		t.Fatalf("View() error = %v", err)
	}
}

func TestMemoryLedger_BallotPresence(t *testing.T) {
	ledger := NewMemoryLedger()
	ctx := context.Background()

	if err := ledger.Update(ctx, func(tx Tx) error {
		return tx.PutBallot(ctx, models.Ballot{ProposalID: 1, Voter: alice, Support: true, Height: 10})
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if err := ledger.View(ctx, func(tx Tx) error {
		voted, err := tx.HasBallot(ctx, 1, alice)
		if err != nil {
			return err
		}
		if !voted {
			t.Error("HasBallot(1, alice) = false, want true")
		}
		other, err := tx.HasBallot(ctx, 1, bob)
		if err != nil {
			return err
		}
		if other {
			t.Error("HasBallot(1, bob) = true, want false")
		}
		return nil
	}); err != nil {
		t.Fatalf("View() error = %v", err)
	}
}
