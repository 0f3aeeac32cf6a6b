package fund

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/fund-engine/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func principalFor(i int) types.Principal {
	var p types.Principal
	binary.BigEndian.PutUint64(p[12:], uint64(i)+1)
	return p
}

// Conservation: across any sequence of deposits and withdrawals, total
// supply equals the sum of all balances (mints minus burns), and the share
// price stays well-defined.
func TestShareConservationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("supply equals sum of balances under deposit/withdraw", prop.ForAll(
		func(amounts []uint64, withdrawNum uint64) bool {
			engine, _ := newPropEngine(t)
			ctx := context.Background()

			minted := make([]uint64, len(amounts))
			for i, amount := range amounts {
				shares, err := engine.Deposit(ctx, principalFor(i), amount)
				if err != nil {
					return false
				}
				minted[i] = shares
			}

			// Withdraw a proportional slice of each position.
			for i, shares := range minted {
				part := shares * (withdrawNum % 101) / 100
				if part == 0 {
					continue
				}
				if _, err := engine.Withdraw(ctx, principalFor(i), part); err != nil {
					return false
				}
			}

			info, err := engine.FundInfo(ctx)
			if err != nil {
				return false
			}

			var sum uint64
			for i := range amounts {
				balance, err := engine.UserBalance(ctx, principalFor(i))
				if err != nil {
					return false
				}
				sum += balance.Shares
			}

			// Price must be defined even when the fund has been drained.
			if info.TotalShareSupply == 0 && info.SharePrice != InitialSharePrice {
				return false
			}
			return sum == info.TotalShareSupply
		},
		gen.SliceOfN(8, gen.UInt64Range(1, 10_000_000)),
		gen.UInt64(),
	))

	properties.Property("deposit then full withdraw returns the deposit on a fresh fund", prop.ForAll(
		func(amount uint64) bool {
			engine, _ := newPropEngine(t)
			ctx := context.Background()

			minted, err := engine.Deposit(ctx, principalFor(0), amount)
			if err != nil {
				return false
			}
			payout, err := engine.Withdraw(ctx, principalFor(0), minted)
			if err != nil {
				return false
			}
			return payout == amount
		},
		gen.UInt64Range(1, 1_000_000_000),
	))

	properties.TestingRun(t)
}

func newPropEngine(t *testing.T) (*Engine, *ManualClock) {
	t.Helper()
	clock := NewManualClock(1)
	engine := NewEngine(NewMemoryLedger(), clock, nil, Params{
		Owner:             testOwner,
		MinDeposit:        1,
		ManagementFeeBps:  200,
		PerformanceFeeBps: 2000,
	})
	if err := engine.InitializeFund(context.Background(), testOwner); err != nil {
		t.Fatalf("InitializeFund() error = %v", err)
	}
	return engine, clock
}
