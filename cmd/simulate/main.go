// Package main provides a scripted walkthrough of the fund lifecycle against
// the in-memory ledger: initialize, deposits, a governance round and a
// rebalance. Useful for eyeballing the numbers without any infrastructure.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fund-engine/internal/fund"
)

func main() {
	depositFlag := flag.Uint64("deposit", 2_000_000, "Deposit amount per participant")
	targetFlag := flag.Uint64("target", 7000, "Proposed STX target in basis points")
	flag.Parse()

	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	alice := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	clock := fund.NewManualClock(1)
	engine := fund.NewEngine(fund.NewMemoryLedger(), clock, nil, fund.Params{
		Owner:             owner,
		MinDeposit:        1_000_000,
		ManagementFeeBps:  200,
		PerformanceFeeBps: 2000,
	})

	ctx := context.Background()

	if err := engine.InitializeFund(ctx, owner); err != nil {
		fail("initialize", err)
	}
	fmt.Printf("Fund initialized by %s\n", owner.Hex())

	for _, p := range []common.Address{alice, bob} {
		minted, err := engine.Deposit(ctx, p, *depositFlag)
		if err != nil {
			fail("deposit", err)
		}
		fmt.Printf("%s deposited %d, minted %d shares\n", p.Hex(), *depositFlag, minted)
	}

	price, err := engine.SharePrice(ctx)
	if err != nil {
		fail("share price", err)
	}
	fmt.Printf("Share price: %d\n", price)

	proposalID, err := engine.CreateProposal(ctx, alice, "Shift allocation", "Adjust STX exposure", "rebalance", *targetFlag)
	if err != nil {
		fail("create proposal", err)
	}
	fmt.Printf("Proposal %d created, voting open until height %d\n", proposalID, clock.Height()+fund.VotingWindowBlocks)

	for _, p := range []common.Address{alice, bob} {
		if err := engine.Vote(ctx, p, proposalID, true); err != nil {
			fail("vote", err)
		}
	}
	fmt.Println("Both participants voted in favour")

	clock.Advance(fund.VotingWindowBlocks + 1)
	fmt.Printf("Advanced to height %d, voting closed\n", clock.Height())

	result, err := engine.ExecuteRebalancing(ctx, alice, proposalID)
	if err != nil {
		fail("execute rebalancing", err)
	}
	fmt.Printf("Rebalanced: STX=%d STABLE=%d fee=%d score=%d\n",
		result.STXAmount, result.StableAmount, result.PerformanceFee, result.PerformanceScore)

	info, err := engine.FundInfo(ctx)
	if err != nil {
		fail("fund info", err)
	}
	fmt.Printf("Final total value: %d, share supply: %d\n", info.TotalValue, info.TotalShareSupply)
	for _, entry := range info.Allocations {
		fmt.Printf("  %s: target=%dbps current=%d\n", entry.Asset, entry.TargetPercentageBps, entry.CurrentAmount)
	}
}

func fail(step string, err error) {
	fmt.Printf("Error during %s: %v\n", step, err)
	os.Exit(1)
}
