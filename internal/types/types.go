// Package types provides common type definitions for the pooled fund engine.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Principal identifies an account on the host ledger. The engine treats it
// as an opaque unique identifier; the 20-byte address encoding comes from
// the host collaborator.
type Principal = common.Address

// ZeroPrincipal is the empty principal, never a valid caller.
var ZeroPrincipal Principal

// ParsePrincipal parses a hex-encoded principal, validating format
func ParsePrincipal(s string) (Principal, error) {
	if !common.IsHexAddress(s) {
		return ZeroPrincipal, fmt.Errorf("invalid principal format: %s", s)
	}
	return common.HexToAddress(s), nil
}

// Height is the host ledger's monotonically increasing logical clock.
type Height = uint64

// ProposalType represents the kind of governance proposal
type ProposalType string

const (
	// ProposalRebalance requests a reallocation of fund holdings
	ProposalRebalance ProposalType = "rebalance"
	// ProposalFeeChange requests a fee rate change (recorded, executed externally)
	ProposalFeeChange ProposalType = "fee-change"
	// ProposalAssetAdd requests a new asset listing (recorded, executed externally)
	ProposalAssetAdd ProposalType = "asset-add"
)

// ValidProposalType reports whether t is a recognized proposal type.
func ValidProposalType(t ProposalType) bool {
	switch t {
	case ProposalRebalance, ProposalFeeChange, ProposalAssetAdd:
		return true
	}
	return false
}

// AssetSymbol identifies an asset in the allocation table
type AssetSymbol string

const (
	// AssetSTX is the base chain asset
	AssetSTX AssetSymbol = "STX"
	// AssetStable is the stablecoin leg
	AssetStable AssetSymbol = "STABLE"
)

// EventKind classifies entries in the fund event history
type EventKind string

const (
	// EventDeposit records a share mint against a deposit
	EventDeposit EventKind = "deposit"
	// EventWithdraw records a share burn and payout
	EventWithdraw EventKind = "withdraw"
	// EventTransfer records a share transfer between principals
	EventTransfer EventKind = "transfer"
	// EventProposalCreated records a new governance proposal
	EventProposalCreated EventKind = "proposal_created"
	// EventVote records a cast ballot
	EventVote EventKind = "vote"
	// EventRebalance records an executed rebalancing
	EventRebalance EventKind = "rebalance"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
