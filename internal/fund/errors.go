package fund

import "github.com/fund-engine/internal/types"

// The closed set of domain errors. Every public operation fails with exactly
// one of these; the API layer maps codes onto HTTP statuses.
var (
	ErrOwnerOnly = &types.ServiceError{
		Code:    "OWNER_ONLY",
		Message: "operation restricted to the fund owner",
	}
	ErrNotTokenOwner = &types.ServiceError{
		Code:    "NOT_TOKEN_OWNER",
		Message: "caller does not own the shares being moved",
	}
	ErrInsufficientBalance = &types.ServiceError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "share balance is insufficient",
	}
	ErrInvalidAmount = &types.ServiceError{
		Code:    "INVALID_AMOUNT",
		Message: "amount is invalid for this operation",
	}
	ErrFundPaused = &types.ServiceError{
		Code:    "FUND_PAUSED",
		Message: "fund is paused",
	}
	ErrBelowMinimum = &types.ServiceError{
		Code:    "BELOW_MINIMUM",
		Message: "deposit is below the minimum",
	}
	ErrUnknownAsset = &types.ServiceError{
		Code:    "UNKNOWN_ASSET",
		Message: "asset is not in the allocation table",
	}
	ErrProposalNotFound = &types.ServiceError{
		Code:    "PROPOSAL_NOT_FOUND",
		Message: "proposal does not exist",
	}
	ErrInvalidProposal = &types.ServiceError{
		Code:    "INVALID_PROPOSAL",
		Message: "proposal fields are invalid",
	}
	ErrAlreadyVoted = &types.ServiceError{
		Code:    "ALREADY_VOTED",
		Message: "principal has already voted on this proposal",
	}
	ErrVotingPeriodEnded = &types.ServiceError{
		Code:    "VOTING_PERIOD_ENDED",
		Message: "voting period boundary violated",
	}
	ErrInsufficientVotingPower = &types.ServiceError{
		Code:    "INSUFFICIENT_VOTING_POWER",
		Message: "voting power is insufficient",
	}
)
