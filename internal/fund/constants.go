package fund

// Share accounting constants. Shares carry 6 decimals of precision; the
// initial price is 1 base unit per share at that precision.
const (
	SharePrecision    uint64 = 1_000_000
	InitialSharePrice uint64 = 1_000_000
)

// Governance constants. The voting window is 1440 height units, roughly 24h
// at one block per minute. Quorum is measured against total share supply,
// approval against votes cast.
const (
	VotingWindowBlocks  uint64 = 1440
	QuorumSupplyDivisor uint64 = 4
	ApprovalNumerator   uint64 = 6
	ApprovalDenominator uint64 = 10
)

// Fee constants
const (
	BpsDenominator          uint64 = 10_000
	AnnualBlocks            uint64 = 52_560
	PerformanceThresholdBps int64  = 1000
)

// Bounds on proposal text fields
const (
	MaxTitleLen       = 64
	MaxDescriptionLen = 256
)

// Default allocation targets written at initialization, summing to 10000 bps
const (
	DefaultSTXTargetBps    uint64 = 6000
	DefaultStableTargetBps uint64 = 4000
)
