package models

import (
	"github.com/fund-engine/internal/types"
)

// Proposal is a governance proposal, keyed by monotonically increasing id.
// Tally fields are mutated by votes; Executed is set once by the rebalance
// executor and is terminal.
type Proposal struct {
	ID           uint64             `json:"id"`
	Proposer     types.Principal    `json:"proposer"`
	Title        string             `json:"title"`
	Description  string             `json:"description"`
	Type         types.ProposalType `json:"type"`
	TargetValue  uint64             `json:"targetValue"`
	VotesFor     uint64             `json:"votesFor"`
	VotesAgainst uint64             `json:"votesAgainst"`
	EndHeight    types.Height       `json:"endHeight"`
	Executed     bool               `json:"executed"`
}

// WithVote returns a copy with the given voting weight tallied
func (p Proposal) WithVote(support bool, weight uint64) Proposal {
	if support {
		p.VotesFor += weight
	} else {
		p.VotesAgainst += weight
	}
	return p
}

// WithExecuted returns a copy marked executed
func (p Proposal) WithExecuted() Proposal {
	p.Executed = true
	return p
}

// TotalVotes returns the total voting weight cast on the proposal
func (p Proposal) TotalVotes() uint64 {
	return p.VotesFor + p.VotesAgainst
}

// Ballot marks that a principal has voted on a proposal. Its existence is
// the double-vote guard; it is never updated or deleted.
type Ballot struct {
	ProposalID uint64          `json:"proposalId"`
	Voter      types.Principal `json:"voter"`
	Support    bool            `json:"support"`
	Height     types.Height    `json:"height"`
}
