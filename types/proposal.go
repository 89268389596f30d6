package types

type Proposal struct {
	Index     uint64 `json:"index"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

type Winner struct {
	Index     int64  `json:"index"`
	Name      string `json:"name"`
	VoteCount uint64 `json:"vote_count"`
}

const (
	// NoWinner is reported by WinningProposal when there are no proposals.
	NoWinner int64 = -1
	// NoChoice marks a record whose weight has not been attributed to a proposal.
	NoChoice int64 = -1
)
