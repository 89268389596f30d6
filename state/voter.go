package state

import (
	"github.com/calehh/ballot-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// Voter is the participant record kept by the registry.
type Voter struct {
	Weight   uint64         `json:"weight"`
	Voted    bool           `json:"voted"`
	Delegate common.Address `json:"delegate"`
	Choice   int64          `json:"choice"`
}

// NewVoter returns the record of a participant the ledger has never seen.
func NewVoter() *Voter {
	return &Voter{Choice: types.NoChoice}
}

func (v *Voter) Clone() *Voter {
	n := *v
	return &n
}

func (v *Voter) HasDelegate() bool {
	return v.Delegate != (common.Address{})
}
