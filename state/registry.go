package state

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/ballot-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
)

// voter returns a private copy of the record of addr. A participant without a
// stored record gets NewVoter.
func (s *State) voter(addr common.Address) (*Voter, error) {
	if v, ok := s.voters[addr]; ok {
		return v.Clone(), nil
	}
	return readVoter(s.db.Get, addr)
}

func readVoter(get func(key []byte) ([]byte, error), addr common.Address) (*Voter, error) {
	val, err := get([]byte(fmt.Sprintf(KeyVoterBody, addr[:])))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return NewVoter(), nil
		}
		return nil, err
	}
	if val == nil {
		return NewVoter(), nil
	}
	v := NewVoter()
	if err = json.Unmarshal(val, v); err != nil {
		return nil, err
	}
	return v, nil
}

// put replaces the record of addr. Only engine operations call it.
func (s *State) put(addr common.Address, v *Voter) {
	s.voters[addr] = v.Clone()
	s.modifiedVoters[addr] = struct{}{}
}

// Voter looks up the record of addr.
func (s *State) Voter(addr common.Address) (*Voter, error) {
	return s.voter(addr)
}

// GrantRight gives target weight 1. Only the chairperson may call it.
func (s *State) GrantRight(caller, target common.Address, checkOnly bool) (event *types.EventGrantRight, err error) {
	s.logger.Debug("apply grant right", "caller", caller, "voter", target, "height", s.header.Height)
	if !s.header.Initialized() {
		return nil, ErrLedgerNotReady
	}
	if caller != s.header.Chairperson {
		return nil, ErrUnauthorized
	}
	v, err := s.voter(target)
	if err != nil {
		return nil, err
	}
	if v.Voted {
		return nil, ErrAlreadyVoted
	}
	if v.Weight != 0 {
		return nil, ErrAlreadyEnfranchised
	}
	if checkOnly {
		return
	}
	v.Weight = 1
	s.put(target, v)
	event = &types.EventGrantRight{
		Chairperson: caller.Hex(),
		Voter:       target.Hex(),
		Weight:      v.Weight,
	}
	return
}
