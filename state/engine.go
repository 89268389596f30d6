package state

import (
	"github.com/calehh/ballot-app/types"
	"github.com/ethereum/go-ethereum/common"
)

// resolveDelegate follows the delegation chain starting at to and returns the
// first participant that has not delegated, together with its record. The
// walk is bounded by the ledger's MaxDelegationHops.
func (s *State) resolveDelegate(caller, to common.Address) (target common.Address, rec *Voter, err error) {
	target = to
	rec, err = s.voter(target)
	if err != nil {
		return
	}
	for hops := uint64(0); rec.HasDelegate(); hops++ {
		if hops >= s.header.MaxDelegationHops {
			err = ErrDelegationChainTooLong
			return
		}
		target = rec.Delegate
		if target == caller {
			err = ErrDelegationCycle
			return
		}
		rec, err = s.voter(target)
		if err != nil {
			return
		}
	}
	return
}

func (s *State) proposal(index int64) (*types.Proposal, error) {
	if index < 0 || index >= int64(len(s.proposals)) {
		return nil, ErrInvalidProposal
	}
	return s.proposals[index], nil
}

// Delegate hands the weight of caller to the participant that to resolves
// to. The resolved target is fixed now: if it later delegates further, the
// weight already forwarded stays where it is.
func (s *State) Delegate(caller, to common.Address, checkOnly bool) (event *types.EventDelegate, err error) {
	s.logger.Debug("apply delegate", "caller", caller, "to", to, "height", s.header.Height)
	if !s.header.Initialized() {
		return nil, ErrLedgerNotReady
	}
	sender, err := s.voter(caller)
	if err != nil {
		return nil, err
	}
	if sender.Voted {
		return nil, ErrAlreadyVoted
	}
	if to == caller {
		return nil, ErrSelfDelegation
	}
	// the zero address marks "no delegate" in a record
	if to == (common.Address{}) {
		return nil, ErrInvalidDelegate
	}
	target, delegate, err := s.resolveDelegate(caller, to)
	if err != nil {
		return nil, err
	}
	var p *types.Proposal
	if delegate.Voted {
		p, err = s.proposal(delegate.Choice)
		if err != nil {
			return nil, err
		}
	}
	if checkOnly {
		return
	}

	sender.Voted = true
	sender.Delegate = target
	event = &types.EventDelegate{
		From:     caller.Hex(),
		To:       to.Hex(),
		Target:   target.Hex(),
		Weight:   sender.Weight,
		Proposal: types.NoChoice,
	}
	if p != nil {
		p.VoteCount += sender.Weight
		s.modifiedProposals[p.Index] = struct{}{}
		sender.Choice = delegate.Choice
		event.Proposal = delegate.Choice
	} else {
		delegate.Weight += sender.Weight
		s.put(target, delegate)
	}
	s.put(caller, sender)
	return
}

// Vote casts the whole weight of caller, including weight delegated to it,
// for the proposal at index.
func (s *State) Vote(caller common.Address, index int64, checkOnly bool) (event *types.EventVote, err error) {
	s.logger.Debug("apply vote", "caller", caller, "proposal", index, "height", s.header.Height)
	if !s.header.Initialized() {
		return nil, ErrLedgerNotReady
	}
	sender, err := s.voter(caller)
	if err != nil {
		return nil, err
	}
	if sender.Voted {
		return nil, ErrAlreadyVoted
	}
	if sender.Weight == 0 {
		return nil, ErrNoRight
	}
	p, err := s.proposal(index)
	if err != nil {
		return nil, err
	}
	if checkOnly {
		return
	}

	sender.Voted = true
	sender.Choice = index
	p.VoteCount += sender.Weight
	s.modifiedProposals[p.Index] = struct{}{}
	s.put(caller, sender)
	event = &types.EventVote{
		Voter:    caller.Hex(),
		Proposal: index,
		Weight:   sender.Weight,
	}
	return
}

// WinningProposal returns the index of the proposal with the most votes. The
// lowest index wins a tie. It returns types.NoWinner if there are no
// proposals.
func (s *State) WinningProposal() int64 {
	return winningProposal(s.proposals)
}

func winningProposal(proposals []*types.Proposal) int64 {
	if len(proposals) == 0 {
		return types.NoWinner
	}
	var winningVoteCount uint64
	var winning int64
	for i, p := range proposals {
		if p.VoteCount > winningVoteCount {
			winningVoteCount = p.VoteCount
			winning = int64(i)
		}
	}
	return winning
}

func (s *State) WinnerName() (string, error) {
	w, err := s.Winner()
	if err != nil {
		return "", err
	}
	return w.Name, nil
}

func (s *State) Winner() (*types.Winner, error) {
	idx := s.WinningProposal()
	if idx == types.NoWinner {
		return nil, ErrNoProposals
	}
	p := s.proposals[idx]
	return &types.Winner{Index: idx, Name: p.Name, VoteCount: p.VoteCount}, nil
}
