package state

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrLedgerInitialized = errors.New("ledger already initialized")
	ErrLedgerNotReady    = errors.New("ledger not initialized")
)

var (
	ErrUnauthorized           = errors.New("only chairperson can give right to vote")
	ErrAlreadyEnfranchised    = errors.New("voter already has right to vote")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrSelfDelegation         = errors.New("self-delegation is disallowed")
	ErrInvalidDelegate        = errors.New("delegate must be a participant address")
	ErrDelegationCycle        = errors.New("found loop in delegation")
	ErrDelegationChainTooLong = errors.New("delegation chain too long")
	ErrNoRight                = errors.New("has no right to vote")
	ErrInvalidProposal        = errors.New("invalid proposal")
	ErrNoProposals            = errors.New("no proposals")
)

const (
	CodeOK       uint32 = 0
	CodeInternal uint32 = 1
)

var errCodes = []struct {
	err  error
	code uint32
}{
	{ErrUnauthorized, 2},
	{ErrAlreadyEnfranchised, 3},
	{ErrAlreadyVoted, 4},
	{ErrSelfDelegation, 5},
	{ErrDelegationCycle, 6},
	{ErrDelegationChainTooLong, 7},
	{ErrNoRight, 8},
	{ErrInvalidProposal, 9},
	{ErrNoProposals, 10},
	{ErrInvalidDelegate, 11},
}

// Code maps a ledger error to the ABCI result code reported to the caller.
func Code(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, c := range errCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
