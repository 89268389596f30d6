package state

import (
	"testing"

	"github.com/calehh/ballot-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	chair = common.BytesToAddress([]byte{0xc0})
	p1    = common.BytesToAddress([]byte{0x01})
	p2    = common.BytesToAddress([]byte{0x02})
	p3    = common.BytesToAddress([]byte{0x03})
	p4    = common.BytesToAddress([]byte{0x04})
	p5    = common.BytesToAddress([]byte{0x05})
)

func newTestDB(t *testing.T) *StateDB {
	t.Helper()
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestState(t *testing.T, proposals ...string) *State {
	t.Helper()
	st := newTestDB(t).NewState()
	require.NoError(t, st.InitLedger(types.NewBallotGenesis(chair, proposals)))
	return st
}

func grant(t *testing.T, st *State, voters ...common.Address) {
	t.Helper()
	for _, v := range voters {
		_, err := st.GrantRight(chair, v, false)
		require.NoError(t, err)
	}
}

func mustVoter(t *testing.T, st *State, addr common.Address) *Voter {
	t.Helper()
	v, err := st.Voter(addr)
	require.NoError(t, err)
	return v
}

func tallies(st *State) []uint64 {
	res := make([]uint64, 0, len(st.proposals))
	for _, p := range st.proposals {
		res = append(res, p.VoteCount)
	}
	return res
}
