package handler

import (
	"context"
	"testing"

	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	"github.com/calehh/ballot-app/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, chair ed25519.PrivKey, proposals ...string) *state.State {
	t.Helper()
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	st := db.NewState()
	require.NoError(t, st.InitLedger(types.NewBallotGenesis(types.AddressFromPubKey(chair.PubKey().Bytes()), proposals)))
	return st
}

func ballotTx(priv ed25519.PrivKey, typ tx.BallotTxType, payload any) *tx.BallotTx {
	return tx.NewBallotTx(typ, priv.PubKey().Bytes(), payload)
}

func addr(priv ed25519.PrivKey) common.Address {
	return types.AddressFromPubKey(priv.PubKey().Bytes())
}

func TestHandlers(t *testing.T) {
	logger := cmtlog.NewNopLogger()
	chair := ed25519.GenPrivKey()
	alice := ed25519.GenPrivKey()
	bob := ed25519.GenPrivKey()
	ctx := context.Background()

	grantH := NewGrantRightTxHandler(logger)
	delegateH := NewDelegateTxHandler(logger)
	voteH := NewVoteTxHandler(logger)

	st := newLedger(t, chair, "A", "B")

	// unauthorized grant is refused at check time with its code
	check, err := grantH.Check(ctx, st, ballotTx(alice, tx.BallotTxTypeGrantRight, &tx.GrantRightTx{Voter: addr(bob)}))
	require.NoError(t, err)
	assert.Equal(t, state.Code(state.ErrUnauthorized), check.Code)
	assert.NotEmpty(t, check.Log)

	for _, p := range []ed25519.PrivKey{alice, bob} {
		btx := ballotTx(chair, tx.BallotTxTypeGrantRight, &tx.GrantRightTx{Voter: addr(p)})
		check, err = grantH.Check(ctx, st, btx)
		require.NoError(t, err)
		require.Equal(t, state.CodeOK, check.Code)
		res, err := grantH.Process(ctx, st, btx)
		require.NoError(t, err)
		require.Len(t, res.Events, 1)
		ev := types.ParseEventGrantRight(res.Events[0])
		require.NotNil(t, ev)
		assert.Equal(t, addr(p).Hex(), ev.Voter)
	}

	// bob delegates to alice before she votes
	btx := ballotTx(bob, tx.BallotTxTypeDelegate, &tx.DelegateTx{To: addr(alice)})
	check, err = delegateH.Check(ctx, st, btx)
	require.NoError(t, err)
	require.Equal(t, state.CodeOK, check.Code)
	res, err := delegateH.Process(ctx, st, btx)
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	dev := types.ParseEventDelegate(res.Events[0])
	require.NotNil(t, dev)
	assert.Equal(t, addr(alice).Hex(), dev.Target)
	assert.Equal(t, types.NoChoice, dev.Proposal)

	// alice now casts weight 2
	btx = ballotTx(alice, tx.BallotTxTypeVote, &tx.VoteTx{Proposal: 1})
	res, err = voteH.Process(ctx, st, btx)
	require.NoError(t, err)
	vev := types.ParseEventVote(res.Events[0])
	require.NotNil(t, vev)
	assert.Equal(t, uint64(2), vev.Weight)
	assert.Equal(t, int64(1), vev.Proposal)

	// second vote fails in both paths
	check, err = voteH.Check(ctx, st, btx)
	require.NoError(t, err)
	assert.Equal(t, state.Code(state.ErrAlreadyVoted), check.Code)
	_, err = voteH.Process(ctx, st, btx)
	assert.ErrorIs(t, err, state.ErrAlreadyVoted)

	proposals := st.Proposals()
	assert.Equal(t, uint64(0), proposals[0].VoteCount)
	assert.Equal(t, uint64(2), proposals[1].VoteCount)
}

func TestCheckDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	chair := ed25519.GenPrivKey()
	alice := ed25519.GenPrivKey()
	st := newLedger(t, chair, "A")

	check, err := NewGrantRightTxHandler(cmtlog.NewNopLogger()).Check(ctx, st, ballotTx(chair, tx.BallotTxTypeGrantRight, &tx.GrantRightTx{Voter: addr(alice)}))
	require.NoError(t, err)
	require.Equal(t, state.CodeOK, check.Code)
	v, err := st.Voter(addr(alice))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v.Weight)

	check, err = NewVoteTxHandler(cmtlog.NewNopLogger()).Check(ctx, st, ballotTx(chair, tx.BallotTxTypeVote, &tx.VoteTx{Proposal: 0}))
	require.NoError(t, err)
	require.Equal(t, state.CodeOK, check.Code)
	assert.Equal(t, uint64(0), st.Proposals()[0].VoteCount)
}
