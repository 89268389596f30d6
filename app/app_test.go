package app

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/calehh/ballot-app/config"
	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	"github.com/calehh/ballot-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/crypto/ed25519"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "ballot-test"

type testNode struct {
	t      *testing.T
	app    *BallotApp
	height int64
}

func newTestNode(t *testing.T, chair ed25519.PrivKey, proposals ...string) *testNode {
	t.Helper()
	app, err := NewBallotApp(config.DefaultBallotAppConfig(t.TempDir()), cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(app.Stop)

	g := types.NewBallotGenesis(addr(chair), proposals)
	appState, err := json.Marshal(g)
	require.NoError(t, err)
	res, err := app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		AppStateBytes: appState,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AppHash)
	return &testNode{t: t, app: app}
}

func addr(priv ed25519.PrivKey) common.Address {
	return types.AddressFromPubKey(priv.PubKey().Bytes())
}

func signTx(t *testing.T, priv ed25519.PrivKey, typ tx.BallotTxType, payload any) []byte {
	t.Helper()
	btx := tx.NewBallotTx(typ, priv.PubKey().Bytes(), payload)
	require.NoError(t, btx.Sign(testChainId, priv.Sign))
	dat, err := tx.MarshalBallotTx(btx)
	require.NoError(t, err)
	return dat
}

func grantTx(t *testing.T, chair, voter ed25519.PrivKey) []byte {
	return signTx(t, chair, tx.BallotTxTypeGrantRight, &tx.GrantRightTx{Voter: addr(voter)})
}

func delegateTx(t *testing.T, from, to ed25519.PrivKey) []byte {
	return signTx(t, from, tx.BallotTxTypeDelegate, &tx.DelegateTx{To: addr(to)})
}

func voteTx(t *testing.T, from ed25519.PrivKey, proposal int64) []byte {
	return signTx(t, from, tx.BallotTxTypeVote, &tx.VoteTx{Proposal: proposal})
}

// block finalizes and commits txs as the next block.
func (n *testNode) block(txs ...[]byte) []*abcitypes.ExecTxResult {
	n.t.Helper()
	n.height++
	ctx := context.Background()
	res, err := n.app.FinalizeBlock(ctx, &abcitypes.RequestFinalizeBlock{Height: n.height, Txs: txs})
	require.NoError(n.t, err)
	require.Len(n.t, res.TxResults, len(txs))
	_, err = n.app.Commit(ctx, &abcitypes.RequestCommit{})
	require.NoError(n.t, err)
	return res.TxResults
}

func (n *testNode) query(path string, data []byte) *abcitypes.ResponseQuery {
	n.t.Helper()
	res, err := n.app.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(n.t, err)
	return res
}

func (n *testNode) voter(priv ed25519.PrivKey) *state.Voter {
	n.t.Helper()
	res := n.query(QueryPathVoters, addr(priv).Bytes())
	require.Equal(n.t, state.CodeOK, res.Code, res.Log)
	var v state.Voter
	require.NoError(n.t, json.Unmarshal(res.Value, &v))
	return &v
}

func (n *testNode) tallies() []uint64 {
	n.t.Helper()
	res := n.query(QueryPathProposals, nil)
	require.Equal(n.t, state.CodeOK, res.Code)
	var proposals []types.Proposal
	require.NoError(n.t, json.Unmarshal(res.Value, &proposals))
	out := make([]uint64, len(proposals))
	for i, p := range proposals {
		out[i] = p.VoteCount
	}
	return out
}

func (n *testNode) winner() (*types.Winner, uint32) {
	n.t.Helper()
	res := n.query(QueryPathWinner, nil)
	if res.Code != state.CodeOK {
		return nil, res.Code
	}
	var w types.Winner
	require.NoError(n.t, json.Unmarshal(res.Value, &w))
	return &w, res.Code
}

func TestDelegationScenario(t *testing.T) {
	chair, p1, p2, p3 := ed25519.GenPrivKey(), ed25519.GenPrivKey(), ed25519.GenPrivKey(), ed25519.GenPrivKey()
	n := newTestNode(t, chair, "A", "B")

	results := n.block(grantTx(t, chair, p1), grantTx(t, chair, p2), grantTx(t, chair, p3))
	for _, r := range results {
		require.Equal(t, state.CodeOK, r.Code, r.Log)
		require.Len(t, r.Events, 1)
		assert.Equal(t, types.EventGrantRightType, r.Events[0].Type)
	}

	results = n.block(
		delegateTx(t, p1, p2),
		delegateTx(t, p2, p3),
		voteTx(t, p3, 1),
	)
	for _, r := range results {
		require.Equal(t, state.CodeOK, r.Code, r.Log)
	}
	vev := types.ParseEventVote(results[2].Events[0])
	require.NotNil(t, vev)
	assert.Equal(t, uint64(3), vev.Weight)

	results = n.block(voteTx(t, chair, 0))
	require.Equal(t, state.CodeOK, results[0].Code, results[0].Log)

	assert.Equal(t, []uint64{1, 3}, n.tallies())
	w, code := n.winner()
	require.Equal(t, state.CodeOK, code)
	assert.Equal(t, int64(1), w.Index)
	assert.Equal(t, "B", w.Name)

	v := n.voter(p1)
	assert.True(t, v.Voted)
	assert.Equal(t, addr(p2), v.Delegate)
}

func TestFailedTxLeavesStateUntouched(t *testing.T) {
	chair, p1, p2 := ed25519.GenPrivKey(), ed25519.GenPrivKey(), ed25519.GenPrivKey()
	n := newTestNode(t, chair, "A", "B")
	n.block(grantTx(t, chair, p1), grantTx(t, chair, p2))
	n.block(delegateTx(t, p1, p2))

	results := n.block(
		delegateTx(t, p2, p1),
		grantTx(t, p1, p2),
		voteTx(t, p2, 5),
		voteTx(t, p2, 0),
		voteTx(t, p2, 1),
		[]byte("garbage"),
	)
	assert.Equal(t, state.Code(state.ErrDelegationCycle), results[0].Code)
	assert.Equal(t, state.Code(state.ErrUnauthorized), results[1].Code)
	assert.Equal(t, state.Code(state.ErrInvalidProposal), results[2].Code)
	assert.Equal(t, state.CodeOK, results[3].Code)
	assert.Equal(t, state.Code(state.ErrAlreadyVoted), results[4].Code)
	assert.Equal(t, CodeInvalidTx, results[5].Code)
	for _, i := range []int{0, 1, 2, 4, 5} {
		assert.NotEmpty(t, results[i].Log)
		assert.Empty(t, results[i].Events)
	}

	assert.Equal(t, []uint64{2, 0}, n.tallies())
	v := n.voter(p2)
	assert.True(t, v.Voted)
	assert.Equal(t, uint64(2), v.Weight)
	assert.Equal(t, int64(0), v.Choice)
}

func TestCheckTx(t *testing.T) {
	chair, p1, p2 := ed25519.GenPrivKey(), ed25519.GenPrivKey(), ed25519.GenPrivKey()
	n := newTestNode(t, chair, "A")
	n.block(grantTx(t, chair, p1))

	otherChain := tx.NewBallotTx(tx.BallotTxTypeVote, p1.PubKey().Bytes(), &tx.VoteTx{Proposal: 0})
	require.NoError(t, otherChain.Sign("ballot-other", p1.Sign))
	otherDat, err := tx.MarshalBallotTx(otherChain)
	require.NoError(t, err)

	specs := map[string]struct {
		tx      []byte
		expCode uint32
	}{
		"valid vote":             {tx: voteTx(t, p1, 0), expCode: state.CodeOK},
		"no right":               {tx: voteTx(t, p2, 0), expCode: state.Code(state.ErrNoRight)},
		"self delegation":        {tx: delegateTx(t, p1, p1), expCode: state.Code(state.ErrSelfDelegation)},
		"already enfranchised":   {tx: grantTx(t, chair, p1), expCode: state.Code(state.ErrAlreadyEnfranchised)},
		"signed for other chain": {tx: otherDat, expCode: CodeInvalidTx},
		"not a tx":               {tx: []byte("{}"), expCode: CodeInvalidTx},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			res, err := n.app.CheckTx(context.Background(), &abcitypes.RequestCheckTx{Tx: spec.tx})
			require.NoError(t, err)
			assert.Equal(t, spec.expCode, res.Code, res.Log)
		})
	}
	assert.Equal(t, []uint64{0}, n.tallies())
}

func TestPrepareAndProcessProposal(t *testing.T) {
	chair, p1 := ed25519.GenPrivKey(), ed25519.GenPrivKey()
	n := newTestNode(t, chair, "A", "B")
	ctx := context.Background()

	txs := [][]byte{
		grantTx(t, chair, p1),
		voteTx(t, p1, 1),
		voteTx(t, p1, 0),
		[]byte("garbage"),
		voteTx(t, chair, 1),
	}
	prep, err := n.app.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{Height: 1, Txs: txs})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{txs[0], txs[1], txs[4]}, prep.Txs)

	proc, err := n.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: prep.Txs})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = n.app.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{Height: 1, Txs: txs})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	// neither call touched the committed ledger
	assert.Equal(t, []uint64{0, 0}, n.tallies())
	assert.Equal(t, uint64(0), n.voter(p1).Weight)
}

func TestQueries(t *testing.T) {
	chair := ed25519.GenPrivKey()
	n := newTestNode(t, chair)

	res := n.query(QueryPathChairperson, nil)
	require.Equal(t, state.CodeOK, res.Code)
	assert.Equal(t, addr(chair).Bytes(), res.Value)

	_, code := n.winner()
	assert.Equal(t, state.Code(state.ErrNoProposals), code)

	res = n.query(QueryPathVoters, []byte{1, 2, 3})
	assert.Equal(t, CodeQueryInvalid, res.Code)

	res = n.query("/unknown", nil)
	assert.Equal(t, CodeQueryNotFound, res.Code)

	v := n.voter(ed25519.GenPrivKey())
	assert.Equal(t, uint64(0), v.Weight)
	assert.Equal(t, types.NoChoice, v.Choice)
	assert.Equal(t, uint64(1), n.voter(chair).Weight)
}

func TestSetValue(t *testing.T) {
	specs := map[string]struct {
		value    any
		expCode  uint32
		expValue []byte
	}{
		"encodes value": {
			value:    types.Winner{Index: 1, Name: "B"},
			expCode:  state.CodeOK,
			expValue: []byte(`{"index":1,"name":"B","vote_count":0}`),
		},
		"encode failure": {
			value:   make(chan int),
			expCode: state.CodeInternal,
		},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			res := &abcitypes.ResponseQuery{}
			setValue(res, cmtlog.NewNopLogger(), spec.value)
			assert.Equal(t, spec.expCode, res.Code)
			assert.Equal(t, spec.expValue, res.Value)
			if spec.expCode != state.CodeOK {
				assert.NotEmpty(t, res.Log)
			}
		})
	}
}

func TestInitChainIdempotent(t *testing.T) {
	chair := ed25519.GenPrivKey()
	n := newTestNode(t, chair, "A")
	info, err := n.app.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)

	res, err := n.app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainId, AppStateBytes: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, info.LastBlockAppHash, res.AppHash)
}

func TestCommitWithoutFinalize(t *testing.T) {
	n := newTestNode(t, ed25519.GenPrivKey(), "A")
	_, err := n.app.Commit(context.Background(), &abcitypes.RequestCommit{})
	assert.ErrorIs(t, err, ErrNoPendingState)
}

func TestMetrics(t *testing.T) {
	chair, p1 := ed25519.GenPrivKey(), ed25519.GenPrivKey()
	reg := prometheus.NewRegistry()
	cfg := config.DefaultBallotAppConfig(t.TempDir())
	cfg.PromRegistry = reg
	app, err := NewBallotApp(cfg, cmtlog.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(app.Stop)
	appState, err := json.Marshal(types.NewBallotGenesis(addr(chair), []string{"A", "B"}))
	require.NoError(t, err)
	_, err = app.InitChain(context.Background(), &abcitypes.RequestInitChain{ChainId: testChainId, AppStateBytes: appState})
	require.NoError(t, err)
	n := &testNode{t: t, app: app}

	n.block(grantTx(t, chair, p1), voteTx(t, p1, 1), voteTx(t, p1, 1), []byte("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.txTotal.WithLabelValues("grant_right", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.txTotal.WithLabelValues("vote", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.txTotal.WithLabelValues("vote", "4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.txTotal.WithLabelValues("unknown", "20")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.proposalVotes.WithLabelValues("1", "B")))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.height))

	count, err := testutil.GatherAndCount(reg, "ballot_tx_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
