package agent

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/calehh/ballot-app/app"
	"github.com/calehh/ballot-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/cometbft/cometbft/libs/bytes"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	ctypes "github.com/cometbft/cometbft/rpc/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chair = "0x00000000000000000000000000000000000000C0"
	p1    = "0x0000000000000000000000000000000000000001"
	p2    = "0x0000000000000000000000000000000000000002"
	p3    = "0x0000000000000000000000000000000000000003"
)

type fakeChain struct {
	blocks    []*ctypes.ResultBlockResults
	proposals []types.Proposal
}

func (f *fakeChain) Status(ctx context.Context) (*ctypes.ResultStatus, error) {
	res := &ctypes.ResultStatus{}
	res.SyncInfo.LatestBlockHeight = int64(len(f.blocks))
	return res, nil
}

func (f *fakeChain) BlockResults(ctx context.Context, height *int64) (*ctypes.ResultBlockResults, error) {
	if *height < 1 || *height > int64(len(f.blocks)) {
		return nil, errors.New("height not available")
	}
	return f.blocks[*height-1], nil
}

func (f *fakeChain) ABCIQuery(ctx context.Context, path string, data bytes.HexBytes) (*ctypes.ResultABCIQuery, error) {
	res := &ctypes.ResultABCIQuery{}
	if path != app.QueryPathProposals {
		res.Response.Code = app.CodeQueryNotFound
		return res, nil
	}
	res.Response.Value, _ = json.Marshal(f.proposals)
	return res, nil
}

func (f *fakeChain) addBlock(txs ...*abci.ExecTxResult) {
	f.blocks = append(f.blocks, &ctypes.ResultBlockResults{
		Height:     int64(len(f.blocks) + 1),
		TxsResults: txs,
	})
}

func okTx(events ...abci.Event) *abci.ExecTxResult {
	return &abci.ExecTxResult{Events: events}
}

func grantEv(voter string) abci.Event {
	return types.EncodeEventGrantRight(&types.EventGrantRight{Chairperson: chair, Voter: voter, Weight: 1})
}

// delegationChain is p1->p2, p2->p3, p3 votes B, chair votes A, with one
// failed tx whose result must be skipped.
func delegationChain() *fakeChain {
	f := &fakeChain{proposals: []types.Proposal{{Index: 0, Name: "A"}, {Index: 1, Name: "B"}}}
	f.addBlock(okTx(grantEv(p1)), okTx(grantEv(p2)), okTx(grantEv(p3)))
	f.addBlock(
		okTx(types.EncodeEventDelegate(&types.EventDelegate{From: p1, To: p2, Target: p2, Weight: 1, Proposal: types.NoChoice})),
		okTx(types.EncodeEventDelegate(&types.EventDelegate{From: p2, To: p3, Target: p3, Weight: 2, Proposal: types.NoChoice})),
		okTx(types.EncodeEventVote(&types.EventVote{Voter: p3, Proposal: 1, Weight: 3})),
		&abci.ExecTxResult{Code: 4, Log: "already voted"},
	)
	f.addBlock(okTx(types.EncodeEventVote(&types.EventVote{Voter: chair, Proposal: 0, Weight: 1})))
	return f
}

func newTestIndexer(t *testing.T, f *fakeChain) *ChainIndexer {
	t.Helper()
	c, err := newChainIndexer(cmtlog.NewNopLogger(), filepath.Join(t.TempDir(), "indexer.db"), f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIndexerSync(t *testing.T) {
	f := delegationChain()
	c := newTestIndexer(t, f)
	require.NoError(t, c.sync(context.Background()))
	assert.Equal(t, int64(4), c.Height)

	h, err := c.indexedHeight()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), h)

	tally, err := c.getTally()
	require.NoError(t, err)
	assert.Equal(t, []TallyEntry{
		{Proposal: 0, Name: "A", Votes: 1},
		{Proposal: 1, Name: "B", Votes: 3},
	}, tally)

	specs := map[string]struct {
		address string
		exp     Participant
	}{
		"delegated to pending": {address: p1, exp: Participant{Address: p1, Weight: 1, Voted: true, Delegate: p2, Choice: types.NoChoice, Height: 2}},
		"relayed delegate":     {address: p2, exp: Participant{Address: p2, Weight: 2, Voted: true, Delegate: p3, Choice: types.NoChoice, Height: 2}},
		"final voter":          {address: p3, exp: Participant{Address: p3, Weight: 3, Voted: true, Choice: 1, Height: 2}},
		"chairperson":          {address: chair, exp: Participant{Address: chair, Voted: true, Choice: 0, Height: 3}},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			p, err := c.getParticipant(spec.address)
			require.NoError(t, err)
			assert.Equal(t, spec.exp, *p)
		})
	}

	ballots, total, err := c.getBallots(nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, ballots, 2)

	delegations, total, err := c.getDelegations(p2, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, delegations, 2)
}

func TestIndexerFoldedDelegation(t *testing.T) {
	f := &fakeChain{proposals: []types.Proposal{{Index: 0, Name: "A"}, {Index: 1, Name: "B"}}}
	f.addBlock(okTx(grantEv(p1)), okTx(types.EncodeEventVote(&types.EventVote{Voter: chair, Proposal: 1, Weight: 1})))
	f.addBlock(okTx(types.EncodeEventDelegate(&types.EventDelegate{From: p1, To: chair, Target: chair, Weight: 1, Proposal: 1})))
	c := newTestIndexer(t, f)
	require.NoError(t, c.sync(context.Background()))

	tally, err := c.getTally()
	require.NoError(t, err)
	assert.Equal(t, []TallyEntry{
		{Proposal: 0, Name: "A", Votes: 0},
		{Proposal: 1, Name: "B", Votes: 2},
	}, tally)

	p, err := c.getParticipant(p1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Choice)
	chairRec, err := c.getParticipant(chair)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), chairRec.Weight, "folded weight must not land on the delegate")
}

func TestIndexerResume(t *testing.T) {
	f := delegationChain()
	dbPath := filepath.Join(t.TempDir(), "indexer.db")
	c, err := newChainIndexer(cmtlog.NewNopLogger(), dbPath, f)
	require.NoError(t, err)
	require.NoError(t, c.sync(context.Background()))
	require.NoError(t, c.Close())

	f.addBlock(okTx(grantEv("0x0000000000000000000000000000000000000009")))
	c, err = newChainIndexer(cmtlog.NewNopLogger(), dbPath, f)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int64(4), c.Height)
	require.NoError(t, c.sync(context.Background()))

	_, total, err := c.getGrants(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
}

func TestIndexerTallyDuringSync(t *testing.T) {
	f := delegationChain()
	c := newTestIndexer(t, f)

	done := make(chan error, 1)
	go func() { done <- c.sync(context.Background()) }()
	for synced := false; !synced; {
		select {
		case err := <-done:
			require.NoError(t, err)
			synced = true
		default:
			_, err := c.getTally()
			require.NoError(t, err)
		}
	}

	tally, err := c.getTally()
	require.NoError(t, err)
	assert.Equal(t, []TallyEntry{
		{Proposal: 0, Name: "A", Votes: 1},
		{Proposal: 1, Name: "B", Votes: 3},
	}, tally)
}
