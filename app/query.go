package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/calehh/ballot-app/state"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
)

const (
	QueryPathVoters      = "/voters/"
	QueryPathProposals   = "/proposals/"
	QueryPathWinner      = "/winner/"
	QueryPathChairperson = "/chairperson/"
)

const (
	CodeQueryNotFound uint32 = 404
	CodeQueryInvalid  uint32 = 400
)

func (app *BallotApp) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	path := req.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	q, ok := app.queriers[path]
	if !ok {
		res = &abcitypes.ResponseQuery{}
		res.Code = CodeQueryNotFound
		return
	}
	res, err = q.Query(ctx, req)
	return
}

type Querier interface {
	Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error)
}

// setValue encodes v as the JSON value of res. An encoding failure is
// reported as an internal error.
func setValue(res *abcitypes.ResponseQuery, logger cmtlog.Logger, v any) {
	dat, err := json.Marshal(v)
	if err != nil {
		logger.Error("encode query value fail", "err", err)
		res.Code = state.CodeInternal
		res.Log = err.Error()
		return
	}
	res.Value = dat
}

// VoterQuerier answers with the committed record of the 20-byte address in
// the query data.
type VoterQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewVoterQuerier(db *state.StateDB, logger cmtlog.Logger) (q *VoterQuerier) {
	q = &VoterQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *VoterQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	if len(req.Data) != common.AddressLength {
		res.Code = CodeQueryInvalid
		res.Log = "query data must be a 20 byte address"
		return
	}
	v, height, err1 := q.db.GetVoter(common.BytesToAddress(req.Data))
	if err1 != nil {
		q.logger.Error("query voter fail", "err", err1)
		res.Code = state.Code(err1)
		res.Log = err1.Error()
		return
	}
	res.Key = req.Data
	setValue(res, q.logger, v)
	res.Height = int64(height)
	return
}

type ProposalQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewProposalQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ProposalQuerier) {
	q = &ProposalQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ProposalQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	proposals, height := q.db.GetProposals()
	setValue(res, q.logger, proposals)
	res.Height = int64(height)
	return
}

type WinnerQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewWinnerQuerier(db *state.StateDB, logger cmtlog.Logger) (q *WinnerQuerier) {
	q = &WinnerQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *WinnerQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	winner, height, err1 := q.db.GetWinner()
	res.Height = int64(height)
	if err1 != nil {
		res.Code = state.Code(err1)
		res.Log = err1.Error()
		return
	}
	setValue(res, q.logger, winner)
	return
}

type ChairpersonQuerier struct {
	db     *state.StateDB
	logger cmtlog.Logger
}

func NewChairpersonQuerier(db *state.StateDB, logger cmtlog.Logger) (q *ChairpersonQuerier) {
	q = &ChairpersonQuerier{
		db:     db,
		logger: logger,
	}
	return
}

func (q *ChairpersonQuerier) Query(ctx context.Context, req *abcitypes.RequestQuery) (res *abcitypes.ResponseQuery, err error) {
	res = &abcitypes.ResponseQuery{}
	header := q.db.Header()
	if !header.Initialized() {
		res.Code = state.Code(state.ErrLedgerNotReady)
		res.Log = state.ErrLedgerNotReady.Error()
		return
	}
	res.Value = header.Chairperson.Bytes()
	res.Height = int64(header.Height)
	return
}
