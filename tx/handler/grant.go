package handler

import (
	"context"

	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	"github.com/calehh/ballot-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type GrantRightTxHandler struct {
	logger cmtlog.Logger
}

func NewGrantRightTxHandler(logger cmtlog.Logger) (h *GrantRightTxHandler) {
	logger = logger.With("module", "grantTx")
	h = &GrantRightTxHandler{
		logger: logger,
	}
	return
}

func (h *GrantRightTxHandler) Check(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ResponseCheckTx, err error) {
	gtx := btx.Tx.(*tx.GrantRightTx)
	_, err1 := st.GrantRight(btx.Caller(), gtx.Voter, true)
	if err1 != nil {
		h.logger.Info("CheckTx GrantRightTx fail", "err", err1)
	}
	res = checkResult(err1)
	return
}

func (h *GrantRightTxHandler) Process(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ExecTxResult, err error) {
	gtx := btx.Tx.(*tx.GrantRightTx)
	event, err := st.GrantRight(btx.Caller(), gtx.Voter, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventGrantRight(event)}
	}
	return
}
