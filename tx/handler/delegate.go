package handler

import (
	"context"

	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	"github.com/calehh/ballot-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type DelegateTxHandler struct {
	logger cmtlog.Logger
}

func NewDelegateTxHandler(logger cmtlog.Logger) (h *DelegateTxHandler) {
	logger = logger.With("module", "delegateTx")
	h = &DelegateTxHandler{
		logger: logger,
	}
	return
}

func (h *DelegateTxHandler) Check(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ResponseCheckTx, err error) {
	dtx := btx.Tx.(*tx.DelegateTx)
	_, err1 := st.Delegate(btx.Caller(), dtx.To, true)
	if err1 != nil {
		h.logger.Info("CheckTx DelegateTx fail", "err", err1)
	}
	res = checkResult(err1)
	return
}

func (h *DelegateTxHandler) Process(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ExecTxResult, err error) {
	dtx := btx.Tx.(*tx.DelegateTx)
	event, err := st.Delegate(btx.Caller(), dtx.To, false)
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{}
	if event != nil {
		res.Events = []abcitypes.Event{types.EncodeEventDelegate(event)}
	}
	return
}
