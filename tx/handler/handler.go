package handler

import (
	"context"

	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// TxHandler executes one transaction type. btx must already be verified.
// Check never mutates st. Process mutates st and leaves it partially
// written on error, so callers run it on a clone.
type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ResponseCheckTx, err error)
	Process(ctx context.Context, st *state.State, btx *tx.BallotTx) (res *abcitypes.ExecTxResult, err error)
}

func checkResult(err error) *abcitypes.ResponseCheckTx {
	res := &abcitypes.ResponseCheckTx{Code: state.CodeOK}
	if err != nil {
		res.Code = state.Code(err)
		res.Log = err.Error()
	}
	return res
}
