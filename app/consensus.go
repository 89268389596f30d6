package app

import (
	"context"
	"errors"

	"github.com/calehh/ballot-app/state"
	"github.com/calehh/ballot-app/tx"
	"github.com/calehh/ballot-app/tx/handler"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// CodeInvalidTx is reported for txs that cannot be decoded or whose
// signature does not verify. Ledger errors use state.Code.
const CodeInvalidTx uint32 = 20

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrNoPendingState      = errors.New("commit without finalized block")
)

func (app *BallotApp) getState() (st *state.State) {
	st = app.db.NewState()
	return
}

func (app *BallotApp) chainId() string {
	return app.db.Header().ChainId
}

// parseTx decodes txDat and verifies its signature against the chain id.
func (app *BallotApp) parseTx(txDat []byte) (btx *tx.BallotTx, h handler.TxHandler, err error) {
	btx, err = tx.UnmarshalBallotTx(txDat)
	if err != nil {
		return
	}
	_, err = btx.Verify(app.chainId())
	if err != nil {
		return
	}
	h, ok := app.txHdlrs[btx.Type]
	if !ok {
		err = tx.ErrUnsupportedTxType
	}
	return
}

func (app *BallotApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: state.CodeOK}
	btx, h, err := app.parseTx(check.Tx)
	if err != nil {
		app.logger.Info("check tx parse fail", "err", err)
		res.Code = CodeInvalidTx
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Debug("check tx", "type", btx.Type, "caller", btx.Caller())
	res, err = h.Check(ctx, app.db.State(), btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: state.Code(err), Log: err.Error()}
		err = nil
	}
	return
}

// deliver runs one tx on a clone of st. It returns the state to continue the
// block with: the clone on success, st itself when the tx failed.
func (app *BallotApp) deliver(ctx context.Context, st *state.State, stx []byte) (next *state.State, result *abcitypes.ExecTxResult, typ tx.BallotTxType) {
	btx, h, err := app.parseTx(stx)
	if err != nil {
		app.logger.Info("deliver tx parse fail", "err", err)
		return st, &abcitypes.ExecTxResult{Code: CodeInvalidTx, Log: err.Error()}, tx.BallotTxTypeUnknown
	}
	stTmp := st.Clone()
	result, err = h.Process(ctx, stTmp, btx)
	if err != nil {
		app.logger.Info("deliver tx fail", "type", btx.Type, "caller", btx.Caller(), "err", err)
		return st, &abcitypes.ExecTxResult{Code: state.Code(err), Log: err.Error()}, btx.Type
	}
	if result == nil {
		return st, &abcitypes.ExecTxResult{Code: state.CodeInternal, Log: ErrUnexpectedTxProcess.Error()}, btx.Type
	}
	return stTmp, result, btx.Type
}

// PrepareProposal keeps only the txs that succeed in order against the
// state of the next block.
func (app *BallotApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.getState()
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if proposal.MaxTxBytes > 0 && size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		var result *abcitypes.ExecTxResult
		st, result, _ = app.deliver(ctx, st, stx)
		if result.Code != state.CodeOK {
			app.logger.Info("prepare drop tx", "code", result.Code, "log", result.Log)
			continue
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// ProcessProposal rejects blocks carrying a tx an honest proposer would have
// dropped.
func (app *BallotApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.getState()
	for i, stx := range proposal.Txs {
		var result *abcitypes.ExecTxResult
		st, result, _ = app.deliver(ctx, st, stx)
		if result.Code != state.CodeOK {
			app.logger.Error("proposal rejected", "height", proposal.Height, "tx", i, "code", result.Code, "log", result.Log)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *BallotApp) finalize(ctx context.Context, st *state.State, txs [][]byte) (next *state.State, res []*abcitypes.ExecTxResult) {
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		var typ tx.BallotTxType
		st, res[i], typ = app.deliver(ctx, st, stx)
		app.metrics.observeTx(typ.String(), res[i].Code)
	}
	return st, res
}

func (app *BallotApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st, res := app.finalize(ctx, app.getState(), req.Txs)
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.st = st
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *BallotApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return nil, ErrNoPendingState
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.metrics.observeCommit(app.st.Header().Height, app.st.Proposals())
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
