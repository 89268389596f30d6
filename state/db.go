package state

import (
	"sync"

	"github.com/calehh/ballot-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	dbm "github.com/cosmos/iavl/db"
	"github.com/ethereum/go-ethereum/common"
)

type StateDB struct {
	mtx sync.RWMutex

	dir    string
	logger cmtlog.Logger
	db     *iavl.MutableTree

	state *State
}

func NewStateDB(dir string, logger cmtlog.Logger) (db *StateDB, err error) {
	ldb, err := dbm.NewDB("ballot", "goleveldb", dir)
	if err != nil {
		return nil, err
	}
	db, err = newStateDB(ldb, logger)
	if err != nil {
		return nil, err
	}
	db.dir = dir
	return
}

// NewMemStateDB keeps the ledger in memory only.
func NewMemStateDB(logger cmtlog.Logger) (*StateDB, error) {
	return newStateDB(dbm.NewMemDB(), logger)
}

func newStateDB(ldb dbm.DB, logger cmtlog.Logger) (db *StateDB, err error) {
	logger = logger.With("module", "ballotdb")
	tdb := iavl.NewMutableTree(ldb, 128, true, Cometbft2CosmosLogger(logger))
	version, err := tdb.Load()
	if err != nil {
		return nil, err
	}
	logger.Info("load db success", "version", version)
	st := newState(tdb, logger)
	err = st.load()
	if err != nil {
		logger.Error("from ballotdb load fail", "err", err)
		return nil, err
	}
	db = &StateDB{
		logger: logger,
		db:     tdb,
		state:  st,
	}
	return
}

func (db *StateDB) Close() (err error) {
	err = db.db.Close()
	return
}

func (db *StateDB) Header() (header *StateHeader) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	header = db.state.Header().Clone()
	return
}

func (db *StateDB) State() *State {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state
}

// NewState returns the working state of the next block.
func (db *StateDB) NewState() (st *State) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	st = db.state.nextState()
	return
}

// SetState persists st, which must have been Updated, as the committed state.
func (db *StateDB) SetState(st *State) (hash common.Hash, err error) {
	db.mtx.Lock()
	defer db.mtx.Unlock()
	hash, err = st.save()
	if err != nil {
		return
	}
	db.state = st
	return
}

// GetVoter reads the committed record of addr. Writes of a block still being
// executed are not visible.
func (db *StateDB) GetVoter(addr common.Address) (v *Voter, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	height = db.state.header.Height
	ver := db.state.dbVer
	if ver == 0 {
		return NewVoter(), height, nil
	}
	v, err = readVoter(func(key []byte) ([]byte, error) {
		return db.db.GetVersioned(key, ver)
	}, addr)
	return
}

func (db *StateDB) GetProposals() (proposals []types.Proposal, height uint64) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	return db.state.Proposals(), db.state.header.Height
}

func (db *StateDB) GetWinner() (winner *types.Winner, height uint64, err error) {
	db.mtx.RLock()
	defer db.mtx.RUnlock()
	winner, err = db.state.Winner()
	height = db.state.header.Height
	return
}
