package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/calehh/ballot-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	KeyState        = "s"
	KeyVoterBody    = "v%x"
	KeyProposalBody = "p%v"
)

// StateHeader is the ledger-wide part of the state. It is fixed by InitLedger
// except for the height and hashes.
type StateHeader struct {
	Height            uint64         `json:"height"`
	ChainId           string         `json:"chain_id"`
	Chairperson       common.Address `json:"chairperson"`
	MaxDelegationHops uint64         `json:"max_delegation_hops"`
	ProposalCount     uint64         `json:"proposal_count"`
	RootHash          []byte         `json:"root_hash"`
	Hash              []byte         `json:"hash"`
}

func (h *StateHeader) Clone() *StateHeader {
	n := *h
	n.RootHash = common.CopyBytes(h.RootHash)
	n.Hash = common.CopyBytes(h.Hash)
	return &n
}

func (h *StateHeader) Initialized() bool {
	return h.Chairperson != (common.Address{})
}

type proposalRLP struct {
	Name      string
	VoteCount uint64
}

type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header    *StateHeader
	proposals []*types.Proposal
	voters    map[common.Address]*Voter

	modifiedVoters    map[common.Address]struct{}
	modifiedProposals map[uint64]struct{}
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	return &State{
		logger:            logger,
		db:                db,
		dbVer:             0,
		header:            new(StateHeader),
		proposals:         []*types.Proposal{},
		voters:            make(map[common.Address]*Voter),
		modifiedVoters:    make(map[common.Address]struct{}),
		modifiedProposals: make(map[uint64]struct{}),
	}
}

func (s *State) nextState() *State {
	n := &State{
		logger:            s.logger,
		db:                s.db,
		dbVer:             s.dbVer,
		header:            s.header.Clone(),
		proposals:         cloneProposals(s.proposals),
		voters:            make(map[common.Address]*Voter),
		modifiedVoters:    make(map[common.Address]struct{}),
		modifiedProposals: make(map[uint64]struct{}),
	}
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func cloneProposals(source []*types.Proposal) []*types.Proposal {
	res := make([]*types.Proposal, len(source))
	for i, p := range source {
		c := *p
		res[i] = &c
	}
	return res
}

func deepCopyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		switch x := any(v).(type) {
		case *Voter:
			res[k] = any(x.Clone()).(V)
		default:
			res[k] = v
		}
	}
	return res
}

// Clone returns an independent copy sharing only the backing tree. Mutations
// on the copy are invisible to s until the copy replaces it.
func (s *State) Clone() *State {
	return &State{
		logger:            s.logger,
		db:                s.db,
		dbVer:             s.dbVer,
		header:            s.header.Clone(),
		proposals:         cloneProposals(s.proposals),
		voters:            deepCopyMap(s.voters),
		modifiedVoters:    deepCopyMap(s.modifiedVoters),
		modifiedProposals: deepCopyMap(s.modifiedProposals),
	}
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil
		}
		return err
	}
	if val == nil {
		return nil
	}
	if err = json.Unmarshal(val, s.header); err != nil {
		return
	}
	s.proposals = make([]*types.Proposal, s.header.ProposalCount)
	for i := uint64(0); i < s.header.ProposalCount; i++ {
		s.proposals[i], err = s.readProposal(i)
		if err != nil {
			return fmt.Errorf("load proposal %d: %w", i, err)
		}
	}
	if h := s.db.Hash(); h != nil {
		s.calcHash(h, true)
	}
	s.dbVer = s.db.Version()
	return
}

func (s *State) readProposal(index uint64) (*types.Proposal, error) {
	val, err := s.db.Get([]byte(fmt.Sprintf(KeyProposalBody, index)))
	if err != nil {
		return nil, err
	}
	if val == nil {
		return nil, ErrNotFound
	}
	var p proposalRLP
	if err = rlp.DecodeBytes(val, &p); err != nil {
		return nil, err
	}
	return &types.Proposal{Index: index, Name: p.Name, VoteCount: p.VoteCount}, nil
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

// Update writes every record modified since the last Update into the working
// tree and returns the resulting app hash. Nothing is persisted until save.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	val, err := json.Marshal(s.header)
	if err != nil {
		return
	}
	if _, err = s.db.Set([]byte(KeyState), val); err != nil {
		return
	}

	idxs := make([]uint64, 0, len(s.modifiedProposals))
	for idx := range s.modifiedProposals {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool {
		return idxs[i] < idxs[j]
	})
	for _, idx := range idxs {
		p := s.proposals[idx]
		val, err = rlp.EncodeToBytes(proposalRLP{Name: p.Name, VoteCount: p.VoteCount})
		if err != nil {
			return
		}
		if _, err = s.db.Set([]byte(fmt.Sprintf(KeyProposalBody, idx)), val); err != nil {
			return
		}
	}

	addrs := make([]common.Address, 0, len(s.modifiedVoters))
	for addr := range s.modifiedVoters {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
	for _, addr := range addrs {
		val, err = json.Marshal(s.voters[addr])
		if err != nil {
			return
		}
		if _, err = s.db.Set([]byte(fmt.Sprintf(KeyVoterBody, addr[:])), val); err != nil {
			return
		}
	}

	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedVoters = make(map[common.Address]struct{})
	s.modifiedProposals = make(map[uint64]struct{})
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}
	s.dbVer = ver
	h = s.calcHash(hash, true)
	return
}

// InitLedger builds the ledger from genesis: it fixes the chairperson and the
// proposal sequence and grants the chairperson weight 1.
func (s *State) InitLedger(g *types.BallotGenesis) (err error) {
	if s.header.Initialized() {
		return ErrLedgerInitialized
	}
	if err = g.ValidateAndComplete(); err != nil {
		return err
	}
	s.header.Chairperson = g.Chairperson
	s.header.MaxDelegationHops = g.MaxDelegationHops
	s.header.ProposalCount = uint64(len(g.Proposals))
	s.proposals = make([]*types.Proposal, len(g.Proposals))
	for i, name := range g.Proposals {
		s.proposals[i] = &types.Proposal{Index: uint64(i), Name: name}
		s.modifiedProposals[uint64(i)] = struct{}{}
	}
	chair, err := s.voter(g.Chairperson)
	if err != nil {
		return err
	}
	chair.Weight = 1
	s.put(g.Chairperson, chair)
	s.logger.Info("ledger initialized", "chairperson", g.Chairperson, "proposals", len(g.Proposals), "maxHops", g.MaxDelegationHops)
	return nil
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

func (s *State) Chairperson() common.Address {
	return s.header.Chairperson
}

// Proposals returns a copy of the proposal sequence with current tallies.
func (s *State) Proposals() []types.Proposal {
	res := make([]types.Proposal, len(s.proposals))
	for i, p := range s.proposals {
		res[i] = *p
	}
	return res
}
