package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// BallotGenesis is the app_state of the genesis document. It fixes the
// chairperson and the proposal sequence for the life of the chain.
type BallotGenesis struct {
	Chairperson       common.Address `json:"chairperson"`
	Proposals         []string       `json:"proposals"`
	MaxDelegationHops uint64         `json:"max_delegation_hops"`
}

var ErrGenesisNoChairperson = errors.New("genesis app_state must include a chairperson")

func NewBallotGenesis(chairperson common.Address, proposals []string) *BallotGenesis {
	return &BallotGenesis{
		Chairperson:       chairperson,
		Proposals:         proposals,
		MaxDelegationHops: DefaultMaxDelegationHops,
	}
}

func (g *BallotGenesis) ValidateAndComplete() error {
	if g.Chairperson == (common.Address{}) {
		return ErrGenesisNoChairperson
	}
	if g.MaxDelegationHops == 0 {
		g.MaxDelegationHops = DefaultMaxDelegationHops
	}
	if g.Proposals == nil {
		g.Proposals = []string{}
	}
	return nil
}

func ParseBallotGenesis(appState []byte) (*BallotGenesis, error) {
	var g BallotGenesis
	if err := json.Unmarshal(appState, &g); err != nil {
		return nil, fmt.Errorf("decode app_state: %w", err)
	}
	if err := g.ValidateAndComplete(); err != nil {
		return nil, err
	}
	return &g, nil
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	if len(ag.AppState) != 0 {
		if _, err := ParseBallotGenesis(ag.AppState); err != nil {
			return err
		}
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const (
	DefaultPower = 1000

	// DefaultMaxDelegationHops bounds the delegation walk of a single tx.
	DefaultMaxDelegationHops = 64
)
