package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultIndexerDB     = "indexer.db"
	DefaultApiListenAddr = "127.0.0.1:8686"
)

// BallotAppConfig is the [app] section of config.toml.
type BallotAppConfig struct {
	Home          string `mapstructure:"-"`
	IndexerDB     string `mapstructure:"indexer_db"`
	ApiListenAddr string `mapstructure:"api_listen_addr"`

	// PromRegistry receives the app metrics. A private registry is used
	// when nil.
	PromRegistry prometheus.Registerer `mapstructure:"-"`
}

func DefaultBallotAppConfig(home string) *BallotAppConfig {
	return &BallotAppConfig{
		Home:          home,
		IndexerDB:     DefaultIndexerDB,
		ApiListenAddr: DefaultApiListenAddr,
	}
}

// IndexerDBPath resolves IndexerDB against the home directory.
func (c *BallotAppConfig) IndexerDBPath() string {
	if filepath.IsAbs(c.IndexerDB) {
		return c.IndexerDB
	}
	return filepath.Join(c.Home, c.IndexerDB)
}

func (c *BallotAppConfig) ValidateBasic() error {
	if c.IndexerDB == "" {
		return fmt.Errorf("app.indexer_db must not be empty")
	}
	if c.ApiListenAddr == "" {
		return fmt.Errorf("app.api_listen_addr must not be empty")
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *BallotAppConfig `mapstructure:"app"`
}

func DefaultHome() string {
	return os.ExpandEnv("$HOME/.ballot")
}

func NewBallotConfig(home string) *Config {
	if len(home) == 0 {
		home = DefaultHome()
	}
	_ = os.MkdirAll(home+"/config", 0755)
	config := &Config{
		DefaultBallotCometConfig(),
		DefaultBallotAppConfig(home),
	}
	config.SetRoot(home)
	return config
}

func (c *Config) ValidateBasic() error {
	if err := c.Config.ValidateBasic(); err != nil {
		return err
	}
	return c.App.ValidateBasic()
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultBallotCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
