package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	app_config "github.com/calehh/ballot-app/config"
	"github.com/calehh/ballot-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)

	return err
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, and application configuration files",
	Long: `Initialize validators's and node's configuration files. The genesis
app_state names the chairperson and the proposals of the ballot.`,
	Args: cobra.ExactArgs(0),
	RunE: initRun,
}

func init() {
	initCmd.Flags().BoolP(FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().String(FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().String(FlagHome, "", "node home directory")
	initCmd.Flags().StringSlice(FlagProposals, nil, "proposal names in ballot order")
	initCmd.Flags().String(FlagChair, "", "chairperson address, defaults to the validator key")
	initCmd.Flags().Uint64(FlagMaxHops, types.DefaultMaxDelegationHops, "bound on the delegation chain walk")
}

func initRun(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString(FlagHome)
	chainID, _ := cmd.Flags().GetString(FlagChainID)
	overwrite, _ := cmd.Flags().GetBool(FlagOverwrite)
	proposals, _ := cmd.Flags().GetStringSlice(FlagProposals)
	chair, _ := cmd.Flags().GetString(FlagChair)
	maxHops, _ := cmd.Flags().GetUint64(FlagMaxHops)

	if chainID == "" {
		chainID = fmt.Sprintf("ballot-chain-%v", rand.Uint64())
	}
	appConfig := app_config.NewBallotConfig(home)

	genFile := appConfig.GenesisFile()
	if !overwrite && cmtos.FileExists(genFile) {
		return fmt.Errorf("genesis file %v exists, use --%s to replace it", genFile, FlagOverwrite)
	}

	nodeID, pk, err := app_config.InitializeNodeValidatorFiles(appConfig, nil)
	if err != nil {
		return err
	}
	vals := []types.GenesisValidator{
		{Address: pk.Address(), PubKey: pk, Power: types.DefaultPower},
	}

	chairperson := types.AddressFromPubKey(pk.Bytes())
	if chair != "" {
		if !common.IsHexAddress(chair) {
			return fmt.Errorf("invalid chairperson address %v", chair)
		}
		chairperson = common.HexToAddress(chair)
	}
	g := types.NewBallotGenesis(chairperson, proposals)
	g.MaxDelegationHops = maxHops
	appState, err := json.Marshal(g)
	if err != nil {
		return err
	}

	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file: %w", err)
	}
	app_config.WriteConfigFile(filepath.Join(appConfig.RootDir, "config", "config.toml"), appConfig)
	return displayInfo(printInfo{
		Moniker:    appConfig.Moniker,
		ChainID:    chainID,
		NodeID:     nodeID,
		AppMessage: appState,
	})
}
