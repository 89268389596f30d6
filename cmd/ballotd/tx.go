package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/ballot-app/crypto"
	"github.com/calehh/ballot-app/tx"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url    string
	Skey   string
	NoSend bool
}

func txFlags(cmd *cobra.Command, args *txArguments) {
	urlFlag(cmd, &args.Url)
	skeyFlag(cmd, &args.Skey)
	cmd.Flags().BoolVarP(&args.NoSend, "nosend", "", false, "print the signed transaction instead of sending it")
}

var (
	grantArgs    txArguments
	delegateArgs txArguments
	voteArgs     txArguments
)

var grantCmd = &cobra.Command{
	Use:   "grant <voter address>",
	Short: "Give a participant the right to vote (chairperson only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		voter, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return sendTx(&grantArgs, tx.BallotTxTypeGrantRight, &tx.GrantRightTx{Voter: voter})
	},
}

var delegateCmd = &cobra.Command{
	Use:   "delegate <to address>",
	Short: "Hand your vote to another participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		to, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return sendTx(&delegateArgs, tx.BallotTxTypeDelegate, &tx.DelegateTx{To: to})
	},
}

var voteProposal int64

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Cast your weight for a proposal",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTx(&voteArgs, tx.BallotTxTypeVote, &tx.VoteTx{Proposal: voteProposal})
	},
}

func init() {
	txFlags(grantCmd, &grantArgs)
	txFlags(delegateCmd, &delegateArgs)
	txFlags(voteCmd, &voteArgs)
	voteCmd.Flags().Int64VarP(&voteProposal, "proposal", "p", 0, "proposal index")
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %v", s)
	}
	return common.HexToAddress(s), nil
}

func sendTx(args *txArguments, typ tx.BallotTxType, payload any) error {
	pv, err := crypto.LoadFilePV(args.Skey)
	if err != nil {
		return err
	}
	cli, err := http.New(args.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	btx := tx.NewBallotTx(typ, pv.PublicKey(), payload)
	if err = btx.Sign(gres.Genesis.ChainID, pv.Sign); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalBallotTx(btx)
	if err != nil {
		return err
	}
	fmt.Println("caller:", pv.Address().Hex())
	if args.NoSend {
		fmt.Println(string(dat))
		return nil
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != 0 {
		return fmt.Errorf("tx rejected with code %d: %s", res.Code, res.Log)
	}
	return nil
}
