package main

import (
	"context"
	"fmt"

	"github.com/calehh/ballot-app/app"
	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
)

var queryUrl string

var voterCmd = &cobra.Command{
	Use:   "voter <address>",
	Short: "Show the committed record of a participant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return query(app.QueryPathVoters, addr.Bytes())
	},
}

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List proposals with their current tallies",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return query(app.QueryPathProposals, nil)
	},
}

var winnerCmd = &cobra.Command{
	Use:   "winner",
	Short: "Show the winning proposal",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return query(app.QueryPathWinner, nil)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{voterCmd, proposalsCmd, winnerCmd} {
		cmd.Flags().StringVarP(&queryUrl, "url", "u", "http://127.0.0.1:26657", "ballotd rpc url")
	}
}

func query(path string, data []byte) error {
	cli, err := http.New(queryUrl, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	res, err := cli.ABCIQuery(context.Background(), path, data)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s failed with code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	fmt.Printf("height:%d\n%s\n", res.Response.Height, string(res.Response.Value))
	return nil
}
