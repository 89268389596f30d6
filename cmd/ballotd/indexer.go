package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/calehh/ballot-app/agent"
	app_config "github.com/calehh/ballot-app/config"
	"github.com/spf13/cobra"
)

type indexerArguments struct {
	Url    string
	DB     string
	Listen string
	Level  string
}

var indexerArgs indexerArguments

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Follow a remote node and serve its ballot history",
	Run:   indexerRun,
}

func init() {
	urlFlag(indexerCmd, &indexerArgs.Url)
	indexerCmd.Flags().StringVar(&indexerArgs.DB, "db", app_config.DefaultIndexerDB, "sqlite database path")
	indexerCmd.Flags().StringVar(&indexerArgs.Listen, "listen", app_config.DefaultApiListenAddr, "http api listen address")
	indexerCmd.Flags().StringVar(&indexerArgs.Level, "log-level", "info", "log level")
}

func indexerRun(cmd *cobra.Command, args []string) {
	logger := newLogger(indexerArgs.Level)
	indexer, err := agent.NewChainIndexer(logger, indexerArgs.DB, indexerArgs.Url)
	if err != nil {
		log.Fatalf("new chain indexer err %s", err.Error())
	}
	defer indexer.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go indexer.Start(ctx)
	go func() {
		if err := agent.NewService(indexerArgs.Listen, indexer).Start(); err != nil {
			logger.Error("indexer api stopped", "err", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
