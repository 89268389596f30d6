package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(pubkeyCmd)
	rootCmd.AddCommand(grantCmd)
	rootCmd.AddCommand(delegateCmd)
	rootCmd.AddCommand(voteCmd)
	rootCmd.AddCommand(voterCmd)
	rootCmd.AddCommand(proposalsCmd)
	rootCmd.AddCommand(winnerCmd)
	rootCmd.AddCommand(indexerCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
