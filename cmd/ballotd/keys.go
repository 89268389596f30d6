package main

import (
	"encoding/hex"
	"fmt"

	"github.com/calehh/ballot-app/crypto"
	"github.com/spf13/cobra"
)

type keyArguments struct {
	Skey string
}

var keygenArgs keyArguments

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create a participant key",
	Run:   keygenRun,
}

var pubkeyArgs keyArguments

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key and ballot address of a key",
	Run:   pubkeyRun,
}

func init() {
	skeyFlag(keygenCmd, &keygenArgs.Skey)
	skeyFlag(pubkeyCmd, &pubkeyArgs.Skey)
}

func keygenRun(cmd *cobra.Command, args []string) {
	pv, err := crypto.GenFilePV(keygenArgs.Skey)
	if err != nil {
		fmt.Printf("generate key err:%v\n", err)
		return
	}
	printKey(pv)
}

func pubkeyRun(cmd *cobra.Command, args []string) {
	pv, err := crypto.LoadFilePV(pubkeyArgs.Skey)
	if err != nil {
		fmt.Printf("load key err:%v\n", err)
		return
	}
	printKey(pv)
}

func printKey(pv *crypto.PV) {
	fmt.Println("pubkey:", hex.EncodeToString(pv.PublicKey()))
	fmt.Println("address:", pv.Address().Hex())
}
