package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sentinelbtc/sentineld/internal/config"
	"github.com/sentinelbtc/sentineld/pkg/wallet"
	"github.com/sentinelbtc/sentineld/pkg/walletstore"
)

var create = cli.Command{
	Name:  "create",
	Usage: "create a new wallet with a freshly generated mnemonic",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "passphrase encrypting the wallet file",
			Required: true,
		},
	},
	Action: createAction,
}

func createAction(ctx *cli.Context) error {
	network, err := config.GetNetwork()
	if err != nil {
		return err
	}
	passphrase := ctx.String("passphrase")

	w, err := wallet.NewWallet(wallet.NewWalletOpts{
		Passphrase: passphrase,
		Network:    network,
	})
	if err != nil {
		return err
	}
	defer w.Scrub()

	mnemonic, err := w.Mnemonic()
	if err != nil {
		return err
	}

	if err := walletstore.Save(walletstore.SaveOpts{
		Path:       config.GetWalletPath(),
		Mnemonic:   mnemonic,
		Passphrase: passphrase,
		Network:    network,
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(strings.Join(mnemonic, " "))

	return nil
}
