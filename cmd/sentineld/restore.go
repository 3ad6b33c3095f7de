package main

import (
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sentinelbtc/sentineld/internal/config"
	"github.com/sentinelbtc/sentineld/pkg/wallet"
	"github.com/sentinelbtc/sentineld/pkg/walletstore"
)

var restore = cli.Command{
	Name:  "restore",
	Usage: "restore a wallet from an existing mnemonic",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "mnemonic",
			Usage:    "space separated mnemonic of the wallet to restore",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "passphrase encrypting the wallet file",
			Required: true,
		},
	},
	Action: restoreAction,
}

func restoreAction(ctx *cli.Context) error {
	network, err := config.GetNetwork()
	if err != nil {
		return err
	}
	mnemonic := strings.Fields(ctx.String("mnemonic"))
	passphrase := ctx.String("passphrase")

	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic:   mnemonic,
		Passphrase: passphrase,
		Network:    network,
	})
	if err != nil {
		return err
	}
	defer w.Scrub()

	return walletstore.Save(walletstore.SaveOpts{
		Path:       config.GetWalletPath(),
		Mnemonic:   mnemonic,
		Passphrase: passphrase,
		Network:    network,
	})
}
