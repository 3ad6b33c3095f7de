package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/sentinelbtc/sentineld/internal/config"
	"github.com/sentinelbtc/sentineld/internal/core/application"
	"github.com/sentinelbtc/sentineld/internal/infrastructure/spv"
	filestore "github.com/sentinelbtc/sentineld/internal/infrastructure/storage/file"
	"github.com/sentinelbtc/sentineld/pkg/walletstore"
)

var monitor = cli.Command{
	Name:  "monitor",
	Usage: "watch the network for activity on the wallet addresses",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "passphrase",
			Usage:    "passphrase decrypting the wallet file",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "watch",
			Usage: "address to watch for incoming outputs, can be repeated",
		},
	},
	Action: monitorAction,
}

func monitorAction(ctx *cli.Context) error {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	_, network, err := walletstore.Load(walletstore.LoadOpts{
		Path:       config.GetWalletPath(),
		Passphrase: ctx.String("passphrase"),
	})
	if err != nil {
		return err
	}

	snapshotStore, err := filestore.NewSnapshotStore(config.GetSnapshotsDir())
	if err != nil {
		return err
	}

	svc, err := application.NewMonitorService(application.MonitorOpts{
		Network:          network,
		PeerGroupFactory: spv.NewPeerGroup,
		SnapshotStore:    snapshotStore,
		StaticPeers:      config.GetStringSlice(config.ConnectPeersKey),
	})
	if err != nil {
		return err
	}

	svc.Start()
	defer svc.Stop()

	for _, addr := range ctx.StringSlice("watch") {
		if err := svc.WatchAddress(addr); err != nil {
			log.WithError(err).Warnf("cannot watch address %s", addr)
		}
	}

	log.Infof("monitoring %s", network)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
	return nil
}
