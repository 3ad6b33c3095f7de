package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sentinelbtc/sentineld/internal/config"
)

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "sentineld"
	app.Usage = "lightweight bitcoin wallet monitor"
	app.Commands = append(
		app.Commands,
		&create,
		&restore,
		&monitor,
	)

	if err := config.InitConfig(); err != nil {
		fatal(err)
	}

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[sentineld] %v\n", err)
	os.Exit(1)
}
