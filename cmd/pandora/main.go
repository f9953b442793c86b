package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "pandora",
		Usage: "Financial research desk: an LLM agent over market data, SEC filings and news",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Sources: cli.EnvVars("PANDORA_CONFIG"),
				Usage:   "YAML config file",
			},
			&cli.StringSliceFlag{
				Name:    "env-file",
				Value:   []string{".env"},
				Sources: cli.EnvVars("PANDORA_ENV_FILE"),
				Usage:   "dotenv files loaded before reading the environment",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			askCommand(),
			chatCommand(),
			mcpCommand(),
			ingestCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
