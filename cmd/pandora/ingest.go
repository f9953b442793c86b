package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Ingest SEC filings laid out as <dir>/<TICKER>/<DOC_TYPE>/<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Sources: cli.EnvVars("PANDORA_INGEST_DIR"),
				Usage:   "Filing directory (overrides ingest.dir)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and ingest files as they appear",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, ctx, err := newRuntime(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.searchable {
				return goerr.New("ingestion needs an embedding provider; set OPENAI_API_KEY or GEMINI_API_KEY")
			}

			dir := rt.cfg.Ingest.Dir
			if v := cmd.String("dir"); v != "" {
				dir = v
			}

			ingester := newIngester(rt)
			if cmd.Bool("watch") {
				return ingester.Watch(ctx, dir)
			}

			report, err := ingester.Run(ctx, dir)
			if err != nil {
				return err
			}
			fmt.Printf("processed %d, skipped %d, failed %d, %d chunks\n",
				report.Processed, report.Skipped, report.Failed, report.Chunks)
			return nil
		},
	}
}
