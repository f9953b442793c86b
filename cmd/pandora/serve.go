package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/pandora/ingest"
	"github.com/m-mizutani/pandora/server"
	"github.com/sourcegraph/conc/pool"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Sources: cli.EnvVars("PANDORA_SERVER_ADDR"),
				Usage:   "Server listen address (overrides server.addr)",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Ingest new filings from ingest.dir while serving",
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

			if err := rt.withAgent(ctx); err != nil {
				return err
			}

			addr := rt.cfg.Server.Addr
			if v := cmd.String("addr"); v != "" {
				addr = v
			}

			gin.SetMode(gin.ReleaseMode)
			opts := []server.Option{
				server.WithStocks(rt.market),
				server.WithFiles(rt.store),
				server.WithLogger(rt.logger),
				server.WithShutdownTimeout(rt.cfg.Server.ShutdownTimeout),
			}
			if rt.traces != nil {
				opts = append(opts, server.WithTraces(rt.traces))
			}
			srv := server.New(rt.agent, opts...)

			p := pool.New().WithContext(ctx).WithCancelOnError()
			p.Go(func(ctx context.Context) error {
				return srv.ListenAndServe(ctx, addr)
			})
			if cmd.Bool("watch") {
				if !rt.searchable {
					rt.logger.Warn("--watch ignored: ingestion needs an embedding provider")
				} else {
					ingester := newIngester(rt)
					p.Go(func(ctx context.Context) error {
						return ingester.Watch(ctx, rt.cfg.Ingest.Dir)
					})
				}
			}
			return p.Wait()
		},
	}
}

func newIngester(rt *runtime) *ingest.Ingester {
	return ingest.New(rt.store,
		ingest.WithChunking(rt.cfg.Ingest.ChunkSize, rt.cfg.Ingest.ChunkOverlap),
		ingest.WithSettleDelay(rt.cfg.Ingest.SettleDelay),
	)
}
