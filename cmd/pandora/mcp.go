package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/pandora/mcp"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the financial tools to MCP hosts over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			// stdout carries the protocol, so logs go to stderr.
			rt, ctx, err := newRuntime(ctx, cmd, os.Stderr)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.withExecutor(ctx); err != nil {
				return err
			}

			rt.logger.Info("serving MCP over stdio", "tools", rt.executor.Registry().Names())
			return mcp.NewServer(rt.executor).Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}
