package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/config"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/market"
	"github.com/m-mizutani/pandora/mcp"
	"github.com/m-mizutani/pandora/tools"
	"github.com/m-mizutani/pandora/trace"
	tracelogger "github.com/m-mizutani/pandora/trace/logger"
	traceotel "github.com/m-mizutani/pandora/trace/otel"
	"github.com/urfave/cli/v3"
)

// runtime holds every component built from the configuration. Close releases them in reverse
// order of creation.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	market   *market.Client
	store    *docstore.Store
	executor *pandora.Executor
	agent    *pandora.Agent
	traces   *trace.FileRepository

	// searchable is false when no embedder is configured.
	searchable bool

	closers []func() error
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	opts := []config.LoadOption{config.WithEnvFiles(cmd.StringSlice("env-file")...)}
	if path := cmd.String("config"); path != "" {
		opts = append(opts, config.WithFile(path))
	}
	return config.Load(opts...)
}

// newRuntime builds the store and the logger. Call withAgent to add the agent stack.
func newRuntime(ctx context.Context, cmd *cli.Command, logOut io.Writer) (*runtime, context.Context, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, ctx, err
	}

	logger := cfg.Log.NewLogger(logOut)
	slog.SetDefault(logger)
	ctx = pandora.CtxWithLogger(ctx, logger)

	rt := &runtime{
		cfg:    cfg,
		logger: logger,
		market: cfg.Market.NewMarketClient(),
	}

	embedder, err := cfg.NewEmbedder(ctx)
	if err != nil {
		// Without an embedder the corpus can be listed but not searched.
		logger.Warn("document search disabled", "error", err)
		embedder = nil
	}
	rt.searchable = embedder != nil

	if err := ensureDBDir(cfg.Store.DSN); err != nil {
		return nil, ctx, err
	}
	store, err := docstore.Open(ctx, cfg.Store.DSN, embedder)
	if err != nil {
		return nil, ctx, err
	}
	rt.store = store
	rt.closers = append(rt.closers, store.Close)

	return rt, ctx, nil
}

// withExecutor builds the tool registry and its executor, including tools of configured MCP
// servers.
func (rt *runtime) withExecutor(ctx context.Context) error {
	cfg := rt.cfg

	deps := tools.Deps{
		Quotes: rt.market,
		News:   rt.market,
		Corpus: rt.store,
	}
	if rt.searchable {
		deps.Docs = rt.store
	}

	var extra []pandora.Tool
	for _, srv := range cfg.MCP {
		remote, err := rt.connectMCP(ctx, srv)
		if err != nil {
			return err
		}
		extra = append(extra, remote...)
	}

	registry, err := tools.New(deps, extra...)
	if err != nil {
		return err
	}

	cache, err := cfg.Cache.NewToolCache(ctx)
	if err != nil {
		return err
	}
	if closer, ok := cache.(io.Closer); ok {
		rt.closers = append(rt.closers, closer.Close)
	}

	executor, err := pandora.NewExecutor(registry, cfg.Agent.ExecutorOptions(cache, cfg.Cache.TTL)...)
	if err != nil {
		return err
	}
	rt.executor = executor
	return nil
}

// withAgent builds the executor and the agent. hooks are appended to the configured agent
// options.
func (rt *runtime) withAgent(ctx context.Context, hooks ...pandora.Option) error {
	cfg := rt.cfg

	llmClient, provider, err := cfg.LLM.NewLLMClient(ctx)
	if err != nil {
		return err
	}

	if err := rt.withExecutor(ctx); err != nil {
		return err
	}

	opts := cfg.Agent.AgentOptions()
	opts = append(opts, pandora.WithLogger(rt.logger))
	if handler := rt.traceHandler(provider, cfg.LLM.Model); handler != nil {
		opts = append(opts, pandora.WithTrace(handler))
	}
	opts = append(opts, hooks...)

	rt.agent = pandora.New(llmClient, rt.executor, opts...)
	rt.logger.Info("agent ready", "provider", provider, "tools", rt.executor.Registry().Names())
	return nil
}

func (rt *runtime) connectMCP(ctx context.Context, srv config.MCPServer) ([]pandora.Tool, error) {
	var env []string
	for k, v := range srv.Env {
		env = append(env, k+"="+v)
	}

	client, err := mcp.NewStdio(ctx, srv.Command, srv.Args, mcp.WithEnvVars(env))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start MCP server", goerr.V("name", srv.Name))
	}
	rt.closers = append(rt.closers, client.Close)

	remote, err := client.Tools(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list MCP tools", goerr.V("name", srv.Name))
	}
	rt.logger.Info("MCP server connected", "name", srv.Name, "tools", len(remote))
	return remote, nil
}

func (rt *runtime) traceHandler(provider, model string) trace.Handler {
	var handlers []trace.Handler

	if dir := rt.cfg.Trace.Dir; dir != "" {
		rt.traces = trace.NewFileRepository(dir)
		meta := trace.TraceMetadata{
			Model:  model,
			Labels: map[string]string{"provider": provider},
		}
		handlers = append(handlers, trace.New(trace.WithRepository(rt.traces), trace.WithMetadata(meta)))
	}

	if rt.logger.Enabled(context.Background(), slog.LevelDebug) {
		handlers = append(handlers, tracelogger.New(tracelogger.WithLogger(rt.logger)))
	}

	if rt.cfg.Trace.Otel {
		handlers = append(handlers, traceotel.New())
	}

	switch len(handlers) {
	case 0:
		return nil
	case 1:
		return handlers[0]
	}
	return trace.Multi(handlers...)
}

func (rt *runtime) Close() {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		rt.logger.Warn("failed to release resources", "error", err)
	}
}

// ensureDBDir creates the parent directory of a local libSQL file.
func ensureDBDir(dsn string) error {
	path, ok := strings.CutPrefix(dsn, "file:")
	if !ok {
		return nil
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return goerr.Wrap(err, "failed to create database directory", goerr.V("dir", dir))
	}
	return nil
}
