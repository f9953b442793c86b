// Package server is the HTTP API of the desk: chat with the agent, stock charts, the ingested
// corpus and recorded run traces.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/market"
	"github.com/m-mizutani/pandora/trace"
)

const (
	DefaultHistoryWindow   = 365 * 24 * time.Hour
	DefaultShutdownTimeout = 10 * time.Second
	DefaultFileLimit       = docstore.DefaultListLimit
	defaultTraceLimit      = 20
)

// Agent answers chat queries.
type Agent interface {
	Run(ctx context.Context, query string, options ...pandora.RunOption) (*pandora.Result, error)
}

// StockProvider serves the chart endpoint.
type StockProvider interface {
	Quote(ctx context.Context, ticker string) (*market.Quote, error)
	History(ctx context.Context, ticker string, since time.Time) ([]*market.Bar, error)
}

// FileLister serves the corpus endpoint.
type FileLister interface {
	ListFiles(ctx context.Context, limit int) ([]*docstore.ProcessedFile, error)
}

// TraceStore serves the trace endpoints.
type TraceStore interface {
	List(ctx context.Context, limit int) ([]trace.Summary, error)
	Load(ctx context.Context, traceID string) (*trace.Trace, error)
}

// Server is the HTTP API. Endpoints whose collaborator is not set answer 404.
type Server struct {
	agent  Agent
	stocks StockProvider
	files  FileLister
	traces TraceStore

	historyWindow   time.Duration
	shutdownTimeout time.Duration
	now             func() time.Time
	logger          *slog.Logger

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

func WithStocks(p StockProvider) Option {
	return func(s *Server) { s.stocks = p }
}

func WithFiles(l FileLister) Option {
	return func(s *Server) { s.files = l }
}

func WithTraces(t TraceStore) Option {
	return func(s *Server) { s.traces = t }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithHistoryWindow sets how far back the chart history reaches.
func WithHistoryWindow(d time.Duration) Option {
	return func(s *Server) { s.historyWindow = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// WithClock replaces time.Now when computing the start of the chart history.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates the API server around agent.
func New(agent Agent, options ...Option) *Server {
	s := &Server{
		agent:           agent,
		historyWindow:   DefaultHistoryWindow,
		shutdownTimeout: DefaultShutdownTimeout,
		now:             time.Now,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range options {
		opt(s)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.accessLog(), cors())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/chat", s.handleChat)
	api.GET("/stock/:ticker", s.handleStock)
	api.GET("/files", s.handleFiles)
	api.GET("/traces", s.handleListTraces)
	api.GET("/traces/:id", s.handleGetTrace)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", addr))
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return pandora.CtxWithLogger(context.Background(), s.logger) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "HTTP server failed")
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down HTTP server")
	}
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(started),
		)
	}
}

// cors allows the browser front end served from another origin.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
