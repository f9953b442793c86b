package mcp

import (
	"context"
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	DefaultServerName    = "pandora"
	DefaultServerVersion = "1.0.0"
)

// Server exposes every tool of an executor's registry over MCP. Calls go through the
// executor, so failures come back as error results instead of protocol errors.
type Server struct {
	executor *pandora.Executor
	mcp      *server.MCPServer
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithServerInfo sets the name and version announced to MCP hosts.
func WithServerInfo(name, version string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
		c.version = version
	}
}

// NewServer creates a Server for the tools registered in executor.
func NewServer(executor *pandora.Executor, options ...ServerOption) *Server {
	cfg := serverConfig{name: DefaultServerName, version: DefaultServerVersion}
	for _, opt := range options {
		opt(&cfg)
	}

	s := &Server{
		executor: executor,
		mcp:      server.NewMCPServer(cfg.name, cfg.version, server.WithToolCapabilities(false)),
	}

	for _, spec := range executor.Registry().Specs() {
		tool := mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: specToInputSchema(spec),
		}
		s.mcp.AddTool(tool, s.handler(spec.Name))
	}

	return s
}

func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pandora.LoggerFromContext(ctx).Debug("MCP tool call", "tool", name, "args", req.Params.Arguments)

		result := s.executor.Execute(ctx, name, req.Params.Arguments)
		resp := mcp.NewToolResultText(result.Text)
		resp.IsError = result.Failed
		return resp, nil
	}
}

// Serve speaks JSON-RPC over in/out until ctx is canceled or in is closed.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return goerr.Wrap(err, "MCP server stopped")
	}
	return nil
}

// HandleMessage processes one raw JSON-RPC message and returns the response, nil for
// notifications.
func (s *Server) HandleMessage(ctx context.Context, raw json.RawMessage) mcp.JSONRPCMessage {
	return s.mcp.HandleMessage(ctx, raw)
}
