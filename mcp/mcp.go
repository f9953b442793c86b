// Package mcp connects pandora tools with the Model Context Protocol. Client imports the tools
// of an external MCP server; Server exposes a registry to MCP hosts.
package mcp

import (
	"context"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	DefaultClientName    = "pandora"
	DefaultClientVersion = "1.0.0"
)

// Client is a connection to an MCP server launched as a child process.
type Client struct {
	path    string
	args    []string
	envVars []string

	name    string
	version string

	client     *client.Client
	initResult *mcp.InitializeResult

	initMutex sync.Mutex
}

// StdioOption configures a stdio Client.
type StdioOption func(*Client)

// WithEnvVars appends KEY=VALUE entries to the child process environment.
func WithEnvVars(envVars []string) StdioOption {
	return func(c *Client) {
		c.envVars = append(c.envVars, envVars...)
	}
}

// WithClientInfo sets the name and version sent in the initialize request.
func WithClientInfo(name, version string) StdioOption {
	return func(c *Client) {
		c.name = name
		c.version = version
	}
}

// NewStdio launches path with args and completes the MCP handshake.
func NewStdio(ctx context.Context, path string, args []string, options ...StdioOption) (*Client, error) {
	c := &Client{
		path:    path,
		args:    args,
		name:    DefaultClientName,
		version: DefaultClientVersion,
	}
	for _, opt := range options {
		opt(c)
	}

	if err := c.start(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to start MCP client", goerr.V("path", path))
	}
	return c, nil
}

func (c *Client) start(ctx context.Context) error {
	c.initMutex.Lock()
	defer c.initMutex.Unlock()

	if c.initResult != nil {
		return nil
	}

	c.client = client.NewClient(transport.NewStdio(c.path, c.envVars, c.args...))
	if err := c.client.Start(ctx); err != nil {
		return goerr.Wrap(err, "failed to start MCP transport")
	}

	var req mcp.InitializeRequest
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{
		Name:    c.name,
		Version: c.version,
	}

	resp, err := c.client.Initialize(ctx, req)
	if err != nil {
		_ = c.client.Close()
		return goerr.Wrap(err, "failed to initialize MCP session")
	}
	c.initResult = resp

	pandora.LoggerFromContext(ctx).Debug("MCP client initialized",
		"path", c.path,
		"server", resp.ServerInfo.Name,
		"server_version", resp.ServerInfo.Version,
	)
	return nil
}

// Tools lists the remote tools as pandora tools. Register them in the registry to let the
// reasoning engine call them.
func (c *Client) Tools(ctx context.Context) ([]pandora.Tool, error) {
	if c.initResult == nil {
		return nil, goerr.New("MCP client not initialized")
	}

	resp, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tools")
	}

	tools := make([]pandora.Tool, 0, len(resp.Tools))
	names := make([]string, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		params, err := inputSchemaToParameters(t.InputSchema)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to convert input schema", goerr.V("tool", t.Name))
		}
		tools = append(tools, &remoteTool{
			client: c,
			spec: pandora.ToolSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
		names = append(names, t.Name)
	}

	pandora.LoggerFromContext(ctx).Debug("found MCP tools", "names", names)
	return tools, nil
}

func (c *Client) callTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.initResult == nil {
		return nil, goerr.New("MCP client not initialized")
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool", goerr.V("tool", name))
	}
	return resp, nil
}

// Close terminates the session and the child process.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close MCP client")
	}
	return nil
}

type remoteTool struct {
	client *Client
	spec   pandora.ToolSpec
}

func (x *remoteTool) Spec() pandora.ToolSpec { return x.spec }

// Run returns the text content of the result. A result flagged as an error becomes an error so
// the Executor reports it as a tool failure.
func (x *remoteTool) Run(ctx context.Context, args map[string]any) (string, error) {
	resp, err := x.client.callTool(ctx, x.spec.Name, args)
	if err != nil {
		return "", err
	}

	text := contentToText(resp.Content)
	if resp.IsError {
		return "", goerr.New(text, goerr.V("tool", x.spec.Name))
	}
	return text, nil
}

func contentToText(contents []mcp.Content) string {
	var texts []string
	for _, c := range contents {
		switch v := c.(type) {
		case mcp.TextContent:
			texts = append(texts, v.Text)
		case *mcp.TextContent:
			texts = append(texts, v.Text)
		}
	}
	return strings.Join(texts, "\n")
}
