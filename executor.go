package pandora

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolErrorPrefix starts every result text that reports a failure.
const ToolErrorPrefix = "Error: "

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Text   string
	Failed bool
	Cached bool
}

// ToolCache stores successful tool results. Implementations must be safe for concurrent use.
type ToolCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithToolCache caches successful results of identical calls (same tool, same arguments) for ttl.
func WithToolCache(cache ToolCache, ttl time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.cache = cache
		x.cacheTTL = ttl
	}
}

// WithToolTimeout bounds each tool run. The context passed to the tool is cancelled after d.
func WithToolTimeout(d time.Duration) ExecutorOption {
	return func(x *Executor) {
		x.timeout = d
	}
}

// WithArgumentValidation validates call arguments against the tool's declared schema before
// running it. A violation becomes failure text instead of reaching the tool.
func WithArgumentValidation(enabled bool) ExecutorOption {
	return func(x *Executor) {
		x.validate = enabled
	}
}

// Executor runs tools of a Registry. Execute never returns an error and never panics:
// every failure is converted into result text prefixed with ToolErrorPrefix.
type Executor struct {
	registry *Registry
	schemas  map[string]*jsonschema.Schema
	validate bool
	timeout  time.Duration
	cache    ToolCache
	cacheTTL time.Duration
}

// NewExecutor creates an Executor for registry.
func NewExecutor(registry *Registry, options ...ExecutorOption) (*Executor, error) {
	x := &Executor{
		registry: registry,
		schemas:  map[string]*jsonschema.Schema{},
	}
	for _, opt := range options {
		opt(x)
	}

	if x.validate {
		for _, spec := range registry.Specs() {
			schema, err := compileSchema(spec)
			if err != nil {
				return nil, err
			}
			x.schemas[spec.Name] = schema
		}
	}

	return x, nil
}

// Registry returns the registry the executor dispatches to.
func (x *Executor) Registry() *Registry { return x.registry }

type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("%v", e.value) }

// Execute runs the named tool with args and returns its result text.
func (x *Executor) Execute(ctx context.Context, name string, args map[string]any) ToolResult {
	logger := LoggerFromContext(ctx).With("tool", name)

	tool, ok := x.registry.Resolve(name)
	if !ok {
		logger.Warn("tool not found")
		return failure("tool not found: " + name)
	}

	if args == nil {
		args = map[string]any{}
	}

	if schema, ok := x.schemas[name]; ok {
		if err := validateArgs(schema, args); err != nil {
			logger.Debug("invalid tool arguments", "error", err)
			return failure(fmt.Sprintf("invalid arguments for %s: %s", name, err.Error()))
		}
	}

	var key string
	if x.cache != nil {
		key = cacheKey(name, args)
		if text, hit, err := x.cache.Get(ctx, key); err != nil {
			logger.Warn("failed to read tool cache", "error", err)
		} else if hit {
			logger.Debug("tool cache hit")
			return ToolResult{Text: text, Cached: true}
		}
	}

	started := time.Now()
	text, err := x.invoke(ctx, tool, args)
	logger.Debug("tool executed", "duration", time.Since(started), "error", err)

	if err != nil {
		var pe *panicError
		if errors.As(err, &pe) {
			logger.Error("tool panicked", "panic", pe.value)
			return failure(fmt.Sprintf("%s panicked: %v", name, pe.value))
		}
		return failure(fmt.Sprintf("%s failed: %s", name, err.Error()))
	}

	if x.cache != nil {
		if err := x.cache.Set(ctx, key, text, x.cacheTTL); err != nil {
			logger.Warn("failed to write tool cache", "error", err)
		}
	}

	return ToolResult{Text: text}
}

func (x *Executor) invoke(ctx context.Context, tool Tool, args map[string]any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()

	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}

	return tool.Run(ctx, args)
}

func failure(msg string) ToolResult {
	return ToolResult{Text: ToolErrorPrefix + msg, Failed: true}
}

// cacheKey is stable for equal arguments; encoding/json writes map keys in sorted order.
func cacheKey(name string, args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", args))
	}
	sum := sha256.Sum256(raw)
	return "pandora:tool:" + name + ":" + hex.EncodeToString(sum[:])
}

func compileSchema(spec ToolSpec) (*jsonschema.Schema, error) {
	eb := goerr.NewBuilder(goerr.V("tool", spec.Name))

	raw, err := json.Marshal(spec.JSONSchema())
	if err != nil {
		return nil, eb.Wrap(err, "failed to marshal tool schema")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, eb.Wrap(err, "failed to decode tool schema")
	}

	url := spec.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, eb.Wrap(err, "failed to add tool schema")
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, eb.Wrap(err, "failed to compile tool schema")
	}
	return schema, nil
}

func validateArgs(schema *jsonschema.Schema, args map[string]any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return goerr.Wrap(err, "arguments are not JSON serializable")
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return goerr.Wrap(err, "failed to decode arguments")
	}
	return schema.Validate(inst)
}
