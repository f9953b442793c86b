package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pandora"
	"github.com/m-mizutani/pandora/cache/memory"
	"github.com/m-mizutani/pandora/cache/redis"
	"github.com/m-mizutani/pandora/docstore"
	"github.com/m-mizutani/pandora/llm/claude"
	"github.com/m-mizutani/pandora/llm/gemini"
	"github.com/m-mizutani/pandora/llm/openai"
	"github.com/m-mizutani/pandora/market"
)

const (
	ProviderDeepSeek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderClaude   = "claude"
	ProviderOpenAI   = "openai"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// ErrNoProvider is returned when no reasoning engine API key is configured.
var ErrNoProvider = errors.New("no LLM provider is configured")

// ResolveProvider returns the configured provider, or the first one with an API key.
func (c LLM) ResolveProvider() (string, error) {
	if c.Provider != "" {
		return c.Provider, nil
	}

	switch {
	case c.DeepSeekAPIKey != "":
		return ProviderDeepSeek, nil
	case c.GeminiAPIKey != "":
		return ProviderGemini, nil
	case c.AnthropicAPIKey != "":
		return ProviderClaude, nil
	case c.OpenAIAPIKey != "":
		return ProviderOpenAI, nil
	}
	return "", goerr.Wrap(ErrNoProvider, "set one of DEEPSEEK_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY")
}

// NewLLMClient builds the reasoning engine adapter and returns it with the provider name.
func (c LLM) NewLLMClient(ctx context.Context) (pandora.LLMClient, string, error) {
	provider, err := c.ResolveProvider()
	if err != nil {
		return nil, "", err
	}

	var client pandora.LLMClient
	switch provider {
	case ProviderDeepSeek:
		var opts []openai.Option
		if c.Model != "" {
			opts = append(opts, openai.WithModel(c.Model))
		}
		opts = append(opts, openai.WithTemperature(float32(c.Temperature)))
		client, err = openai.NewDeepSeek(ctx, c.DeepSeekAPIKey, opts...)

	case ProviderGemini:
		var opts []gemini.Option
		if c.Model != "" {
			opts = append(opts, gemini.WithModel(c.Model))
		}
		opts = append(opts, gemini.WithTemperature(float32(c.Temperature)))
		client, err = gemini.New(ctx, c.GeminiAPIKey, opts...)

	case ProviderClaude:
		var opts []claude.Option
		if c.Model != "" {
			opts = append(opts, claude.WithModel(c.Model))
		}
		opts = append(opts, claude.WithTemperature(c.Temperature))
		client, err = claude.New(ctx, c.AnthropicAPIKey, opts...)

	case ProviderOpenAI:
		var opts []openai.Option
		if c.Model != "" {
			opts = append(opts, openai.WithModel(c.Model))
		}
		opts = append(opts, openai.WithTemperature(float32(c.Temperature)))
		client, err = openai.New(ctx, c.OpenAIAPIKey, opts...)

	default:
		return nil, "", goerr.New("unknown llm provider", goerr.V("provider", provider))
	}
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to create LLM client", goerr.V("provider", provider))
	}

	return client, provider, nil
}

// NewEmbedder builds the embedder used by the document store.
func (c *Config) NewEmbedder(ctx context.Context) (docstore.Embedder, error) {
	provider := c.Embedding.Provider
	if provider == "" {
		switch {
		case c.LLM.OpenAIAPIKey != "":
			provider = ProviderOpenAI
		case c.LLM.GeminiAPIKey != "":
			provider = ProviderGemini
		default:
			return nil, goerr.New("embedding requires OPENAI_API_KEY or GEMINI_API_KEY")
		}
	}

	switch provider {
	case ProviderOpenAI:
		var opts []openai.Option
		if c.Embedding.Model != "" {
			opts = append(opts, openai.WithEmbeddingModel(c.Embedding.Model))
		}
		client, err := openai.New(ctx, c.LLM.OpenAIAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create OpenAI embedder")
		}
		return client, nil

	case ProviderGemini:
		var opts []gemini.Option
		if c.Embedding.Model != "" {
			opts = append(opts, gemini.WithEmbeddingModel(c.Embedding.Model))
		}
		client, err := gemini.New(ctx, c.LLM.GeminiAPIKey, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create Gemini embedder")
		}
		return client, nil
	}

	return nil, goerr.New("unsupported embedding provider", goerr.V("provider", provider))
}

// NewToolCache returns the configured cache, or nil when caching is disabled.
func (c Cache) NewToolCache(ctx context.Context) (pandora.ToolCache, error) {
	switch c.Backend {
	case "":
		return nil, nil
	case CacheMemory:
		return memory.New(c.Capacity), nil
	case CacheRedis:
		cache, err := redis.Dial(ctx, c.RedisAddr, c.RedisPassword, redis.WithPrefix("pandora:"))
		if err != nil {
			return nil, err
		}
		return cache, nil
	}
	return nil, goerr.New("unknown cache backend", goerr.V("backend", c.Backend))
}

// NewMarketClient builds the Yahoo Finance client.
func (c Market) NewMarketClient() *market.Client {
	opts := []market.Option{
		market.WithHTTPClient(&http.Client{Timeout: c.Timeout}),
	}
	if c.BaseURL != "" {
		opts = append(opts, market.WithBaseURL(c.BaseURL))
	}
	return market.New(opts...)
}

// NewLogger builds the process logger writing to w.
func (c Log) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// AgentOptions converts the agent section into pandora options.
func (c Agent) AgentOptions() []pandora.Option {
	opts := []pandora.Option{
		pandora.WithMaxRounds(c.MaxRounds),
		pandora.WithLLMTimeout(c.LLMTimeout),
		pandora.WithTraceResultLimit(c.TraceResultLimit),
	}
	if c.SystemPrompt != "" {
		opts = append(opts, pandora.WithSystemPrompt(c.SystemPrompt))
	}
	return opts
}

// ExecutorOptions converts the agent and cache sections into executor options.
func (c Agent) ExecutorOptions(cache pandora.ToolCache, ttl time.Duration) []pandora.ExecutorOption {
	opts := []pandora.ExecutorOption{
		pandora.WithArgumentValidation(c.ValidateArgs),
	}
	if c.ToolTimeout > 0 {
		opts = append(opts, pandora.WithToolTimeout(c.ToolTimeout))
	}
	if cache != nil {
		opts = append(opts, pandora.WithToolCache(cache, ttl))
	}
	return opts
}
