// Package config loads pandora settings from a YAML file, environment variables and .env.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable mapped onto a config key, e.g.
// PANDORA_SERVER_ADDR for server.addr.
const EnvPrefix = "PANDORA"

// Config is the whole runtime configuration. It is built once by Load and passed explicitly.
type Config struct {
	LLM       LLM         `mapstructure:"llm"`
	Embedding Embedding   `mapstructure:"embedding"`
	Agent     Agent       `mapstructure:"agent"`
	Server    Server      `mapstructure:"server"`
	Store     Store       `mapstructure:"store"`
	Ingest    Ingest      `mapstructure:"ingest"`
	Cache     Cache       `mapstructure:"cache"`
	Market    Market      `mapstructure:"market"`
	Log       Log         `mapstructure:"log"`
	Trace     Trace       `mapstructure:"trace"`
	MCP       []MCPServer `mapstructure:"mcp"`
}

// LLM selects the reasoning engine. When Provider is empty the first provider with an API key
// wins, in the order deepseek, gemini, claude, openai.
type LLM struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`

	DeepSeekAPIKey  string `mapstructure:"deepseek_api_key"`
	GeminiAPIKey    string `mapstructure:"gemini_api_key"`
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
}

// Embedding selects the embedder of the document store. An empty provider picks openai when
// an OpenAI key is set, else gemini.
type Embedding struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
}

type Agent struct {
	MaxRounds        int           `mapstructure:"max_rounds"`
	LLMTimeout       time.Duration `mapstructure:"llm_timeout"`
	ToolTimeout      time.Duration `mapstructure:"tool_timeout"`
	TraceResultLimit int           `mapstructure:"trace_result_limit"`
	ValidateArgs     bool          `mapstructure:"validate_args"`
	SystemPrompt     string        `mapstructure:"system_prompt"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Store struct {
	DSN string `mapstructure:"dsn"`
}

type Ingest struct {
	Dir          string        `mapstructure:"dir"`
	ChunkSize    int           `mapstructure:"chunk_size"`
	ChunkOverlap int           `mapstructure:"chunk_overlap"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
}

// Cache configures the tool result cache. Backend is "", "memory" or "redis"; empty disables
// caching.
type Cache struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	Capacity      int           `mapstructure:"capacity"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
}

type Market struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Trace enables persisted run traces (Dir) and OpenTelemetry spans.
type Trace struct {
	Dir  string `mapstructure:"dir"`
	Otel bool   `mapstructure:"otel"`
}

// MCPServer is an external MCP server launched over stdio whose tools are added to the registry.
type MCPServer struct {
	Name    string            `mapstructure:"name"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// providerKeys maps API key config keys to the plain variable names the desk has always used.
var providerKeys = map[string]string{
	"llm.deepseek_api_key":  "DEEPSEEK_API_KEY",
	"llm.gemini_api_key":    "GEMINI_API_KEY",
	"llm.anthropic_api_key": "ANTHROPIC_API_KEY",
	"llm.openai_api_key":    "OPENAI_API_KEY",
	"cache.redis_addr":      "REDIS_ADDR",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.0)
	for key := range providerKeys {
		v.SetDefault(key, "")
	}

	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")

	v.SetDefault("agent.max_rounds", 10)
	v.SetDefault("agent.llm_timeout", 2*time.Minute)
	v.SetDefault("agent.tool_timeout", 30*time.Second)
	v.SetDefault("agent.trace_result_limit", 4000)
	v.SetDefault("agent.validate_args", true)
	v.SetDefault("agent.system_prompt", "")

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.dsn", "file:data/financial.db")

	v.SetDefault("ingest.dir", "data/raw_pdfs")
	v.SetDefault("ingest.chunk_size", 4000)
	v.SetDefault("ingest.chunk_overlap", 200)
	v.SetDefault("ingest.settle_delay", 2*time.Second)

	v.SetDefault("cache.backend", "")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.capacity", 1024)
	v.SetDefault("cache.redis_password", "")

	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.timeout", 20*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("trace.dir", "")
	v.SetDefault("trace.otel", false)
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	file     string
	envFiles []string
}

// WithFile reads a YAML config file. A missing file is an error.
func WithFile(path string) LoadOption {
	return func(c *loadConfig) {
		c.file = path
	}
}

// WithEnvFiles replaces the default ".env". Missing files are ignored.
func WithEnvFiles(paths ...string) LoadOption {
	return func(c *loadConfig) {
		c.envFiles = paths
	}
}

// Load builds a Config from defaults, the optional config file and the environment. Variables
// from .env never override variables already set in the process environment.
func Load(options ...LoadOption) (*Config, error) {
	lc := loadConfig{envFiles: []string{".env"}}
	for _, opt := range options {
		opt(&lc)
	}

	for _, path := range lc.envFiles {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(err, "failed to load env file", goerr.V("path", path))
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, plain := range providerKeys {
		envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, plain); err != nil {
			return nil, goerr.Wrap(err, "failed to bind env", goerr.V("key", key))
		}
	}

	if lc.file != "" {
		v.SetConfigFile(lc.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", lc.file))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	eb := goerr.NewBuilder()

	switch c.LLM.Provider {
	case "", ProviderDeepSeek, ProviderGemini, ProviderClaude, ProviderOpenAI:
	default:
		return eb.New("unknown llm provider", goerr.V("provider", c.LLM.Provider))
	}

	switch c.Embedding.Provider {
	case "", ProviderOpenAI, ProviderGemini:
	default:
		return eb.New("unsupported embedding provider", goerr.V("provider", c.Embedding.Provider))
	}

	switch c.Cache.Backend {
	case "", CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return eb.New("cache.redis_addr is required for redis cache")
		}
	default:
		return eb.New("unknown cache backend", goerr.V("backend", c.Cache.Backend))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return eb.New("unknown log format", goerr.V("format", c.Log.Format))
	}

	if c.Agent.MaxRounds < 1 {
		return eb.New("agent.max_rounds must be positive", goerr.V("max_rounds", c.Agent.MaxRounds))
	}

	for i, s := range c.MCP {
		if s.Command == "" {
			return eb.New("mcp server command is required", goerr.V("index", i), goerr.V("name", s.Name))
		}
	}

	return nil
}
