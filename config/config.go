// Package config loads swingdesk configuration from config.yml and the
// environment. Sufficiency thresholds, the escalation ladder, cache TTL and
// per-agent timeouts are all tunable here rather than hardcoded.
package config

import (
	"fmt"
	"time"

	"github.com/swingdesk/swingdesk/logger"
)

// Config is the root configuration for the swingdesk service.
type Config struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`

	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Engine    EngineConfig    `yaml:"engine" mapstructure:"engine"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	Sentiment SentimentConfig `yaml:"sentiment" mapstructure:"sentiment"`
	Trading   TradingConfig   `yaml:"trading" mapstructure:"trading"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig configures the OTLP exporters. Disabled by default so the
// service runs without a collector.
type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	RunOnStartup bool   `yaml:"run_on_startup" mapstructure:"run_on_startup"`
}

// EngineConfig configures DAG execution.
type EngineConfig struct {
	// MaxParallel limits concurrent agents per wave (0 = unlimited).
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`
	// AgentTimeout bounds a single agent invocation. Zero disables the bound.
	AgentTimeout time.Duration `yaml:"agent_timeout" mapstructure:"agent_timeout"`
	// HistoryLimit caps the in-memory execution history.
	HistoryLimit int `yaml:"history_limit" mapstructure:"history_limit"`
}

// CacheConfig configures the shared result cache.
type CacheConfig struct {
	// TTL is how long a cached agent result stays valid.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
	// Redis, when enabled, backs the cache with Redis instead of memory.
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the externalized cache.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// LLMConfig configures the reasoning model endpoint (OpenAI-compatible).
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Temperature float32       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// SentimentConfig tunes the adaptive data-sufficiency loop.
type SentimentConfig struct {
	// MinEvidence is the minimum number of articles/mentions needed before
	// analysis may proceed.
	MinEvidence int `yaml:"min_evidence" mapstructure:"min_evidence"`
	// MinSources is the number of distinct sources required for a
	// sufficient verdict (source-diversity check).
	MinSources int `yaml:"min_sources" mapstructure:"min_sources"`
	// LookbackLadderDays is the escalation ladder of lookback windows,
	// narrowest first.
	LookbackLadderDays []int `yaml:"lookback_ladder_days" mapstructure:"lookback_ladder_days"`
	// Sources holds credentials and endpoints for the evidence-fetching
	// tools. A tool with no credential registers as unavailable.
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
}

// SourcesConfig configures the external evidence sources.
type SourcesConfig struct {
	NewsAPIKey  string `yaml:"news_api_key" mapstructure:"news_api_key"`
	NewsAPIURL  string `yaml:"news_api_url" mapstructure:"news_api_url"`
	GNewsAPIKey string `yaml:"gnews_api_key" mapstructure:"gnews_api_key"`
}

// TradingConfig tunes the strategist agent.
type TradingConfig struct {
	// MinConfidence is the threshold above which the broker is invoked.
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	// PaperTrading simulates orders instead of placing them.
	PaperTrading bool `yaml:"paper_trading" mapstructure:"paper_trading"`
	// MaxPositionSize is the maximum position as a fraction of portfolio.
	MaxPositionSize float64 `yaml:"max_position_size" mapstructure:"max_position_size"`
}

// ApplyDefaults applies default values to the configuration.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "swingdesk"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	c.Logging.ApplyDefaults()

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120
	}

	if c.Engine.AgentTimeout == 0 {
		c.Engine.AgentTimeout = 5 * time.Minute
	}
	if c.Engine.HistoryLimit == 0 {
		c.Engine.HistoryLimit = 100
	}

	if c.Cache.TTL == 0 {
		c.Cache.TTL = 3 * time.Hour
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "qwen/qwen3-32b"
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.5
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}

	if c.Sentiment.MinEvidence == 0 {
		c.Sentiment.MinEvidence = 5
	}
	if c.Sentiment.MinSources == 0 {
		c.Sentiment.MinSources = 2
	}
	if len(c.Sentiment.LookbackLadderDays) == 0 {
		c.Sentiment.LookbackLadderDays = []int{2, 30, 90, 180}
	}
	if c.Sentiment.Sources.NewsAPIURL == "" {
		c.Sentiment.Sources.NewsAPIURL = "https://eventregistry.org/api/v1/article/getArticles"
	}

	if c.Trading.MinConfidence == 0 {
		c.Trading.MinConfidence = 0.75
	}
	if c.Trading.MaxPositionSize == 0 {
		c.Trading.MaxPositionSize = 0.1
	}

	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = "localhost:4318"
	}
	if c.Telemetry.SampleRate == 0 {
		c.Telemetry.SampleRate = 1.0
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config.server.port must be in [1, 65535] (got: %d)", c.Server.Port)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("config.cache.ttl must not be negative")
	}
	if c.Sentiment.MinEvidence < 1 {
		return fmt.Errorf("config.sentiment.min_evidence must be at least 1")
	}
	for i, d := range c.Sentiment.LookbackLadderDays {
		if d < 1 {
			return fmt.Errorf("config.sentiment.lookback_ladder_days[%d] must be at least 1", i)
		}
		if i > 0 && d <= c.Sentiment.LookbackLadderDays[i-1] {
			return fmt.Errorf("config.sentiment.lookback_ladder_days must be strictly increasing")
		}
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		return fmt.Errorf("config.trading.min_confidence must be in [0, 1]")
	}
	return nil
}
