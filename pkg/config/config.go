// Package config provides configuration loading, validation, and management for the search pipeline.
//
// Configuration precedence (highest to lowest):
//
//  1. Environment variables prefixed with AGENTIC_SEARCH_ (nested keys use "__",
//     e.g. AGENTIC_SEARCH_RATE_LIMIT__MAX_REQUESTS -> rate_limit.max_requests)
//  2. YAML config file passed to Load
//  3. Defaults from Default()
//
// Model names left empty are filled from the provider's defaults after
// unmarshalling, so switching provider does not require listing every model.
//
// USAGE PATTERNS:
//
//	cfg, err := config.Load("agentic-search.yaml")
//	key, err := cfg.APIKey()
//	out, err := config.Dump(cfg)
package config

import (
	"fmt"
	"strings"
	"time"

	"agenticsearch/pkg/logx"
)

// Provider names.
const (
	ProviderGoogle    = "google"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Environment variables consulted for credentials.
const (
	EnvGoogleAPIKey    = "GEMINI_API_KEY"
	EnvGoogleAPIKeyAlt = "GOOGLE_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOllamaHost      = "OLLAMA_HOST"
	EnvSecretsPassword = "AGENTIC_SEARCH_SECRETS_PASSWORD"

	// EnvPrefix marks environment variables that override config keys.
	EnvPrefix = "AGENTIC_SEARCH_"
)

// Security gate defaults.
const (
	DefaultRateLimitWindow      = 60 * time.Second
	DefaultRateLimitMaxRequests = 10
)

// Outbound (per-provider) request pacing defaults.
const (
	DefaultOutboundRequestsPerSecond = 2.0
	DefaultOutboundBurst             = 4
	DefaultOutboundTimeout           = 90 * time.Second
)

// Stage names used as keys for per-stage models.
const (
	StageRouter   = "router"
	StageSearch   = "search"
	StageGeneral  = "general"
	StageRefine   = "refine"
	StageValidate = "validate"
)

// ModelsConfig names the model used by each pipeline stage.
type ModelsConfig struct {
	Router   string `koanf:"router" yaml:"router"`
	Search   string `koanf:"search" yaml:"search"`
	General  string `koanf:"general" yaml:"general"`
	Refine   string `koanf:"refine" yaml:"refine"`
	Validate string `koanf:"validate" yaml:"validate"`
}

// ForStage returns the model configured for a stage name.
func (m ModelsConfig) ForStage(stage string) (string, error) {
	switch stage {
	case StageRouter:
		return m.Router, nil
	case StageSearch:
		return m.Search, nil
	case StageGeneral:
		return m.General, nil
	case StageRefine:
		return m.Refine, nil
	case StageValidate:
		return m.Validate, nil
	default:
		return "", fmt.Errorf("unknown stage: %s", stage)
	}
}

// APIKeysConfig holds provider credentials. Empty values fall back to the
// secrets file and then to the provider's environment variable.
type APIKeysConfig struct {
	Google    string `koanf:"google" yaml:"google,omitempty"`
	OpenAI    string `koanf:"openai" yaml:"openai,omitempty"`
	Anthropic string `koanf:"anthropic" yaml:"anthropic,omitempty"`
}

// OllamaConfig configures the local Ollama runtime.
type OllamaConfig struct {
	Host string `koanf:"host" yaml:"host"`
}

// RateLimitConfig configures the sliding-window admission limiter.
type RateLimitConfig struct {
	Window      time.Duration `koanf:"window" yaml:"window"`
	MaxRequests int           `koanf:"max_requests" yaml:"max_requests"`
}

// PacingConfig holds the cosmetic delays between stages. Zero disables a delay.
type PacingConfig struct {
	Scan     time.Duration `koanf:"scan" yaml:"scan"`
	Draft    time.Duration `koanf:"draft" yaml:"draft"`
	Validate time.Duration `koanf:"validate" yaml:"validate"`
}

// OutboundConfig paces and bounds calls to the provider. It never retries.
type OutboundConfig struct {
	RequestsPerSecond float64       `koanf:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `koanf:"burst" yaml:"burst"`
	Timeout           time.Duration `koanf:"timeout" yaml:"timeout"`
}

// SecurityConfig toggles optional screening and the encrypted secrets store.
type SecurityConfig struct {
	SecretScan  bool   `koanf:"secret_scan" yaml:"secret_scan"`
	SecretsFile string `koanf:"secrets_file" yaml:"secrets_file,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	Namespace  string `koanf:"namespace" yaml:"namespace"`
	ListenAddr string `koanf:"listen_addr" yaml:"listen_addr,omitempty"`
}

// LogConfig configures logx.
type LogConfig struct {
	Level        string   `koanf:"level" yaml:"level"`
	Format       string   `koanf:"format" yaml:"format"`
	DebugDomains []string `koanf:"debug_domains" yaml:"debug_domains,omitempty"`
}

// Config is the complete configuration of the search pipeline.
type Config struct {
	Provider  string          `koanf:"provider" yaml:"provider"`
	Models    ModelsConfig    `koanf:"models" yaml:"models"`
	APIKeys   APIKeysConfig   `koanf:"api_keys" yaml:"api_keys"`
	Ollama    OllamaConfig    `koanf:"ollama" yaml:"ollama"`
	RateLimit RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
	Pacing    PacingConfig    `koanf:"pacing" yaml:"pacing"`
	Outbound  OutboundConfig  `koanf:"outbound" yaml:"outbound"`
	Security  SecurityConfig  `koanf:"security" yaml:"security"`
	Metrics   MetricsConfig   `koanf:"metrics" yaml:"metrics"`
	Log       LogConfig       `koanf:"log" yaml:"log"`
}

// providerModels lists the default model per stage for each provider.
//
//nolint:gochecknoglobals // Static lookup table
var providerModels = map[string]ModelsConfig{
	ProviderGoogle: {
		Router:   "gemini-2.5-flash",
		Search:   "gemini-2.5-flash",
		General:  "gemini-2.5-flash",
		Refine:   "gemini-2.5-flash",
		Validate: "gemini-2.5-flash",
	},
	ProviderOpenAI: {
		Router:   "gpt-4.1-mini",
		Search:   "gpt-4.1",
		General:  "gpt-4.1-mini",
		Refine:   "gpt-4.1",
		Validate: "gpt-4.1-mini",
	},
	ProviderAnthropic: {
		Router:   "claude-haiku-4-5",
		Search:   "claude-sonnet-4-5",
		General:  "claude-haiku-4-5",
		Refine:   "claude-sonnet-4-5",
		Validate: "claude-haiku-4-5",
	},
	ProviderOllama: {
		Router:   "llama3.1:8b",
		Search:   "llama3.1:8b",
		General:  "llama3.1:8b",
		Refine:   "llama3.1:8b",
		Validate: "llama3.1:8b",
	},
}

// Providers returns the supported provider names.
func Providers() []string {
	return []string{ProviderGoogle, ProviderOpenAI, ProviderAnthropic, ProviderOllama}
}

// Default returns the configuration used when nothing is overridden.
// Models are intentionally empty; applyDefaults fills them for the chosen provider.
func Default() Config {
	return Config{
		Provider: ProviderGoogle,
		Ollama:   OllamaConfig{Host: "http://localhost:11434"},
		RateLimit: RateLimitConfig{
			Window:      DefaultRateLimitWindow,
			MaxRequests: DefaultRateLimitMaxRequests,
		},
		Outbound: OutboundConfig{
			RequestsPerSecond: DefaultOutboundRequestsPerSecond,
			Burst:             DefaultOutboundBurst,
			Timeout:           DefaultOutboundTimeout,
		},
		Security: SecurityConfig{SecretScan: true},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "agentic_search"},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// applyDefaults fills values that must never be left at zero.
func applyDefaults(cfg *Config) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ProviderGoogle
	}

	if defaults, ok := providerModels[cfg.Provider]; ok {
		if cfg.Models.Router == "" {
			cfg.Models.Router = defaults.Router
		}
		if cfg.Models.Search == "" {
			cfg.Models.Search = defaults.Search
		}
		if cfg.Models.General == "" {
			cfg.Models.General = defaults.General
		}
		if cfg.Models.Refine == "" {
			cfg.Models.Refine = defaults.Refine
		}
		if cfg.Models.Validate == "" {
			cfg.Models.Validate = defaults.Validate
		}
	}

	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = DefaultRateLimitMaxRequests
	}
	if cfg.Outbound.RequestsPerSecond == 0 {
		cfg.Outbound.RequestsPerSecond = DefaultOutboundRequestsPerSecond
	}
	if cfg.Outbound.Burst == 0 {
		cfg.Outbound.Burst = DefaultOutboundBurst
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "agentic_search"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// Validate checks the configuration for structural errors. Credentials are
// checked later, when a client is built.
func (c *Config) Validate() error {
	if _, ok := providerModels[c.Provider]; !ok {
		return fmt.Errorf("unsupported provider %q (expected one of %s)", c.Provider, strings.Join(Providers(), ", "))
	}
	for _, stage := range []string{StageRouter, StageSearch, StageGeneral, StageRefine, StageValidate} {
		model, _ := c.Models.ForStage(stage)
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("models.%s must not be empty", stage)
		}
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be positive (got %s)", c.RateLimit.Window)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate_limit.max_requests must be positive (got %d)", c.RateLimit.MaxRequests)
	}
	if c.Pacing.Scan < 0 || c.Pacing.Draft < 0 || c.Pacing.Validate < 0 {
		return fmt.Errorf("pacing delays must not be negative")
	}
	if c.Outbound.RequestsPerSecond < 0 {
		return fmt.Errorf("outbound.requests_per_second must not be negative")
	}
	if c.Outbound.Burst < 0 {
		return fmt.Errorf("outbound.burst must not be negative")
	}
	if c.Outbound.Timeout < 0 {
		return fmt.Errorf("outbound.timeout must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json (got %q)", c.Log.Format)
	}
	if _, err := logx.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
