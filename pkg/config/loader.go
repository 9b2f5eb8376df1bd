package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load builds the configuration from defaults, an optional YAML file and
// AGENTIC_SEARCH_ environment variables, then applies defaults and validates.
// An empty configPath skips the file layer; a missing file is an error.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults, err := yamlv3.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		content, readErr := readConfigFile(configPath)
		if readErr != nil {
			return nil, readErr
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	getLogger().Debug("Loaded config: provider=%s router=%s search=%s", cfg.Provider, cfg.Models.Router, cfg.Models.Search)
	return &cfg, nil
}

// envKey maps AGENTIC_SEARCH_RATE_LIMIT__MAX_REQUESTS to rate_limit.max_requests.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Dump renders the effective configuration as YAML with credentials masked.
func Dump(cfg *Config) (string, error) {
	redacted := *cfg
	redacted.APIKeys = APIKeysConfig{
		Google:    mask(cfg.APIKeys.Google),
		OpenAI:    mask(cfg.APIKeys.OpenAI),
		Anthropic: mask(cfg.APIKeys.Anthropic),
	}
	out, err := yamlv3.Marshal(&redacted)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return string(out), nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}
