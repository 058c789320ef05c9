// Package config loads client configuration from a YAML file with
// environment overrides. Everything has a usable default so a bare
// install works against the hosted backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL = "https://api.grubslash.com"
	DefaultDebounce   = 1000 * time.Millisecond
	DefaultPattern    = "eats.uber.com"

	// Cart subtotal acceptance range in dollars.
	DefaultMinSubtotal = 15
	DefaultMaxSubtotal = 35
)

// Policy is the price acceptance window for group orders.
type Policy struct {
	MinSubtotal float64 `yaml:"min_subtotal"`
	MaxSubtotal float64 `yaml:"max_subtotal"`
}

// Accepts reports whether an estimated subtotal falls inside the window.
func (p Policy) Accepts(subtotal float64) bool {
	return subtotal >= p.MinSubtotal && subtotal <= p.MaxSubtotal
}

// Config is the full client configuration.
type Config struct {
	BackendURL  string `yaml:"backend_url"`
	ChannelURL  string `yaml:"channel_url"`
	ProxySecret string `yaml:"proxy_secret"`
	DataDir     string `yaml:"data_dir"`
	DebounceMS  int    `yaml:"debounce_ms"`
	LinkPattern string `yaml:"link_pattern"`
	Policy      Policy `yaml:"policy"`
	DevMode     bool   `yaml:"dev_mode"`
}

// Debounce returns the link validation debounce interval.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BackendURL:  DefaultBackendURL,
		DataDir:     defaultDataDir(),
		DebounceMS:  int(DefaultDebounce / time.Millisecond),
		LinkPattern: DefaultPattern,
		Policy: Policy{
			MinSubtotal: DefaultMinSubtotal,
			MaxSubtotal: DefaultMaxSubtotal,
		},
	}
}

// Load reads the config file at path (if it exists), then applies env
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.ChannelURL == "" {
		cfg.ChannelURL = deriveChannelURL(cfg.BackendURL)
	}
	if cfg.Policy.MinSubtotal > cfg.Policy.MaxSubtotal {
		return Config{}, fmt.Errorf("config: min_subtotal %.2f exceeds max_subtotal %.2f",
			cfg.Policy.MinSubtotal, cfg.Policy.MaxSubtotal)
	}
	return cfg, nil
}

// DefaultPath is ~/.grubslash/config.yaml.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.yaml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grubslash"
	}
	return filepath.Join(home, ".grubslash")
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GRUBSLASH_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("GRUBSLASH_CHANNEL_URL"); v != "" {
		cfg.ChannelURL = v
	}
	if v := os.Getenv("GRUBSLASH_PROXY_SECRET"); v != "" {
		cfg.ProxySecret = v
	}
	if v := os.Getenv("GRUBSLASH_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GRUBSLASH_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.DebounceMS = ms
		}
	}
	if v := os.Getenv("GRUBSLASH_DEV_MODE"); v == "1" || v == "true" {
		cfg.DevMode = true
	}
}

// deriveChannelURL rewrites the http(s) backend URL to ws(s).
func deriveChannelURL(backendURL string) string {
	switch {
	case len(backendURL) > 8 && backendURL[:8] == "https://":
		return "wss://" + backendURL[8:] + "/channel"
	case len(backendURL) > 7 && backendURL[:7] == "http://":
		return "ws://" + backendURL[7:] + "/channel"
	default:
		return backendURL + "/channel"
	}
}
