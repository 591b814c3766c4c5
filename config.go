package main

import (
	"os"

	"github.com/BurntSushi/toml"

	"ghosttab/engine"
)

// Config is the daemon configuration, loaded from the TOML file named by
// GHOSTTAB_CONFIG (or ghosttab.toml beside the executable).
type Config struct {
	ProviderURL         string  `toml:"provider_url"`
	APIKey              string  `toml:"api_key"`
	Model               string  `toml:"model"`
	Temperature         float64 `toml:"temperature"`
	TopK                int     `toml:"top_k"`
	SingleLineMaxTokens int     `toml:"single_line_max_tokens"`
	MultiLineMaxTokens  int     `toml:"multi_line_max_tokens"`
	MultiLineRequests   int     `toml:"multi_line_requests"`
	TabWidth            int     `toml:"tab_width"`
	TriggerMoreEagerly  bool    `toml:"trigger_more_eagerly"`
	EagerWindowMs       int     `toml:"eager_window_ms"`
	MaxPrefixChars      int     `toml:"max_prefix_chars"`
	MaxSuffixChars      int     `toml:"max_suffix_chars"`

	CacheCapacity   int `toml:"cache_capacity"`
	CacheTTLMs      int `toml:"cache_ttl_ms"`
	HistoryWindowMs int `toml:"history_window_ms"`

	// RequestTimeoutMs is passed to the HTTP client (0 = no client timeout).
	RequestTimeoutMs int `toml:"request_timeout_ms"`

	LogLevel string `toml:"log_level"`

	DebugImmediateShutdown bool `toml:"debug_immediate_shutdown"`
}

func defaultConfig() Config {
	return Config{
		ProviderURL: "http://localhost:8080/v1/complete",
		Model:       "code-completion-v1",
		Temperature: 0.2,
		LogLevel:    "info",
	}
}

// loadConfig reads the TOML config file. A missing file yields defaults; a
// malformed one is a startup error.
func loadConfig() (Config, error) {
	config := defaultConfig()

	path := os.Getenv("GHOSTTAB_CONFIG")
	if path == "" {
		path = configPathBesideExecutable()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return config, err
	}
	return config, nil
}

// engineConfig maps daemon settings onto the engine's knobs.
func (c Config) engineConfig() engine.Config {
	return engine.Config{
		Model:               c.Model,
		Temperature:         c.Temperature,
		TopK:                c.TopK,
		SingleLineMaxTokens: c.SingleLineMaxTokens,
		MultiLineMaxTokens:  c.MultiLineMaxTokens,
		MultiLineRequests:   c.MultiLineRequests,
		TabWidth:            c.TabWidth,
		TriggerMoreEagerly:  c.TriggerMoreEagerly,
		EagerWindow:         msDuration(c.EagerWindowMs),
		MaxPrefixChars:      c.MaxPrefixChars,
		MaxSuffixChars:      c.MaxSuffixChars,
	}
}
