package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"imgsx/engines"
)

type Config struct {
	Schema          string   `toml:"$schema,omitempty"`
	SearchEngines   []string `toml:"search_engines"`
	PriorityEngines []string `toml:"priority_engines"`
	SauceNaoKey     string   `toml:"saucenao_key,omitempty"`
	SauceNaoResults int      `toml:"saucenao_results"`
	Timeout         float64  `toml:"timeout"`
	EnrichCaptions  bool     `toml:"enrich_captions"`
	Expand          bool     `toml:"expand"`
	NoColor         bool     `toml:"no_color"`
	Debug           bool     `toml:"debug"`
	HistoryEnabled  bool     `toml:"history_enabled"`
	MaxHistory      int      `toml:"max_history"`
}

const (
	defaultTimeout        = 20.0
	defaultExpand         = false
	defaultNoColor        = false
	defaultDebug          = false
	defaultHistoryEnabled = true
	defaultMaxHistory     = 100
	defaultUserAgent      = "imgsx/1.0"
)

var (
	defaultSearchEngines   = []string{"All"}
	defaultPriorityEngines = []string{"SauceNao"}
)

func getConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "imgsx")
}

func getConfigFile() string {
	return filepath.Join(getConfigDir(), "config.toml")
}

func getDefaultConfig() *Config {
	return &Config{
		SearchEngines:   append([]string(nil), defaultSearchEngines...),
		PriorityEngines: append([]string(nil), defaultPriorityEngines...),
		SauceNaoResults: engines.DefaultSauceNaoResults,
		Timeout:         defaultTimeout,
		Expand:          defaultExpand,
		NoColor:         defaultNoColor,
		Debug:           defaultDebug,
		HistoryEnabled:  defaultHistoryEnabled,
		MaxHistory:      defaultMaxHistory,
	}
}

func loadConfig() (*Config, error) {
	configFile := getConfigFile()

	config := getDefaultConfig()

	// If config file exists, load it
	if _, err := os.Stat(configFile); err == nil {
		if _, err := toml.DecodeFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	return config, nil
}

// saveConfig writes the effective configuration, creating the config
// directory if needed.
func saveConfig(config *Config) (string, error) {
	configDir := getConfigDir()
	if configDir == "" {
		return "", fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	buf.WriteString("# imgsx configuration file\n")
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return "", err
	}

	configFile := getConfigFile()
	if err := os.WriteFile(configFile, buf.Bytes(), 0600); err != nil {
		return "", err
	}
	return configFile, nil
}

// engineConfig validates the configuration and converts it for the engines
// package.
func (c *Config) engineConfig() (engines.Config, error) {
	enabled, err := engines.ParseTagList(c.SearchEngines)
	if err != nil {
		return engines.Config{}, fmt.Errorf("search_engines: %w", err)
	}
	if len(enabled) == 0 {
		return engines.Config{}, engines.ErrNoEngines
	}

	priority, err := engines.ParseTagList(c.PriorityEngines)
	if err != nil {
		return engines.Config{}, fmt.Errorf("priority_engines: %w", err)
	}
	mask := engines.Mask(enabled)
	for _, tag := range priority {
		if !mask.Has(tag) {
			return engines.Config{}, fmt.Errorf("priority_engines: %s is not in search_engines (%s)", tag, mask)
		}
	}

	if c.Timeout <= 0 {
		return engines.Config{}, fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	return engines.Config{
		Engines:         enabled,
		Priority:        priority,
		SauceNaoKey:     strings.TrimSpace(c.SauceNaoKey),
		SauceNaoResults: c.SauceNaoResults,
		Timeout:         time.Duration(c.Timeout * float64(time.Second)),
		EnrichCaptions:  c.EnrichCaptions,
		UserAgent:       defaultUserAgent,
	}, nil
}
