// Package config handles Clarity configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration.
type Config struct {
	DataDir string `json:"data_dir"`

	Server ServerConfig `json:"server"`
	Plaid  PlaidConfig  `json:"plaid"`
	LLM    LLMConfig    `json:"llm"`
	Sync   SyncConfig   `json:"sync"`

	LogLevel string `json:"log_level"`
}

// ServerConfig for the HTTP server.
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// PlaidConfig for the bank-aggregation API. Credentials come from the
// environment, never from the config file.
type PlaidConfig struct {
	ClientID    string `json:"-"`
	Secret      string `json:"-"`
	Environment string `json:"environment"`
}

// LLMConfig for the chat-completion API used by the advice endpoint.
type LLMConfig struct {
	APIKey  string `json:"-"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// SyncConfig for background ingestion.
type SyncConfig struct {
	Enabled         bool `json:"enabled"`
	IntervalMinutes int  `json:"interval_minutes"`
}

// Default returns default configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		DataDir: filepath.Join(home, ".clarity"),
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Plaid: PlaidConfig{
			ClientID:    os.Getenv("PLAID_CLIENT_ID"),
			Secret:      os.Getenv("PLAID_SECRET"),
			Environment: "sandbox",
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
		},
		Sync: SyncConfig{
			Enabled:         true,
			IntervalMinutes: 360,
		},
		LogLevel: "info",
	}
}

// Load reads config from file, falling back to defaults, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv re-reads secret material from the environment so a stale config
// file can never shadow rotated credentials.
func (c *Config) applyEnv() {
	if v := os.Getenv("PLAID_CLIENT_ID"); v != "" {
		c.Plaid.ClientID = v
	}
	if v := os.Getenv("PLAID_SECRET"); v != "" {
		c.Plaid.Secret = v
	}
	if v := os.Getenv("PLAID_ENV"); v != "" {
		c.Plaid.Environment = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("CLARITY_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save writes config to file. Secrets are excluded via their json tags.
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DatabasePath returns the SQLite path under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "clarity.db")
}
