// Package config handles configuration loading for quill.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for quill.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Finance   FinanceConfig   `mapstructure:"finance"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// AnthropicConfig holds oracle API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// LedgerConfig holds database settings.
type LedgerConfig struct {
	Path        string `mapstructure:"path"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// FinanceConfig holds the purchase approval policy.
type FinanceConfig struct {
	SafetyMargin float64 `mapstructure:"safety_margin"`
}

// PipelineConfig holds tuning knobs for the request pipeline.
type PipelineConfig struct {
	MaxToolSteps      int  `mapstructure:"max_tool_steps"`
	MaxEvaluateRounds int  `mapstructure:"max_evaluate_rounds"`
	RouterFallback    bool `mapstructure:"router_fallback"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.quill.yaml in current directory or parent)
// 3. User config (~/.config/quill/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("ledger.path", cfg.Ledger.Path)
	v.Set("ledger.catalog_path", cfg.Ledger.CatalogPath)
	v.Set("finance.safety_margin", cfg.Finance.SafetyMargin)
	v.Set("pipeline.max_tool_steps", cfg.Pipeline.MaxToolSteps)
	v.Set("pipeline.max_evaluate_rounds", cfg.Pipeline.MaxEvaluateRounds)
	v.Set("pipeline.router_fallback", cfg.Pipeline.RouterFallback)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("ledger.path", filepath.Join(".quill", "quill.db"))
	v.SetDefault("ledger.catalog_path", "")

	v.SetDefault("finance.safety_margin", 0.20)

	v.SetDefault("pipeline.max_tool_steps", 8)
	v.SetDefault("pipeline.max_evaluate_rounds", 3)
	v.SetDefault("pipeline.router_fallback", false)
}

// getUserConfigDir returns the XDG config directory for quill.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quill")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "quill")
	}
	return filepath.Join(home, ".config", "quill")
}

// findProjectConfig searches for .quill.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".quill.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Path: filepath.Join(".quill", "quill.db"),
		},
		Finance: FinanceConfig{
			SafetyMargin: 0.20,
		},
		Pipeline: PipelineConfig{
			MaxToolSteps:      8,
			MaxEvaluateRounds: 3,
			RouterFallback:    false,
		},
	}
}
