package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/quillworks/quill/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify quill configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/quill/config.yaml
Project-specific overrides can be placed in .quill.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("ledger.path: %s\n", cfg.Ledger.Path)
	fmt.Printf("ledger.catalog_path: %s\n", cfg.Ledger.CatalogPath)
	fmt.Printf("finance.safety_margin: %g\n", cfg.Finance.SafetyMargin)
	fmt.Printf("pipeline.max_tool_steps: %d\n", cfg.Pipeline.MaxToolSteps)
	fmt.Printf("pipeline.max_evaluate_rounds: %d\n", cfg.Pipeline.MaxEvaluateRounds)
	fmt.Printf("pipeline.router_fallback: %t\n", cfg.Pipeline.RouterFallback)
}

func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "ledger.path":
		return cfg.Ledger.Path, nil
	case "ledger.catalog_path":
		return cfg.Ledger.CatalogPath, nil
	case "finance.safety_margin":
		return strconv.FormatFloat(cfg.Finance.SafetyMargin, 'g', -1, 64), nil
	case "pipeline.max_tool_steps":
		return strconv.Itoa(cfg.Pipeline.MaxToolSteps), nil
	case "pipeline.max_evaluate_rounds":
		return strconv.Itoa(cfg.Pipeline.MaxEvaluateRounds), nil
	case "pipeline.router_fallback":
		return strconv.FormatBool(cfg.Pipeline.RouterFallback), nil
	default:
		return "", fmt.Errorf("unknown config key: %s", key)
	}
}

func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock, err = strconv.ParseBool(value)
	case "ledger.path":
		cfg.Ledger.Path = value
	case "ledger.catalog_path":
		cfg.Ledger.CatalogPath = value
	case "finance.safety_margin":
		cfg.Finance.SafetyMargin, err = strconv.ParseFloat(value, 64)
	case "pipeline.max_tool_steps":
		cfg.Pipeline.MaxToolSteps, err = strconv.Atoi(value)
	case "pipeline.max_evaluate_rounds":
		cfg.Pipeline.MaxEvaluateRounds, err = strconv.Atoi(value)
	case "pipeline.router_fallback":
		cfg.Pipeline.RouterFallback, err = strconv.ParseBool(value)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s\n", key)
}
