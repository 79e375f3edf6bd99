package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Rook configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/rook/config.yaml
Project-specific overrides can be placed in .rook.yaml`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
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

// loadConfig loads the effective configuration for a command invocation.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.api_keys: %d configured\n", len(cfg.Anthropic.APIKeys))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("bedrock.enabled: %t\n", cfg.Bedrock.Enabled)
	fmt.Printf("bedrock.region: %s\n", cfg.Bedrock.Region)
	fmt.Printf("run.draft_width: %d\n", cfg.Run.DraftWidth)
	fmt.Printf("run.confidence_threshold: %.2f\n", cfg.Run.ConfidenceThreshold)
	fmt.Printf("run.max_plan_retries: %d\n", cfg.Run.MaxPlanRetries)
	fmt.Printf("run.max_call_retries: %d\n", cfg.Run.MaxCallRetries)
	fmt.Printf("run.call_timeout: %s\n", cfg.Run.CallTimeout)
	fmt.Printf("run.default_recipient: %s\n", cfg.Run.DefaultRecipient)
	fmt.Printf("router.cooldown_base: %s\n", cfg.Router.CooldownBase)
	fmt.Printf("router.cooldown_max: %s\n", cfg.Router.CooldownMax)
	fmt.Printf("budgets.plan_tokens: %d\n", cfg.Budgets.PlanTokens)
	fmt.Printf("budgets.draft_tokens: %d\n", cfg.Budgets.DraftTokens)
	fmt.Printf("budgets.merge_tokens: %d\n", cfg.Budgets.MergeTokens)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s = %s\n", key, value)
}

// getConfigValue returns the string form of a configuration key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch key {
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "bedrock.enabled":
		return strconv.FormatBool(cfg.Bedrock.Enabled), nil
	case "bedrock.region":
		return cfg.Bedrock.Region, nil
	case "run.draft_width":
		return strconv.Itoa(cfg.Run.DraftWidth), nil
	case "run.confidence_threshold":
		return strconv.FormatFloat(cfg.Run.ConfidenceThreshold, 'f', 2, 64), nil
	case "run.max_plan_retries":
		return strconv.Itoa(cfg.Run.MaxPlanRetries), nil
	case "run.max_call_retries":
		return strconv.Itoa(cfg.Run.MaxCallRetries), nil
	case "run.call_timeout":
		return cfg.Run.CallTimeout.String(), nil
	case "run.default_recipient":
		return cfg.Run.DefaultRecipient, nil
	case "router.cooldown_base":
		return cfg.Router.CooldownBase.String(), nil
	case "router.cooldown_max":
		return cfg.Router.CooldownMax.String(), nil
	case "budgets.plan_tokens":
		return strconv.FormatInt(cfg.Budgets.PlanTokens, 10), nil
	case "budgets.draft_tokens":
		return strconv.FormatInt(cfg.Budgets.DraftTokens, 10), nil
	case "budgets.merge_tokens":
		return strconv.FormatInt(cfg.Budgets.MergeTokens, 10), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// setConfigValue parses and applies a configuration value.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "bedrock.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		cfg.Bedrock.Enabled = b
	case "bedrock.region":
		cfg.Bedrock.Region = value
	case "run.draft_width":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		cfg.Run.DraftWidth = n
	case "run.confidence_threshold":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 1 {
			return fmt.Errorf("%s must be a number in [0,1]", key)
		}
		cfg.Run.ConfidenceThreshold = f
	case "run.max_plan_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		cfg.Run.MaxPlanRetries = n
	case "run.max_call_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		cfg.Run.MaxCallRetries = n
	case "run.call_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 90s", key)
		}
		cfg.Run.CallTimeout = d
	case "run.default_recipient":
		cfg.Run.DefaultRecipient = value
	case "router.cooldown_base":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 30s", key)
		}
		cfg.Router.CooldownBase = d
	case "router.cooldown_max":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration like 8m", key)
		}
		cfg.Router.CooldownMax = d
	case "budgets.plan_tokens", "budgets.draft_tokens", "budgets.merge_tokens":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		switch key {
		case "budgets.plan_tokens":
			cfg.Budgets.PlanTokens = n
		case "budgets.draft_tokens":
			cfg.Budgets.DraftTokens = n
		case "budgets.merge_tokens":
			cfg.Budgets.MergeTokens = n
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
