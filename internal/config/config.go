// Package config handles configuration loading and management for Rook.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Rook.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock"`
	Run       RunConfig       `mapstructure:"run"`
	Router    RouterConfig    `mapstructure:"router"`
	Budgets   BudgetsConfig   `mapstructure:"budgets"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	// APIKey is a single key; APIKeys rotates across several.
	APIKey  string   `mapstructure:"api_key"`
	APIKeys []string `mapstructure:"api_keys"`
	Model   string   `mapstructure:"model"`
}

// BedrockConfig holds AWS Bedrock settings for credentials that route
// through Bedrock instead of the Anthropic API.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

// RunConfig holds per-run orchestration settings.
type RunConfig struct {
	DraftWidth          int           `mapstructure:"draft_width"`
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	MaxPlanRetries      int           `mapstructure:"max_plan_retries"`
	MaxCallRetries      int           `mapstructure:"max_call_retries"`
	CallTimeout         time.Duration `mapstructure:"call_timeout"`
	DefaultRecipient    string        `mapstructure:"default_recipient"`
}

// RouterConfig holds credential-router cooldown settings.
type RouterConfig struct {
	CooldownBase time.Duration `mapstructure:"cooldown_base"`
	CooldownMax  time.Duration `mapstructure:"cooldown_max"`
}

// BudgetsConfig holds per-stage output token budgets.
type BudgetsConfig struct {
	PlanTokens  int64 `mapstructure:"plan_tokens"`
	DraftTokens int64 `mapstructure:"draft_tokens"`
	MergeTokens int64 `mapstructure:"merge_tokens"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ROOK_API_KEYS, ANTHROPIC_API_KEY)
// 2. Project config (.rook.yaml in current directory or parent)
// 3. User config (~/.config/rook/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
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
	v.BindEnv("bedrock.region", "AWS_REGION")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	for i, k := range cfg.Anthropic.APIKeys {
		cfg.Anthropic.APIKeys[i] = expandEnv(k)
	}

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

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	for i, k := range cfg.Anthropic.APIKeys {
		cfg.Anthropic.APIKeys[i] = expandEnv(k)
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.api_keys", cfg.Anthropic.APIKeys)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("bedrock.enabled", cfg.Bedrock.Enabled)
	v.Set("bedrock.region", cfg.Bedrock.Region)
	v.Set("run.draft_width", cfg.Run.DraftWidth)
	v.Set("run.confidence_threshold", cfg.Run.ConfidenceThreshold)
	v.Set("run.max_plan_retries", cfg.Run.MaxPlanRetries)
	v.Set("run.max_call_retries", cfg.Run.MaxCallRetries)
	v.Set("run.call_timeout", cfg.Run.CallTimeout.String())
	v.Set("run.default_recipient", cfg.Run.DefaultRecipient)
	v.Set("router.cooldown_base", cfg.Router.CooldownBase.String())
	v.Set("router.cooldown_max", cfg.Router.CooldownMax.String())
	v.Set("budgets.plan_tokens", cfg.Budgets.PlanTokens)
	v.Set("budgets.draft_tokens", cfg.Budgets.DraftTokens)
	v.Set("budgets.merge_tokens", cfg.Budgets.MergeTokens)

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

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.api_keys", []string{})
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "")

	v.SetDefault("run.draft_width", 3)
	v.SetDefault("run.confidence_threshold", 0.75)
	v.SetDefault("run.max_plan_retries", 1)
	v.SetDefault("run.max_call_retries", 4)
	v.SetDefault("run.call_timeout", "90s")
	v.SetDefault("run.default_recipient", "client@example.com")

	v.SetDefault("router.cooldown_base", "30s")
	v.SetDefault("router.cooldown_max", "8m")

	v.SetDefault("budgets.plan_tokens", 2000)
	v.SetDefault("budgets.draft_tokens", 250)
	v.SetDefault("budgets.merge_tokens", 400)
}

// getUserConfigDir returns the XDG config directory for Rook.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rook")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "rook")
	}
	return filepath.Join(home, ".config", "rook")
}

// findProjectConfig searches for .rook.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".rook.yaml")
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

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Run: RunConfig{
			DraftWidth:          3,
			ConfidenceThreshold: 0.75,
			MaxPlanRetries:      1,
			MaxCallRetries:      4,
			CallTimeout:         90 * time.Second,
			DefaultRecipient:    "client@example.com",
		},
		Router: RouterConfig{
			CooldownBase: 30 * time.Second,
			CooldownMax:  8 * time.Minute,
		},
		Budgets: BudgetsConfig{
			PlanTokens:  2000,
			DraftTokens: 250,
			MergeTokens: 400,
		},
	}
}
