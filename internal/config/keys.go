// Package config provides API key management utilities.
package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// APIKeys returns every configured API key, in rotation order.
// It checks in order: ROOK_API_KEYS (comma-separated), ANTHROPIC_API_KEY,
// then the config file's api_keys list and single api_key.
func APIKeys(cfg *Config) ([]string, error) {
	if csv := os.Getenv("ROOK_API_KEYS"); csv != "" {
		keys := splitKeys(csv)
		if len(keys) > 0 {
			return keys, nil
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return []string{key}, nil
	}

	if cfg != nil {
		var keys []string
		for _, k := range cfg.Anthropic.APIKeys {
			if k = strings.TrimSpace(os.ExpandEnv(k)); k != "" && !strings.HasPrefix(k, "${") {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			return keys, nil
		}
		if k := strings.TrimSpace(os.ExpandEnv(cfg.Anthropic.APIKey)); k != "" && !strings.HasPrefix(k, "${") {
			return []string{k}, nil
		}
	}

	return nil, ErrNoAPIKey
}

// splitKeys splits a comma-separated key list, dropping empty entries.
func splitKeys(csv string) []string {
	var keys []string
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	// Anthropic API keys start with "sk-ant-"
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// KeySource represents where API keys were loaded from.
type KeySource string

const (
	KeySourceEnvList KeySource = "environment_list"
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceNone    KeySource = "none"
)

// APIKeySource returns where the API keys were sourced from.
func APIKeySource(cfg *Config) KeySource {
	if os.Getenv("ROOK_API_KEYS") != "" {
		return KeySourceEnvList
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}

	if cfg != nil {
		if len(cfg.Anthropic.APIKeys) > 0 {
			return KeySourceConfig
		}
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}
