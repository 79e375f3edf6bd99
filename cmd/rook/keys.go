package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rookhq/rook/internal/config"
	"github.com/rookhq/rook/internal/credential"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show the configured credential pool",
	Long: `List the API keys Rook will rotate across, masked, with basic
format validation. Keys come from ROOK_API_KEYS (comma-separated),
ANTHROPIC_API_KEY, or the config file.`,
	RunE: runKeys,
}

func runKeys(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keys, err := config.APIKeys(cfg)
	if err != nil {
		fmt.Println("No API keys configured.")
		fmt.Println("\nSet one of:")
		fmt.Println("  ROOK_API_KEYS=sk-ant-...,sk-ant-...   (rotating pool)")
		fmt.Println("  ANTHROPIC_API_KEY=sk-ant-...          (single key)")
		fmt.Printf("  anthropic.api_keys in %s\n", config.GetUserConfigPath())
		return nil
	}

	fmt.Printf("source: %s\n\n", config.APIKeySource(cfg))
	for i, k := range keys {
		status := color.New(color.FgGreen).Sprint("ok")
		if err := config.ValidateAPIKey(k); err != nil {
			status = color.New(color.FgYellow).Sprintf("suspect (%v)", err)
		}
		fmt.Printf("  key-%d  %-14s %s\n", i+1, credential.MaskKey(k), status)
	}
	if cfg.Bedrock.Enabled {
		fmt.Printf("\nBedrock routing enabled (region %q)\n", cfg.Bedrock.Region)
	}
	return nil
}
