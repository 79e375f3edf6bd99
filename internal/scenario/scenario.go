// Package scenario loads marketing scenario inputs from YAML or JSON files.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Campaign is one campaign's analytics snapshot.
type Campaign struct {
	CampaignID string  `json:"campaign_id" yaml:"campaign_id"`
	CPA        float64 `json:"cpa" yaml:"cpa"`
	TargetCPA  float64 `json:"target_cpa" yaml:"target_cpa"`
	Trend      string  `json:"trend" yaml:"trend"`
	DailySpend float64 `json:"daily_spend" yaml:"daily_spend"`
}

// Analytics is the analytics snapshot a scenario starts from.
type Analytics struct {
	Campaigns []Campaign `json:"campaigns" yaml:"campaigns"`
}

// Scenario is one marketing situation to orchestrate a run for.
type Scenario struct {
	// Name identifies the scenario (defaults to the file name).
	Name string `json:"name" yaml:"name"`
	// Inputs are the manual observations fed into planning.
	Inputs map[string]any `json:"inputs" yaml:"inputs"`
	// Analytics is the campaign metrics snapshot.
	Analytics Analytics `json:"analytics" yaml:"analytics"`
	// SubjectHint seeds the client email subject line.
	SubjectHint string `json:"subject_hint" yaml:"subject_hint"`
	// Notes are free-form context for the email drafts.
	Notes string `json:"notes" yaml:"notes"`
}

// Load reads a scenario from a .yaml, .yml, or .json file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse scenario YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse scenario JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", filepath.Ext(path))
	}

	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &s, nil
}
