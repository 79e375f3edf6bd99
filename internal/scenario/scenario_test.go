package scenario

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeScenario(t, "campaign_spike.yaml", `
inputs:
  alert: "CPA increase on lead gen"
analytics:
  campaigns:
    - campaign_id: leadgen_nov
      cpa: 42.5
      target_cpa: 30
      trend: down
      daily_spend: 500
subject_hint: "Campaign update"
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "campaign_spike" {
		t.Errorf("name = %q, want campaign_spike", s.Name)
	}
	if len(s.Analytics.Campaigns) != 1 {
		t.Fatalf("campaigns = %d, want 1", len(s.Analytics.Campaigns))
	}
	c := s.Analytics.Campaigns[0]
	if c.CampaignID != "leadgen_nov" || c.CPA != 42.5 || c.TargetCPA != 30 {
		t.Errorf("campaign = %+v", c)
	}
	if s.Inputs["alert"] != "CPA increase on lead gen" {
		t.Errorf("inputs = %+v", s.Inputs)
	}
}

func TestLoad_JSON(t *testing.T) {
	path := writeScenario(t, "dev_overload.json", `{
		"name": "dev_overload",
		"inputs": {"note": "dev_ajay overloaded"},
		"analytics": {"campaigns": []}
	}`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "dev_overload" {
		t.Errorf("name = %q", s.Name)
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeScenario(t, "bad.toml", "x = 1")
	if _, err := Load(path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
