package llm

import (
	"testing"

	"github.com/rookhq/rook/internal/credential"
)

func TestExtractJSON_Direct(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := ExtractJSON(`{"summary":"ok"}`, &out); err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out.Summary != "ok" {
		t.Errorf("summary = %q", out.Summary)
	}
}

func TestExtractJSON_Fenced(t *testing.T) {
	text := "Here is the plan:\n```json\n{\"summary\": \"fenced\"}\n```\nDone."
	var out struct {
		Summary string `json:"summary"`
	}
	if err := ExtractJSON(text, &out); err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out.Summary != "fenced" {
		t.Errorf("summary = %q", out.Summary)
	}
}

func TestExtractJSON_EmbeddedInProse(t *testing.T) {
	text := `The model thinks out loud first. {"actions": [{"action_type": "create_task", "confidence": 0.8}], "summary": "s"} trailing text`
	var out struct {
		Actions []map[string]any `json:"actions"`
		Summary string           `json:"summary"`
	}
	if err := ExtractJSON(text, &out); err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if len(out.Actions) != 1 || out.Summary != "s" {
		t.Errorf("parsed %+v", out)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	text := `{"summary": "uses {braces} and \"quotes\" inside"}`
	var out struct {
		Summary string `json:"summary"`
	}
	if err := ExtractJSON(text, &out); err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out.Summary == "" {
		t.Error("summary not parsed")
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	var out map[string]any
	if err := ExtractJSON("no structured output here", &out); err == nil {
		t.Error("expected error for prose-only response")
	}
	if err := ExtractJSON("", &out); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"~~~\n{\"a\":1}\n~~~", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := StripCodeFence(tc.in); got != tc.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClassify_Heuristics(t *testing.T) {
	cases := []struct {
		msg  string
		want credential.Outcome
	}{
		{"429 too many requests", credential.OutcomeRateLimited},
		{"quota exceeded for project", credential.OutcomeRateLimited},
		{"server overloaded", credential.OutcomeRateLimited},
		{"invalid x-api-key", credential.OutcomeInvalid},
		{"authentication failed", credential.OutcomeInvalid},
		{"connection reset by peer", credential.OutcomeTransient},
		{"internal server error", credential.OutcomeTransient},
	}
	for _, tc := range cases {
		if got := Classify(errString(tc.msg)); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
