package models

import "strings"

// EmailDraft is the artifact produced by the drafting and merge stages.
type EmailDraft struct {
	// To is the recipient address.
	To string `json:"to"`
	// Subject is the email subject line.
	Subject string `json:"subject"`
	// Body is the email body text.
	Body string `json:"body"`
	// Meta carries provenance notes (merge source, normalization fallbacks).
	Meta map[string]string `json:"meta,omitempty"`
}

// Empty returns true when the draft has neither subject nor body.
func (d EmailDraft) Empty() bool {
	return strings.TrimSpace(d.Subject) == "" && strings.TrimSpace(d.Body) == ""
}

// NormalizeEmailDraft fills gaps in a partially parsed draft from the raw
// model text: a missing subject falls back to the first line (then the
// subject hint), a missing body to the remaining lines. Recipient defaults
// to the configured client address.
func NormalizeEmailDraft(d EmailDraft, rawText, subjectHint, defaultTo string) EmailDraft {
	if d.Meta == nil {
		d.Meta = make(map[string]string)
	}
	if d.To == "" {
		d.To = defaultTo
	}

	if d.Subject != "" && d.Body != "" {
		return d
	}

	var lines []string
	for _, l := range strings.Split(rawText, "\n") {
		if s := strings.TrimSpace(l); s != "" {
			lines = append(lines, s)
		}
	}

	if d.Subject == "" {
		if len(lines) > 0 {
			d.Subject = truncate(lines[0], 80)
		} else {
			d.Subject = subjectHint
		}
		d.Meta["subject_fallback"] = "raw_text"
	}
	if d.Body == "" {
		if len(lines) > 1 {
			d.Body = truncate(strings.Join(lines[1:], "\n"), 1200)
		} else {
			d.Body = truncate(rawText, 1200)
		}
		d.Meta["body_fallback"] = "raw_text"
	}
	return d
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
