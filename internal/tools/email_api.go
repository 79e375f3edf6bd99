package tools

import (
	"sync"

	"github.com/rookhq/rook/internal/llm"
	"github.com/rookhq/rook/pkg/models"
)

// EmailSender is the opaque email delivery boundary.
type EmailSender interface {
	Send(draft models.EmailDraft) models.TaskAck
}

// ParseDraft extracts an email draft from raw model text and normalizes
// the gaps. It never fails: an unparseable response degrades to a draft
// built from the raw text lines.
func ParseDraft(text, subjectHint, defaultTo string) models.EmailDraft {
	var d models.EmailDraft
	// Extraction failure leaves d zero-valued; normalization fills it
	// from the raw text.
	_ = llm.ExtractJSON(text, &d)
	return models.NormalizeEmailDraft(d, text, subjectHint, defaultTo)
}

// SimulatedEmailAPI records sends instead of delivering them.
type SimulatedEmailAPI struct {
	mu   sync.Mutex
	sent []models.EmailDraft
}

// NewSimulatedEmailAPI creates an empty simulated email service.
func NewSimulatedEmailAPI() *SimulatedEmailAPI {
	return &SimulatedEmailAPI{}
}

// Send records the draft and acknowledges it.
func (s *SimulatedEmailAPI) Send(draft models.EmailDraft) models.TaskAck {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, draft)
	return models.TaskAck{Accepted: true}
}

// Sent returns a copy of everything sent so far.
func (s *SimulatedEmailAPI) Sent() []models.EmailDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EmailDraft, len(s.sent))
	copy(out, s.sent)
	return out
}

// Compile-time verification.
var _ EmailSender = (*SimulatedEmailAPI)(nil)
