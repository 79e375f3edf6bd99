// Package llm provides the model-call boundary: the Anthropic client
// wrapper, failure classification, JSON extraction, and the retrying
// Call Executor that routes every call through the credential pool.
package llm

import "fmt"

// FailureKind is the typed taxonomy of call failures. Nothing outside this
// package surfaces raw transport errors; every failure is one of these.
type FailureKind string

const (
	// FailureRateLimited means the final attempt hit a provider quota.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureInvalidCredential means the final attempt's credential was rejected.
	FailureInvalidCredential FailureKind = "invalid_credential"
	// FailureTransient means the final attempt hit a retryable transport error.
	FailureTransient FailureKind = "transient_error"
	// FailureCapacityExhausted means the router had nothing available after
	// the bounded acquire wait.
	FailureCapacityExhausted FailureKind = "capacity_exhausted"
	// FailureSchemaViolation means the model responded but the payload failed
	// stage schema validation.
	FailureSchemaViolation FailureKind = "schema_violation"
)

// Failure is the typed failure reason carried by a CallResult.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// CallRequest describes one outbound model call. Immutable once constructed.
type CallRequest struct {
	// ScenarioID ties the call to a run for the replay trace.
	ScenarioID string `json:"scenario_id"`
	// System is the system instruction for the call.
	System string `json:"system,omitempty"`
	// Prompt is the user-facing prompt payload.
	Prompt string `json:"prompt"`
	// MaxTokens is the declared output token budget.
	MaxTokens int64 `json:"max_tokens"`
	// MaxRetries bounds the executor's retry loop.
	MaxRetries int `json:"max_retries"`
	// Validate, when set, checks the response against the stage schema.
	// A validation failure is payload-side: the credential is not blamed.
	Validate func(string) error `json:"-"`
}

// CallResult is the outcome of one executed call: either response text or a
// typed failure, always tagged with the serving credential and attempt count.
type CallResult struct {
	// Text is the model's response text on success.
	Text string `json:"text,omitempty"`
	// Failure is the typed failure reason, nil on success.
	Failure *Failure `json:"failure,omitempty"`
	// CredentialID is the last credential that served (or tried to serve)
	// the call.
	CredentialID string `json:"credential_id,omitempty"`
	// Attempts is how many call attempts were made.
	Attempts int `json:"attempts"`
}

// OK reports whether the call produced a usable payload.
func (r CallResult) OK() bool {
	return r.Failure == nil
}
