package llm

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/rookhq/rook/internal/credential"
)

// CallExecutor is the contract consumed by the worker pool and the run
// stages. Execute never returns a transport error; failures come back as
// typed CallResult failures.
type CallExecutor interface {
	Execute(ctx context.Context, req CallRequest) CallResult
}

// Executor wraps a single outbound model call with credential routing, a
// hard timeout, and retry/backoff. No retry state escapes this component.
type Executor struct {
	router *credential.Router
	caller Caller

	callTimeout     time.Duration
	acquireAttempts int
	acquireBackoff  time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithCallTimeout sets the hard per-attempt timeout.
func WithCallTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.callTimeout = d }
}

// WithAcquireRetry bounds the wait for a free credential: attempts tries
// with jittered backoff starting at base.
func WithAcquireRetry(attempts int, base time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.acquireAttempts = attempts
		e.acquireBackoff = base
	}
}

// WithSleep overrides the backoff sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = sleep }
}

// NewExecutor creates an Executor over the given router and caller.
func NewExecutor(router *credential.Router, caller Caller, opts ...ExecutorOption) *Executor {
	e := &Executor{
		router:          router,
		caller:          caller,
		callTimeout:     90 * time.Second,
		acquireAttempts: 4,
		acquireBackoff:  500 * time.Millisecond,
		sleep:           sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Execute runs the retry loop: acquire a credential, issue the call with a
// hard timeout, report the outcome, rotate on retryable failures. Schema
// validation failures are payload-side and return immediately without
// blaming the credential.
func (e *Executor) Execute(ctx context.Context, req CallRequest) CallResult {
	maxRetries := req.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var (
		attempts int
		lastKind = FailureTransient
		lastMsg  string
		lastCred string
	)

	for attempts < maxRetries {
		cred, err := e.acquireWithBackoff(ctx)
		if err != nil {
			return CallResult{
				Failure:      &Failure{Kind: FailureCapacityExhausted, Message: err.Error()},
				CredentialID: lastCred,
				Attempts:     attempts,
			}
		}
		attempts++
		lastCred = cred.ID

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		text, err := e.caller.Complete(callCtx, cred, req)
		cancel()

		if err == nil {
			if req.Validate != nil {
				if verr := req.Validate(text); verr != nil {
					// The transport worked; the payload is at fault.
					e.router.Report(cred, credential.OutcomeSuccess)
					return CallResult{
						Failure:      &Failure{Kind: FailureSchemaViolation, Message: verr.Error()},
						CredentialID: cred.ID,
						Attempts:     attempts,
					}
				}
			}
			e.router.Report(cred, credential.OutcomeSuccess)
			return CallResult{Text: text, CredentialID: cred.ID, Attempts: attempts}
		}

		outcome := Classify(err)
		e.router.Report(cred, outcome)
		lastKind = failureKindFor(outcome)
		lastMsg = err.Error()
		log.Printf("[executor] attempt %d/%d with %s failed (%s)", attempts, maxRetries, cred.ID, outcome)
	}

	return CallResult{
		Failure:      &Failure{Kind: lastKind, Message: lastMsg},
		CredentialID: lastCred,
		Attempts:     attempts,
	}
}

// acquireWithBackoff retries Acquire a bounded number of times with
// jittered exponential backoff before giving up.
func (e *Executor) acquireWithBackoff(ctx context.Context) (*credential.Credential, error) {
	var lastErr error
	for i := 0; i < e.acquireAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cred, err := e.router.Acquire()
		if err == nil {
			return cred, nil
		}
		lastErr = err
		if i == e.acquireAttempts-1 {
			break
		}
		backoff := e.acquireBackoff << i
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		if err := e.sleep(ctx, backoff+jitter); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
