package llm

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/rookhq/rook/internal/credential"
)

// Classify maps a transport-level call error onto a credential outcome.
// Status codes from the SDK are authoritative; message heuristics cover
// wrapped transport errors that carry no code.
func Classify(err error) credential.Outcome {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 429:
			return credential.OutcomeRateLimited
		case 401, 403:
			return credential.OutcomeInvalid
		default:
			if apierr.StatusCode >= 500 {
				return credential.OutcomeTransient
			}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return credential.OutcomeTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"), strings.Contains(msg, "overloaded"):
		return credential.OutcomeRateLimited
	case strings.Contains(msg, "invalid x-api-key"), strings.Contains(msg, "authentication"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "permission"):
		return credential.OutcomeInvalid
	default:
		return credential.OutcomeTransient
	}
}

// failureKindFor translates a credential outcome into the result taxonomy.
func failureKindFor(outcome credential.Outcome) FailureKind {
	switch outcome {
	case credential.OutcomeRateLimited:
		return FailureRateLimited
	case credential.OutcomeInvalid:
		return FailureInvalidCredential
	default:
		return FailureTransient
	}
}
