// Package credential manages the rotating pool of model API credentials.
// The Router is the only component allowed to read or mutate credential
// state; callers interact exclusively through Acquire and Report.
package credential

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrNoneAvailable is returned by Acquire when every credential is either
// exhausted or still cooling down. Callers should treat it as retryable
// later, not fatal.
var ErrNoneAvailable = errors.New("no credential available")

// ErrEmptyPool is returned by NewRouter when no credentials were supplied.
var ErrEmptyPool = errors.New("credential pool is empty")

// State is the lifecycle state of a credential.
type State int

const (
	// StateAvailable means the credential can be acquired.
	StateAvailable State = iota
	// StateCoolingDown means the credential recently failed and is waiting
	// out its cooldown window.
	StateCoolingDown
	// StateExhausted means the credential was reported invalid and is
	// permanently out of rotation.
	StateExhausted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateCoolingDown:
		return "cooling_down"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Outcome classifies the result of a call made with a credential.
type Outcome int

const (
	// OutcomeSuccess means the call completed normally.
	OutcomeSuccess Outcome = iota
	// OutcomeRateLimited means the provider rejected the call for quota.
	OutcomeRateLimited
	// OutcomeInvalid means the credential itself was rejected (revoked,
	// malformed, unauthorized).
	OutcomeInvalid
	// OutcomeTransient means a retryable transport or server error.
	OutcomeTransient
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeTransient:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Credential is one unit of API access capacity. Fields are owned by the
// Router; the ID and APIKey are read-only for callers holding an acquired
// credential.
type Credential struct {
	// ID identifies the credential in logs and call results.
	ID string
	// APIKey is the provider API key. Empty when UseBedrock is set.
	APIKey string
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool
	// AWSRegion is the Bedrock region, when UseBedrock is set.
	AWSRegion string

	state         State
	uses          int
	errors        int
	consecutive   int
	cooldownUntil time.Time
}

// Snapshot is a read-only copy of one credential's state for display.
type Snapshot struct {
	ID            string
	State         string
	Uses          int
	Errors        int
	CooldownUntil time.Time
}

// Router owns the credential pool. Selection is round-robin over
// credentials currently available; all state transitions happen inside
// Acquire and Report under the router's lock.
type Router struct {
	mu    sync.Mutex
	creds []*Credential
	next  int

	baseCooldown time.Duration
	maxCooldown  time.Duration
	now          func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithCooldown overrides the base and cap of the exponential cooldown window.
func WithCooldown(base, max time.Duration) Option {
	return func(r *Router) {
		r.baseCooldown = base
		r.maxCooldown = max
	}
}

// WithClock overrides the router's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a Router over the given credentials.
func NewRouter(creds []*Credential, opts ...Option) (*Router, error) {
	if len(creds) == 0 {
		return nil, ErrEmptyPool
	}
	r := &Router{
		creds:        creds,
		baseCooldown: 30 * time.Second,
		maxCooldown:  8 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Acquire selects the next available credential in round-robin order.
// Credentials whose cooldown has elapsed return to rotation here; exhausted
// credentials are skipped permanently. Returns ErrNoneAvailable when
// nothing qualifies.
func (r *Router) Acquire() (*Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.creds)
	for i := 0; i < n; i++ {
		c := r.creds[(r.next+i)%n]
		switch c.state {
		case StateExhausted:
			continue
		case StateCoolingDown:
			if r.now().Before(c.cooldownUntil) {
				continue
			}
			c.state = StateAvailable
		}
		r.next = (r.next + i + 1) % n
		c.uses++
		return c, nil
	}
	return nil, ErrNoneAvailable
}

// Report records the outcome of a call made with cred. A rate-limited or
// transient outcome puts the credential into cooldown with a per-credential
// exponentially growing window; an invalid outcome removes it from rotation
// for the life of the process.
func (r *Router) Report(cred *Credential, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		cred.consecutive = 0
		if cred.state == StateCoolingDown {
			cred.state = StateAvailable
		}
	case OutcomeRateLimited, OutcomeTransient:
		cred.errors++
		window := r.baseCooldown << cred.consecutive
		if window > r.maxCooldown || window <= 0 {
			window = r.maxCooldown
		}
		cred.consecutive++
		cred.state = StateCoolingDown
		cred.cooldownUntil = r.now().Add(window)
		log.Printf("[credential] %s %s, cooling down %s", cred.ID, outcome, window)
	case OutcomeInvalid:
		cred.errors++
		cred.state = StateExhausted
		log.Printf("[credential] %s invalid, removed from rotation", cred.ID)
	}
}

// Available returns the number of credentials currently acquirable.
func (r *Router) Available() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, c := range r.creds {
		switch c.state {
		case StateAvailable:
			count++
		case StateCoolingDown:
			if !r.now().Before(c.cooldownUntil) {
				count++
			}
		}
	}
	return count
}

// Snapshots returns a read-only copy of every credential's state.
func (r *Router) Snapshots() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snaps := make([]Snapshot, 0, len(r.creds))
	for _, c := range r.creds {
		state := c.state
		if state == StateCoolingDown && !r.now().Before(c.cooldownUntil) {
			state = StateAvailable
		}
		snaps = append(snaps, Snapshot{
			ID:            c.ID,
			State:         state.String(),
			Uses:          c.uses,
			Errors:        c.errors,
			CooldownUntil: c.cooldownUntil,
		})
	}
	return snaps
}

// MaskKey returns a masked representation of an API key for logs.
func MaskKey(key string) string {
	if key == "" {
		return "EMPTY"
	}
	if len(key) <= 8 {
		return "..." + key
	}
	return "..." + key[len(key)-6:]
}

// FromKeys builds a credential list from raw API keys. IDs are positional
// (key-1, key-2, ...) so logs stay stable across runs.
func FromKeys(keys []string) []*Credential {
	creds := make([]*Credential, 0, len(keys))
	for i, k := range keys {
		creds = append(creds, &Credential{
			ID:     fmt.Sprintf("key-%d", i+1),
			APIKey: k,
		})
	}
	return creds
}
