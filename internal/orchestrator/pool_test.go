package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rookhq/rook/internal/llm"
)

// flakyExecutor fails a fixed number of workers and succeeds the rest.
type flakyExecutor struct {
	mu       sync.Mutex
	failures int
	calls    atomic.Int32
}

func (f *flakyExecutor) Execute(_ context.Context, _ llm.CallRequest) llm.CallResult {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return failed(llm.FailureRateLimited, "429")
	}
	return ok("draft text")
}

func TestPoolJoinsAllWorkers(t *testing.T) {
	exec := &flakyExecutor{failures: 3}
	p := NewPool(exec, 4)

	ds := p.Draft(context.Background(), llm.CallRequest{Prompt: "draft"})
	if len(ds.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(ds.Results))
	}
	if got := exec.calls.Load(); got != 4 {
		t.Errorf("executor calls = %d, want 4", got)
	}
	if got := len(ds.Successes()); got != 1 {
		t.Errorf("successes = %d, want 1", got)
	}
	if ds.AllFailed() {
		t.Error("AllFailed = true with one success")
	}
}

func TestPoolAllFailed(t *testing.T) {
	exec := &flakyExecutor{failures: 4}
	p := NewPool(exec, 4)

	ds := p.Draft(context.Background(), llm.CallRequest{Prompt: "draft"})
	if !ds.AllFailed() {
		t.Fatalf("AllFailed = false, results: %+v", ds.Results)
	}
	if got := len(ds.Successes()); got != 0 {
		t.Errorf("successes = %d, want 0", got)
	}
}

// slowExecutor delays each call so completion order differs from spawn order.
type slowExecutor struct {
	mu    sync.Mutex
	delay time.Duration
	step  time.Duration
}

func (s *slowExecutor) Execute(_ context.Context, _ llm.CallRequest) llm.CallResult {
	s.mu.Lock()
	d := s.delay
	s.delay -= s.step
	s.mu.Unlock()
	time.Sleep(d)
	return ok(d.String())
}

func TestPoolRecordsCompletionOrder(t *testing.T) {
	// Worker 0 sleeps longest, so it must finish last despite spawning first.
	exec := &slowExecutor{delay: 80 * time.Millisecond, step: 20 * time.Millisecond}
	p := NewPool(exec, 4)

	ds := p.Draft(context.Background(), llm.CallRequest{Prompt: "draft"})
	if len(ds.Results) != 4 {
		t.Fatalf("results = %d, want 4", len(ds.Results))
	}
	if got := ds.Results[len(ds.Results)-1].Text; got != "80ms" {
		t.Errorf("last completed = %q, want the slowest worker (80ms)", got)
	}
}

// failNeverCancels verifies a failing worker does not cancel its siblings:
// every worker still runs to a terminal result.
func TestPoolFailureDoesNotCancelSiblings(t *testing.T) {
	exec := &flakyExecutor{failures: 1}
	p := NewPool(exec, 3)

	ds := p.Draft(context.Background(), llm.CallRequest{Prompt: "draft"})
	if got := exec.calls.Load(); got != 3 {
		t.Fatalf("executor calls = %d, want 3 (siblings must run to completion)", got)
	}
	if got := len(ds.Successes()); got != 2 {
		t.Errorf("successes = %d, want 2", got)
	}
}
