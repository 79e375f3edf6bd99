package orchestrator

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rookhq/rook/internal/llm"
)

// DraftSet is the ordered output of one drafting batch. Order is worker
// completion order, not worker index, and is preserved into the merge
// stage for tie-breaking.
type DraftSet struct {
	// Results holds every worker's terminal result, success or failure,
	// in completion order.
	Results []llm.CallResult
}

// Successes returns only the successful results, preserving completion order.
func (ds DraftSet) Successes() []llm.CallResult {
	var ok []llm.CallResult
	for _, r := range ds.Results {
		if r.OK() {
			ok = append(ok, r)
		}
	}
	return ok
}

// AllFailed reports whether every worker reached a failure terminal state.
func (ds DraftSet) AllFailed() bool {
	return len(ds.Results) > 0 && len(ds.Successes()) == 0
}

// Pool fans one drafting request out to width concurrent executor
// invocations. The join waits for every worker to reach a terminal state;
// a failing worker never cancels its siblings.
type Pool struct {
	exec  llm.CallExecutor
	width int
}

// NewPool creates a Pool of the given width over the executor.
func NewPool(exec llm.CallExecutor, width int) *Pool {
	return &Pool{exec: exec, width: width}
}

// Width returns the configured worker count.
func (p *Pool) Width() int {
	return p.width
}

// Draft runs width independent invocations of the template request. Each
// invocation acquires its own credential inside the executor, so one
// rate-limited credential cannot stall the whole batch. Workers record
// their results as they complete; the barrier returns only when all of
// them are terminal.
func (p *Pool) Draft(ctx context.Context, template llm.CallRequest) DraftSet {
	var (
		mu sync.Mutex
		ds DraftSet
	)

	g := new(errgroup.Group)
	for i := 0; i < p.width; i++ {
		worker := i
		g.Go(func() error {
			res := p.exec.Execute(ctx, template)
			mu.Lock()
			ds.Results = append(ds.Results, res)
			done := len(ds.Results)
			mu.Unlock()
			if res.OK() {
				log.Printf("[pool] worker %d done (%d/%d)", worker, done, p.width)
			} else {
				log.Printf("[pool] worker %d failed: %s (%d/%d)", worker, res.Failure.Kind, done, p.width)
			}
			// Failures are carried in the DraftSet, never as errors,
			// so the group never cancels siblings.
			return nil
		})
	}
	_ = g.Wait()

	return ds
}
