// Package notify handles file-based decision exchange via the .rook
// directory. A paused run publishes a pending-approval file; a human (or
// the decide command) answers by dropping a decision file, which the
// watcher picks up immediately.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rookhq/rook/pkg/models"
)

// Decision is the on-disk form of an approval decision.
type Decision struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

// DecisionDir returns the project-local decisions directory.
func DecisionDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".rook", "decisions")
}

func decisionPath(dir, runID string) string {
	return filepath.Join(dir, runID+".decision.json")
}

func pendingPath(dir, runID string) string {
	return filepath.Join(dir, runID+".pending.json")
}

// WriteDecision drops a decision file for a run. The watcher on the other
// side picks it up and unblocks the paused run.
func WriteDecision(dir, runID string, approve bool, reason string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.Marshal(Decision{Approve: approve, Reason: reason})
	if err != nil {
		return err
	}
	return os.WriteFile(decisionPath(dir, runID), data, 0644)
}

// ClearDecision removes the decision and pending files for a run.
func ClearDecision(dir, runID string) {
	os.Remove(decisionPath(dir, runID))
	os.Remove(pendingPath(dir, runID))
}

// Watcher waits for decision files in a directory. It prefers fsnotify
// events and falls back to polling when the watcher cannot be created.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a Watcher over the given decisions directory,
// creating it if needed.
func NewWatcher(dir string) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{dir: dir, done: make(chan struct{})}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - Await falls back to polling.
		return w, nil
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return w, nil
	}
	w.watcher = fsw
	return w, nil
}

// Await blocks until a decision file for the run appears or the context
// ends. A file that already exists is returned immediately. The decision
// file is consumed (removed) once read.
func (w *Watcher) Await(ctx context.Context, runID string) (Decision, error) {
	path := decisionPath(w.dir, runID)

	if d, ok := w.tryRead(path); ok {
		return d, nil
	}

	var events chan fsnotify.Event
	var errs chan error
	if w.watcher != nil {
		events = w.watcher.Events
		errs = w.watcher.Errors
	}

	// Polling backstop for missed events and watcher-less operation.
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		case <-w.done:
			return Decision{}, fmt.Errorf("decision watcher closed")
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if d, ok := w.tryRead(path); ok {
				return d, nil
			}
		case <-errs:
			// Keep watching; the ticker covers missed events.
		case <-ticker.C:
			if d, ok := w.tryRead(path); ok {
				return d, nil
			}
		}
	}
}

// tryRead reads and consumes a decision file. A partially written file
// (unmarshal failure) is left in place for the next attempt.
func (w *Watcher) tryRead(path string) (Decision, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Decision{}, false
	}
	var d Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return Decision{}, false
	}
	os.Remove(path)
	return d, true
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// pendingSummary is what a paused run publishes for reviewers.
type pendingSummary struct {
	RunID      string   `json:"run_id"`
	ScenarioID string   `json:"scenario_id"`
	Summary    string   `json:"summary,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body,omitempty"`
	LowActions []string `json:"low_confidence_actions,omitempty"`
	PausedAt   string   `json:"paused_at"`
}

// FileDecider is an orchestrator decider backed by the decisions
// directory: it publishes the paused run and waits for a decision file,
// up to the configured timeout.
type FileDecider struct {
	dir       string
	timeout   time.Duration
	threshold float64
}

// NewFileDecider creates a FileDecider over the decisions directory.
// A zero timeout waits indefinitely.
func NewFileDecider(dir string, timeout time.Duration, threshold float64) *FileDecider {
	return &FileDecider{dir: dir, timeout: timeout, threshold: threshold}
}

// Decide publishes the pending-approval file and blocks until a decision
// file arrives for the run.
func (f *FileDecider) Decide(rec *models.RunRecord) (bool, string, error) {
	if err := f.publishPending(rec); err != nil {
		return false, "", err
	}

	w, err := NewWatcher(f.dir)
	if err != nil {
		return false, "", err
	}
	defer w.Close()

	ctx := context.Background()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	d, err := w.Await(ctx, rec.ID)
	if err != nil {
		return false, "", fmt.Errorf("awaiting decision for run %s: %w", rec.ID, err)
	}
	os.Remove(pendingPath(f.dir, rec.ID))
	return d.Approve, d.Reason, nil
}

func (f *FileDecider) publishPending(rec *models.RunRecord) error {
	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return err
	}

	p := pendingSummary{
		RunID:      rec.ID,
		ScenarioID: rec.ScenarioID,
		PausedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if rec.Plan != nil {
		p.Summary = rec.Plan.Summary
		for _, a := range rec.Plan.LowConfidenceActions(f.threshold) {
			p.LowActions = append(p.LowActions, fmt.Sprintf("%s (%.2f)", a.Type, a.Confidence))
		}
	}
	if rec.Merged != nil {
		p.Subject = rec.Merged.Subject
		p.Body = rec.Merged.Body
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(pendingPath(f.dir, rec.ID), data, 0644)
}
