package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rookhq/rook/pkg/models"
)

// ErrRunNotFound is returned when no run exists with the given ID.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the queryable subset of a run for listings.
type RunSummary struct {
	ID          string
	ScenarioID  string
	Stage       models.Stage
	Decision    models.Decision
	PlanRetries int
	UpdatedAt   time.Time
}

// SaveRun upserts the full run record. The record JSON is the replay
// source of truth; the columns exist for querying.
func (db *DB) SaveRun(r *models.RunRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	blob, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO runs (id, scenario_id, stage, decision, plan_retries, seq, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			decision = excluded.decision,
			plan_retries = excluded.plan_retries,
			seq = excluded.seq,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, r.ID, r.ScenarioID, string(r.Stage), string(r.Decision), r.PlanRetries, r.Seq,
		string(blob), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

// GetRun loads the full run record by ID.
func (db *DB) GetRun(id string) (*models.RunRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var blob string
	row := db.conn.QueryRow("SELECT record FROM runs WHERE id = ?", id)
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var r models.RunRecord
	if err := json.Unmarshal([]byte(blob), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return &r, nil
}

// ListRuns returns run summaries ordered by most recent update.
func (db *DB) ListRuns() ([]RunSummary, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.Query(`
		SELECT id, scenario_id, stage, decision, plan_retries, updated_at
		FROM runs ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var stage, decision string
		if err := rows.Scan(&s.ID, &s.ScenarioID, &stage, &decision, &s.PlanRetries, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		s.Stage = models.Stage(stage)
		s.Decision = models.Decision(decision)
		out = append(out, s)
	}
	return out, rows.Err()
}
