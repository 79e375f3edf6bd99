// Package state provides SQLite-based persistence for run records.
package state

import (
	"io"

	"github.com/rookhq/rook/pkg/models"
)

// RunStore is the persistence contract the orchestrator depends on.
// Keeping it an interface lets tests run against an in-memory fake.
type RunStore interface {
	io.Closer
	SaveRun(r *models.RunRecord) error
	GetRun(id string) (*models.RunRecord, error)
	ListRuns() ([]RunSummary, error)
}

// Compile-time verification that DB implements RunStore.
var _ RunStore = (*DB)(nil)
