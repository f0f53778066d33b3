// Package store persists run bookkeeping and per-domain lookup caches
// between batch invocations.
package store

import (
	"context"
	"time"

	"github.com/kostichs/company-enricher/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the enrichment pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, inputPath string, total int) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, emitted int) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Profile cache, keyed by normalized domain. Liveness results are
	// deliberately not persisted here: a valid record must have answered a
	// probe during the run that emitted it.
	GetCachedProfile(ctx context.Context, domain string) (string, error)
	SetCachedProfile(ctx context.Context, domain string, profileURL string, ttl time.Duration) error

	// Maintenance
	DeleteExpired(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
