// Package store persists canonical build records and parse-run audit
// rows. Two backends implement the same interface: SQLite for
// single-node deployments and Postgres for shared ones.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/va-pc/buildscout/internal/model"
)

// ErrNotFound is returned when a requested build does not exist.
var ErrNotFound = eris.New("store: not found")

// Stats summarizes the stored corpus.
type Stats struct {
	TotalBuilds int        `json:"total_builds"`
	OurBuilds   int        `json:"our_builds"`
	OtherBuilds int        `json:"other_builds"`
	LastUpdate  *time.Time `json:"last_update"`
}

// Store defines persistence for the ingest pipeline and the API layer.
type Store interface {
	// UpsertBuilds merges records by ID and returns the number written.
	UpsertBuilds(ctx context.Context, builds []model.Build) (int, error)
	GetBuild(ctx context.Context, id string) (*model.Build, error)
	// OurBuilds lists first-party builds ordered by price.
	OurBuilds(ctx context.Context) ([]model.Build, error)
	// AllBuilds lists every stored build ordered by price.
	AllBuilds(ctx context.Context) ([]model.Build, error)
	// CompareByPrice lists third-party builds priced within priceRange
	// of the target build, cheapest first.
	CompareByPrice(ctx context.Context, id string, priceRange float64, limit int) ([]model.Build, error)
	// CompareBySpecs lists third-party builds sharing the target's CPU
	// and GPU, cheapest first.
	CompareBySpecs(ctx context.Context, id string, limit int) ([]model.Build, error)
	Stats(ctx context.Context) (*Stats, error)

	// Parse-run audit trail.
	CreateRun(ctx context.Context, run *model.ParseRun) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, parsed int, errMsg string) error

	Migrate(ctx context.Context) error
	Close() error
}
