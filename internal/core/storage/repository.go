package storage

import (
	"context"
	"errors"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
)

// ErrNotFound is returned when no datafeed exists with the requested ID.
var ErrNotFound = errors.New("datafeed not found")

// ErrDuplicate is returned when another datafeed already exists for the
// same job. A job is driven by at most one datafeed.
var ErrDuplicate = errors.New("a datafeed already exists for this job")

// DatafeedStore persists datafeed configurations.
type DatafeedStore interface {
	// Save creates or replaces the datafeed with config.ID.
	// Returns ErrDuplicate if a different datafeed holds the same job_id.
	Save(ctx context.Context, config *v1.DatafeedConfig) error

	// Get returns the datafeed with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*v1.DatafeedConfig, error)

	// List returns all datafeeds ordered by ID.
	List(ctx context.Context) ([]*v1.DatafeedConfig, error)

	// Delete removes the datafeed with the given ID, or ErrNotFound.
	Delete(ctx context.Context, id string) error
}
