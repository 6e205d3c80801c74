// Package repository holds the in-memory working set of normalized datasets.
package repository

import (
	"context"
	"time"

	"github.com/okian/capflow/internal/domain/model"
)

// Dataset is one normalized table held in the working set. Table is shared
// between readers and must not be modified.
type Dataset struct {
	ID          string
	Name        string
	Fingerprint uint64
	Size        int
	Table       model.Table
	CreatedAt   time.Time
}

// Store provides access to the working set.
type Store interface {
	// Put stores table under a new ID unless a dataset with the same content
	// fingerprint exists, in which case that dataset is returned with duplicate=true.
	Put(ctx context.Context, name string, content []byte, table model.Table) (ds Dataset, duplicate bool, err error)

	// Get returns ErrNotFound for unknown IDs.
	Get(ctx context.Context, id string) (Dataset, error)

	// List returns datasets oldest first.
	List(ctx context.Context) []Dataset

	// Delete returns ErrNotFound for unknown IDs.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored datasets.
	Count(ctx context.Context) int
}
