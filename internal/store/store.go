package store

import (
	"context"
	"time"

	"github.com/intraylabs/intray/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (e.g., postgres, sqlite).
type Store interface {
	Records() Records
	Categories() Categories
	Connections() Connections
}

// Records manages captured inbox items and their analysis lifecycle.
type Records interface {
	Create(ctx context.Context, r *model.Record) (*model.Record, error)
	Get(ctx context.Context, userID, recordID string) (*model.Record, error)
	List(ctx context.Context, userID string, f model.RecordFilter) ([]*model.Record, error)
	// Update applies the non-nil fields of u and bumps update_time.
	Update(ctx context.Context, userID, recordID string, u model.RecordUpdate) (*model.Record, error)
	// PurgeDeleted permanently removes canceled records whose deletion_time
	// is older than the cutoff. Returns the number of rows removed.
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// Categories manages the per-user labels offered to the classifier.
type Categories interface {
	Create(ctx context.Context, c *model.Category) (*model.Category, error)
	// List returns categories for the user, optionally filtered by kind.
	List(ctx context.Context, userID, kind string) ([]*model.Category, error)
	Delete(ctx context.Context, userID, categoryID string) error
}

// Connections manages per-user upload target credentials.
type Connections interface {
	Upsert(ctx context.Context, c *model.Connection) (*model.Connection, error)
	Get(ctx context.Context, userID, provider string) (*model.Connection, error)
	Delete(ctx context.Context, userID, provider string) error
}
