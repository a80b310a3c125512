package store

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var (
	// ErrNotFound is returned when a lookup key has no record.  It is an
	// expected outcome, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned by Add when the event id is already stored.
	ErrDuplicateID = errors.New("duplicate access event id")

	// ErrRetiredID is returned by Add when the id belonged to an event that
	// was removed or pruned.  Ids are never reused.
	ErrRetiredID = errors.New("retired access event id")
)

// AccessEventStore is an identity-keyed, insertion-ordered collection of
// access events.  Field validation happens in the service layer above it.
type AccessEventStore interface {
	// NextID reserves a fresh id.  Ids only grow, so an id is never handed
	// out twice even after its event is removed.
	NextID(ctx context.Context) (int64, error)

	// Add stores ev under its own id.  It fails with ErrDuplicateID when
	// the id is stored and ErrRetiredID when it was stored once before.
	Add(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error)
	GetByID(ctx context.Context, id int64) (types.AccessEvent, error)

	// ListAll returns a copy of every event in insertion order.
	ListAll(ctx context.Context) ([]types.AccessEvent, error)

	// Update fully replaces the event with the same id.  Returns false
	// (and inserts nothing) when the id is unknown.
	Update(ctx context.Context, ev types.AccessEvent) (bool, error)

	// Remove deletes the event and retires its id.
	Remove(ctx context.Context, id int64) (bool, error)

	// PruneOlderThan deletes events whose timestamp is before cutoff,
	// retiring their ids, and returns how many were removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
