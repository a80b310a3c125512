package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/BrandonDHaskell/Portunus/gate/internal/db"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

// AccessEventStore persists access events in SQLite.  Reads go straight to
// the pool; every write is funnelled through the single-writer Worker.
type AccessEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessEventStore(db *sql.DB, writer *dbpkg.Worker) *AccessEventStore {
	return &AccessEventStore{db: db, writer: writer}
}

// NextID reserves the next id from the access_event_ids allocator.
func (s *AccessEventStore) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `
SELECT next_id FROM access_event_ids WHERE singleton = 1;
`).Scan(&id); err != nil {
			return fmt.Errorf("NextID read: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE access_event_ids SET next_id = next_id + 1 WHERE singleton = 1;
`); err != nil {
			return fmt.Errorf("NextID bump: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *AccessEventStore) Add(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	occurredMs := ev.Timestamp.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `
SELECT 1 FROM access_events WHERE event_id = ?;
`, ev.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("Add id=%d: %w", ev.ID, store.ErrDuplicateID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("Add check id=%d: %w", ev.ID, err)
		}

		err = tx.QueryRowContext(ctx, `
SELECT 1 FROM access_event_retired WHERE event_id = ?;
`, ev.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("Add id=%d: %w", ev.ID, store.ErrRetiredID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("Add check retired id=%d: %w", ev.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(
  event_id, badge_id, area_name, occurred_at_ms, access_granted, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?);
`, ev.ID, ev.BadgeID, ev.AreaName, occurredMs, boolToInt(ev.AccessGranted), nowMs); err != nil {
			return fmt.Errorf("Add insert: %w", err)
		}

		// Keep the allocator ahead of caller-chosen ids.
		if _, err := tx.ExecContext(ctx, `
UPDATE access_event_ids SET next_id = MAX(next_id, ? + 1) WHERE singleton = 1;
`, ev.ID); err != nil {
			return fmt.Errorf("Add bump next_id: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.AccessEvent{}, err
	}

	ev.Timestamp = time.UnixMilli(occurredMs).UTC()
	return ev, nil
}

func (s *AccessEventStore) GetByID(ctx context.Context, id int64) (types.AccessEvent, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT event_id, badge_id, area_name, occurred_at_ms, access_granted
FROM access_events WHERE event_id = ?;
`, id)

	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AccessEvent{}, store.ErrNotFound
	}
	if err != nil {
		return types.AccessEvent{}, fmt.Errorf("GetByID id=%d: %w", id, err)
	}
	return ev, nil
}

// ListAll returns events in insertion order.
func (s *AccessEventStore) ListAll(ctx context.Context) ([]types.AccessEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT event_id, badge_id, area_name, occurred_at_ms, access_granted
FROM access_events ORDER BY row_seq;
`)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer rows.Close()

	out := []types.AccessEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAll scan: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll rows: %w", err)
	}
	return out, nil
}

// Update replaces every field of the event with ev.ID.  The row keeps its
// position in insertion order.
func (s *AccessEventStore) Update(ctx context.Context, ev types.AccessEvent) (bool, error) {
	var updated bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE access_events
SET badge_id = ?, area_name = ?, occurred_at_ms = ?, access_granted = ?
WHERE event_id = ?;
`, ev.BadgeID, ev.AreaName, ev.Timestamp.UTC().UnixMilli(), boolToInt(ev.AccessGranted), ev.ID)
		if err != nil {
			return fmt.Errorf("Update id=%d: %w", ev.ID, err)
		}
		n, _ := res.RowsAffected()
		updated = n > 0
		return nil
	})
	return updated, err
}

// Remove deletes the event and records its id as retired.
func (s *AccessEventStore) Remove(ctx context.Context, id int64) (bool, error) {
	nowMs := time.Now().UTC().UnixMilli()

	var removed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM access_events WHERE event_id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Remove id=%d: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed = n > 0
		if !removed {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO access_event_retired(event_id, retired_at_ms) VALUES (?, ?);
`, id, nowMs); err != nil {
			return fmt.Errorf("Remove retire id=%d: %w", id, err)
		}
		return nil
	})
	return removed, err
}

// PruneOlderThan deletes events with occurred_at_ms before the given
// cutoff time and retires their ids.  Returns the number of rows deleted.
//
// Uses the idx_access_events_time index for an efficient range scan.
func (s *AccessEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO access_event_retired(event_id, retired_at_ms)
SELECT event_id, ? FROM access_events WHERE occurred_at_ms < ?;
`, nowMs, cutoffMs); err != nil {
			return fmt.Errorf("PruneOlderThan retire: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
DELETE FROM access_events
WHERE occurred_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(r scanner) (types.AccessEvent, error) {
	var (
		ev         types.AccessEvent
		occurredMs int64
		granted    int
	)
	if err := r.Scan(&ev.ID, &ev.BadgeID, &ev.AreaName, &occurredMs, &granted); err != nil {
		return types.AccessEvent{}, err
	}
	ev.Timestamp = time.UnixMilli(occurredMs).UTC()
	ev.AccessGranted = granted != 0
	return ev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ store.AccessEventStore = (*AccessEventStore)(nil)
