package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Areas to create sample events for.  Defaults to a lobby and a lab.
	Areas []string
	Now   time.Time
}

// SeedDev puts a handful of sample access events into an empty dev database
// so list commands have something to show.  A non-empty table is left alone.
// Returns the number of rows inserted.
func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) (int, error) {
	if len(opt.Areas) == 0 {
		opt.Areas = []string{"lobby", "lab"}
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now().UTC()
	}

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_events;").Scan(&n); err != nil {
		return 0, fmt.Errorf("seed count: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextID int64
	if err := tx.QueryRowContext(ctx, "SELECT next_id FROM access_event_ids WHERE singleton = 1;").Scan(&nextID); err != nil {
		return 0, fmt.Errorf("seed read next id: %w", err)
	}

	inserted := 0
	nowMs := opt.Now.UnixMilli()
	for i, area := range opt.Areas {
		for j, badge := range []string{"alice", "bob"} {
			ts := opt.Now.Add(-time.Duration(i*2+j+1) * time.Hour).UnixMilli()
			granted := badge == "alice"
			if _, err := tx.ExecContext(ctx, `
INSERT INTO access_events(event_id, badge_id, area_name, occurred_at_ms, access_granted, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?);`, nextID, badge, area, ts, boolToInt(granted), nowMs); err != nil {
				return 0, fmt.Errorf("seed insert %s/%s: %w", area, badge, err)
			}
			nextID++
			inserted++
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE access_event_ids SET next_id = ? WHERE singleton = 1;", nextID); err != nil {
		return 0, fmt.Errorf("seed bump next id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed commit: %w", err)
	}
	return inserted, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
