package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	sqlitestore "github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var baseTime = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlitestore.AccessEventStore {
	t.Helper()
	conn := openTestDB(t)
	return sqlitestore.NewAccessEventStore(conn, newTestWriter(t, conn))
}

func event(id int64, badge string, ts time.Time) types.AccessEvent {
	return types.AccessEvent{
		ID:            id,
		BadgeID:       badge,
		AreaName:      "lobby",
		Timestamp:     ts,
		AccessGranted: true,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// NextID / Add
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_NextID_Sequential(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextID(ctx)
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if got != want {
			t.Errorf("expected id %d, got %d", want, got)
		}
	}
}

func TestAccessEventStore_Add_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := event(1, "B-100", baseTime)
	in.AccessGranted = false
	if _, err := s.Add(ctx, in); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := s.GetByID(ctx, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.BadgeID != "B-100" || got.AreaName != "lobby" {
		t.Errorf("unexpected fields: %+v", got)
	}
	if !got.Timestamp.Equal(baseTime) {
		t.Errorf("expected timestamp %v, got %v", baseTime, got.Timestamp)
	}
	if got.AccessGranted {
		t.Error("expected access_granted=false")
	}
}

func TestAccessEventStore_Add_DuplicateIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, event(5, "B-1", baseTime)); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	_, err := s.Add(ctx, event(5, "B-2", baseTime))
	if !errors.Is(err, store.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	all, _ := s.ListAll(ctx)
	if len(all) != 1 || all[0].BadgeID != "B-1" {
		t.Errorf("expected original event untouched, got %+v", all)
	}
}

func TestAccessEventStore_Add_KeepsAllocatorAhead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, event(10, "B-1", baseTime)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	next, err := s.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if next != 11 {
		t.Errorf("expected next id 11, got %d", next)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// ListAll / GetByID
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_ListAll_InsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Insert ids out of numeric order; listing follows insertion.
	for _, id := range []int64{3, 1, 2} {
		if _, err := s.Add(ctx, event(id, "B-1", baseTime)); err != nil {
			t.Fatalf("Add(%d): %v", id, err)
		}
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	for i, want := range []int64{3, 1, 2} {
		if all[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, all[i].ID)
		}
	}
}

func TestAccessEventStore_ListAll_Empty(t *testing.T) {
	s := newTestStore(t)
	all, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", all)
	}
}

func TestAccessEventStore_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetByID(context.Background(), 404)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Update / Remove
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, event(1, "B-1", baseTime)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed := types.AccessEvent{
		ID:            1,
		BadgeID:       "B-9",
		AreaName:      "vault",
		Timestamp:     baseTime.Add(time.Hour),
		AccessGranted: false,
	}
	ok, err := s.Update(ctx, changed)
	if err != nil || !ok {
		t.Fatalf("expected update to succeed, got ok=%v err=%v", ok, err)
	}

	got, _ := s.GetByID(ctx, 1)
	if got.BadgeID != "B-9" || got.AreaName != "vault" || got.AccessGranted {
		t.Errorf("expected replaced event, got %+v", got)
	}
	if !got.Timestamp.Equal(baseTime.Add(time.Hour)) {
		t.Errorf("expected timestamp %v, got %v", baseTime.Add(time.Hour), got.Timestamp)
	}

	changed.ID = 2
	ok, err = s.Update(ctx, changed)
	if err != nil || ok {
		t.Errorf("expected missing id to report false, got ok=%v err=%v", ok, err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 1 {
		t.Errorf("update of missing id must not insert, got %d events", len(all))
	}
}

func TestAccessEventStore_Remove_IDNotReused(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.NextID(ctx)
	if _, err := s.Add(ctx, event(id, "B-1", baseTime)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := s.Remove(ctx, id)
	if err != nil || !ok {
		t.Fatalf("expected remove to succeed, got ok=%v err=%v", ok, err)
	}
	ok, _ = s.Remove(ctx, id)
	if ok {
		t.Error("expected second remove to report false")
	}

	next, _ := s.NextID(ctx)
	if next == id {
		t.Errorf("removed id %d was handed out again", id)
	}
}

func TestAccessEventStore_Add_RemovedIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, event(1, "B-1", baseTime)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ok, err := s.Remove(ctx, 1); err != nil || !ok {
		t.Fatalf("expected remove to succeed, got ok=%v err=%v", ok, err)
	}

	_, err := s.Add(ctx, event(1, "other", baseTime))
	if !errors.Is(err, store.ErrRetiredID) {
		t.Fatalf("expected ErrRetiredID, got %v", err)
	}
	if all, _ := s.ListAll(ctx); len(all) != 0 {
		t.Errorf("expected no events after rejected re-add, got %+v", all)
	}
}

func TestAccessEventStore_Add_PrunedIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := event(4, "old", baseTime.AddDate(0, 0, -40))
	if _, err := s.Add(ctx, old); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if n, err := s.PruneOlderThan(ctx, baseTime); err != nil || n != 1 {
		t.Fatalf("expected 1 pruned, got n=%d err=%v", n, err)
	}

	if _, err := s.Add(ctx, old); !errors.Is(err, store.ErrRetiredID) {
		t.Fatalf("expected ErrRetiredID, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// PruneOlderThan
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_PruneOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, event(1, "old", baseTime.AddDate(0, 0, -40))); err != nil {
		t.Fatalf("Add old: %v", err)
	}
	if _, err := s.Add(ctx, event(2, "recent", baseTime.AddDate(0, 0, -1))); err != nil {
		t.Fatalf("Add recent: %v", err)
	}

	deleted, err := s.PruneOlderThan(ctx, baseTime.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}

	all, _ := s.ListAll(ctx)
	if len(all) != 1 || all[0].BadgeID != "recent" {
		t.Errorf("expected only the recent event to survive, got %+v", all)
	}
}

func TestAccessEventStore_PruneOlderThan_EmptyTable(t *testing.T) {
	s := newTestStore(t)
	deleted, err := s.PruneOlderThan(context.Background(), baseTime)
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deleted, got %d", deleted)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Concurrency
// ═══════════════════════════════════════════════════════════════════════════

func TestAccessEventStore_ConcurrentNextIDAndAdd(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.NextID(ctx)
			if err != nil {
				errs <- err
				return
			}
			if _, err := s.Add(ctx, event(id, "B-1", baseTime)); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent insert: %v", err)
	}

	all, _ := s.ListAll(ctx)
	if len(all) != n {
		t.Errorf("expected %d events, got %d", n, len(all))
	}
}
