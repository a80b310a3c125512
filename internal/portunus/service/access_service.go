package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/types"
)

var (
	// ErrValidation matches every field validation failure below.
	ErrValidation = errors.New("invalid access event")

	ErrInvalidBadgeID  = fmt.Errorf("%w: badge_id is required", ErrValidation)
	ErrInvalidAreaName = fmt.Errorf("%w: area_name is required", ErrValidation)
)

// AccessEventService enforces access event field rules in front of the
// store.  The store itself accepts any well-formed value.
type AccessEventService struct {
	eventStore store.AccessEventStore
	now        func() time.Time
}

func NewAccessEventService(es store.AccessEventStore) *AccessEventService {
	return &AccessEventService{
		eventStore: es,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterAccessEvent validates the fields, reserves a fresh id and stores
// the event.  A zero timestamp is replaced with the current time.
func (s *AccessEventService) RegisterAccessEvent(
	ctx context.Context,
	badgeID, areaName string,
	ts time.Time,
	granted bool,
) (types.AccessEvent, error) {
	ev := types.AccessEvent{
		BadgeID:       strings.TrimSpace(badgeID),
		AreaName:      strings.TrimSpace(areaName),
		Timestamp:     ts,
		AccessGranted: granted,
	}
	if err := validate(ev); err != nil {
		return types.AccessEvent{}, err
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}

	id, err := s.eventStore.NextID(ctx)
	if err != nil {
		return types.AccessEvent{}, fmt.Errorf("reserve access event id: %w", err)
	}
	ev.ID = id

	return s.eventStore.Add(ctx, ev)
}

// Register stores an event whose id the caller already chose.  The store
// rejects an id it already holds.
func (s *AccessEventService) Register(ctx context.Context, ev types.AccessEvent) (types.AccessEvent, error) {
	ev.BadgeID = strings.TrimSpace(ev.BadgeID)
	ev.AreaName = strings.TrimSpace(ev.AreaName)
	if err := validate(ev); err != nil {
		return types.AccessEvent{}, err
	}
	return s.eventStore.Add(ctx, ev)
}

func (s *AccessEventService) GetAccessEvent(ctx context.Context, id int64) (types.AccessEvent, error) {
	return s.eventStore.GetByID(ctx, id)
}

func (s *AccessEventService) ListAccessEvents(ctx context.Context) ([]types.AccessEvent, error) {
	return s.eventStore.ListAll(ctx)
}

// ListAccessEventsByBadge filters ListAccessEvents by badge, ignoring case.
func (s *AccessEventService) ListAccessEventsByBadge(ctx context.Context, badgeID string) ([]types.AccessEvent, error) {
	all, err := s.eventStore.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	badgeID = strings.TrimSpace(badgeID)
	out := make([]types.AccessEvent, 0, len(all))
	for _, ev := range all {
		if strings.EqualFold(ev.BadgeID, badgeID) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// UpdateAccessEvent validates then fully replaces the stored event.
// Returns false when no event has that id.
func (s *AccessEventService) UpdateAccessEvent(ctx context.Context, ev types.AccessEvent) (bool, error) {
	ev.BadgeID = strings.TrimSpace(ev.BadgeID)
	ev.AreaName = strings.TrimSpace(ev.AreaName)
	if err := validate(ev); err != nil {
		return false, err
	}
	return s.eventStore.Update(ctx, ev)
}

func (s *AccessEventService) RemoveAccessEvent(ctx context.Context, id int64) (bool, error) {
	return s.eventStore.Remove(ctx, id)
}

func validate(ev types.AccessEvent) error {
	if ev.BadgeID == "" {
		return ErrInvalidBadgeID
	}
	if ev.AreaName == "" {
		return ErrInvalidAreaName
	}
	return nil
}
