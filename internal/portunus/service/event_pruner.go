package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/store"
)

// EventPruner drops access events older than the retention window.  Pruned
// ids are retired by the store and never handed out again.
//
// Zero retention keeps every event; the pruner then neither starts a loop
// nor deletes anything on PruneNow.
type EventPruner struct {
	events    store.AccessEventStore
	retention time.Duration
	every     time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// PrunerConfig holds the parameters for NewEventPruner.
type PrunerConfig struct {
	RetentionDays int

	// IntervalHours is how often the loop runs.  Defaults to 6.
	IntervalHours int

	// Now is the clock the cutoff is measured from.  Nil means wall time.
	Now func() time.Time
}

func NewEventPruner(s store.AccessEventStore, cfg PrunerConfig, logger *slog.Logger) *EventPruner {
	every := time.Duration(cfg.IntervalHours) * time.Hour
	if every <= 0 {
		every = 6 * time.Hour
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &EventPruner{
		events:    s,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		every:     every,
		now:       now,
		logger:    logger,
	}
}

func (p *EventPruner) Enabled() bool { return p.retention > 0 }

// Cutoff is the instant before which events are pruned, as of now.  An
// event stamped exactly at the cutoff is kept.
func (p *EventPruner) Cutoff() time.Time {
	return p.now().UTC().Add(-p.retention)
}

// PruneNow runs one pass synchronously and returns how many events it
// removed.
func (p *EventPruner) PruneNow(ctx context.Context) (int64, error) {
	if !p.Enabled() {
		return 0, nil
	}
	cutoff := p.Cutoff()
	n, err := p.events.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("PruneNow cutoff=%s: %w", cutoff.Format(time.RFC3339), err)
	}
	return n, nil
}

// Start prunes once right away and then on every interval until ctx ends
// or Stop is called.  Calling Start twice is a no-op.
func (p *EventPruner) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return
	}
	p.done = make(chan struct{})

	if !p.Enabled() {
		p.logger.Info("event pruner disabled", slog.Int("retention_days", 0))
		close(p.done)
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)

	p.logger.Info("event pruner started",
		slog.Int("retention_days", int(p.retention.Hours()/24)),
		slog.Int("interval_hours", int(p.every.Hours())),
	)
}

// Stop ends the loop and waits for it.  Safe to call more than once, and
// before Start.
func (p *EventPruner) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *EventPruner) run(ctx context.Context) {
	defer close(p.done)

	p.pass(ctx)

	ticker := time.NewTicker(p.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *EventPruner) pass(ctx context.Context) {
	deleted, err := p.PruneNow(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("event prune failed", slog.Any("err", err))
		}
		return
	}
	if deleted > 0 {
		p.logger.Info("event prune", slog.Int64("deleted", deleted))
	}
}
