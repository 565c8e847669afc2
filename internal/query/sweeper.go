package query

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper entfernt regelmäßig veraltete Einträge aus dem Cache-Store.
type Sweeper struct {
	logger    *slog.Logger
	store     Store
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewSweeper erstellt einen neuen Sweeper. Entries older than retention are
// removed on every tick.
func NewSweeper(logger *slog.Logger, store Store, interval, retention time.Duration) *Sweeper {
	return &Sweeper{
		logger:    logger,
		store:     store,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run startet die Sweep-Schleife und blockiert bis ctx abgebrochen wird.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cache sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce führt einen einzelnen Sweep-Durchlauf aus.
func (s *Sweeper) RunOnce(ctx context.Context) {
	n, err := s.store.Prune(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.logger.Error("sweeper: prune failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("sweeper: pruned cache entries", "count", n)
	}
}
