package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/landing/internal/logger"
)

// DefaultGCInterval is how often expired in-process entries are swept.
const DefaultGCInterval = 10 * time.Minute

// Sweeper drops expired entries and reports how many went away.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// GarbageCollector periodically sweeps the in-process cache. Expired
// entries are already invisible to readers; sweeping only bounds memory.
// Redis expires keys on its own and needs no collector.
type GarbageCollector struct {
	store    Sweeper
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(store Sweeper, log logger.Logger, interval time.Duration) *GarbageCollector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}

	return &GarbageCollector{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect runs one sweep.
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	removed, err := gc.store.Sweep(ctx)
	if err != nil {
		return err
	}

	if removed > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("expired_removed", removed))
	} else {
		gc.logger.Debug("no expired entries to collect")
	}
	return nil
}
