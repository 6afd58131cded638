// Package worker reacts to data-changed notifications from the ingestion side.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"invoicedash/internal/amqp"
)

const defaultWarmTimeout = 30 * time.Second

// ResultCache is the cache the invalidator keeps in step with the store.
type ResultCache interface {
	Invalidate()
	Warm(ctx context.Context) error
}

// Invalidator drops cached dashboard results when data changes and
// recomputes the default views so the next request is served warm.
type Invalidator struct {
	cache       ResultCache
	warmTimeout time.Duration
	handled     atomic.Int64
}

func NewInvalidator(cache ResultCache, warmTimeout time.Duration) *Invalidator {
	if warmTimeout <= 0 {
		warmTimeout = defaultWarmTimeout
	}
	return &Invalidator{cache: cache, warmTimeout: warmTimeout}
}

// HandleDataChanged is an amqp.Handler. The cache is always invalidated; an
// error means only that re-warming failed.
func (w *Invalidator) HandleDataChanged(ctx context.Context, msg *amqp.DataChangedMessage) error {
	start := time.Now()
	w.cache.Invalidate()
	w.handled.Add(1)

	slog.InfoContext(ctx, "Dashboard cache invalidated",
		"entity", msg.Entity,
		"published_at", msg.Timestamp)

	warmCtx, cancel := context.WithTimeout(ctx, w.warmTimeout)
	defer cancel()
	if err := w.cache.Warm(warmCtx); err != nil {
		return fmt.Errorf("rewarm after %s change: %w", msg.Entity, err)
	}

	slog.InfoContext(ctx, "Dashboard cache rewarmed",
		"entity", msg.Entity,
		"duration", time.Since(start))
	return nil
}

// Handled reports how many notifications have been processed.
func (w *Invalidator) Handled() int64 {
	return w.handled.Load()
}
