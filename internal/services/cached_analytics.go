package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicedash/internal/cache"
	"invoicedash/internal/core"
	"invoicedash/internal/log"
)

// CachedAnalytics serves Dashboard results from a cache until Invalidate is
// called or the entry expires. Failed computations are never cached.
type CachedAnalytics struct {
	next  Dashboard
	cache cache.Cache[any]
	// generation increments on every Invalidate so that a computation that
	// started before it cannot repopulate the cache with stale data.
	generation atomic.Uint64
}

func NewCachedAnalytics(next Dashboard, c cache.Cache[any]) *CachedAnalytics {
	return &CachedAnalytics{next: next, cache: c}
}

func cached[T any](ca *CachedAnalytics, key string, load func() (T, error)) (T, error) {
	if v, ok := ca.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	gen := ca.generation.Load()
	v, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	if ca.generation.Load() == gen {
		ca.cache.Set(key, v)
	}
	return v, nil
}

func (ca *CachedAnalytics) InvoiceTrends(ctx context.Context, months int) ([]core.TrendPoint, error) {
	return cached(ca, fmt.Sprintf("trends:%d", months), func() ([]core.TrendPoint, error) {
		return ca.next.InvoiceTrends(ctx, months)
	})
}

func (ca *CachedAnalytics) TopVendors(ctx context.Context) ([]core.VendorSpend, error) {
	return cached(ca, "top-vendors", func() ([]core.VendorSpend, error) {
		return ca.next.TopVendors(ctx)
	})
}

func (ca *CachedAnalytics) CategorySpend(ctx context.Context) ([]core.CategorySpend, error) {
	return cached(ca, "category-spend", func() ([]core.CategorySpend, error) {
		return ca.next.CategorySpend(ctx)
	})
}

func (ca *CachedAnalytics) CashOutflow(ctx context.Context, start, end *time.Time) ([]core.OutflowPoint, error) {
	key := fmt.Sprintf("cash-outflow:%s:%s", timeKey(start), timeKey(end))
	return cached(ca, key, func() ([]core.OutflowPoint, error) {
		return ca.next.CashOutflow(ctx, start, end)
	})
}

func (ca *CachedAnalytics) SearchInvoices(ctx context.Context, params core.SearchParams) (core.InvoicePage, error) {
	return cached(ca, fmt.Sprintf("invoices:%+v", params), func() (core.InvoicePage, error) {
		return ca.next.SearchInvoices(ctx, params)
	})
}

func (ca *CachedAnalytics) OverviewStats(ctx context.Context) (core.OverviewStats, error) {
	return cached(ca, "stats", func() (core.OverviewStats, error) {
		return ca.next.OverviewStats(ctx)
	})
}

// Invalidate drops every cached result.
func (ca *CachedAnalytics) Invalidate() {
	ca.generation.Add(1)
	ca.cache.Purge()
}

// Warm computes and caches the default dashboard views.
func (ca *CachedAnalytics) Warm(ctx context.Context) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := ca.OverviewStats(gctx)
		return err
	})
	g.Go(func() error {
		_, err := ca.InvoiceTrends(gctx, DefaultTrendMonths)
		return err
	})
	g.Go(func() error {
		_, err := ca.TopVendors(gctx)
		return err
	})
	g.Go(func() error {
		_, err := ca.CategorySpend(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("warm dashboard cache: %w", err)
	}
	log.FromContext(ctx).WithComponent(log.ComponentCache).InfoContext(ctx, "Dashboard cache warmed",
		"duration", time.Since(start))
	return nil
}

func timeKey(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
