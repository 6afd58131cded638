package services

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"invoicedash/internal/core"
	ierr "invoicedash/internal/errors"
	"invoicedash/internal/log"
	"invoicedash/internal/records"
)

const (
	// DefaultTrendMonths is the trend window used when a caller gives none.
	DefaultTrendMonths = 12
	topVendorLimit     = 10
)

// Dashboard is the set of read-only analytics operations served over HTTP.
type Dashboard interface {
	InvoiceTrends(ctx context.Context, months int) ([]core.TrendPoint, error)
	TopVendors(ctx context.Context) ([]core.VendorSpend, error)
	CategorySpend(ctx context.Context) ([]core.CategorySpend, error)
	CashOutflow(ctx context.Context, start, end *time.Time) ([]core.OutflowPoint, error)
	SearchInvoices(ctx context.Context, params core.SearchParams) (core.InvoicePage, error)
	OverviewStats(ctx context.Context) (core.OverviewStats, error)
}

// Analytics computes dashboard aggregates directly from the store.
type Analytics struct {
	store records.Store
	now   func() time.Time
}

type AnalyticsOption func(*Analytics)

// WithClock replaces the wall clock used for time windows.
func WithClock(now func() time.Time) AnalyticsOption {
	return func(a *Analytics) { a.now = now }
}

func NewAnalytics(store records.Store, opts ...AnalyticsOption) *Analytics {
	a := &Analytics{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// dataAccess marks a store failure. Validation errors pass through untouched.
func dataAccess(ctx context.Context, err error, op string) error {
	if ierr.IsValidation(err) {
		return err
	}
	log.FromContext(ctx).WithComponent(log.ComponentAnalytics).ErrorContext(ctx, "Store read failed",
		log.FieldOperation, op,
		log.FieldError, err)
	return ierr.WithError(err).
		WithMessage(op).
		WithHintf("Failed to load %s", op).
		Mark(ierr.ErrDataAccess)
}

// InvoiceTrends buckets invoices issued in the last months months by UTC
// calendar month. Months without invoices are omitted.
func (a *Analytics) InvoiceTrends(ctx context.Context, months int) ([]core.TrendPoint, error) {
	if months < 0 {
		return nil, ierr.NewError("negative trend window").
			WithHint("months must not be negative").
			WithReportableDetails(map[string]any{"months": months}).
			Mark(ierr.ErrValidation)
	}

	from := a.now().UTC().AddDate(0, -months, 0)
	rows, err := a.store.InvoiceAmounts(ctx, core.InvoiceCriteria{IssuedFrom: &from})
	if err != nil {
		return nil, dataAccess(ctx, err, "invoice trends")
	}

	buckets := make(map[string]*core.TrendPoint)
	for _, row := range rows {
		key := core.MonthKey(row.IssueDate)
		p, ok := buckets[key]
		if !ok {
			p = &core.TrendPoint{Month: key, TotalSpend: core.Zero}
			buckets[key] = p
		}
		p.InvoiceCount++
		p.TotalSpend = p.TotalSpend.Add(row.Total)
	}

	out := make([]core.TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

// TopVendors ranks vendors by the sum of their payments.
func (a *Analytics) TopVendors(ctx context.Context) ([]core.VendorSpend, error) {
	var (
		vendors  []core.Vendor
		payments []core.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		vendors, err = a.store.Vendors(gctx)
		return err
	})
	g.Go(func() (err error) {
		payments, err = a.store.Payments(gctx, core.PaymentCriteria{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dataAccess(ctx, err, "top vendors")
	}

	paid := paymentsByVendor(payments)
	ranked := lo.Map(vendors, func(v core.Vendor, _ int) core.VendorSpend {
		total, ok := paid[v.ID]
		if !ok {
			total = core.Zero
		}
		return core.VendorSpend{ID: v.ID, Name: v.Name, TotalSpend: total}
	})
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalSpend.Cmp(ranked[j].TotalSpend) > 0
	})

	if len(ranked) > topVendorLimit {
		ranked = ranked[:topVendorLimit]
	}
	return ranked, nil
}

// CategorySpend sums line items by their category and vendor payments by the
// vendor's category into one accumulator. Every vendor contributes its
// category, with a zero total when it has no payments. Spend present in both
// passes is counted twice.
func (a *Analytics) CategorySpend(ctx context.Context) ([]core.CategorySpend, error) {
	var (
		items    []core.LineItem
		vendors  []core.Vendor
		payments []core.Payment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		items, err = a.store.LineItems(gctx)
		return err
	})
	g.Go(func() (err error) {
		vendors, err = a.store.Vendors(gctx)
		return err
	})
	g.Go(func() (err error) {
		payments, err = a.store.Payments(gctx, core.PaymentCriteria{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dataAccess(ctx, err, "category spend")
	}

	totals := make(map[string]core.Money)
	add := func(category *string, amount core.Money) {
		key := core.CategoryOrDefault(category)
		totals[key] = core.Sum(totals[key], amount)
	}

	for _, li := range items {
		add(li.Category, li.Total)
	}

	paid := paymentsByVendor(payments)
	for _, v := range vendors {
		add(v.Category, lo.ValueOr(paid, v.ID, core.Zero))
	}

	out := make([]core.CategorySpend, 0, len(totals))
	for category, total := range totals {
		out = append(out, core.CategorySpend{Category: category, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// CashOutflow totals unpaid invoices by the UTC day they fall due. Both bounds
// are optional and inclusive.
func (a *Analytics) CashOutflow(ctx context.Context, start, end *time.Time) ([]core.OutflowPoint, error) {
	criteria := core.InvoiceCriteria{
		Statuses:       []core.InvoiceStatus{core.StatusPending, core.StatusOverdue},
		RequireDueDate: true,
		DueFrom:        start,
		DueTo:          end,
	}
	if err := criteria.Validate(); err != nil {
		return nil, err
	}

	rows, err := a.store.InvoiceAmounts(ctx, criteria)
	if err != nil {
		return nil, dataAccess(ctx, err, "cash outflow")
	}

	totals := make(map[string]core.Money)
	for _, row := range rows {
		if row.DueDate == nil {
			continue
		}
		key := core.DayKey(*row.DueDate)
		totals[key] = core.Sum(totals[key], row.Total)
	}

	out := make([]core.OutflowPoint, 0, len(totals))
	for day, amount := range totals {
		out = append(out, core.OutflowPoint{Date: day, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// SearchInvoices returns one page of the invoice listing together with the
// total number of matches.
func (a *Analytics) SearchInvoices(ctx context.Context, params core.SearchParams) (core.InvoicePage, error) {
	q, err := params.ToQuery()
	if err != nil {
		return core.InvoicePage{}, err
	}

	var (
		rows  []core.InvoiceSummary
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows, err = a.store.SearchInvoices(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		total, err = a.store.CountInvoices(gctx, q.Criteria)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.InvoicePage{}, dataAccess(ctx, err, "invoices")
	}

	if rows == nil {
		rows = []core.InvoiceSummary{}
	}
	return core.InvoicePage{
		Data:       rows,
		Pagination: core.NewPagination(q.Page, q.Limit, total),
	}, nil
}

// OverviewStats reports year-to-date spend and invoice volume.
func (a *Analytics) OverviewStats(ctx context.Context) (core.OverviewStats, error) {
	yearStart := core.StartOfYear(a.now())

	var (
		payments  []core.Payment
		issued    []core.InvoiceAmount
		documents int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		payments, err = a.store.Payments(gctx, core.PaymentCriteria{PaidFrom: &yearStart})
		return err
	})
	g.Go(func() (err error) {
		issued, err = a.store.InvoiceAmounts(gctx, core.InvoiceCriteria{IssuedFrom: &yearStart})
		return err
	})
	g.Go(func() (err error) {
		documents, err = a.store.CountInvoices(gctx, core.InvoiceCriteria{})
		return err
	})
	if err := g.Wait(); err != nil {
		return core.OverviewStats{}, dataAccess(ctx, err, "overview stats")
	}

	issuedTotal := core.Sum(lo.Map(issued, func(r core.InvoiceAmount, _ int) core.Money { return r.Total })...)
	return core.OverviewStats{
		TotalSpend:             core.Sum(lo.Map(payments, func(p core.Payment, _ int) core.Money { return p.Amount })...),
		TotalInvoicesProcessed: len(issued),
		DocumentsUploaded:      documents,
		AverageInvoiceValue:    issuedTotal.Mean(len(issued)),
	}, nil
}

func paymentsByVendor(payments []core.Payment) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, p := range payments {
		out[p.VendorID] = core.Sum(out[p.VendorID], p.Amount)
	}
	return out
}
