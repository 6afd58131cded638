package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"invoicedash/internal/core"
)

// Store is an in-memory invoice store. It answers every read from a Dataset
// snapshot and is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	vendors   map[string]core.Vendor
	customers map[string]core.Customer
	invoices  []core.Invoice
	lineItems []core.LineItem
	payments  []core.Payment
}

func New(ds core.Dataset) *Store {
	s := &Store{}
	s.replace(ds)
	return s
}

// NewFromFile loads a JSON dataset. An empty path yields an empty store; a
// path that cannot be read is an error.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(core.Dataset{}), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var ds core.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return New(ds), nil
}

// Load replaces the store contents with ds.
func (s *Store) Load(_ context.Context, ds core.Dataset) error {
	s.replace(ds)
	return nil
}

func (s *Store) replace(ds core.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors = lo.KeyBy(ds.Vendors, func(v core.Vendor) string { return v.ID })
	s.customers = lo.KeyBy(ds.Customers, func(c core.Customer) string { return c.ID })
	s.invoices = append([]core.Invoice(nil), ds.Invoices...)
	s.lineItems = append([]core.LineItem(nil), ds.LineItems...)
	s.payments = append([]core.Payment(nil), ds.Payments...)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) vendorName(id string) string {
	return s.vendors[id].Name
}

func (s *Store) matching(c core.InvoiceCriteria) []core.Invoice {
	return lo.Filter(s.invoices, func(inv core.Invoice, _ int) bool {
		return c.Matches(inv, s.vendorName(inv.VendorID))
	})
}

func (s *Store) InvoiceAmounts(_ context.Context, c core.InvoiceCriteria) ([]core.InvoiceAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.matching(c), func(inv core.Invoice, _ int) core.InvoiceAmount {
		return core.InvoiceAmount{
			ID:        inv.ID,
			IssueDate: inv.IssueDate,
			DueDate:   inv.DueDate,
			Status:    inv.Status,
			Total:     inv.Total,
		}
	}), nil
}

func (s *Store) CountInvoices(_ context.Context, c core.InvoiceCriteria) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(c)), nil
}

func (s *Store) SearchInvoices(_ context.Context, q core.InvoiceQuery) ([]core.InvoiceSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.matching(q.Criteria)
	compare := s.compareFunc(q.SortField)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if q.SortField == core.SortDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
			return b.DueDate == nil
		}
		c := compare(a, b)
		if q.SortOrder == core.SortDesc {
			c = -c
		}
		if c == 0 {
			return a.ID < b.ID
		}
		return c < 0
	})

	start := min(q.Offset(), len(rows))
	end := min(start+q.Limit, len(rows))
	page := make([]core.InvoiceSummary, 0, end-start)
	for _, inv := range rows[start:end] {
		page = append(page, s.summary(inv))
	}
	return page, nil
}

// compareFunc returns a three-way comparison for the sort field. Missing due
// dates are handled by the caller and sort last in either direction.
func (s *Store) compareFunc(field core.SortField) func(a, b core.Invoice) int {
	switch field {
	case core.SortDueDate:
		return func(a, b core.Invoice) int {
			if a.DueDate == nil || b.DueDate == nil {
				return 0
			}
			return a.DueDate.Compare(*b.DueDate)
		}
	case core.SortTotal:
		return func(a, b core.Invoice) int { return a.Total.Cmp(b.Total) }
	case core.SortInvoiceNumber:
		return func(a, b core.Invoice) int { return strings.Compare(a.InvoiceNumber, b.InvoiceNumber) }
	case core.SortStatus:
		return func(a, b core.Invoice) int { return strings.Compare(string(a.Status), string(b.Status)) }
	case core.SortCurrency:
		return func(a, b core.Invoice) int { return strings.Compare(a.CurrencyOrDefault(), b.CurrencyOrDefault()) }
	case core.SortVendor:
		return func(a, b core.Invoice) int {
			return strings.Compare(s.vendorName(a.VendorID), s.vendorName(b.VendorID))
		}
	default:
		return func(a, b core.Invoice) int { return a.IssueDate.Compare(b.IssueDate) }
	}
}

func (s *Store) summary(inv core.Invoice) core.InvoiceSummary {
	var customer *string
	if inv.CustomerID != nil {
		if c, ok := s.customers[*inv.CustomerID]; ok {
			customer = lo.ToPtr(c.Name)
		}
	}
	var due *time.Time
	if inv.DueDate != nil {
		due = lo.ToPtr(inv.DueDate.UTC())
	}
	return core.InvoiceSummary{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Vendor:        s.vendorName(inv.VendorID),
		VendorID:      inv.VendorID,
		Customer:      customer,
		IssueDate:     inv.IssueDate.UTC(),
		DueDate:       due,
		Amount:        inv.Total,
		Status:        inv.Status,
		Currency:      inv.CurrencyOrDefault(),
	}
}

func (s *Store) Vendors(context.Context) ([]core.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := lo.Values(s.vendors)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Payments(_ context.Context, c core.PaymentCriteria) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.payments, func(p core.Payment, _ int) bool { return c.Matches(p) }), nil
}

func (s *Store) LineItems(context.Context) ([]core.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.LineItem(nil), s.lineItems...), nil
}
