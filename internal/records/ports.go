package records

import (
	"context"

	"invoicedash/internal/core"
)

// Ports for the read side of the invoice store.
type (
	InvoiceReader interface {
		// InvoiceAmounts returns the aggregation projection of every invoice matching c.
		InvoiceAmounts(ctx context.Context, c core.InvoiceCriteria) ([]core.InvoiceAmount, error)
		// CountInvoices counts invoices matching c.
		CountInvoices(ctx context.Context, c core.InvoiceCriteria) (int, error)
		// SearchInvoices returns one sorted page of listing rows for q.
		SearchInvoices(ctx context.Context, q core.InvoiceQuery) ([]core.InvoiceSummary, error)
	}

	VendorReader interface {
		// Vendors returns every vendor ordered by name, then id.
		Vendors(ctx context.Context) ([]core.Vendor, error)
	}

	PaymentReader interface {
		Payments(ctx context.Context, c core.PaymentCriteria) ([]core.Payment, error)
	}

	LineItemReader interface {
		LineItems(ctx context.Context) ([]core.LineItem, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is the full read surface the analytics layer depends on.
	Store interface {
		InvoiceReader
		VendorReader
		PaymentReader
		LineItemReader
		Pinger
	}

	// Loader bulk-inserts a dataset. Used by fixtures and the admin CLI.
	Loader interface {
		Load(ctx context.Context, ds core.Dataset) error
	}
)
