// Package recordstest provides a shared dataset and a behavioural suite that
// every records.Store implementation runs against.
package recordstest

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"invoicedash/internal/core"
)

func Day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func DayPtr(s string) *time.Time {
	return lo.ToPtr(Day(s))
}

// Dataset returns a small ledger covering every sort and filter edge:
// a missing due date, a missing customer, a blank currency, tied due dates,
// LIKE metacharacters in an invoice number and a vendor without invoices.
func Dataset() core.Dataset {
	return core.Dataset{
		Vendors: []core.Vendor{
			{ID: "v-1", Name: "Acme Corp", Category: lo.ToPtr("Software")},
			{ID: "v-2", Name: "Globex"},
			{ID: "v-3", Name: "Initech", Category: lo.ToPtr("Consulting"), Email: lo.ToPtr("billing@initech.test")},
			{ID: "v-4", Name: "Zeta Supplies"},
		},
		Customers: []core.Customer{
			{ID: "c-1", Name: "Wayne Enterprises"},
		},
		Invoices: []core.Invoice{
			{
				ID: "inv-1", InvoiceNumber: "INV-001", VendorID: "v-1", CustomerID: lo.ToPtr("c-1"),
				IssueDate: Day("2024-01-15"), DueDate: DayPtr("2024-02-15"), Status: core.StatusPaid,
				Subtotal: core.MustMoney("90.10"), Tax: core.MustMoney("10.00"), Total: core.MustMoney("100.10"), Currency: "USD",
			},
			{
				ID: "inv-2", InvoiceNumber: "INV-002", VendorID: "v-1",
				IssueDate: Day("2024-02-10"), DueDate: DayPtr("2024-03-10"), Status: core.StatusPending,
				Subtotal: core.MustMoney("200.20"), Tax: core.Zero, Total: core.MustMoney("200.20"),
			},
			{
				ID: "inv-3", InvoiceNumber: "INV-003", VendorID: "v-2",
				IssueDate: Day("2024-02-20"), Status: core.StatusOverdue,
				Subtotal: core.MustMoney("300.30"), Tax: core.Zero, Total: core.MustMoney("300.30"), Currency: "EUR",
			},
			{
				ID: "inv-4", InvoiceNumber: "INV-004", VendorID: "v-3",
				IssueDate: Day("2024-03-05"), DueDate: DayPtr("2024-03-10"), Status: core.StatusPending,
				Subtotal: core.MustMoney("50"), Tax: core.Zero, Total: core.MustMoney("50.00"), Currency: "USD",
			},
			{
				ID: "inv-5", InvoiceNumber: "INV_100%", VendorID: "v-2",
				IssueDate: Day("2023-12-01"), DueDate: DayPtr("2024-01-01"), Status: core.StatusCancelled,
				Subtotal: core.MustMoney("999.99"), Tax: core.Zero, Total: core.MustMoney("999.99"), Currency: "USD",
				Notes: lo.ToPtr("voided"),
			},
		},
		LineItems: []core.LineItem{
			{ID: "li-1", InvoiceID: "inv-1", Description: "Licences", Quantity: decimal.NewFromInt(1), UnitPrice: core.MustMoney("100.10"), Category: lo.ToPtr("Software"), Total: core.MustMoney("100.10")},
			{ID: "li-2", InvoiceID: "inv-2", Description: "Support", Quantity: decimal.NewFromInt(2), UnitPrice: core.MustMoney("100.10"), Total: core.MustMoney("200.20")},
			{ID: "li-3", InvoiceID: "inv-3", Description: "Servers", Quantity: decimal.NewFromInt(3), UnitPrice: core.MustMoney("100.10"), Category: lo.ToPtr("Hardware"), Total: core.MustMoney("300.30")},
			{ID: "li-4", InvoiceID: "inv-4", Description: "Audit", Quantity: decimal.RequireFromString("0.5"), UnitPrice: core.MustMoney("100"), Category: lo.ToPtr("Consulting"), Total: core.MustMoney("50.00")},
		},
		Payments: []core.Payment{
			{ID: "p-1", InvoiceID: "inv-1", VendorID: "v-1", Amount: core.MustMoney("100.10"), PaymentDate: Day("2024-02-01"), Method: core.MethodBankTransfer, Reference: lo.ToPtr("TX-1")},
		},
	}
}
