package recordstest

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicedash/internal/core"
	"invoicedash/internal/records"
)

func query(field core.SortField, order core.SortOrder) core.InvoiceQuery {
	return core.InvoiceQuery{SortField: field, SortOrder: order, Page: 1, Limit: core.DefaultPageLimit}
}

func summaryIDs(rows []core.InvoiceSummary) []string {
	return lo.Map(rows, func(r core.InvoiceSummary, _ int) string { return r.ID })
}

// RunStoreSuite checks s, which must hold Dataset(), against the read contract.
func RunStoreSuite(t *testing.T, s records.Store) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("count", func(t *testing.T) {
		tests := []struct {
			name     string
			criteria core.InvoiceCriteria
			want     int
		}{
			{"all", core.InvoiceCriteria{}, 5},
			{"vendor", core.InvoiceCriteria{VendorID: "v-2"}, 2},
			{"status", core.InvoiceCriteria{Statuses: []core.InvoiceStatus{core.StatusPending, core.StatusOverdue}}, 3},
			{"due day", core.InvoiceCriteria{DueFrom: DayPtr("2024-03-10"), DueTo: DayPtr("2024-03-10")}, 2},
			{"require due date", core.InvoiceCriteria{RequireDueDate: true}, 4},
			{"search vendor any case", core.InvoiceCriteria{Search: "aCmE"}, 2},
			{"search percent is literal", core.InvoiceCriteria{Search: "%"}, 1},
			{"search underscore is literal", core.InvoiceCriteria{Search: "_"}, 1},
			{"issued window", core.InvoiceCriteria{IssuedFrom: DayPtr("2024-02-01"), IssuedTo: DayPtr("2024-02-29")}, 2},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := s.CountInvoices(ctx, tt.criteria)
				require.NoError(t, err)
				assert.Equal(t, tt.want, n)
			})
		}
	})

	t.Run("invoice amounts", func(t *testing.T) {
		rows, err := s.InvoiceAmounts(ctx, core.InvoiceCriteria{IssuedFrom: DayPtr("2024-02-01")})
		require.NoError(t, err)
		ids := lo.Map(rows, func(r core.InvoiceAmount, _ int) string { return r.ID })
		assert.ElementsMatch(t, []string{"inv-2", "inv-3", "inv-4"}, ids)

		byID := lo.KeyBy(rows, func(r core.InvoiceAmount) string { return r.ID })
		assert.True(t, byID["inv-2"].Total.Equal(core.MustMoney("200.20")))
		assert.Nil(t, byID["inv-3"].DueDate)
		require.NotNil(t, byID["inv-4"].DueDate)
		assert.True(t, byID["inv-4"].DueDate.Equal(Day("2024-03-10")))
		assert.Equal(t, core.StatusPending, byID["inv-4"].Status)
	})

	t.Run("sorting", func(t *testing.T) {
		tests := []struct {
			name  string
			query core.InvoiceQuery
			want  []string
		}{
			{"default issue date desc", query(core.SortIssueDate, core.SortDesc), []string{"inv-4", "inv-3", "inv-2", "inv-1", "inv-5"}},
			{"due date asc nulls last", query(core.SortDueDate, core.SortAsc), []string{"inv-5", "inv-1", "inv-2", "inv-4", "inv-3"}},
			{"due date desc nulls last", query(core.SortDueDate, core.SortDesc), []string{"inv-2", "inv-4", "inv-1", "inv-5", "inv-3"}},
			{"total numeric asc", query(core.SortTotal, core.SortAsc), []string{"inv-4", "inv-1", "inv-2", "inv-3", "inv-5"}},
			{"vendor asc ties by id", query(core.SortVendor, core.SortAsc), []string{"inv-1", "inv-2", "inv-3", "inv-5", "inv-4"}},
			{"status asc", query(core.SortStatus, core.SortAsc), []string{"inv-5", "inv-3", "inv-1", "inv-2", "inv-4"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rows, err := s.SearchInvoices(ctx, tt.query)
				require.NoError(t, err)
				assert.Equal(t, tt.want, summaryIDs(rows))
			})
		}
	})

	t.Run("paging", func(t *testing.T) {
		q := query(core.SortIssueDate, core.SortDesc)
		q.Page, q.Limit = 2, 2
		rows, err := s.SearchInvoices(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, []string{"inv-2", "inv-1"}, summaryIDs(rows))

		q.Page = 4
		rows, err = s.SearchInvoices(ctx, q)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("summary rows", func(t *testing.T) {
		q := query(core.SortInvoiceNumber, core.SortAsc)
		q.Criteria.Search = "inv-00"
		rows, err := s.SearchInvoices(ctx, q)
		require.NoError(t, err)
		require.Equal(t, []string{"inv-1", "inv-2", "inv-3", "inv-4"}, summaryIDs(rows))

		first := rows[0]
		assert.Equal(t, "INV-001", first.InvoiceNumber)
		assert.Equal(t, "Acme Corp", first.Vendor)
		assert.Equal(t, "v-1", first.VendorID)
		require.NotNil(t, first.Customer)
		assert.Equal(t, "Wayne Enterprises", *first.Customer)
		assert.True(t, first.IssueDate.Equal(Day("2024-01-15")))
		assert.True(t, first.Amount.Equal(core.MustMoney("100.10")))
		assert.Equal(t, core.StatusPaid, first.Status)

		assert.Nil(t, rows[1].Customer)
		assert.Equal(t, core.DefaultCurrency, rows[1].Currency)
		assert.Nil(t, rows[2].DueDate)
		assert.Equal(t, "EUR", rows[2].Currency)
	})

	t.Run("vendors ordered by name", func(t *testing.T) {
		vendors, err := s.Vendors(ctx)
		require.NoError(t, err)
		names := lo.Map(vendors, func(v core.Vendor, _ int) string { return v.Name })
		assert.Equal(t, []string{"Acme Corp", "Globex", "Initech", "Zeta Supplies"}, names)
		assert.Nil(t, vendors[1].Category)
		require.NotNil(t, vendors[2].Email)
		assert.Equal(t, "billing@initech.test", *vendors[2].Email)
	})

	t.Run("payments", func(t *testing.T) {
		all, err := s.Payments(ctx, core.PaymentCriteria{PaidFrom: DayPtr("2024-01-01")})
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.True(t, all[0].Amount.Equal(core.MustMoney("100.10")))
		assert.Equal(t, core.MethodBankTransfer, all[0].Method)

		none, err := s.Payments(ctx, core.PaymentCriteria{PaidFrom: DayPtr("2024-03-01")})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("line items", func(t *testing.T) {
		items, err := s.LineItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 4)
		byID := lo.KeyBy(items, func(li core.LineItem) string { return li.ID })
		assert.Nil(t, byID["li-2"].Category)
		assert.Equal(t, "0.5", byID["li-4"].Quantity.String())
		assert.True(t, byID["li-3"].Total.Equal(core.MustMoney("300.30")))
	})
}
