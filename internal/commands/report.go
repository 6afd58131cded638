package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"invoicedash/internal/core"
	"invoicedash/internal/services"
)

type reportFlags struct {
	months    int
	startDate string
	endDate   string
	search    core.SearchParams
}

type reportFunc func(ctx context.Context, d services.Dashboard, f reportFlags) (any, error)

var reports = map[string]reportFunc{
	"trends": func(ctx context.Context, d services.Dashboard, f reportFlags) (any, error) {
		return d.InvoiceTrends(ctx, f.months)
	},
	"vendors": func(ctx context.Context, d services.Dashboard, _ reportFlags) (any, error) {
		return d.TopVendors(ctx)
	},
	"categories": func(ctx context.Context, d services.Dashboard, _ reportFlags) (any, error) {
		return d.CategorySpend(ctx)
	},
	"outflow": func(ctx context.Context, d services.Dashboard, f reportFlags) (any, error) {
		start, err := core.ParseDateBound("start", f.startDate)
		if err != nil {
			return nil, err
		}
		end, err := core.ParseDateBound("end", f.endDate)
		if err != nil {
			return nil, err
		}
		return d.CashOutflow(ctx, start, end)
	},
	"invoices": func(ctx context.Context, d services.Dashboard, f reportFlags) (any, error) {
		return d.SearchInvoices(ctx, f.search)
	},
	"stats": func(ctx context.Context, d services.Dashboard, _ reportFlags) (any, error) {
		return d.OverviewStats(ctx)
	},
}

func reportNames() []string {
	names := lo.Keys(reports)
	slices.Sort(names)
	return names
}

func newReportCommand(a *app) *cobra.Command {
	var f reportFlags

	cmd := &cobra.Command{
		Use:       "report <operation>",
		Short:     "Print an analytics view as JSON (" + strings.Join(reportNames(), ", ") + ")",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: reportNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			run := reports[args[0]]

			result, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer result.Close()

			out, err := run(cmd.Context(), services.NewAnalytics(result.Backend), f)
			if err != nil {
				return fmt.Errorf("%s report: %w", args[0], err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.months, "months", services.DefaultTrendMonths, "trends: lookback window in months")
	flags.StringVar(&f.startDate, "start", "", "outflow: earliest due date (YYYY-MM-DD or RFC 3339)")
	flags.StringVar(&f.endDate, "end", "", "outflow: latest due date (YYYY-MM-DD or RFC 3339)")
	flags.IntVar(&f.search.Page, "page", core.DefaultPage, "invoices: page number")
	flags.IntVar(&f.search.Limit, "limit", core.DefaultPageLimit, "invoices: page size")
	flags.StringVar(&f.search.Search, "search", "", "invoices: invoice number or vendor name substring")
	flags.StringVar(&f.search.Status, "status", "", "invoices: exact status")
	flags.StringVar(&f.search.VendorID, "vendor", "", "invoices: vendor id")
	flags.StringVar(&f.search.SortBy, "sort-by", "", "invoices: sort field")
	flags.StringVar(&f.search.SortOrder, "sort-order", "", "invoices: asc or desc")
	return cmd
}
