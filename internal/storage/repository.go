package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"invoicedash/internal/core"
	"invoicedash/internal/log"
)

// Dialect selects the SQL engine behind a Repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string { return string(d) }

// sqliteTimeLayout is the fixed-width text form of stored sqlite timestamps.
// Text comparison orders it chronologically down to the nanosecond.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Repository is the SQL implementation of the invoice store ports.
type Repository struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?" + sqlitePragmas

	db, err := sqlx.Open(DialectSQLite.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectSQLite}, nil
}

func NewPostgresRepository(dsn string) (*Repository, error) {
	db, err := sqlx.Connect(DialectPostgres.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dialect: DialectPostgres}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Dialect() Dialect { return r.dialect }

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// timeArg renders t in the form the dialect stores and compares.
func (r *Repository) timeArg(t time.Time) any {
	if r.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (r *Repository) optionalTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return r.timeArg(*t)
}

const invoiceFrom = ` FROM invoices i
	LEFT JOIN vendors v ON v.id = i.vendor_id
	LEFT JOIN customers c ON c.id = i.customer_id`

// invoiceFilter renders c as a WHERE clause over invoiceFrom.
func (r *Repository) invoiceFilter(c core.InvoiceCriteria) (string, []any) {
	var where []string
	var args []any

	if c.IssuedFrom != nil {
		where = append(where, "i.issue_date >= ?")
		args = append(args, r.timeArg(*c.IssuedFrom))
	}
	if c.IssuedTo != nil {
		where = append(where, "i.issue_date <= ?")
		args = append(args, r.timeArg(*c.IssuedTo))
	}
	if c.RequireDueDate || c.DueFrom != nil || c.DueTo != nil {
		where = append(where, "i.due_date IS NOT NULL")
	}
	if c.DueFrom != nil {
		where = append(where, "i.due_date >= ?")
		args = append(args, r.timeArg(*c.DueFrom))
	}
	if c.DueTo != nil {
		where = append(where, "i.due_date <= ?")
		args = append(args, r.timeArg(*c.DueTo))
	}
	if len(c.Statuses) > 0 {
		where = append(where, "i.status IN (?)")
		args = append(args, lo.Map(c.Statuses, func(s core.InvoiceStatus, _ int) string { return string(s) }))
	}
	if c.VendorID != "" {
		where = append(where, "i.vendor_id = ?")
		args = append(args, c.VendorID)
	}
	if c.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(c.Search)) + "%"
		where = append(where, `(LOWER(i.invoice_number) LIKE ? ESCAPE '\' OR LOWER(v.name) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// bind expands slice arguments and rewrites placeholders for the driver.
func (r *Repository) bind(query string, args []any) (string, []any, error) {
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("expand query arguments: %w", err)
	}
	return r.db.Rebind(query), args, nil
}

type invoiceAmountRow struct {
	ID        string     `db:"id"`
	IssueDate dbTime     `db:"issue_date"`
	DueDate   dbTime     `db:"due_date"`
	Status    string     `db:"status"`
	Total     core.Money `db:"total"`
}

func (r *Repository) InvoiceAmounts(ctx context.Context, c core.InvoiceCriteria) ([]core.InvoiceAmount, error) {
	where, args := r.invoiceFilter(c)
	query, args, err := r.bind("SELECT i.id, i.issue_date, i.due_date, i.status, i.total"+invoiceFrom+where+" ORDER BY i.issue_date, i.id", args)
	if err != nil {
		return nil, err
	}

	var rows []invoiceAmountRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select invoice amounts: %w", err)
	}

	return lo.Map(rows, func(row invoiceAmountRow, _ int) core.InvoiceAmount {
		return core.InvoiceAmount{
			ID:        row.ID,
			IssueDate: row.IssueDate.Time,
			DueDate:   row.DueDate.Ptr(),
			Status:    core.InvoiceStatus(row.Status),
			Total:     row.Total,
		}
	}), nil
}

func (r *Repository) CountInvoices(ctx context.Context, c core.InvoiceCriteria) (int, error) {
	where, args := r.invoiceFilter(c)
	query, args, err := r.bind("SELECT COUNT(*)"+invoiceFrom+where, args)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count invoices: %w", err)
	}
	return count, nil
}

type invoiceSummaryRow struct {
	ID            string         `db:"id"`
	InvoiceNumber string         `db:"invoice_number"`
	VendorName    string         `db:"vendor_name"`
	VendorID      string         `db:"vendor_id"`
	CustomerName  sql.NullString `db:"customer_name"`
	IssueDate     dbTime         `db:"issue_date"`
	DueDate       dbTime         `db:"due_date"`
	Total         core.Money     `db:"total"`
	Status        string         `db:"status"`
	Currency      string         `db:"currency"`
}

// sortColumn maps an allow-listed sort field to its SQL expression.
func (r *Repository) sortColumn(f core.SortField) string {
	switch f {
	case core.SortDueDate:
		return "i.due_date"
	case core.SortTotal:
		if r.dialect == DialectSQLite {
			return "CAST(i.total AS REAL)"
		}
		return "i.total"
	case core.SortInvoiceNumber:
		return "i.invoice_number"
	case core.SortStatus:
		return "i.status"
	case core.SortCurrency:
		return "i.currency"
	case core.SortVendor:
		return "COALESCE(v.name, '')"
	default:
		return "i.issue_date"
	}
}

func (r *Repository) SearchInvoices(ctx context.Context, q core.InvoiceQuery) ([]core.InvoiceSummary, error) {
	where, args := r.invoiceFilter(q.Criteria)

	direction := "DESC"
	if q.SortOrder == core.SortAsc {
		direction = "ASC"
	}
	order := fmt.Sprintf(" ORDER BY %s %s", r.sortColumn(q.SortField), direction)
	if q.SortField == core.SortDueDate {
		order += " NULLS LAST"
	}
	order += ", i.id ASC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset())

	query, args, err := r.bind(`SELECT i.id, i.invoice_number, COALESCE(v.name, '') AS vendor_name, i.vendor_id,
	c.name AS customer_name, i.issue_date, i.due_date, i.total, i.status, i.currency`+invoiceFrom+where+order, args)
	if err != nil {
		return nil, err
	}

	var rows []invoiceSummaryRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search invoices: %w", err)
	}

	out := make([]core.InvoiceSummary, 0, len(rows))
	for _, row := range rows {
		currency := row.Currency
		if currency == "" {
			currency = core.DefaultCurrency
		}
		var customer *string
		if row.CustomerName.Valid {
			customer = lo.ToPtr(row.CustomerName.String)
		}
		out = append(out, core.InvoiceSummary{
			ID:            row.ID,
			InvoiceNumber: row.InvoiceNumber,
			Vendor:        row.VendorName,
			VendorID:      row.VendorID,
			Customer:      customer,
			IssueDate:     row.IssueDate.Time,
			DueDate:       row.DueDate.Ptr(),
			Amount:        row.Total,
			Status:        core.InvoiceStatus(row.Status),
			Currency:      currency,
		})
	}
	return out, nil
}

type vendorRow struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	Email    *string `db:"email"`
	Phone    *string `db:"phone"`
	Address  *string `db:"address"`
	Category *string `db:"category"`
}

func (r *Repository) Vendors(ctx context.Context) ([]core.Vendor, error) {
	var rows []vendorRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, name, email, phone, address, category FROM vendors ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("select vendors: %w", err)
	}
	return lo.Map(rows, func(row vendorRow, _ int) core.Vendor {
		return core.Vendor(row)
	}), nil
}

type paymentRow struct {
	ID          string     `db:"id"`
	InvoiceID   string     `db:"invoice_id"`
	VendorID    string     `db:"vendor_id"`
	Amount      core.Money `db:"amount"`
	PaymentDate dbTime     `db:"payment_date"`
	Method      string     `db:"method"`
	Reference   *string    `db:"reference"`
}

func (r *Repository) Payments(ctx context.Context, c core.PaymentCriteria) ([]core.Payment, error) {
	query := "SELECT id, invoice_id, vendor_id, amount, payment_date, method, reference FROM payments"
	var args []any
	if c.PaidFrom != nil {
		query += " WHERE payment_date >= ?"
		args = append(args, r.timeArg(*c.PaidFrom))
	}
	query += " ORDER BY payment_date, id"

	var rows []paymentRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	return lo.Map(rows, func(row paymentRow, _ int) core.Payment {
		return core.Payment{
			ID:          row.ID,
			InvoiceID:   row.InvoiceID,
			VendorID:    row.VendorID,
			Amount:      row.Amount,
			PaymentDate: row.PaymentDate.Time,
			Method:      core.PaymentMethod(row.Method),
			Reference:   row.Reference,
		}
	}), nil
}

type lineItemRow struct {
	ID          string          `db:"id"`
	InvoiceID   string          `db:"invoice_id"`
	Description string          `db:"description"`
	Quantity    decimal.Decimal `db:"quantity"`
	UnitPrice   core.Money      `db:"unit_price"`
	Category    *string         `db:"category"`
	Total       core.Money      `db:"total"`
}

func (r *Repository) LineItems(ctx context.Context) ([]core.LineItem, error) {
	var rows []lineItemRow
	if err := r.db.SelectContext(ctx, &rows, "SELECT id, invoice_id, description, quantity, unit_price, category, total FROM line_items ORDER BY id"); err != nil {
		return nil, fmt.Errorf("select line items: %w", err)
	}
	return lo.Map(rows, func(row lineItemRow, _ int) core.LineItem {
		return core.LineItem(row)
	}), nil
}

// Load inserts every row of ds in one transaction.
func (r *Repository) Load(ctx context.Context, ds core.Dataset) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	exec := func(query string, args ...any) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		return err
	}

	for _, v := range ds.Vendors {
		if err := exec(`INSERT INTO vendors (id, name, email, phone, address, category) VALUES (?, ?, ?, ?, ?, ?)`,
			v.ID, v.Name, v.Email, v.Phone, v.Address, v.Category); err != nil {
			return fmt.Errorf("insert vendor %s: %w", v.ID, err)
		}
	}
	for _, c := range ds.Customers {
		if err := exec(`INSERT INTO customers (id, name, email, phone, address) VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Email, c.Phone, c.Address); err != nil {
			return fmt.Errorf("insert customer %s: %w", c.ID, err)
		}
	}
	for _, inv := range ds.Invoices {
		if err := exec(`INSERT INTO invoices (id, invoice_number, vendor_id, customer_id, issue_date, due_date, status, subtotal, tax, total, currency, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.InvoiceNumber, inv.VendorID, inv.CustomerID, r.timeArg(inv.IssueDate), r.optionalTimeArg(inv.DueDate),
			string(inv.Status), inv.Subtotal, inv.Tax, inv.Total, inv.CurrencyOrDefault(), inv.Notes); err != nil {
			return fmt.Errorf("insert invoice %s: %w", inv.ID, err)
		}
	}
	for _, li := range ds.LineItems {
		if err := exec(`INSERT INTO line_items (id, invoice_id, description, quantity, unit_price, category, total) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			li.ID, li.InvoiceID, li.Description, li.Quantity, li.UnitPrice, li.Category, li.Total); err != nil {
			return fmt.Errorf("insert line item %s: %w", li.ID, err)
		}
	}
	for _, p := range ds.Payments {
		if err := exec(`INSERT INTO payments (id, invoice_id, vendor_id, amount, payment_date, method, reference) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.InvoiceID, p.VendorID, p.Amount, r.timeArg(p.PaymentDate), string(p.Method), p.Reference); err != nil {
			return fmt.Errorf("insert payment %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Dataset loaded",
		"dialect", r.dialect,
		"vendors", len(ds.Vendors),
		"customers", len(ds.Customers),
		"invoices", len(ds.Invoices),
		"line_items", len(ds.LineItems),
		"payments", len(ds.Payments))

	return nil
}
