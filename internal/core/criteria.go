package core

import (
	"strings"
	"time"

	ierr "invoicedash/internal/errors"
	"invoicedash/internal/validator"
)

const (
	DefaultPage      = 1
	DefaultPageLimit = 50
	MaxPageLimit     = 1000
)

const (
	SortIssueDate     SortField = "issueDate"
	SortDueDate       SortField = "dueDate"
	SortTotal         SortField = "total"
	SortInvoiceNumber SortField = "invoiceNumber"
	SortStatus        SortField = "status"
	SortCurrency      SortField = "currency"
	SortVendor        SortField = "vendor"
)

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type (
	SortField string
	SortOrder string
)

// sortAliases maps every accepted sortBy value onto its canonical field.
var sortAliases = map[string]SortField{
	"issueDate":     SortIssueDate,
	"dueDate":       SortDueDate,
	"total":         SortTotal,
	"amount":        SortTotal,
	"invoiceNumber": SortInvoiceNumber,
	"status":        SortStatus,
	"currency":      SortCurrency,
	"vendor":        SortVendor,
}

// ParseSortField resolves a requested sort key against the allow-list.
// An empty value selects SortIssueDate.
func ParseSortField(s string) (SortField, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortIssueDate, nil
	}
	f, ok := sortAliases[s]
	if !ok {
		return "", ierr.NewError("unsupported sort field " + s).
			WithHint("Invalid sortBy value").
			WithReportableDetails(map[string]any{"sortBy": s}).
			Mark(ierr.ErrValidation)
	}
	return f, nil
}

// ParseSortOrder accepts asc or desc case-insensitively; empty selects desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SortDesc, nil
	case "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	}
	return "", ierr.NewError("unsupported sort order " + s).
		WithHint("Invalid sortOrder value, expected asc or desc").
		WithReportableDetails(map[string]any{"sortOrder": s}).
		Mark(ierr.ErrValidation)
}

// ParseInvoiceStatus accepts a status name case-insensitively.
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ierr.NewError("unknown invoice status " + s).
			WithHint("Invalid status value").
			WithReportableDetails(map[string]any{"status": s, "allowed": InvoiceStatuses()}).
			Mark(ierr.ErrValidation)
	}
	return st, nil
}

// InvoiceCriteria is the typed filter applied to invoice reads. Every set
// field narrows the result; bounds are inclusive.
type InvoiceCriteria struct {
	IssuedFrom     *time.Time
	IssuedTo       *time.Time
	DueFrom        *time.Time
	DueTo          *time.Time
	Statuses       []InvoiceStatus `validate:"dive,oneof=PENDING PAID OVERDUE CANCELLED"`
	RequireDueDate bool
	// Search is matched case-insensitively as a substring of the invoice
	// number or the vendor name.
	Search   string `validate:"max=200"`
	VendorID string `validate:"max=64"`
}

func (c InvoiceCriteria) Validate() error {
	if err := validator.ValidateRequest(c); err != nil {
		return err
	}
	if c.IssuedFrom != nil && c.IssuedTo != nil && c.IssuedFrom.After(*c.IssuedTo) {
		return ierr.NewError("issue range start after end").
			WithHint("Start date must not be after end date").
			Mark(ierr.ErrValidation)
	}
	if c.DueFrom != nil && c.DueTo != nil && c.DueFrom.After(*c.DueTo) {
		return ierr.NewError("due range start after end").
			WithHint("startDate must not be after endDate").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Matches reports whether inv satisfies every criterion. vendorName is the
// name of the invoice's vendor and is consulted by Search only.
func (c InvoiceCriteria) Matches(inv Invoice, vendorName string) bool {
	if c.IssuedFrom != nil && inv.IssueDate.Before(*c.IssuedFrom) {
		return false
	}
	if c.IssuedTo != nil && inv.IssueDate.After(*c.IssuedTo) {
		return false
	}
	if (c.RequireDueDate || c.DueFrom != nil || c.DueTo != nil) && inv.DueDate == nil {
		return false
	}
	if c.DueFrom != nil && inv.DueDate.Before(*c.DueFrom) {
		return false
	}
	if c.DueTo != nil && inv.DueDate.After(*c.DueTo) {
		return false
	}
	if len(c.Statuses) > 0 {
		found := false
		for _, st := range c.Statuses {
			if inv.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.VendorID != "" && inv.VendorID != c.VendorID {
		return false
	}
	if c.Search != "" {
		needle := strings.ToLower(c.Search)
		if !strings.Contains(strings.ToLower(inv.InvoiceNumber), needle) &&
			!strings.Contains(strings.ToLower(vendorName), needle) {
			return false
		}
	}
	return true
}

// InvoiceQuery is a filtered, sorted and paged invoice listing request.
type InvoiceQuery struct {
	Criteria  InvoiceCriteria
	SortField SortField
	SortOrder SortOrder
	Page      int `validate:"min=1"`
	Limit     int `validate:"min=1,max=1000"`
}

func (q InvoiceQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func (q InvoiceQuery) Validate() error {
	if err := validator.ValidateRequest(q); err != nil {
		return err
	}
	if _, ok := sortAliases[string(q.SortField)]; !ok {
		return ierr.NewError("unsupported sort field").
			WithHint("Invalid sortBy value").
			Mark(ierr.ErrValidation)
	}
	if q.SortOrder != SortAsc && q.SortOrder != SortDesc {
		return ierr.NewError("unsupported sort order").
			WithHint("Invalid sortOrder value, expected asc or desc").
			Mark(ierr.ErrValidation)
	}
	return q.Criteria.Validate()
}

// SearchParams is the raw listing request as received from a caller, with
// defaults for absent values already applied.
type SearchParams struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	VendorID  string
	SortBy    string
	SortOrder string
}

// ToQuery converts raw parameters into a validated InvoiceQuery.
func (p SearchParams) ToQuery() (InvoiceQuery, error) {
	q := InvoiceQuery{
		Page:  p.Page,
		Limit: p.Limit,
		Criteria: InvoiceCriteria{
			Search:   strings.TrimSpace(p.Search),
			VendorID: strings.TrimSpace(p.VendorID),
		},
	}
	var err error
	if q.SortField, err = ParseSortField(p.SortBy); err != nil {
		return InvoiceQuery{}, err
	}
	if q.SortOrder, err = ParseSortOrder(p.SortOrder); err != nil {
		return InvoiceQuery{}, err
	}
	if s := strings.TrimSpace(p.Status); s != "" {
		st, err := ParseInvoiceStatus(s)
		if err != nil {
			return InvoiceQuery{}, err
		}
		q.Criteria.Statuses = []InvoiceStatus{st}
	}

	if err := q.Validate(); err != nil {
		return InvoiceQuery{}, err
	}
	return q, nil
}

// PaymentCriteria filters payment reads. PaidFrom is inclusive.
type PaymentCriteria struct {
	PaidFrom *time.Time
}

func (c PaymentCriteria) Matches(p Payment) bool {
	return c.PaidFrom == nil || !p.PaymentDate.Before(*c.PaidFrom)
}

// ParseDateBound reads an optional date filter named name. It accepts
// YYYY-MM-DD (midnight UTC) or RFC 3339; empty input is no bound.
func ParseDateBound(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invalid %s, expected YYYY-MM-DD or RFC 3339", name).
			WithReportableDetails(map[string]any{name: value}).
			Mark(ierr.ErrValidation)
	}
	t = t.UTC()
	return &t, nil
}
