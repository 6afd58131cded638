package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending   InvoiceStatus = "PENDING"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCheck        PaymentMethod = "CHECK"
	MethodCreditCard   PaymentMethod = "CREDIT_CARD"
	MethodCash         PaymentMethod = "CASH"
	MethodOther        PaymentMethod = "OTHER"
)

// DefaultCurrency applies to invoices stored without one.
const DefaultCurrency = "USD"

// UncategorizedLabel is the bucket for spend without a category.
const UncategorizedLabel = "Uncategorized"

type (
	InvoiceStatus string
	PaymentMethod string

	Vendor struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		Email    *string `json:"email,omitempty"`
		Phone    *string `json:"phone,omitempty"`
		Address  *string `json:"address,omitempty"`
		Category *string `json:"category,omitempty"`
	}

	Customer struct {
		ID      string  `json:"id"`
		Name    string  `json:"name"`
		Email   *string `json:"email,omitempty"`
		Phone   *string `json:"phone,omitempty"`
		Address *string `json:"address,omitempty"`
	}

	Invoice struct {
		ID            string        `json:"id"`
		InvoiceNumber string        `json:"invoiceNumber"`
		VendorID      string        `json:"vendorId"`
		CustomerID    *string       `json:"customerId,omitempty"`
		IssueDate     time.Time     `json:"issueDate"`
		DueDate       *time.Time    `json:"dueDate,omitempty"`
		Status        InvoiceStatus `json:"status"`
		Subtotal      Money         `json:"subtotal"`
		Tax           Money         `json:"tax"`
		Total         Money         `json:"total"`
		Currency      string        `json:"currency"`
		Notes         *string       `json:"notes,omitempty"`
	}

	LineItem struct {
		ID          string          `json:"id"`
		InvoiceID   string          `json:"invoiceId"`
		Description string          `json:"description"`
		Quantity    decimal.Decimal `json:"quantity"`
		UnitPrice   Money           `json:"unitPrice"`
		Category    *string         `json:"category,omitempty"`
		Total       Money           `json:"total"`
	}

	Payment struct {
		ID          string        `json:"id"`
		InvoiceID   string        `json:"invoiceId"`
		VendorID    string        `json:"vendorId"`
		Amount      Money         `json:"amount"`
		PaymentDate time.Time     `json:"paymentDate"`
		Method      PaymentMethod `json:"method"`
		Reference   *string       `json:"reference,omitempty"`
	}

	// Dataset is a complete snapshot of the store, used for fixtures and bulk loads.
	Dataset struct {
		Vendors   []Vendor   `json:"vendors"`
		Customers []Customer `json:"customers"`
		Invoices  []Invoice  `json:"invoices"`
		LineItems []LineItem `json:"lineItems"`
		Payments  []Payment  `json:"payments"`
	}
)

var (
	invoiceStatuses = []InvoiceStatus{StatusPending, StatusPaid, StatusOverdue, StatusCancelled}
	paymentMethods  = []PaymentMethod{MethodBankTransfer, MethodCheck, MethodCreditCard, MethodCash, MethodOther}
)

func (s InvoiceStatus) IsValid() bool {
	for _, v := range invoiceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s InvoiceStatus) String() string { return string(s) }

func (m PaymentMethod) IsValid() bool {
	for _, v := range paymentMethods {
		if m == v {
			return true
		}
	}
	return false
}

// InvoiceStatuses returns every known status in declaration order.
func InvoiceStatuses() []InvoiceStatus {
	return append([]InvoiceStatus(nil), invoiceStatuses...)
}

// CurrencyOrDefault returns the invoice currency, falling back to DefaultCurrency.
func (i Invoice) CurrencyOrDefault() string {
	if i.Currency == "" {
		return DefaultCurrency
	}
	return i.Currency
}

// CategoryOrDefault returns the category label, or UncategorizedLabel when unset.
func CategoryOrDefault(category *string) string {
	if category == nil || *category == "" {
		return UncategorizedLabel
	}
	return *category
}

// MonthKey buckets t into its UTC calendar month (YYYY-MM).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DayKey buckets t into its UTC calendar day (YYYY-MM-DD).
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// StartOfYear returns 1 January 00:00 UTC of the year containing now.
func StartOfYear(now time.Time) time.Time {
	return time.Date(now.UTC().Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}
