package core

import (
	"time"
)

type (
	// TrendPoint is one month of invoice activity.
	TrendPoint struct {
		Month        string `json:"month"`
		InvoiceCount int    `json:"invoiceCount"`
		TotalSpend   Money  `json:"totalSpend"`
	}

	VendorSpend struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		TotalSpend Money  `json:"totalSpend"`
	}

	CategorySpend struct {
		Category string `json:"category"`
		Total    Money  `json:"total"`
	}

	// OutflowPoint is the amount falling due on one calendar day.
	OutflowPoint struct {
		Date   string `json:"date"`
		Amount Money  `json:"amount"`
	}

	InvoiceSummary struct {
		ID            string        `json:"id"`
		InvoiceNumber string        `json:"invoiceNumber"`
		Vendor        string        `json:"vendor"`
		VendorID      string        `json:"vendorId"`
		Customer      *string       `json:"customer"`
		IssueDate     time.Time     `json:"issueDate"`
		DueDate       *time.Time    `json:"dueDate"`
		Amount        Money         `json:"amount"`
		Status        InvoiceStatus `json:"status"`
		Currency      string        `json:"currency"`
	}

	Pagination struct {
		Page       int `json:"page"`
		Limit      int `json:"limit"`
		Total      int `json:"total"`
		TotalPages int `json:"totalPages"`
	}

	InvoicePage struct {
		Data       []InvoiceSummary `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}

	OverviewStats struct {
		TotalSpend             Money `json:"totalSpend"`
		TotalInvoicesProcessed int   `json:"totalInvoicesProcessed"`
		DocumentsUploaded      int   `json:"documentsUploaded"`
		AverageInvoiceValue    Money `json:"averageInvoiceValue"`
	}

	// InvoiceAmount is the projection of an invoice used by aggregations.
	InvoiceAmount struct {
		ID        string
		IssueDate time.Time
		DueDate   *time.Time
		Status    InvoiceStatus
		Total     Money
	}
)

// NewPagination computes the page count for total matches; zero matches give zero pages.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
