package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"invoicedash/internal/core"
	ierr "invoicedash/internal/errors"
	"invoicedash/internal/services"
)

const maxChatBodyBytes = 64 << 10

// ParseMonths reads the trend window. Missing, non-numeric and negative values
// fall back to the default window instead of failing.
func ParseMonths(query url.Values) int {
	v := strings.TrimSpace(query.Get("months"))
	if v == "" {
		return services.DefaultTrendMonths
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return services.DefaultTrendMonths
	}
	return n
}

// ParseDateRange reads the optional startDate and endDate bounds.
func ParseDateRange(query url.Values) (start, end *time.Time, err error) {
	if start, err = core.ParseDateBound("startDate", query.Get("startDate")); err != nil {
		return nil, nil, err
	}
	if end, err = core.ParseDateBound("endDate", query.Get("endDate")); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// ParseSearchParams applies listing defaults. Present but non-numeric page or
// limit values are rejected; range checks happen in the query validation.
func ParseSearchParams(query url.Values) (core.SearchParams, error) {
	page, err := intParam(query, "page", core.DefaultPage)
	if err != nil {
		return core.SearchParams{}, err
	}
	limit, err := intParam(query, "limit", core.DefaultPageLimit)
	if err != nil {
		return core.SearchParams{}, err
	}
	return core.SearchParams{
		Page:      page,
		Limit:     limit,
		Search:    query.Get("search"),
		Status:    query.Get("status"),
		VendorID:  query.Get("vendorId"),
		SortBy:    query.Get("sortBy"),
		SortOrder: query.Get("sortOrder"),
	}, nil
}

func intParam(query url.Values, name string, defaultValue int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHintf("Invalid %s, expected an integer", name).
			WithReportableDetails(map[string]any{name: v}).
			Mark(ierr.ErrValidation)
	}
	return n, nil
}

// ParseChatQuery extracts the query string from a {"query": "..."} body.
func ParseChatQuery(r *http.Request) (string, error) {
	var body struct {
		Query json.RawMessage `json:"query"`
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxChatBodyBytes+1))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to read request body").
			Mark(ierr.ErrValidation)
	}
	if len(raw) > maxChatBodyBytes {
		return "", ierr.NewError("chat body too large").
			WithHint("Request body is too large").
			Mark(ierr.ErrValidation)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", queryRequired(err)
	}

	var query string
	if len(body.Query) == 0 || json.Unmarshal(body.Query, &query) != nil || strings.TrimSpace(query) == "" {
		return "", queryRequired(nil)
	}
	return query, nil
}

func queryRequired(cause error) error {
	b := ierr.NewError("query missing or not a string")
	if cause != nil {
		b = ierr.WithError(cause)
	}
	return b.WithHint("Query is required").Mark(ierr.ErrValidation)
}
