// Package dataverse reads and writes rows of the project tracking tables,
// either over the Dataverse Web API or from an in-memory table set.
package dataverse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a single record lookup has no match
var ErrNotFound = errors.New("record not found")

// Source is the record store the rest of the application talks to
type Source interface {
	// RetrieveMultiple returns one page of rows. The query is either an
	// encoded Query or the NextLink of a previous page.
	RetrieveMultiple(ctx context.Context, entity, query string) (Page, error)
	RetrieveRecord(ctx context.Context, entity, id, query string) (Record, error)
	UpdateRecord(ctx context.Context, entity, id string, patch Record) error
}

// Page is one response of a multi-record query
type Page struct {
	Entities []Record
	NextLink string // empty on the last page
}

// Query holds the OData system query options used by this application
type Query struct {
	Select  []string
	Filter  string
	OrderBy string
	Top     int
}

// String encodes the query as "?$select=...&$filter=...". Spaces are
// percent-encoded because the Web API does not accept '+' in filters.
func (q Query) String() string {
	var parts []string
	add := func(k, v string) {
		parts = append(parts, k+"="+strings.ReplaceAll(url.QueryEscape(v), "+", "%20"))
	}
	if len(q.Select) > 0 {
		add("$select", strings.Join(q.Select, ","))
	}
	if q.Filter != "" {
		add("$filter", q.Filter)
	}
	if q.OrderBy != "" {
		add("$orderby", q.OrderBy)
	}
	if q.Top > 0 {
		add("$top", strconv.Itoa(q.Top))
	}
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// Quote renders s as an OData string literal
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// APIError is a non-2xx response from the Web API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dataverse: status %d", e.StatusCode)
	}
	return fmt.Sprintf("dataverse: status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a 404
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}
