package dataverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	// MaxRecords bounds a single paged fetch against a misbehaving backend
	MaxRecords = 50000

	// BatchSize is the number of ids per OR filter, which keeps request
	// URLs under the gateway length limit
	BatchSize = 50
)

// FetchAll follows continuation links until the last page or until more than
// MaxRecords rows have arrived, in which case the result is truncated to
// MaxRecords. A failed page returns the rows fetched so far with the error.
func FetchAll(ctx context.Context, src Source, entity, query string) ([]Record, error) {
	var all []Record
	next := query
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		p, err := src.RetrieveMultiple(ctx, entity, next)
		if err != nil {
			return all, fmt.Errorf("fetch %s page %d: %w", entity, page, err)
		}
		all = append(all, p.Entities...)
		slog.Debug("fetched page", "entity", entity, "page", page, "rows", len(p.Entities), "total", len(all))

		if len(all) > MaxRecords {
			slog.Warn("record cap reached, truncating", "entity", entity, "cap", MaxRecords)
			return all[:MaxRecords], nil
		}
		if p.NextLink == "" || p.NextLink == next {
			return all, nil
		}
		next = p.NextLink
	}
}

// Batched splits ids into groups of at most size, dropping blanks and
// duplicates while keeping first-seen order
func Batched(ids []string, size int) [][]string {
	if size <= 0 {
		size = BatchSize
	}
	seen := make(map[string]bool, len(ids))
	var batches [][]string
	var cur []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		cur = append(cur, id)
		if len(cur) == size {
			batches = append(batches, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		batches = append(batches, cur)
	}
	return batches
}

// OrFilter builds "(field eq a or field eq b ...)" for unquoted id values
func OrFilter(field string, ids []string) string {
	terms := make([]string, len(ids))
	for i, id := range ids {
		terms[i] = field + " eq " + id
	}
	return "(" + strings.Join(terms, " or ") + ")"
}

// FetchByIDs runs one paged fetch per batch of ids, combining filter with
// the batch's OR filter. Failed batches are skipped and reported together.
func FetchByIDs(ctx context.Context, src Source, entity string, q Query, field string, ids []string) ([]Record, error) {
	var all []Record
	var errs []error
	base := q.Filter
	for _, batch := range Batched(ids, BatchSize) {
		q.Filter = OrFilter(field, batch)
		if base != "" {
			q.Filter = base + " and " + q.Filter
		}
		recs, err := FetchAll(ctx, src, entity, q.String())
		all = append(all, recs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return all, errors.Join(errs...)
}
