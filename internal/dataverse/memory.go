package dataverse

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const memoryLinkPrefix = "memory:"

// Update is one UpdateRecord call seen by a Memory source
type Update struct {
	Entity string
	ID     string
	Patch  Record
}

// Memory is a Source backed by in-process tables. It serves offline mode and
// tests, so it pages like the Web API and can be told to fail.
type Memory struct {
	mu       sync.Mutex
	tables   map[string][]Record
	updates  []Update
	PageSize int

	// FailRetrieve makes RetrieveMultiple fail for the named entities
	FailRetrieve map[string]error
	// FailUpdate, when set, is consulted before every update
	FailUpdate func(entity, id string) error
}

// NewMemory returns an empty source with the given page size
func NewMemory(pageSize int) *Memory {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Memory{
		tables:       make(map[string][]Record),
		PageSize:     pageSize,
		FailRetrieve: make(map[string]error),
	}
}

// Add appends rows to an entity table
func (m *Memory) Add(entity string, recs ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.tables[entity] = append(m.tables[entity], r.Clone())
	}
}

// Updates returns the updates applied so far
func (m *Memory) Updates() []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Update(nil), m.updates...)
}

func (m *Memory) RetrieveMultiple(ctx context.Context, entity, query string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailRetrieve[entity]; err != nil {
		return Page{}, err
	}

	skip := 0
	if rest, ok := strings.CutPrefix(query, memoryLinkPrefix); ok {
		// memory:<entity>:<skip>:<original query>
		parts := strings.SplitN(rest, ":", 3)
		if len(parts) != 3 || parts[0] != entity {
			return Page{}, fmt.Errorf("invalid continuation link %q", query)
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Page{}, fmt.Errorf("invalid continuation link %q", query)
		}
		skip, query = n, parts[2]
	}

	opts, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return Page{}, fmt.Errorf("invalid query: %w", err)
	}
	match, err := compileFilter(opts.Get("$filter"))
	if err != nil {
		return Page{}, err
	}

	var rows []Record
	for _, r := range m.tables[entity] {
		if match(r) {
			rows = append(rows, r)
		}
	}
	if ob := opts.Get("$orderby"); ob != "" {
		sortRows(rows, ob)
	}
	if top, err := strconv.Atoi(opts.Get("$top")); err == nil && top < len(rows) {
		rows = rows[:top]
	}

	if skip > len(rows) {
		skip = len(rows)
	}
	end := min(skip+m.PageSize, len(rows))
	page := Page{Entities: make([]Record, 0, end-skip)}
	for _, r := range rows[skip:end] {
		page.Entities = append(page.Entities, r.Clone())
	}
	if end < len(rows) {
		page.NextLink = fmt.Sprintf("%s%s:%d:%s", memoryLinkPrefix, entity, end, query)
	}
	return page, nil
}

func (m *Memory) RetrieveRecord(ctx context.Context, entity, id, query string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailRetrieve[entity]; err != nil {
		return nil, err
	}
	if r := m.find(entity, id); r != nil {
		return r.Clone(), nil
	}
	return nil, fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

func (m *Memory) UpdateRecord(ctx context.Context, entity, id string, patch Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpdate != nil {
		if err := m.FailUpdate(entity, id); err != nil {
			return err
		}
	}
	r := m.find(entity, id)
	if r == nil {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	for k, v := range patch {
		r[k] = v
	}
	m.updates = append(m.updates, Update{Entity: entity, ID: id, Patch: patch.Clone()})
	return nil
}

func (m *Memory) find(entity, id string) Record {
	key := PrimaryKey(entity)
	for _, r := range m.tables[entity] {
		if strings.EqualFold(r.String(key), id) {
			return r
		}
	}
	return nil
}

// sortRows applies "field [asc|desc]"; only the first key is honoured
func sortRows(rows []Record, orderBy string) {
	first, _, _ := strings.Cut(orderBy, ",")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return
	}
	field := fields[0]
	desc := len(fields) > 1 && strings.EqualFold(fields[1], "desc")
	sort.SliceStable(rows, func(i, j int) bool {
		a := strings.ToLower(rows[i].String(field))
		b := strings.ToLower(rows[j].String(field))
		if desc {
			return a > b
		}
		return a < b
	})
}
