package dataverse

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Record is one entity row as decoded from the Web API
type Record map[string]any

// String returns the field as a string, or "" when absent
func (r Record) String(field string) string {
	switch v := r[field].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Int returns the field as an int. The second value is false for absent or
// non-numeric fields.
func (r Record) Int(field string) (int, bool) {
	switch v := r[field].(type) {
	case float64:
		return int(math.Round(v)), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return int(math.Round(f)), true
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

// IntPtr is Int as a pointer, nil when absent
func (r Record) IntPtr(field string) *int {
	if n, ok := r.Int(field); ok {
		return &n
	}
	return nil
}

// Bool returns the field as a bool, false when absent
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Time parses a date or date-time field. Date-only values are midnight local
// time, matching how the backend's date-only columns are displayed.
func (r Record) Time(field string) *time.Time {
	s := r.String(field)
	if s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return &t
	}
	return nil
}

// Nested returns an expanded navigation property
func (r Record) Nested(field string) Record {
	switch v := r[field].(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	}
	return nil
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}
