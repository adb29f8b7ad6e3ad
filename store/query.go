package store

import (
	"sort"
	"time"
)

// Op is a filter operator.
type Op string

const (
	OpEqual         Op = "=="
	OpArrayContains Op = "array-contains"
)

// Filter constrains one field of every record in a query result.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects records from one collection. Filters are ANDed. When
// OrderBy is empty the backend's native ordering applies; ties under
// OrderBy also fall back to the native ordering (backends sort stably).
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// MatchRecord reports whether a record satisfies every filter.
func MatchRecord(q Query, rec Record) bool {
	for _, f := range q.Filters {
		if !matchFilter(f, rec.Data) {
			return false
		}
	}
	return true
}

func matchFilter(f Filter, data map[string]any) bool {
	val, ok := data[f.Field]
	if !ok {
		return false
	}
	switch f.Op {
	case OpEqual:
		return equalValues(val, f.Value)
	case OpArrayContains:
		switch items := val.(type) {
		case []any:
			for _, item := range items {
				if equalValues(item, f.Value) {
					return true
				}
			}
		case []string:
			for _, item := range items {
				if equalValues(item, f.Value) {
					return true
				}
			}
		}
		return false
	}
	return false
}

// SortRecords orders records in place per the query, stably so that the
// backend's native ordering breaks ties.
func SortRecords(q Query, recs []Record) {
	if q.OrderBy == "" {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		c := compareValues(recs[i].Data[q.OrderBy], recs[j].Data[q.OrderBy])
		if q.Descending {
			return c > 0
		}
		return c < 0
	})
}

// ApplyQuery filters, orders and truncates records per the query. The
// input slice must already be in the backend's native order.
func ApplyQuery(q Query, recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if MatchRecord(q, rec) {
			out = append(out, rec)
		}
	}
	SortRecords(q, out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// equalValues compares two document values, treating all numeric types
// as one domain since JSON round-trips turn integers into float64.
func equalValues(a, b any) bool {
	if an, ok := asFloat(a); ok {
		bn, ok := asFloat(b)
		return ok && an == bn
	}
	return a == b
}

// compareValues returns -1, 0 or 1. Absent (nil) values sort first.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if an, ok := asFloat(a); ok {
		if bn, ok := asFloat(b); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		}
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
