package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rec(id string, data map[string]any) Record {
	return Record{ID: id, Data: data}
}

func TestMatchRecordEqual(t *testing.T) {
	r := rec("1", map[string]any{"type": "direct", "count": int64(3)})

	assert.True(t, MatchRecord(Query{Filters: []Filter{{Field: "type", Op: OpEqual, Value: "direct"}}}, r))
	assert.False(t, MatchRecord(Query{Filters: []Filter{{Field: "type", Op: OpEqual, Value: "group"}}}, r))
	assert.False(t, MatchRecord(Query{Filters: []Filter{{Field: "missing", Op: OpEqual, Value: "x"}}}, r))

	// Numbers compare across representations; a JSON round-trip turns
	// int64 into float64.
	assert.True(t, MatchRecord(Query{Filters: []Filter{{Field: "count", Op: OpEqual, Value: float64(3)}}}, r))
}

func TestMatchRecordArrayContains(t *testing.T) {
	q := Query{Filters: []Filter{{Field: "userIds", Op: OpArrayContains, Value: "alice"}}}

	assert.True(t, MatchRecord(q, rec("1", map[string]any{"userIds": []string{"alice", "bob"}})))
	assert.True(t, MatchRecord(q, rec("2", map[string]any{"userIds": []any{"alice", "bob"}})))
	assert.False(t, MatchRecord(q, rec("3", map[string]any{"userIds": []string{"bob"}})))
	assert.False(t, MatchRecord(q, rec("4", map[string]any{"userIds": "alice"})))
}

func TestApplyQueryOrdersAndLimits(t *testing.T) {
	recs := []Record{
		rec("a", map[string]any{"createdAt": int64(1)}),
		rec("b", map[string]any{"createdAt": int64(3)}),
		rec("c", map[string]any{"createdAt": float64(2)}),
	}

	out := ApplyQuery(Query{OrderBy: "createdAt", Descending: true}, recs)
	ids := []string{out[0].ID, out[1].ID, out[2].ID}
	assert.Equal(t, []string{"b", "c", "a"}, ids)

	out = ApplyQuery(Query{OrderBy: "createdAt", Descending: true, Limit: 1}, recs)
	assert.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestSortRecordsNilSortsFirst(t *testing.T) {
	recs := []Record{
		rec("a", map[string]any{"updatedAt": int64(5)}),
		rec("b", map[string]any{}),
	}
	SortRecords(Query{OrderBy: "updatedAt"}, recs)
	assert.Equal(t, "b", recs[0].ID)
}

func TestSortRecordsStableOnTies(t *testing.T) {
	recs := []Record{
		rec("a", map[string]any{"createdAt": int64(1)}),
		rec("b", map[string]any{"createdAt": int64(1)}),
		rec("c", map[string]any{"createdAt": int64(1)}),
	}
	SortRecords(Query{OrderBy: "createdAt", Descending: true}, recs)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "c", recs[2].ID)
}

func TestCloneDataIsDeep(t *testing.T) {
	orig := map[string]any{
		"meta": map[string]any{"k": "v"},
		"ids":  []string{"a"},
		"list": []any{map[string]any{"n": 1}},
	}
	cp := CloneData(orig)

	cp["meta"].(map[string]any)["k"] = "changed"
	cp["ids"].([]string)[0] = "changed"
	cp["list"].([]any)[0].(map[string]any)["n"] = 2

	assert.Equal(t, "v", orig["meta"].(map[string]any)["k"])
	assert.Equal(t, "a", orig["ids"].([]string)[0])
	assert.Equal(t, 1, orig["list"].([]any)[0].(map[string]any)["n"])
}
