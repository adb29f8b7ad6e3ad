package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-core/store"
)

func TestCreateAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.Create(ctx, "rooms", map[string]any{"type": "group"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.Get(ctx, "rooms", id)
	require.NoError(t, err)
	assert.Equal(t, "group", rec.Data["type"])

	_, err = s.Get(ctx, "rooms", "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rooms", "r1", map[string]any{"type": "group", "name": "team"}))
	require.NoError(t, s.Update(ctx, "rooms", "r1", map[string]any{"name": "renamed"}))

	rec, err := s.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", rec.Data["name"])
	assert.Equal(t, "group", rec.Data["type"])

	assert.ErrorIs(t, s.Update(ctx, "rooms", "missing", map[string]any{"a": 1}), store.ErrNotFound)
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rooms", "r1", map[string]any{"type": "group"}))
	require.NoError(t, s.Delete(ctx, "rooms", "r1"))
	require.NoError(t, s.Delete(ctx, "rooms", "r1"))

	_, err := s.Get(ctx, "rooms", "r1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "rooms", "r1", map[string]any{"metadata": map[string]any{"k": "v"}}))

	rec, err := s.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	rec.Data["metadata"].(map[string]any)["k"] = "mutated"

	again, err := s.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	assert.Equal(t, "v", again.Data["metadata"].(map[string]any)["k"])
}

func TestQueryFiltersAndOrders(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "msgs", "m1", map[string]any{"createdAt": int64(1), "visibility": []string{"alice"}}))
	require.NoError(t, s.Set(ctx, "msgs", "m2", map[string]any{"createdAt": int64(2), "visibility": []string{"bob"}}))
	require.NoError(t, s.Set(ctx, "msgs", "m3", map[string]any{"createdAt": int64(3), "visibility": []string{"alice", "bob"}}))

	recs, err := s.Query(ctx, store.Query{
		Collection: "msgs",
		Filters:    []store.Filter{{Field: "visibility", Op: store.OpArrayContains, Value: "alice"}},
		OrderBy:    "createdAt",
		Descending: true,
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "m3", recs[0].ID)
	assert.Equal(t, "m1", recs[1].ID)
}

func TestSubscribeDeliversInitialAndUpdatedSnapshots(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Set(ctx, "msgs", "m1", map[string]any{"createdAt": int64(1)}))

	snaps, err := s.Subscribe(ctx, store.Query{Collection: "msgs", OrderBy: "createdAt"})
	require.NoError(t, err)

	snap := recvSnapshot(t, snaps)
	require.Len(t, snap.Records, 1)

	require.NoError(t, s.Set(ctx, "msgs", "m2", map[string]any{"createdAt": int64(2)}))

	// Writes may collapse into one wakeup; the next snapshot reflects the
	// final state either way.
	snap = recvSnapshot(t, snaps)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, "m2", snap.Records[1].ID)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	snaps, err := s.Subscribe(ctx, store.Query{Collection: "msgs"})
	require.NoError(t, err)
	recvSnapshot(t, snaps)

	cancel()

	select {
	case _, ok := <-snaps:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel did not close")
	}
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snaps, err := s.Subscribe(ctx, store.Query{Collection: "msgs"})
	require.NoError(t, err)
	recvSnapshot(t, snaps)

	require.NoError(t, s.Set(ctx, "rooms", "r1", map[string]any{"type": "group"}))

	select {
	case <-snaps:
		t.Fatal("unrelated write triggered an emission")
	case <-time.After(100 * time.Millisecond):
	}
}

func recvSnapshot(t *testing.T, ch <-chan store.Snapshot) store.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription channel closed early")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return store.Snapshot{}
}
