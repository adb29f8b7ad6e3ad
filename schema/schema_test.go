package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-core/models"
	"chat-core/store"
)

func TestMillisCoercion(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ms, err := Millis(at)
	require.NoError(t, err)
	require.NotNil(t, ms)
	assert.Equal(t, at.UnixMilli(), *ms)

	ms, err = Millis(int64(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), *ms)

	// JSON decoding hands back float64.
	ms, err = Millis(float64(1700000000000))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), *ms)

	ms, err = Millis(42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), *ms)

	ms, err = Millis(nil)
	require.NoError(t, err)
	assert.Nil(t, ms)

	_, err = Millis("yesterday")
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestMessageFromRecord(t *testing.T) {
	rec := store.Record{
		ID: "m1",
		Data: map[string]any{
			"authorId":   "alice",
			"type":       "text",
			"text":       "hello",
			"status":     "delivered",
			"visibility": []any{"alice", "bob"},
			"createdAt":  float64(1700000000000),
		},
	}

	msg, err := MessageFromRecord("r1", rec, func(id string) models.User {
		return models.User{ID: id, FirstName: "Alice"}
	})
	require.NoError(t, err)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, "Alice", msg.Author.FirstName)
	assert.Equal(t, models.StatusDelivered, msg.Status)
	assert.Equal(t, []string{"alice", "bob"}, msg.Visibility)
	assert.Equal(t, models.TextPayload{Text: "hello"}, msg.Payload)
	require.NotNil(t, msg.CreatedAt)
	assert.Equal(t, int64(1700000000000), *msg.CreatedAt)
}

func TestMessageFromRecordWithoutResolver(t *testing.T) {
	rec := store.Record{ID: "m1", Data: map[string]any{
		"authorId": "ghost",
		"type":     "text",
		"text":     "hi",
	}}

	msg, err := MessageFromRecord("r1", rec, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Placeholder("ghost"), msg.Author)
}

func TestMessageFromRecordMalformed(t *testing.T) {
	cases := map[string]map[string]any{
		"missing type":    {"authorId": "a", "text": "x"},
		"missing author":  {"type": "text", "text": "x"},
		"unknown type":    {"authorId": "a", "type": "sticker"},
		"bad visibility":  {"authorId": "a", "type": "text", "text": "x", "visibility": []any{1}},
		"bad timestamp":   {"authorId": "a", "type": "text", "text": "x", "createdAt": "now"},
		"text not string": {"authorId": "a", "type": "text", "text": 7},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := MessageFromRecord("r1", store.Record{ID: "m", Data: data}, nil)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestMessageToRecordStripsDerivedFields(t *testing.T) {
	now := int64(1700000000000)
	msg := models.Message{
		ID:         "m1",
		RoomID:     "r1",
		Author:     models.User{ID: "alice", FirstName: "Alice"},
		Type:       models.TypeText,
		Status:     models.StatusSent,
		Visibility: []string{"alice"},
		Payload:    models.TextPayload{Text: "hello"},
		CreatedAt:  &now,
	}

	data := MessageToRecord(msg)

	assert.Equal(t, "alice", data["authorId"])
	assert.Equal(t, "hello", data["text"])
	assert.Equal(t, "sent", data["status"])
	assert.NotContains(t, data, "id")
	assert.NotContains(t, data, "author")
	assert.NotContains(t, data, "roomId")
}

func TestVideoPayloadMapping(t *testing.T) {
	msg := models.Message{
		Author: models.User{ID: "a"},
		Type:   models.TypeVideo,
		Payload: models.VideoPayload{
			URI:          "mem://v.mp4",
			ThumbnailURI: "mem://v_th.jpg",
			FileName:     "v.mp4",
			Size:         1024,
		},
	}
	data := MessageToRecord(msg)
	assert.Equal(t, "mem://v.mp4", data["uri"])
	assert.Equal(t, "mem://v_th.jpg", data["thumbnailUri"])

	back, err := MessageFromRecord("r1", store.Record{ID: "m", Data: data}, nil)
	require.NoError(t, err)
	assert.Equal(t, msg.Payload, back.Payload)
}

func TestRoomToRecord(t *testing.T) {
	admin := models.RoleAdmin
	now := int64(1700000000000)
	room := models.Room{
		ID:   "r1",
		Type: models.RoomGroup,
		Name: "team",
		Users: []models.User{
			{ID: "alice", Role: &admin},
			{ID: "bob"},
		},
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	data := RoomToRecord(room)

	assert.Equal(t, "group", data["type"])
	assert.Equal(t, []string{"alice", "bob"}, data["userIds"])
	assert.Equal(t, map[string]any{"alice": "admin"}, data["userRoles"])
	assert.NotContains(t, data, "id")
	assert.NotContains(t, data, "users")
}

func TestRoomFromRecord(t *testing.T) {
	rec := store.Record{
		ID: "r1",
		Data: map[string]any{
			"type":      "group",
			"name":      "team",
			"userIds":   []any{"alice", "bob"},
			"userRoles": map[string]any{"alice": "admin"},
			"clientId":  "r1",
			"updatedAt": int64(1700000000000),
		},
	}

	raw, err := RoomFromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, models.RoomGroup, raw.Type)
	assert.Equal(t, []string{"alice", "bob"}, raw.UserIDs)
	assert.Equal(t, models.RoleAdmin, raw.UserRoles["alice"])
	assert.Equal(t, "r1", raw.ClientID)

	_, err = RoomFromRecord(store.Record{ID: "r2", Data: map[string]any{"type": "group"}})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestUserRecordRoundTrip(t *testing.T) {
	agent := models.RoleAgent
	seen := int64(1700000000000)
	u := models.User{
		ID:        "alice",
		FirstName: "Alice",
		ImageURL:  "https://example.com/a.png",
		LastSeen:  &seen,
		Role:      &agent,
	}

	data := UserToRecord(u)
	assert.NotContains(t, data, "id")

	back, err := UserFromRecord(store.Record{ID: "alice", Data: data})
	require.NoError(t, err)
	assert.Equal(t, u, back)
}
