package media

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-core/blob/memblob"
	"chat-core/mocks"
	"chat-core/models"
	"chat-core/schema"
	"chat-core/session"
	"chat-core/store"
	"chat-core/store/memstore"
)

func TestSendImage(t *testing.T) {
	st := memstore.New()
	blobs := memblob.New()
	c := NewCoordinator(st, blobs)
	ctx := context.Background()
	sess := session.Session{UserID: "alice"}

	msg, err := c.Send(ctx, sess, SendInput{
		RoomID:   "r1",
		Payload:  models.ImagePayload{FileName: "pic.png", Size: 3, Width: 10, Height: 20},
		File:     strings.NewReader("abc"),
		FileName: "pic.png",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)

	payload := msg.Payload.(models.ImagePayload)
	assert.Equal(t, "mem://alice/r1/pic.png", payload.URI)
	assert.Equal(t, 1, blobs.Len())

	rec, err := st.Get(ctx, schema.MessagesCollection("r1"), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "image", rec.Data["type"])
	assert.Equal(t, "mem://alice/r1/pic.png", rec.Data["uri"])
	assert.Equal(t, "sent", rec.Data["status"])
	assert.Equal(t, []string{"alice"}, rec.Data["visibility"])
	assert.Contains(t, rec.Data, "createdAt")
}

func TestSendVideoUploadsThumbnailFirst(t *testing.T) {
	st := memstore.New()
	blobs := memblob.New()
	c := NewCoordinator(st, blobs)
	ctx := context.Background()
	sess := session.Session{UserID: "alice"}

	msg, err := c.Send(ctx, sess, SendInput{
		RoomID:            "r1",
		Payload:           models.VideoPayload{FileName: "clip.mp4", Size: 5},
		File:              strings.NewReader("video"),
		FileName:          "clip.mp4",
		Thumbnail:         strings.NewReader("thumb"),
		ThumbnailFileName: "clip.jpg",
	})
	require.NoError(t, err)
	require.NotNil(t, msg)

	payload := msg.Payload.(models.VideoPayload)
	assert.Equal(t, "mem://alice/r1/clip.mp4", payload.URI)
	assert.Equal(t, "mem://alice/r1/clip.jpg", payload.ThumbnailURI)
	assert.Equal(t, 2, blobs.Len())

	rec, err := st.Get(ctx, schema.MessagesCollection("r1"), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "mem://alice/r1/clip.jpg", rec.Data["thumbnailUri"])
}

func TestSendVideoMissingThumbnail(t *testing.T) {
	st := memstore.New()
	blobs := memblob.New()
	c := NewCoordinator(st, blobs)
	ctx := context.Background()

	_, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:   "r1",
		Payload:  models.VideoPayload{FileName: "clip.mp4"},
		File:     strings.NewReader("video"),
		FileName: "clip.mp4",
	})
	require.ErrorIs(t, err, ErrMissingThumbnailData)

	// The record is rolled back and no blob was uploaded.
	recs, err := st.Query(ctx, store.Query{Collection: schema.MessagesCollection("r1")})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, blobs.Len())
}

func TestSendUploadFailureRollsBack(t *testing.T) {
	st := memstore.New()
	blobs := new(mocks.BlobMock)
	c := NewCoordinator(st, blobs)
	ctx := context.Background()

	blobs.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError).Once()

	_, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:   "r1",
		Payload:  models.ImagePayload{FileName: "pic.png"},
		File:     strings.NewReader("abc"),
		FileName: "pic.png",
	})
	require.ErrorIs(t, err, ErrMediaSendFailed)
	assert.NotErrorIs(t, err, ErrMissingThumbnailData)

	recs, err := st.Query(ctx, store.Query{Collection: schema.MessagesCollection("r1")})
	require.NoError(t, err)
	assert.Empty(t, recs)
	blobs.AssertExpectations(t)
}

func TestSendPatchFailureRollsBack(t *testing.T) {
	st := new(mocks.StoreMock)
	blobs := memblob.New()
	c := NewCoordinator(st, blobs)
	ctx := context.Background()
	coll := schema.MessagesCollection("r1")

	st.On("Create", mock.Anything, coll, mock.Anything).Return("m1", nil).Once()
	st.On("Update", mock.Anything, coll, "m1", mock.Anything).Return(assert.AnError).Once()
	st.On("Delete", mock.Anything, coll, "m1").Return(nil).Once()

	_, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:   "r1",
		Payload:  models.ImagePayload{FileName: "pic.png"},
		File:     strings.NewReader("abc"),
		FileName: "pic.png",
	})
	require.ErrorIs(t, err, ErrMediaSendFailed)

	// The blob stays; rollback only removes the record.
	assert.Equal(t, 1, blobs.Len())
	st.AssertExpectations(t)
}

func TestSendRejectsNonMediaPayload(t *testing.T) {
	st := memstore.New()
	c := NewCoordinator(st, memblob.New())
	ctx := context.Background()

	_, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:  "r1",
		Payload: models.TextPayload{Text: "not media"},
	})
	require.ErrorIs(t, err, ErrUnsupportedPayload)

	recs, err := st.Query(ctx, store.Query{Collection: schema.MessagesCollection("r1")})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSendWithPathPrefix(t *testing.T) {
	st := memstore.New()
	blobs := memblob.New()
	c := NewCoordinator(st, blobs)
	ctx := context.Background()

	msg, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:     "r1",
		Payload:    models.ImagePayload{FileName: "pic.png"},
		File:       strings.NewReader("abc"),
		FileName:   "pic.png",
		PathPrefix: "uploads",
	})
	require.NoError(t, err)

	// With a prefix the blob name embeds the message id.
	_, ok := blobs.Get("uploads/" + msg.ID + "_pic.png")
	assert.True(t, ok)
}

func TestSendHonorsVisibility(t *testing.T) {
	st := memstore.New()
	c := NewCoordinator(st, memblob.New())
	ctx := context.Background()

	msg, err := c.Send(ctx, session.Session{UserID: "alice"}, SendInput{
		RoomID:     "r1",
		Payload:    models.ImagePayload{FileName: "pic.png"},
		File:       strings.NewReader("abc"),
		FileName:   "pic.png",
		Visibility: []string{"alice", "bob"},
	})
	require.NoError(t, err)

	rec, err := st.Get(ctx, schema.MessagesCollection("r1"), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, rec.Data["visibility"])
}

func TestSendUnauthenticated(t *testing.T) {
	c := NewCoordinator(memstore.New(), memblob.New())
	_, err := c.Send(context.Background(), session.Session{}, SendInput{
		RoomID:  "r1",
		Payload: models.ImagePayload{FileName: "pic.png"},
	})
	assert.ErrorIs(t, err, session.ErrUnauthenticated)
}
