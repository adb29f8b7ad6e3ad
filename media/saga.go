// Package media coordinates sending an image or video message. The
// message record and the blobs live in two systems with no joint
// transaction, so the send runs as a saga: insert the record, upload
// the blob(s), patch the record with the download URL, and on any
// failure after the insert delete the record again. Uploaded blobs are
// never deleted on rollback; an unlinked blob is an accepted leak.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"chat-core/blob"
	"chat-core/events"
	"chat-core/models"
	"chat-core/observability"
	"chat-core/schema"
	"chat-core/session"
	"chat-core/store"
)

// State is a saga position. Transitions run strictly forward; any
// failure moves to StateRolledBack.
type State string

const (
	StateCreated         State = "created"
	StateThumbUploaded   State = "thumb_uploaded"
	StatePrimaryUploaded State = "primary_uploaded"
	StatePatched         State = "patched"
	StateRolledBack      State = "rolled_back"
)

var (
	// ErrUnsupportedPayload rejects payloads that are neither image nor
	// video before any side effect.
	ErrUnsupportedPayload = errors.New("media: payload is not image or video")
	// ErrMissingThumbnailData rejects video sends lacking a thumbnail
	// blob or file name. Raised before any blob upload.
	ErrMissingThumbnailData = errors.New("media: missing thumbnail data")
	// ErrMediaSendFailed is the single user-facing failure for anything
	// that goes wrong after the message record exists, regardless of
	// whether the store or the blob store caused it.
	ErrMediaSendFailed = errors.New("media: media send failed")
)

// Coordinator runs the media-send saga.
type Coordinator struct {
	store     store.Store
	blobs     blob.Storage
	publisher events.Publisher
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithPublisher attaches a domain-event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// NewCoordinator builds a Coordinator.
func NewCoordinator(st store.Store, blobs blob.Storage, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  st,
		blobs:  blobs,
		logger: zap.NewNop(),
		tracer: otel.Tracer("chat-core/media"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendInput describes one media send.
type SendInput struct {
	RoomID  string
	Payload models.Payload // ImagePayload or VideoPayload

	File     io.Reader
	FileName string

	// Thumbnail inputs, required for video payloads.
	Thumbnail         io.Reader
	ThumbnailFileName string

	// PathPrefix overrides the default {uploaderId}/{roomId} blob path
	// prefix; blob names then embed the message id.
	PathPrefix string

	// Visibility is the message's access-control list; defaults to the
	// sender alone.
	Visibility []string
	Metadata   map[string]any
}

// Send runs the saga. On success the returned message carries the
// resolved download URL; on any post-insert failure the record is
// deleted best-effort and the error is ErrMissingThumbnailData or
// ErrMediaSendFailed.
func (c *Coordinator) Send(ctx context.Context, sess session.Session, in SendInput) (*models.Message, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}

	var video bool
	switch in.Payload.(type) {
	case models.ImagePayload:
	case models.VideoPayload:
		video = true
	default:
		return nil, ErrUnsupportedPayload
	}

	ctx, span := c.tracer.Start(ctx, "media.send",
		trace.WithAttributes(
			attribute.String("room.id", in.RoomID),
			attribute.String("message.type", string(in.Payload.MessageType())),
		))
	defer span.End()

	now := time.Now().UnixMilli()
	msg := models.Message{
		RoomID:     in.RoomID,
		Author:     models.Placeholder(sess.UserID),
		Type:       in.Payload.MessageType(),
		Status:     models.StatusSent,
		Visibility: in.Visibility,
		Metadata:   in.Metadata,
		Payload:    in.Payload,
		CreatedAt:  &now,
		UpdatedAt:  &now,
	}
	if len(msg.Visibility) == 0 {
		msg.Visibility = []string{sess.UserID}
	}

	// Insert the record with empty URI fields. A failure here precedes
	// any side effect and propagates unmodified.
	coll := schema.MessagesCollection(in.RoomID)
	id, err := c.store.Create(ctx, coll, schema.MessageToRecord(msg))
	if err != nil {
		span.SetStatus(codes.Error, "record insert failed")
		return nil, err
	}
	msg.ID = id
	state := StateCreated
	c.transition(in.RoomID, id, state)

	uri, thumbURI, state, err := c.upload(ctx, sess, in, id, video, state)
	if err == nil {
		err = c.patch(ctx, coll, msg, uri, thumbURI)
		if err == nil {
			state = StatePatched
			c.transition(in.RoomID, id, state)
		}
	}

	if err != nil {
		c.rollback(ctx, sess, coll, in.RoomID, id, state, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "saga rolled back")
		if errors.Is(err, ErrMissingThumbnailData) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrMediaSendFailed, err)
	}

	msg.Payload = withURIs(in.Payload, uri, thumbURI)
	observability.IncSagaOutcome("sent")
	observability.IncMessageSent(string(msg.Type))
	events.Emit(ctx, c.publisher, events.MediaKey, events.NewEnvelope("media_sent", sess.UserID, in.RoomID, map[string]any{
		"message_id": id,
		"type":       string(msg.Type),
	}))
	return &msg, nil
}

// upload pushes the thumbnail (video only), then the primary file.
func (c *Coordinator) upload(ctx context.Context, sess session.Session, in SendInput, msgID string, video bool, state State) (uri, thumbURI string, _ State, err error) {
	if video {
		// The thumbnail requirement is checked before any blob leaves
		// the process.
		if in.Thumbnail == nil || in.ThumbnailFileName == "" {
			return "", "", state, ErrMissingThumbnailData
		}
		thumbPath := blobPath(in.PathPrefix, sess.UserID, in.RoomID, msgID+"_th_"+in.ThumbnailFileName, in.ThumbnailFileName)
		ctx, thumbSpan := c.tracer.Start(ctx, "media.upload_thumbnail")
		thumbURI, err = c.blobs.Upload(ctx, thumbPath, in.Thumbnail)
		thumbSpan.End()
		if err != nil {
			return "", "", state, fmt.Errorf("thumbnail upload: %w", err)
		}
		state = StateThumbUploaded
		c.transition(in.RoomID, msgID, state)
	}

	primaryPath := blobPath(in.PathPrefix, sess.UserID, in.RoomID, msgID+"_"+in.FileName, in.FileName)
	ctx, fileSpan := c.tracer.Start(ctx, "media.upload_primary")
	uri, err = c.blobs.Upload(ctx, primaryPath, in.File)
	fileSpan.End()
	if err != nil {
		return "", "", state, fmt.Errorf("primary upload: %w", err)
	}
	state = StatePrimaryUploaded
	c.transition(in.RoomID, msgID, state)
	return uri, thumbURI, state, nil
}

// patch writes the serialized message minus the immutable fields, with
// the resolved URLs and a fresh updatedAt.
func (c *Coordinator) patch(ctx context.Context, coll string, msg models.Message, uri, thumbURI string) error {
	msg.Payload = withURIs(msg.Payload, uri, thumbURI)
	fields := schema.MessageToRecord(msg)
	delete(fields, "createdAt")
	fields["updatedAt"] = time.Now().UnixMilli()

	ctx, span := c.tracer.Start(ctx, "media.patch_record")
	defer span.End()
	if err := c.store.Update(ctx, coll, msg.ID, fields); err != nil {
		return fmt.Errorf("record patch: %w", err)
	}
	return nil
}

// rollback is the compensation: best-effort deletion of the message
// record. Blobs already uploaded stay where they are.
func (c *Coordinator) rollback(ctx context.Context, sess session.Session, coll, roomID, msgID string, from State, cause error) {
	if delErr := c.store.Delete(ctx, coll, msgID); delErr != nil {
		c.logger.Error("saga compensation failed, record may be orphaned",
			zap.String("room_id", roomID),
			zap.String("message_id", msgID),
			zap.Error(delErr),
		)
	}
	c.logger.Warn("media send rolled back",
		zap.String("room_id", roomID),
		zap.String("message_id", msgID),
		zap.String("from_state", string(from)),
		zap.Error(cause),
	)
	observability.IncSagaOutcome("rolled_back")
	events.Emit(ctx, c.publisher, events.MediaKey, events.NewEnvelope("media_rolled_back", sess.UserID, roomID, map[string]any{
		"message_id": msgID,
		"from_state": string(from),
	}))
	c.transition(roomID, msgID, StateRolledBack)
}

func (c *Coordinator) transition(roomID, msgID string, to State) {
	c.logger.Debug("saga transition",
		zap.String("room_id", roomID),
		zap.String("message_id", msgID),
		zap.String("state", string(to)),
	)
}

// blobPath builds the storage path: {prefix}/{messageScopedName} when a
// custom prefix is set, else {uploaderId}/{roomId}/{fileName}.
func blobPath(prefix, uploaderID, roomID, prefixedName, fileName string) string {
	if prefix != "" {
		return prefix + "/" + prefixedName
	}
	return uploaderID + "/" + roomID + "/" + fileName
}

// withURIs returns the payload with its URI fields resolved.
func withURIs(p models.Payload, uri, thumbURI string) models.Payload {
	switch payload := p.(type) {
	case models.ImagePayload:
		payload.URI = uri
		return payload
	case models.VideoPayload:
		payload.URI = uri
		payload.ThumbnailURI = thumbURI
		return payload
	}
	return p
}
