package messages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chat-core/events"
	"chat-core/models"
	"chat-core/observability"
	"chat-core/schema"
	"chat-core/session"
	"chat-core/store"
)

// Operations applies message writes: sending, generic patching, status
// transitions and room status changes.
type Operations struct {
	store     store.Store
	publisher events.Publisher
	logger    *zap.Logger
}

// OpsOption configures Operations.
type OpsOption func(*Operations)

// WithOpsLogger attaches a logger.
func WithOpsLogger(l *zap.Logger) OpsOption {
	return func(o *Operations) { o.logger = l }
}

// WithOpsPublisher attaches a domain-event publisher.
func WithOpsPublisher(p events.Publisher) OpsOption {
	return func(o *Operations) { o.publisher = p }
}

// NewOperations builds Operations.
func NewOperations(st store.Store, opts ...OpsOption) *Operations {
	o := &Operations{store: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send dispatches on the draft's payload variant, stamps author,
// timestamps and status, and inserts the message. Only the payload,
// visibility and metadata of the draft are honored; everything else is
// assigned here. An unrecognized variant is a no-op: both return values
// are nil. Visibility is the caller-supplied access-control list; when
// omitted it defaults to the sender alone.
func (o *Operations) Send(ctx context.Context, sess session.Session, draft models.Message, roomID string) (*models.Message, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	msg, ok := buildMessage(draft.Payload)
	if !ok {
		return nil, nil
	}

	now := time.Now().UnixMilli()
	msg.RoomID = roomID
	msg.Author = models.Placeholder(sess.UserID)
	msg.Status = models.StatusSent
	msg.Visibility = draft.Visibility
	msg.Metadata = draft.Metadata
	msg.CreatedAt = &now
	msg.UpdatedAt = &now
	if len(msg.Visibility) == 0 {
		msg.Visibility = []string{sess.UserID}
	}

	id, err := o.store.Create(ctx, schema.MessagesCollection(roomID), schema.MessageToRecord(msg))
	if err != nil {
		return nil, err
	}
	msg.ID = id

	observability.IncMessageSent(string(msg.Type))
	events.Emit(ctx, o.publisher, events.MessagesKey, events.NewEnvelope("message_sent", sess.UserID, roomID, map[string]any{
		"message_id": id,
		"type":       string(msg.Type),
	}))
	return &msg, nil
}

// Update patches a message in place. The outgoing payload drops the
// derived fields (id, author) and the immutable createdAt; updatedAt is
// stamped fresh.
func (o *Operations) Update(ctx context.Context, sess session.Session, msg models.Message, roomID string) error {
	if !sess.Authenticated() {
		return session.ErrUnauthenticated
	}
	fields := schema.MessageToRecord(msg)
	delete(fields, "createdAt")
	fields["updatedAt"] = time.Now().UnixMilli()
	return o.store.Update(ctx, schema.MessagesCollection(roomID), msg.ID, fields)
}

// MarkSeen transitions a message to seen and stamps updatedAt. Without a
// current user this is a no-op. Transitions never regress: a message
// already seen stays seen.
func (o *Operations) MarkSeen(ctx context.Context, sess session.Session, msg models.Message, roomID string) error {
	if !sess.Authenticated() {
		return nil
	}
	if msg.Status == models.StatusSeen || !msg.Status.CanTransition(models.StatusSeen) {
		return nil
	}
	err := o.store.Update(ctx, schema.MessagesCollection(roomID), msg.ID, map[string]any{
		"status":    string(models.StatusSeen),
		"updatedAt": time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	events.Emit(ctx, o.publisher, events.MessagesKey, events.NewEnvelope("message_seen", sess.UserID, roomID, map[string]any{
		"message_id": msg.ID,
	}))
	return nil
}

// MarkDelivered transitions a message from sent to delivered. Regressing
// a seen message is refused silently.
func (o *Operations) MarkDelivered(ctx context.Context, sess session.Session, msg models.Message, roomID string) error {
	if !sess.Authenticated() {
		return nil
	}
	if !msg.Status.CanTransition(models.StatusDelivered) {
		return nil
	}
	return o.store.Update(ctx, schema.MessagesCollection(roomID), msg.ID, map[string]any{
		"status":    string(models.StatusDelivered),
		"updatedAt": time.Now().UnixMilli(),
	})
}

// Delete removes a message record.
func (o *Operations) Delete(ctx context.Context, sess session.Session, roomID, messageID string) error {
	if !sess.Authenticated() {
		return session.ErrUnauthenticated
	}
	return o.store.Delete(ctx, schema.MessagesCollection(roomID), messageID)
}

// ChangeRoomStatus overwrites the room's metadata.status field, leaving
// the rest of the metadata untouched.
func (o *Operations) ChangeRoomStatus(ctx context.Context, sess session.Session, roomID, status string) error {
	if !sess.Authenticated() {
		return session.ErrUnauthenticated
	}
	rec, err := o.store.Get(ctx, schema.RoomsCollection, roomID)
	if err != nil {
		return err
	}
	metadata, _ := rec.Data["metadata"].(map[string]any)
	metadata = store.CloneData(metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["status"] = status
	return o.store.Update(ctx, schema.RoomsCollection, roomID, map[string]any{
		"metadata":  metadata,
		"updatedAt": time.Now().UnixMilli(),
	})
}

// buildMessage is the single dispatch point over the payload union. The
// default arm covers nil and unknown implementations and maps to the
// send path's no-op.
func buildMessage(p models.Payload) (models.Message, bool) {
	switch p.(type) {
	case models.TextPayload,
		models.ImagePayload,
		models.VideoPayload,
		models.FilePayload,
		models.ChoicePayload,
		models.QuestionPayload,
		models.SystemPayload,
		models.CommandPayload:
		return models.Message{Type: p.MessageType(), Payload: p}, true
	default:
		return models.Message{}, false
	}
}
