// Package messages projects raw message records into typed, ordered,
// author-resolved lists and applies status and update operations.
package messages

import (
	"context"

	"go.uber.org/zap"

	"chat-core/models"
	"chat-core/observability"
	"chat-core/schema"
	"chat-core/session"
	"chat-core/store"
)

// Update is one emission of a live message list. Every emission is a
// full snapshot, never a delta. A non-nil Err means a stored record
// failed schema mapping; the stream closes after delivering it.
type Update struct {
	Messages []models.Message
	Err      error
}

// Projector subscribes to a room's message change-stream and rebuilds
// the full projected list on every event. Cost is linear in the current
// message count per event; there is no incremental maintenance.
type Projector struct {
	store  store.Store
	logger *zap.Logger
}

// ProjectorOption configures a Projector.
type ProjectorOption func(*Projector)

// WithProjectorLogger attaches a logger.
func WithProjectorLogger(l *zap.Logger) ProjectorOption {
	return func(p *Projector) { p.logger = l }
}

// NewProjector builds a Projector.
func NewProjector(st store.Store, opts ...ProjectorOption) *Projector {
	p := &Projector{store: st, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Messages delivers the room's live message list: records visible to the
// current user, authors resolved against the roster (placeholder for
// authors who left it), newest first. Cancelling ctx ends the stream.
func (p *Projector) Messages(ctx context.Context, sess session.Session, room models.Room) (<-chan Update, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	snaps, err := p.subscribeVisible(ctx, sess, room.ID)
	if err != nil {
		return nil, err
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		observability.IncActiveSubscriptions()
		defer observability.DecActiveSubscriptions()

		for snap := range snaps {
			msgs, err := p.project(room, snap.Records)
			observability.IncProjectorRebuild("messages")
			if err != nil {
				p.logger.Warn("message projection failed", zap.String("room_id", room.ID), zap.Error(err))
				deliver(ctx, out, Update{Err: err})
				return
			}
			if !deliver(ctx, out, Update{Messages: msgs}) {
				return
			}
		}
	}()
	return out, nil
}

// HasUnseen reports whether the room holds at least one message that is
// visible to the current user, delivered, and authored by someone else.
func (p *Projector) HasUnseen(ctx context.Context, sess session.Session, room models.Room) (<-chan bool, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	snaps, err := p.subscribeVisible(ctx, sess, room.ID)
	if err != nil {
		return nil, err
	}

	out := make(chan bool)
	go func() {
		defer close(out)
		for snap := range snaps {
			unseen := false
			for _, rec := range snap.Records {
				if isUnseen(rec, sess.UserID) {
					unseen = true
					break
				}
			}
			select {
			case out <- unseen:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Unseen delivers the projected list filtered to unseen messages, built
// by the same resolve/order pipeline as Messages.
func (p *Projector) Unseen(ctx context.Context, sess session.Session, room models.Room) (<-chan Update, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	snaps, err := p.subscribeVisible(ctx, sess, room.ID)
	if err != nil {
		return nil, err
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		for snap := range snaps {
			msgs, err := p.project(room, snap.Records)
			observability.IncProjectorRebuild("unseen")
			if err != nil {
				deliver(ctx, out, Update{Err: err})
				return
			}
			filtered := make([]models.Message, 0, len(msgs))
			for _, m := range msgs {
				if m.Status == models.StatusDelivered && m.Author.ID != sess.UserID {
					filtered = append(filtered, m)
				}
			}
			if !deliver(ctx, out, Update{Messages: filtered}) {
				return
			}
		}
	}()
	return out, nil
}

// LastMessage delivers the most recent visible message's raw record for
// lightweight previews. Author resolution is not applied. A nil record
// means the room has no visible messages.
func (p *Projector) LastMessage(ctx context.Context, sess session.Session, roomID string) (<-chan *store.Record, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	snaps, err := p.store.Subscribe(ctx, store.Query{
		Collection: schema.MessagesCollection(roomID),
		Filters: []store.Filter{
			{Field: "visibility", Op: store.OpArrayContains, Value: sess.UserID},
		},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      1,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan *store.Record)
	go func() {
		defer close(out)
		for snap := range snaps {
			var rec *store.Record
			if len(snap.Records) > 0 {
				first := snap.Records[0]
				rec = &first
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *Projector) subscribeVisible(ctx context.Context, sess session.Session, roomID string) (<-chan store.Snapshot, error) {
	return p.store.Subscribe(ctx, store.Query{
		Collection: schema.MessagesCollection(roomID),
		Filters: []store.Filter{
			{Field: "visibility", Op: store.OpArrayContains, Value: sess.UserID},
		},
		OrderBy:    "createdAt",
		Descending: true,
	})
}

// project maps a snapshot to typed messages. Records arrive already in
// descending createdAt order; authors resolve against the roster with a
// placeholder fallback.
func (p *Projector) project(room models.Room, recs []store.Record) ([]models.Message, error) {
	resolve := func(id string) models.User {
		if u, ok := room.FindUser(id); ok {
			return u
		}
		return models.Placeholder(id)
	}
	msgs := make([]models.Message, 0, len(recs))
	for _, rec := range recs {
		m, err := schema.MessageFromRecord(room.ID, rec, resolve)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func isUnseen(rec store.Record, userID string) bool {
	status, _ := rec.Data["status"].(string)
	author, _ := rec.Data["authorId"].(string)
	return status == string(models.StatusDelivered) && author != userID
}

func deliver(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
