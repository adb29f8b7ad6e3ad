// Package rooms creates and hydrates chat rooms: group creation, direct
// room deduplication, and roster resolution against the user directory.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-core/directory"
	"chat-core/events"
	"chat-core/models"
	"chat-core/schema"
	"chat-core/session"
	"chat-core/store"
)

// ErrInvalidRoomInput is returned when creation input violates a roster
// invariant (missing name, empty roster).
var ErrInvalidRoomInput = errors.New("rooms: invalid room input")

// AssistantUserID identifies the synthetic automated participant that
// CreateRoomWithCustomID appends to the returned roster.
const AssistantUserID = "assistant"

// directRoomNamespace is the UUIDv5 namespace for deterministic direct
// room ids derived from the sorted user pair.
var directRoomNamespace = uuid.MustParse("9f2c1a57-34c8-4fbb-9e5c-6c2f26b0a2d1")

// Resolver creates rooms and hydrates rosters.
type Resolver struct {
	store     store.Store
	directory directory.Directory
	publisher events.Publisher
	logger    *zap.Logger

	// deterministicDirectIDs closes the direct-room creation race by
	// deriving the room key from the sorted user pair. Off by default:
	// the stock behavior keeps the query-then-create window open and
	// tolerates the resulting duplicates.
	deterministicDirectIDs bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithPublisher attaches a domain-event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(r *Resolver) { r.publisher = p }
}

// WithDeterministicDirectRoomIDs derives direct-room keys from the
// sorted user pair, so concurrent creations for the same pair converge
// on one document instead of racing.
func WithDeterministicDirectRoomIDs() Option {
	return func(r *Resolver) { r.deterministicDirectIDs = true }
}

// NewResolver builds a Resolver.
func NewResolver(st store.Store, dir directory.Directory, opts ...Option) *Resolver {
	r := &Resolver{store: st, directory: dir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GroupRoomInput is the input for group room creation.
type GroupRoomInput struct {
	Name     string
	UserIDs  []string
	ImageURL string
	Metadata map[string]any
}

// CreateGroupRoom creates a multi-party room. The creator is prepended
// to the roster and persisted with the admin role; the given user order
// is preserved after it.
func (r *Resolver) CreateGroupRoom(ctx context.Context, sess session.Session, in GroupRoomInput) (models.Room, error) {
	if !sess.Authenticated() {
		return models.Room{}, session.ErrUnauthenticated
	}
	if in.Name == "" || len(in.UserIDs) == 0 {
		return models.Room{}, fmt.Errorf("%w: group room requires a name and at least one other user", ErrInvalidRoomInput)
	}

	users, err := r.resolveRoster(ctx, append([]string{sess.UserID}, in.UserIDs...))
	if err != nil {
		return models.Room{}, err
	}
	admin := models.RoleAdmin
	users[0].Role = &admin

	now := time.Now().UnixMilli()
	room := models.Room{
		Type:      models.RoomGroup,
		Name:      in.Name,
		ImageURL:  in.ImageURL,
		Metadata:  in.Metadata,
		Users:     users,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	id, err := r.store.Create(ctx, schema.RoomsCollection, schema.RoomToRecord(room))
	if err != nil {
		return models.Room{}, err
	}
	room.ID = id

	r.logger.Info("group room created", zap.String("room_id", id), zap.Int("roster_size", len(users)))
	events.Emit(ctx, r.publisher, events.RoomsKey, events.NewEnvelope("room_created", sess.UserID, id, map[string]any{
		"type": string(models.RoomGroup),
	}))
	return room, nil
}

// CreateDirectRoom returns the existing direct room between the current
// user and otherUserID, or creates one. The existence check scans the
// current user's direct rooms for an order-insensitive roster match.
// Query-then-create is not atomic: two concurrent callers can both miss
// and each create a room, unless deterministic ids are enabled.
func (r *Resolver) CreateDirectRoom(ctx context.Context, sess session.Session, otherUserID string, metadata map[string]any) (models.Room, error) {
	if !sess.Authenticated() {
		return models.Room{}, session.ErrUnauthenticated
	}

	recs, err := r.store.Query(ctx, store.Query{
		Collection: schema.RoomsCollection,
		Filters: []store.Filter{
			{Field: "userIds", Op: store.OpArrayContains, Value: sess.UserID},
		},
	})
	if err != nil {
		return models.Room{}, err
	}
	for _, rec := range recs {
		raw, err := schema.RoomFromRecord(rec)
		if err != nil {
			return models.Room{}, err
		}
		if raw.Type != models.RoomDirect {
			continue
		}
		if samePair(raw.UserIDs, sess.UserID, otherUserID) {
			return r.hydrate(ctx, raw)
		}
	}

	users, err := r.resolveRoster(ctx, []string{sess.UserID, otherUserID})
	if err != nil {
		return models.Room{}, err
	}
	now := time.Now().UnixMilli()
	room := models.Room{
		Type:      models.RoomDirect,
		Metadata:  metadata,
		Users:     users,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	// Direct rooms persist no role map.
	data := schema.RoomToRecord(room)
	delete(data, "userRoles")

	if r.deterministicDirectIDs {
		id := directRoomID(sess.UserID, otherUserID)
		if err := r.store.Set(ctx, schema.RoomsCollection, id, data); err != nil {
			return models.Room{}, err
		}
		room.ID = id
	} else {
		id, err := r.store.Create(ctx, schema.RoomsCollection, data)
		if err != nil {
			return models.Room{}, err
		}
		room.ID = id
	}

	r.logger.Info("direct room created", zap.String("room_id", room.ID))
	events.Emit(ctx, r.publisher, events.RoomsKey, events.NewEnvelope("room_created", sess.UserID, room.ID, map[string]any{
		"type": string(models.RoomDirect),
	}))
	return room, nil
}

// CreateRoomWithCustomID creates a group room under a caller-supplied
// document key. The returned roster additionally carries the synthetic
// assistant participant; the persisted roster never includes it, so the
// returned and stored state deliberately diverge here. Callers must not
// treat the assistant's presence as an authorization grant.
func (r *Resolver) CreateRoomWithCustomID(ctx context.Context, sess session.Session, id string, in GroupRoomInput) (models.Room, error) {
	if !sess.Authenticated() {
		return models.Room{}, session.ErrUnauthenticated
	}
	if id == "" {
		return models.Room{}, fmt.Errorf("%w: custom room id must not be empty", ErrInvalidRoomInput)
	}
	if in.Name == "" || len(in.UserIDs) == 0 {
		return models.Room{}, fmt.Errorf("%w: group room requires a name and at least one other user", ErrInvalidRoomInput)
	}

	users, err := r.resolveRoster(ctx, append([]string{sess.UserID}, in.UserIDs...))
	if err != nil {
		return models.Room{}, err
	}
	admin := models.RoleAdmin
	users[0].Role = &admin

	now := time.Now().UnixMilli()
	room := models.Room{
		ID:        id,
		Type:      models.RoomGroup,
		Name:      in.Name,
		ImageURL:  in.ImageURL,
		Metadata:  in.Metadata,
		Users:     users,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	data := schema.RoomToRecord(room)
	data["clientId"] = id
	if err := r.store.Set(ctx, schema.RoomsCollection, id, data); err != nil {
		return models.Room{}, err
	}

	agent := models.RoleAgent
	room.Users = append(room.Users, models.User{ID: AssistantUserID, FirstName: "Assistant", Role: &agent})

	r.logger.Info("custom-id room created", zap.String("room_id", id))
	events.Emit(ctx, r.publisher, events.RoomsKey, events.NewEnvelope("room_created", sess.UserID, id, map[string]any{
		"type":      string(models.RoomGroup),
		"client_id": id,
	}))
	return room, nil
}

// Room fetches and hydrates one room.
func (r *Resolver) Room(ctx context.Context, sess session.Session, id string) (models.Room, error) {
	if !sess.Authenticated() {
		return models.Room{}, session.ErrUnauthenticated
	}
	rec, err := r.store.Get(ctx, schema.RoomsCollection, id)
	if err != nil {
		return models.Room{}, err
	}
	raw, err := schema.RoomFromRecord(rec)
	if err != nil {
		return models.Room{}, err
	}
	return r.hydrate(ctx, raw)
}

// Rooms lists every room the current user participates in.
func (r *Resolver) Rooms(ctx context.Context, sess session.Session) ([]models.Room, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	recs, err := r.store.Query(ctx, store.Query{
		Collection: schema.RoomsCollection,
		Filters: []store.Filter{
			{Field: "userIds", Op: store.OpArrayContains, Value: sess.UserID},
		},
		OrderBy:    "updatedAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return r.hydrateAll(ctx, recs)
}

// SubscribeRooms delivers the current user's room list on every change
// to the rooms collection.
func (r *Resolver) SubscribeRooms(ctx context.Context, sess session.Session) (<-chan []models.Room, error) {
	if !sess.Authenticated() {
		return nil, session.ErrUnauthenticated
	}
	snaps, err := r.store.Subscribe(ctx, store.Query{
		Collection: schema.RoomsCollection,
		Filters: []store.Filter{
			{Field: "userIds", Op: store.OpArrayContains, Value: sess.UserID},
		},
		OrderBy:    "updatedAt",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan []models.Room)
	go func() {
		defer close(out)
		for snap := range snaps {
			rooms, err := r.hydrateAll(ctx, snap.Records)
			if err != nil {
				r.logger.Warn("room snapshot hydration failed", zap.Error(err))
				return
			}
			select {
			case out <- rooms:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *Resolver) hydrateAll(ctx context.Context, recs []store.Record) ([]models.Room, error) {
	rooms := make([]models.Room, 0, len(recs))
	for _, rec := range recs {
		raw, err := schema.RoomFromRecord(rec)
		if err != nil {
			return nil, err
		}
		room, err := r.hydrate(ctx, raw)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// hydrate resolves the stored id list into full users and intersects the
// stored role map. Ids that no longer resolve get a placeholder entry so
// that rooms survive account removals.
func (r *Resolver) hydrate(ctx context.Context, raw schema.RoomRecord) (models.Room, error) {
	users := make([]models.User, 0, len(raw.UserIDs))
	for _, id := range raw.UserIDs {
		u, err := r.directory.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				u = models.Placeholder(id)
			} else {
				return models.Room{}, err
			}
		}
		if role, ok := raw.UserRoles[id]; ok {
			role := role
			u.Role = &role
		}
		users = append(users, u)
	}
	return models.Room{
		ID:        raw.ID,
		Type:      raw.Type,
		Name:      raw.Name,
		ImageURL:  raw.ImageURL,
		Metadata:  raw.Metadata,
		Users:     users,
		CreatedAt: raw.CreatedAt,
		UpdatedAt: raw.UpdatedAt,
	}, nil
}

// resolveRoster hydrates creation-time rosters the same way.
func (r *Resolver) resolveRoster(ctx context.Context, ids []string) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		u, err := r.directory.GetUser(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				u = models.Placeholder(id)
			} else {
				return nil, err
			}
		}
		users = append(users, u)
	}
	return users, nil
}

// samePair reports whether ids is exactly the two-element set {a, b},
// ignoring order.
func samePair(ids []string, a, b string) bool {
	if len(ids) != 2 {
		return false
	}
	return (ids[0] == a && ids[1] == b) || (ids[0] == b && ids[1] == a)
}

// directRoomID derives a stable room key from the sorted user pair.
func directRoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return uuid.NewSHA1(directRoomNamespace, []byte(strings.Join(pair, "\x00"))).String()
}
