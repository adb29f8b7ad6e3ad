// Package chatcore projects a document store's raw records into typed
// chat entities and coordinates multi-step writes against the store and
// an associated blob store. It is a library: applications construct a
// Client from concrete backends and call the component APIs; there is
// no network surface here.
package chatcore

import (
	"go.uber.org/zap"

	"chat-core/blob"
	"chat-core/directory"
	"chat-core/events"
	"chat-core/media"
	"chat-core/messages"
	"chat-core/rooms"
	"chat-core/store"
)

// Client bundles the component APIs over one store/blob/directory
// triple. Components can also be constructed individually.
type Client struct {
	Rooms    *rooms.Resolver
	Messages *messages.Projector
	Ops      *messages.Operations
	Media    *media.Coordinator

	publisher events.Publisher
	closers   []func() error
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger           *zap.Logger
	publisher        events.Publisher
	deterministicIDs bool
}

// WithLogger attaches a logger to every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPublisher attaches a domain-event publisher to every component.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithDeterministicDirectRoomIDs derives direct-room keys from the
// sorted user pair, closing the duplicate-room race window.
func WithDeterministicDirectRoomIDs() Option {
	return func(o *options) { o.deterministicIDs = true }
}

// New wires a Client.
func New(st store.Store, blobs blob.Storage, dir directory.Directory, opts ...Option) *Client {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	roomOpts := []rooms.Option{rooms.WithLogger(o.logger), rooms.WithPublisher(o.publisher)}
	if o.deterministicIDs {
		roomOpts = append(roomOpts, rooms.WithDeterministicDirectRoomIDs())
	}

	return &Client{
		Rooms:    rooms.NewResolver(st, dir, roomOpts...),
		Messages: messages.NewProjector(st, messages.WithProjectorLogger(o.logger)),
		Ops:      messages.NewOperations(st, messages.WithOpsLogger(o.logger), messages.WithOpsPublisher(o.publisher)),
		Media:    media.NewCoordinator(st, blobs, media.WithLogger(o.logger), media.WithPublisher(o.publisher)),

		publisher: o.publisher,
	}
}

// Close releases the publisher and any backend owned by the client.
// Backends passed to New stay the caller's to close; FromConfig hands
// ownership of the ones it opens to the client.
func (c *Client) Close() error {
	var first error
	if c.publisher != nil {
		first = c.publisher.Close()
	}
	for _, close := range c.closers {
		if err := close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
