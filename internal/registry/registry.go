package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/identity"
	"github.com/tuneroom/live-service/internal/protocol"
)

// Sender is the transport half of a connection: it delivers one outbound
// event to the peer. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ev protocol.Event) error
}

type conn struct {
	mu          sync.Mutex
	id          string
	userID      string
	rooms       map[string]struct{}
	sender      Sender
	connectedAt time.Time
}

// Registry owns every live connection and the user index used for fan-out.
// Mutations serialize per connection; the registry maps are guarded
// separately so lookups for unrelated connections never contend.
type Registry struct {
	verifier identity.Verifier

	mu     sync.RWMutex
	conns  map[string]*conn
	byUser map[string]map[string]struct{}
}

func New(verifier identity.Verifier) *Registry {
	return &Registry{
		verifier: verifier,
		conns:    make(map[string]*conn),
		byUser:   make(map[string]map[string]struct{}),
	}
}

// Register creates an unauthenticated connection record and returns its ID.
func (r *Registry) Register(sender Sender) string {
	c := &conn{
		id:          uuid.New().String(),
		rooms:       make(map[string]struct{}),
		sender:      sender,
		connectedAt: time.Now(),
	}

	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()

	return c.id
}

// Authenticate validates the credential with the identity collaborator and
// attaches the resulting user to the connection. The verifier call happens
// before any lock is taken.
func (r *Registry) Authenticate(ctx context.Context, connID, token string) (string, error) {
	userID, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns[connID]
	if !ok {
		return "", domain.ErrUnauthorized
	}

	c.mu.Lock()
	prev := c.userID
	c.userID = userID
	c.mu.Unlock()

	if prev != "" && prev != userID {
		r.dropUserIndex(prev, connID)
	}
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]struct{})
		r.byUser[userID] = set
	}
	set[connID] = struct{}{}

	return userID, nil
}

// Unregister removes the connection and returns the user and rooms it still
// had joined so the caller can release memberships. Idempotent: a second
// call reports ok=false and changes nothing.
func (r *Registry) Unregister(connID string) (userID string, rooms []string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, found := r.conns[connID]
	if !found {
		return "", nil, false
	}
	delete(r.conns, connID)

	c.mu.Lock()
	userID = c.userID
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.rooms = make(map[string]struct{})
	c.mu.Unlock()

	if userID != "" {
		r.dropUserIndex(userID, connID)
	}
	return userID, rooms, true
}

// UserOf returns the authenticated user of a connection, empty if the
// connection is unknown or not yet authenticated.
func (r *Registry) UserOf(connID string) string {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// ConnectionsFor lists every live connection of a user.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// SenderOf returns the transport handle for direct addressing.
func (r *Registry) SenderOf(connID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return c.sender, true
}

// TrackJoin records the room on the connection's owned set.
func (r *Registry) TrackJoin(connID, roomID string) {
	r.withConn(connID, func(c *conn) { c.rooms[roomID] = struct{}{} })
}

// TrackLeave removes the room from the connection's owned set.
func (r *Registry) TrackLeave(connID, roomID string) {
	r.withConn(connID, func(c *conn) { delete(c.rooms, roomID) })
}

func (r *Registry) withConn(connID string, fn func(*conn)) {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	fn(c)
	c.mu.Unlock()
}

// dropUserIndex is called with r.mu held.
func (r *Registry) dropUserIndex(userID, connID string) {
	if set, ok := r.byUser[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}
