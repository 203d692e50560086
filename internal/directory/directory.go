package directory

import (
	"sync"
	"time"

	"github.com/tuneroom/live-service/internal/domain"
)

// ConnIndex expands a member into that user's live connections. Satisfied by
// the connection registry.
type ConnIndex interface {
	ConnectionsFor(userID string) []string
}

type room struct {
	mu        sync.Mutex
	id        string
	state     domain.RoomState
	ephemeral bool
	createdAt time.Time
	deleted   bool

	members []string          // user IDs in join order
	conns   map[string]string // connID -> userID
	perUser map[string]int    // userID -> live joins across connections
}

// Directory owns room state. Joins and leaves on the same room serialize on
// that room's lock; different rooms never contend. The directory map itself
// is only touched on create and reclaim.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*room
	conns ConnIndex
}

func New(conns ConnIndex) *Directory {
	return &Directory{rooms: make(map[string]*room), conns: conns}
}

type JoinResult struct {
	Created   bool
	NewMember bool // first join of this user, via any connection
	Members   []string
}

type LeaveResult struct {
	UserLeft    bool // no connection of the user remains joined
	RoomDeleted bool
}

// Join adds a connection-level join, creating the room on first contact.
// Membership is deduplicated per user; archived rooms reject joins.
func (d *Directory) Join(roomID, userID, connID string, ephemeral bool) (JoinResult, error) {
	for {
		d.mu.Lock()
		r, ok := d.rooms[roomID]
		created := false
		if !ok {
			r = &room{
				id:        roomID,
				state:     domain.RoomActive,
				ephemeral: ephemeral,
				createdAt: time.Now(),
				conns:     make(map[string]string),
				perUser:   make(map[string]int),
			}
			d.rooms[roomID] = r
			created = true
		}
		d.mu.Unlock()

		r.mu.Lock()
		if r.deleted {
			// комната была удалена между lookup и lock — пересоздаём
			r.mu.Unlock()
			d.reclaim(roomID, r)
			continue
		}
		if r.state == domain.RoomArchived {
			r.mu.Unlock()
			return JoinResult{}, domain.ErrRoomNotJoinable
		}
		if _, dup := r.conns[connID]; !dup {
			r.conns[connID] = userID
			r.perUser[userID]++
		}
		newMember := false
		if r.perUser[userID] == 1 && !contains(r.members, userID) {
			r.members = append(r.members, userID)
			newMember = true
		}
		members := append([]string(nil), r.members...)
		r.mu.Unlock()

		return JoinResult{Created: created, NewMember: newMember, Members: members}, nil
	}
}

// Leave removes the connection-level join. The user stays a member while any
// of their other connections remains joined; an ephemeral room is reclaimed
// once its last member leaves.
func (d *Directory) Leave(roomID, userID, connID string) (LeaveResult, error) {
	r, err := d.lookup(roomID)
	if err != nil {
		return LeaveResult{}, err
	}

	r.mu.Lock()
	if owner, ok := r.conns[connID]; !ok || owner != userID {
		r.mu.Unlock()
		return LeaveResult{}, domain.ErrNotAMember
	}
	delete(r.conns, connID)
	r.perUser[userID]--

	res := LeaveResult{}
	if r.perUser[userID] <= 0 {
		delete(r.perUser, userID)
		r.members = remove(r.members, userID)
		res.UserLeft = true
	}
	if len(r.members) == 0 && r.ephemeral {
		r.deleted = true
		res.RoomDeleted = true
	}
	r.mu.Unlock()

	if res.RoomDeleted {
		d.reclaim(roomID, r)
	}
	return res, nil
}

// Members returns the membership in join order.
func (d *Directory) Members(roomID string) ([]string, error) {
	r, err := d.lookup(roomID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return nil, domain.ErrRoomNotFound
	}
	return append([]string(nil), r.members...), nil
}

// IsMember reports whether the user is currently joined via any connection.
func (d *Directory) IsMember(roomID, userID string) bool {
	r, err := d.lookup(roomID)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.deleted && r.perUser[userID] > 0
}

// BroadcastTargets expands the current membership into connection IDs via
// the registry, preserving member join order.
func (d *Directory) BroadcastTargets(roomID string) ([]string, error) {
	members, err := d.Members(roomID)
	if err != nil {
		return nil, err
	}

	var targets []string
	for _, userID := range members {
		targets = append(targets, d.conns.ConnectionsFor(userID)...)
	}
	return targets, nil
}

// Exists reports whether the room is known (active or archived).
func (d *Directory) Exists(roomID string) bool {
	_, err := d.lookup(roomID)
	return err == nil
}

// Archive closes a persistent room: further joins are rejected, history
// stays readable. Archiving an ephemeral room is not meaningful and fails.
func (d *Directory) Archive(roomID string) error {
	r, err := d.lookup(roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted {
		return domain.ErrRoomNotFound
	}
	if r.ephemeral {
		return domain.ErrRoomNotJoinable
	}
	r.state = domain.RoomArchived
	return nil
}

func (d *Directory) lookup(roomID string) (*room, error) {
	d.mu.RLock()
	r, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return r, nil
}

func (d *Directory) reclaim(roomID string, r *room) {
	d.mu.Lock()
	if cur, ok := d.rooms[roomID]; ok && cur == r {
		delete(d.rooms, roomID)
	}
	d.mu.Unlock()
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func remove(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
