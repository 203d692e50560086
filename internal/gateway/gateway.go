package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tuneroom/live-service/internal/directory"
	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/history"
	"github.com/tuneroom/live-service/internal/moderation"
	"github.com/tuneroom/live-service/internal/protocol"
	"github.com/tuneroom/live-service/internal/registry"
)

type Config struct {
	AuthTimeout       time.Duration
	ModerationTimeout time.Duration
	AppendRetries     int
	AppendBackoff     time.Duration
}

func (c Config) withDefaults() Config {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 5 * time.Second
	}
	if c.ModerationTimeout <= 0 {
		c.ModerationTimeout = 2 * time.Second
	}
	if c.AppendRetries <= 0 {
		c.AppendRetries = 3
	}
	if c.AppendBackoff <= 0 {
		c.AppendBackoff = 50 * time.Millisecond
	}
	return c
}

// Gateway multiplexes every inbound event across rooms: it validates the
// sender against the registry and directory, gates chat through the
// moderator, appends accepted messages to the history store and fans the
// result out to the derived connection set.
type Gateway struct {
	cfg       Config
	registry  *registry.Registry
	directory *directory.Directory
	moderator moderation.Moderator
	store     history.Store
	catalog   RoomCatalog

	sendLocks *keyedLocks
}

func New(cfg Config, reg *registry.Registry, dir *directory.Directory, mod moderation.Moderator, store history.Store, catalog RoomCatalog) *Gateway {
	if catalog == nil {
		catalog = OpenCatalog{}
	}
	return &Gateway{
		cfg:       cfg.withDefaults(),
		registry:  reg,
		directory: dir,
		moderator: mod,
		store:     store,
		catalog:   catalog,
		sendLocks: newKeyedLocks(),
	}
}

// Connected registers a fresh transport connection.
func (g *Gateway) Connected(sender registry.Sender) string {
	return g.registry.Register(sender)
}

// Disconnected releases everything the connection held: registry record and
// every room membership, broadcasting departures where the user fully left.
// Idempotent.
func (g *Gateway) Disconnected(connID string) {
	userID, rooms, ok := g.registry.Unregister(connID)
	if !ok {
		return
	}
	for _, roomID := range rooms {
		res, err := g.leaveRoom(roomID, userID, connID)
		if err != nil {
			slog.Debug("disconnect leave", "room", roomID, "user", userID, "err", err)
			continue
		}
		if res.UserLeft && !res.RoomDeleted {
			g.broadcastRoom(roomID, protocol.Event{
				Event:   protocol.KindUserLeftRoom,
				Payload: protocol.UserRoomPayload{RoomID: roomID, UserID: userID},
			}, userID)
		}
	}
}

// leaveRoom releases a connection-level join and, when that reclaims an
// ephemeral room, drops its history before releasing the target's send lock.
// Holding the lock across the leave and the drop guarantees a recreated room
// cannot append to the old log: any new send on the reused ID serializes
// behind the drop.
func (g *Gateway) leaveRoom(roomID, userID, connID string) (directory.LeaveResult, error) {
	target := domain.RoomTarget(roomID)
	release := g.sendLocks.acquire(target.Key())
	defer release()

	res, err := g.directory.Leave(roomID, userID, connID)
	if err != nil || !res.RoomDeleted {
		return res, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.store.Drop(ctx, target); err != nil {
		slog.Warn("drop room history", "room", roomID, "err", err)
	}
	return res, nil
}

// authedUser resolves the sender's identity from the connection, never from
// a client-supplied claim.
func (g *Gateway) authedUser(connID string) (string, error) {
	userID := g.registry.UserOf(connID)
	if userID == "" {
		return "", domain.ErrUnauthorized
	}
	return userID, nil
}

// requireMember distinguishes a missing room from a non-member sender.
func (g *Gateway) requireMember(roomID, userID string) error {
	if !g.directory.Exists(roomID) {
		return domain.ErrRoomNotFound
	}
	if !g.directory.IsMember(roomID, userID) {
		return domain.ErrNotAMember
	}
	return nil
}

// moderate runs the classifier on an immutable copy, bounded by the
// moderation timeout and outside every room lock. A timed-out or failed
// evaluation fails closed: the message is neither stored nor delivered.
func (g *Gateway) moderate(ctx context.Context, msg domain.Message) (moderation.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.ModerationTimeout)
	defer cancel()

	v, err := g.moderator.Evaluate(ctx, msg)
	if err != nil {
		return moderation.Verdict{}, fmt.Errorf("moderation: %w", err)
	}
	if v.Decision == moderation.Block {
		return v, fmt.Errorf("%w: %s", domain.ErrMessageRejected, v.Reason)
	}
	return v, nil
}

// appendWithRetry retries transient storage failures a bounded number of
// times with doubling backoff before surfacing the error to the boundary.
func (g *Gateway) appendWithRetry(ctx context.Context, msg domain.Message) (domain.Message, error) {
	backoff := g.cfg.AppendBackoff
	var lastErr error
	for attempt := 0; attempt < g.cfg.AppendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.Message{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		stored, err := g.store.Append(ctx, msg)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			return domain.Message{}, err
		}
		lastErr = err
		slog.Warn("history append retry", "target", msg.Target.Key(), "attempt", attempt+1, "err", err)
	}
	return domain.Message{}, fmt.Errorf("append after %d attempts: %w", g.cfg.AppendRetries, lastErr)
}

// sendTo delivers to a single connection, best-effort; a dead peer is the
// transport's problem, not the event's.
func (g *Gateway) sendTo(connID string, ev protocol.Event) {
	s, ok := g.registry.SenderOf(connID)
	if !ok {
		return
	}
	if err := s.Send(ev); err != nil {
		slog.Debug("send failed", "conn", connID, "event", ev.Event, "err", err)
	}
}

// broadcastRoom fans an event out to every member connection, skipping every
// connection of excludeUser when set.
func (g *Gateway) broadcastRoom(roomID string, ev protocol.Event, excludeUser string) {
	targets, err := g.directory.BroadcastTargets(roomID)
	if err != nil {
		return
	}
	var excluded map[string]struct{}
	if excludeUser != "" {
		own := g.registry.ConnectionsFor(excludeUser)
		excluded = make(map[string]struct{}, len(own))
		for _, id := range own {
			excluded[id] = struct{}{}
		}
	}
	for _, connID := range targets {
		if _, skip := excluded[connID]; skip {
			continue
		}
		g.sendTo(connID, ev)
	}
}
