package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/protocol"
)

func unmarshal(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", domain.ErrInvalidEvent)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	return nil
}

func (g *Gateway) handleConnectUser(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.ConnectUserPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.AuthTimeout)
	defer cancel()

	userID, err := g.registry.Authenticate(ctx, connID, p.Token)
	if err != nil {
		return err
	}

	g.sendTo(connID, protocol.Event{
		Event:   protocol.KindConnected,
		Payload: protocol.ConnectedPayload{UserID: userID},
	})
	return nil
}

func (g *Gateway) handleJoinRoom(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.RoomPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	if p.RoomID == "" {
		return fmt.Errorf("%w: missing roomID", domain.ErrInvalidEvent)
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}

	// catalog facts before any directory mutation: a rejected join must not
	// partially add the user
	facts, err := g.catalog.Authorize(ctx, p.RoomID, userID)
	if err != nil {
		return err
	}
	if facts.Archived {
		// closed upstream: reflect it locally so members see the state too
		if g.directory.Exists(p.RoomID) {
			_ = g.directory.Archive(p.RoomID)
		}
		return domain.ErrRoomNotJoinable
	}

	res, err := g.directory.Join(p.RoomID, userID, connID, !facts.Persistent)
	if err != nil {
		return err
	}
	g.registry.TrackJoin(connID, p.RoomID)

	g.sendTo(connID, protocol.Event{
		Event: protocol.KindRoomJoined,
		Payload: protocol.RoomJoinedPayload{
			RoomID:  p.RoomID,
			Created: res.Created,
			Members: res.Members,
		},
	})
	if res.NewMember {
		g.broadcastRoom(p.RoomID, protocol.Event{
			Event:   protocol.KindUserJoinedRoom,
			Payload: protocol.UserRoomPayload{RoomID: p.RoomID, UserID: userID},
		}, userID)
	}
	return nil
}

func (g *Gateway) handleLeaveRoom(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.RoomPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}

	res, err := g.leaveRoom(p.RoomID, userID, connID)
	if err != nil {
		return err
	}
	g.registry.TrackLeave(connID, p.RoomID)

	g.sendTo(connID, protocol.Event{
		Event:   protocol.KindRoomLeft,
		Payload: protocol.RoomLeftPayload{RoomID: p.RoomID},
	})
	if res.UserLeft && !res.RoomDeleted {
		g.broadcastRoom(p.RoomID, protocol.Event{
			Event:   protocol.KindUserLeftRoom,
			Payload: protocol.UserRoomPayload{RoomID: p.RoomID, UserID: userID},
		}, userID)
	}
	return nil
}

func (g *Gateway) handleLiveMessage(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.LiveMessagePayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	if p.RoomID == "" || p.Body == "" {
		return fmt.Errorf("%w: roomID and body are required", domain.ErrInvalidEvent)
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}
	if err := g.requireMember(p.RoomID, userID); err != nil {
		return err
	}

	msg := domain.Message{
		ID:        uuid.New().String(),
		Target:    domain.RoomTarget(p.RoomID),
		Sender:    userID,
		Body:      p.Body,
		CreatedAt: time.Now(),
	}
	return g.acceptAndFanOut(ctx, connID, msg)
}

func (g *Gateway) handleEmojiReaction(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.EmojiReactionPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	if p.RoomID == "" || p.Emoji == "" {
		return fmt.Errorf("%w: roomID and emoji are required", domain.ErrInvalidEvent)
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}
	if err := g.requireMember(p.RoomID, userID); err != nil {
		return err
	}

	msg := domain.Message{
		ID:        uuid.New().String(),
		Target:    domain.RoomTarget(p.RoomID),
		Sender:    userID,
		Reaction:  &domain.Reaction{Emoji: p.Emoji, MessageID: p.MessageID},
		CreatedAt: time.Now(),
	}
	return g.acceptAndFanOut(ctx, connID, msg)
}

func (g *Gateway) handleDirectMessage(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.DirectMessagePayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	if p.ToUserID == "" || p.Body == "" {
		return fmt.Errorf("%w: toUserID and body are required", domain.ErrInvalidEvent)
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}

	msg := domain.Message{
		ID:        uuid.New().String(),
		Target:    domain.DirectTarget(userID, p.ToUserID),
		Sender:    userID,
		Body:      p.Body,
		CreatedAt: time.Now(),
	}
	return g.acceptAndFanOut(ctx, connID, msg)
}

// acceptAndFanOut is the shared send path: moderation gate first (outside
// all locks), then append and fan-out under the target's send lock so the
// delivery order every subscriber observes matches the log.
func (g *Gateway) acceptAndFanOut(ctx context.Context, connID string, msg domain.Message) error {
	verdict, err := g.moderate(ctx, msg)
	if err != nil {
		return err
	}
	msg.Verdict = domain.Verdict(verdict.Decision)
	msg.VerdictReason = verdict.Reason

	release := g.sendLocks.acquire(msg.Target.Key())
	defer release()

	stored, err := g.appendWithRetry(ctx, msg)
	if err != nil {
		return err
	}

	ack := protocol.MessageAckPayload{MessageID: stored.ID, Seq: stored.Seq}
	kind := protocol.KindMessageReceived
	if stored.Reaction != nil {
		kind = protocol.KindEmojiReaction
	}
	ev := protocol.Event{Event: kind, Payload: toMessagePayload(stored)}

	if stored.Target.Kind == domain.TargetRoom {
		ack.RoomID = stored.Target.RoomID
		g.sendTo(connID, protocol.Event{Event: protocol.KindMessageSent, Payload: ack})
		// echo included: sender's connections are part of the membership
		// expansion, so every client sees the authoritative order
		g.broadcastRoom(stored.Target.RoomID, ev, "")
		return nil
	}

	other := stored.Target.UserA
	if other == stored.Sender {
		other = stored.Target.UserB
	}
	ack.ToUserID = other
	g.sendTo(connID, protocol.Event{Event: protocol.KindMessageSent, Payload: ack})

	seen := make(map[string]struct{})
	for _, uid := range []string{other, stored.Sender} {
		for _, target := range g.registry.ConnectionsFor(uid) {
			if _, dup := seen[target]; dup {
				continue
			}
			seen[target] = struct{}{}
			g.sendTo(target, ev)
		}
	}
	return nil
}

func (g *Gateway) handleTyping(ctx context.Context, connID string, raw json.RawMessage, kind protocol.Kind) error {
	var p protocol.RoomPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}
	if err := g.requireMember(p.RoomID, userID); err != nil {
		return err
	}

	// ephemeral: never stored, suppressed for every connection of the typist
	g.broadcastRoom(p.RoomID, protocol.Event{
		Event:   kind,
		Payload: protocol.UserRoomPayload{RoomID: p.RoomID, UserID: userID},
	}, userID)
	return nil
}

func (g *Gateway) handleLiveHistory(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.LiveHistoryPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}

	// viewing is gated exactly like joining: a private room the catalog
	// denies must not leak history to non-members, active or not. Archived
	// rooms stay readable, so only the Authorize error matters here.
	facts, err := g.catalog.Authorize(ctx, p.RoomID, userID)
	if err != nil {
		return err
	}
	if !facts.Known && !g.directory.Exists(p.RoomID) {
		return domain.ErrRoomNotFound
	}

	page, err := g.store.History(ctx, domain.RoomTarget(p.RoomID), p.PageToken, p.Limit)
	if err != nil {
		return historyErr(err)
	}

	g.sendTo(connID, protocol.Event{
		Event: protocol.KindChatHistory,
		Payload: protocol.ChatHistoryPayload{
			RoomID:        p.RoomID,
			Messages:      toMessagePayloads(page.Messages),
			NextPageToken: page.NextPageToken,
		},
	})
	return nil
}

func (g *Gateway) handleDirectHistory(ctx context.Context, connID string, raw json.RawMessage) error {
	var p protocol.DirectHistoryPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	if p.WithUserID == "" {
		return fmt.Errorf("%w: missing withUserID", domain.ErrInvalidEvent)
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}

	// the sender is always a party to the pair, so always authorized
	page, err := g.store.History(ctx, domain.DirectTarget(userID, p.WithUserID), p.PageToken, p.Limit)
	if err != nil {
		return historyErr(err)
	}

	g.sendTo(connID, protocol.Event{
		Event: protocol.KindChatHistory,
		Payload: protocol.ChatHistoryPayload{
			WithUserID:    p.WithUserID,
			Messages:      toMessagePayloads(page.Messages),
			NextPageToken: page.NextPageToken,
		},
	})
	return nil
}

// handlePlayback relays the playback event surface to the room. No clock or
// queue state lives here; the payload just carries what clients need to
// converge.
func (g *Gateway) handlePlayback(ctx context.Context, connID string, raw json.RawMessage, out protocol.Kind) error {
	var p protocol.PlaybackPayload
	if err := unmarshal(raw, &p); err != nil {
		return err
	}
	userID, err := g.authedUser(connID)
	if err != nil {
		return err
	}
	if err := g.requireMember(p.RoomID, userID); err != nil {
		return err
	}

	g.broadcastRoom(p.RoomID, protocol.Event{
		Event: out,
		Payload: protocol.PlaybackEventPayload{
			RoomID:     p.RoomID,
			UserID:     userID,
			SongID:     p.SongID,
			PositionMS: p.PositionMS,
			UTCTime:    time.Now().UnixMilli(),
		},
	}, "")
	return nil
}

func toMessagePayload(m domain.Message) protocol.MessagePayload {
	out := protocol.MessagePayload{
		MessageID: m.ID,
		Seq:       m.Seq,
		FromUser:  m.Sender,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
	if m.Target.Kind == domain.TargetRoom {
		out.RoomID = m.Target.RoomID
	}
	if m.Reaction != nil {
		out.Emoji = m.Reaction.Emoji
		out.ReactsTo = m.Reaction.MessageID
	}
	return out
}

func toMessagePayloads(msgs []domain.Message) []protocol.MessagePayload {
	out := make([]protocol.MessagePayload, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessagePayload(m))
	}
	return out
}
