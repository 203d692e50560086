package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/tuneroom/live-service/internal/domain"
	"github.com/tuneroom/live-service/internal/history"
	"github.com/tuneroom/live-service/internal/protocol"
	"github.com/tuneroom/live-service/pkg/logger"
)

// Dispatch is the error boundary around every inbound event. Domain errors
// become a single addressed error event back to the originating connection;
// unexpected failures (panics included) are logged with full context and
// surfaced as an opaque internal error. Nothing that happens here may affect
// any other connection or room.
func (g *Gateway) Dispatch(ctx context.Context, connID string, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panic",
				"conn", connID,
				"event", env.Event,
				"panic", r,
				"stack", string(debug.Stack()))
			g.emitError(connID, "Internal", "internal error")
		}
	}()

	if err := g.handle(ctx, connID, env); err != nil {
		code := domain.ErrorCode(err)
		if code == "Internal" {
			slog.LogAttrs(ctx, slog.LevelError, "event failed",
				append(logger.AttrsFromCtx(ctx),
					slog.String("conn", connID),
					slog.String("event", string(env.Event)),
					slog.Any("err", err))...)
			g.emitError(connID, code, "internal error")
			return
		}
		slog.Debug("event rejected", "conn", connID, "event", env.Event, "code", code)
		g.emitError(connID, code, err.Error())
	}
}

func (g *Gateway) handle(ctx context.Context, connID string, env protocol.Envelope) error {
	switch env.Event {
	case protocol.KindConnectUser:
		return g.handleConnectUser(ctx, connID, env.Payload)
	case protocol.KindJoinRoom:
		return g.handleJoinRoom(ctx, connID, env.Payload)
	case protocol.KindLeaveRoom:
		return g.handleLeaveRoom(ctx, connID, env.Payload)
	case protocol.KindLiveMessage:
		return g.handleLiveMessage(ctx, connID, env.Payload)
	case protocol.KindEmojiReaction:
		return g.handleEmojiReaction(ctx, connID, env.Payload)
	case protocol.KindDirectMessage:
		return g.handleDirectMessage(ctx, connID, env.Payload)
	case protocol.KindTyping:
		return g.handleTyping(ctx, connID, env.Payload, protocol.KindTyping)
	case protocol.KindStopTyping:
		return g.handleTyping(ctx, connID, env.Payload, protocol.KindStopTyping)
	case protocol.KindGetLiveHistory:
		return g.handleLiveHistory(ctx, connID, env.Payload)
	case protocol.KindGetDirectHistory:
		return g.handleDirectHistory(ctx, connID, env.Payload)
	case protocol.KindInitPlay:
		return g.handlePlayback(ctx, connID, env.Payload, protocol.KindPlayMedia)
	case protocol.KindInitPause:
		return g.handlePlayback(ctx, connID, env.Payload, protocol.KindPauseMedia)
	case protocol.KindInitStop:
		return g.handlePlayback(ctx, connID, env.Payload, protocol.KindStopMedia)
	case protocol.KindSeekMedia:
		return g.handlePlayback(ctx, connID, env.Payload, protocol.KindSeekMedia)
	default:
		return fmt.Errorf("%w: unknown event %q", domain.ErrInvalidEvent, env.Event)
	}
}

func (g *Gateway) emitError(connID, code, message string) {
	g.sendTo(connID, protocol.Event{
		Event:   protocol.KindError,
		Payload: protocol.ErrorPayload{Code: code, Message: message},
	})
}

func historyErr(err error) error {
	if errors.Is(err, history.ErrInvalidCursor) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	return err
}
