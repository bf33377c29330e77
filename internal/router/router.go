// Package router decodes inbound protocol events and dispatches them to
// the core. One canonical handler per event name; recoverable failures
// are reported back on the connection as error events, and a per-event
// recover boundary keeps a misbehaving handler from tearing down the
// processing loop.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"chatcore/internal/chat"
	"chatcore/internal/core"
	"chatcore/internal/events"
	"chatcore/internal/registry"
)

type EventRouter struct {
	logger   *slog.Logger
	core     *core.Core
	reg      *registry.Registry
	validate *validator.Validate
}

func New(logger *slog.Logger, c *core.Core) *EventRouter {
	return &EventRouter{
		logger:   logger.With(slog.String("component", "event_router")),
		core:     c,
		reg:      c.Registry(),
		validate: validator.New(),
	}
}

// HandleMessage processes one inbound frame from one connection. The
// transport invokes it synchronously from the read loop, so events from a
// single connection never interleave with each other.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, raw []byte) {
	conn, ok := r.reg.Get(connID)
	if !ok {
		r.logger.Warn("frame from unregistered connection", slog.String("connID", connID.String()))
		return
	}

	var env events.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.emitError(conn, "Invalid message format")
		return
	}

	logger := r.logger.With(
		slog.String("event", env.Event),
		slog.String("connID", connID.String()),
		slog.String("userID", conn.Identity.ID),
	)
	if convID := gjson.GetBytes(env.Payload, "conversationId"); convID.Exists() {
		logger = logger.With(slog.String("conversationID", convID.String()))
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic while handling event", slog.Any("panic", rec))
			r.emitError(conn, "Internal server error")
		}
	}()

	logger.Debug("handling event")
	if err := r.dispatch(ctx, conn, env); err != nil {
		if chat.IsDomain(err) {
			r.emitError(conn, err.Error())
			return
		}
		logger.Error("event handler failed", slog.Any("error", err))
		r.emitError(conn, "Internal server error")
	}
}

func (r *EventRouter) dispatch(ctx context.Context, conn *registry.Conn, env events.Envelope) error {
	switch env.Event {
	case events.InitializeUserRooms:
		return r.core.InitializeRooms(ctx, conn)

	case events.GetConversations:
		return r.core.GetConversations(ctx, conn)

	case events.JoinConversation:
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.JoinConversation(ctx, conn, p.ConversationID)

	case events.LeaveConversation:
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.LeaveConversation(ctx, conn, p.ConversationID)

	case events.SendMessage:
		p, err := decode[events.SendMessageRequest](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.SendMessage(ctx, conn, p.ConversationID, p.Content, chat.MessageType(p.Type))

	case events.GetMessages:
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.GetMessages(ctx, conn, p.ConversationID)

	case events.TypingStart, events.TypingEnd:
		// Fire-and-forget; malformed indicator frames are dropped.
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return nil
		}
		if env.Event == events.TypingStart {
			r.core.TypingStart(conn, p.ConversationID)
		} else {
			r.core.TypingEnd(conn, p.ConversationID)
		}
		return nil

	case events.GetParticipants:
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.GetParticipants(ctx, conn, p.ConversationID)

	case events.AddParticipant:
		p, err := decode[events.AddParticipantRequest](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.AddParticipant(ctx, conn, p.ConversationID, p.UserID)

	case events.RemoveParticipant:
		p, err := decode[events.RemoveParticipantRequest](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.RemoveParticipant(ctx, conn, p.ConversationID, p.ParticipantID)

	case events.UpdateRole:
		p, err := decode[events.UpdateRoleRequest](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.UpdateRole(ctx, conn, p.ConversationID, p.ParticipantID, chat.Role(p.Role))

	case events.LeaveGroup:
		p, err := decode[events.ConversationRef](r, env.Payload)
		if err != nil {
			return err
		}
		return r.core.LeaveGroup(ctx, conn, p.ConversationID)

	default:
		return chat.Validation(fmt.Sprintf("Unknown event: %s", env.Event))
	}
}

func (r *EventRouter) emitError(conn *registry.Conn, message string) {
	msg, err := events.Marshal(events.Error, events.ErrorPayload{Message: message})
	if err != nil {
		r.logger.Error("failed to marshal error event", slog.Any("error", err))
		return
	}
	conn.Transport.Send(msg)
}

// fieldLabels maps payload struct fields to the names used in
// client-facing validation messages.
var fieldLabels = map[string]string{
	"ConversationID": "Conversation ID",
	"UserID":         "User ID",
	"ParticipantID":  "Participant ID",
	"Content":        "Message content",
	"Role":           "Role",
}

func decode[T any](r *EventRouter, raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, chat.Validation("Payload is required")
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, chat.Validation("Invalid payload")
	}
	if err := r.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			field := verrs[0].StructField()
			label, found := fieldLabels[field]
			if !found {
				label = field
			}
			if verrs[0].Tag() == "required" {
				return p, chat.Validation(fmt.Sprintf("%s is required", label))
			}
			return p, chat.Validation(fmt.Sprintf("%s is invalid", label))
		}
		return p, chat.Validation("Invalid payload")
	}
	return p, nil
}
