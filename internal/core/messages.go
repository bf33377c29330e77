package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"chatcore/internal/chat"
	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// SendMessage validates, persists and fans out one chat message.
// Authorization consults the persisted participant table, never the
// transient room subscription: a legitimate participant may send before
// ever joining the room, and a client must not gain access by joining.
func (c *Core) SendMessage(ctx context.Context, conn *registry.Conn, conversationID, content string, typ chat.MessageType) error {
	if strings.TrimSpace(content) == "" {
		return chat.Validation("Message content cannot be empty!")
	}
	if typ == "" {
		typ = chat.MessageText
	}
	if !chat.ValidMessageType(typ) {
		return chat.Validation(fmt.Sprintf("Unknown message type %q", typ))
	}

	ok, err := c.store.IsParticipant(ctx, conn.Identity.ID, conversationID)
	if err != nil {
		return fmt.Errorf("participant check: %w", err)
	}
	if !ok {
		return chat.Permission("You don't have access to this conversation!")
	}

	msg, err := c.store.CreateMessage(ctx, conversationID, conn.Identity.ID, content, typ)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	// The sender may not have joined the room yet.
	c.reg.Subscribe(conn.ID, conversationID)

	c.broadcastRoom(conversationID, events.MessageReceived, events.MessageReceivedPayload{
		Success:        true,
		Message:        msg,
		ConversationID: conversationID,
	})

	if conv, err := c.store.TouchConversation(ctx, conversationID); err != nil {
		c.logger.Warn("failed to touch conversation",
			slog.String("conversationID", conversationID),
			slog.Any("error", err),
		)
	} else {
		c.broadcastRoom(conversationID, events.ConversationUpdated, events.ConversationUpdatedPayload{
			Conversation: conv,
		})
	}

	c.emit(conn, events.MessageSent, events.MessageSentPayload{
		Success:   true,
		MessageID: msg.ID,
		Message:   "Message sent successfully",
	})

	c.logger.Debug("message dispatched",
		slog.String("userID", conn.Identity.ID),
		slog.String("conversationID", conversationID),
		slog.String("messageID", msg.ID),
	)
	return nil
}

// GetMessages returns the full persisted history of a conversation,
// permission-gated identically to SendMessage.
func (c *Core) GetMessages(ctx context.Context, conn *registry.Conn, conversationID string) error {
	ok, err := c.store.IsParticipant(ctx, conn.Identity.ID, conversationID)
	if err != nil {
		return fmt.Errorf("participant check: %w", err)
	}
	if !ok {
		return chat.Permission("You don't have access to this conversation!")
	}

	msgs, err := c.store.Messages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}

	c.emit(conn, events.MessagesReceived, events.MessagesPayload{
		Success:        true,
		ConversationID: conversationID,
		Messages:       msgs,
		Count:          len(msgs),
	})
	return nil
}
