package core

import (
	"context"
	"fmt"
	"log/slog"

	"chatcore/internal/chat"
	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// JoinConversation subscribes the connection to a conversation room.
// Membership is checked against the store, not against any transient
// state a client could influence.
func (c *Core) JoinConversation(ctx context.Context, conn *registry.Conn, conversationID string) error {
	ok, err := c.store.IsParticipant(ctx, conn.Identity.ID, conversationID)
	if err != nil {
		return fmt.Errorf("participant check: %w", err)
	}
	if !ok {
		return chat.Permission("You don't have access to this conversation!")
	}

	c.reg.Subscribe(conn.ID, conversationID)
	c.emit(conn, events.JoinedConversation, events.Ack{
		Success:        true,
		ConversationID: conversationID,
		Message:        "Successfully joined conversation",
	})
	c.logger.Debug("connection joined room",
		slog.String("userID", conn.Identity.ID),
		slog.String("conversationID", conversationID),
	)
	return nil
}

// LeaveConversation drops the local subscription. It never mutates
// participant state and is idempotent: leaving a room twice acks twice
// without error.
func (c *Core) LeaveConversation(ctx context.Context, conn *registry.Conn, conversationID string) error {
	c.reg.Unsubscribe(conn.ID, conversationID)
	c.emit(conn, events.LeftConversation, events.Ack{
		Success:        true,
		ConversationID: conversationID,
		Message:        "Successfully left conversation",
	})
	return nil
}

// InitializeRooms joins the connection to every conversation its identity
// participates in. Called once per new connection; when the identity just
// came online (first live connection) an online presence event goes into
// each of those rooms.
func (c *Core) InitializeRooms(ctx context.Context, conn *registry.Conn) error {
	convs, err := c.store.ConversationsForUser(ctx, conn.Identity.ID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	joined := make([]string, 0, len(convs))
	for _, conv := range convs {
		c.reg.Subscribe(conn.ID, conv.ID)
		joined = append(joined, conv.ID)
	}

	c.emit(conn, events.RoomsInitialized, events.RoomsInitializedPayload{
		Success:     true,
		JoinedRooms: joined,
		Message:     fmt.Sprintf("Joined %d conversation rooms", len(joined)),
	})

	if c.reg.ConnectionCount(conn.Identity.ID) == 1 {
		c.broadcastOnline(conn, joined)
	}

	c.logger.Info("user rooms initialized",
		slog.String("userID", conn.Identity.ID),
		slog.Int("rooms", len(joined)),
	)
	return nil
}

// GetConversations returns the identity's conversation list, with
// personal conversations projected to show the other participant.
func (c *Core) GetConversations(ctx context.Context, conn *registry.Conn) error {
	convs, err := c.store.ConversationsForUser(ctx, conn.Identity.ID)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	views := chat.ViewsFor(convs, conn.Identity.ID)
	c.emit(conn, events.ConversationsReceived, events.ConversationsPayload{
		Success:       true,
		Conversations: views,
		Count:         len(views),
	})
	return nil
}
