package core

import (
	"time"

	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// Typing indicators are fire-and-forget: no persistence, no store-side
// authorization, no delivery guarantee. Lost events are acceptable.

func (c *Core) TypingStart(conn *registry.Conn, conversationID string) {
	c.typing(conn, conversationID, events.UserTyping)
}

func (c *Core) TypingEnd(conn *registry.Conn, conversationID string) {
	c.typing(conn, conversationID, events.UserStoppedTyping)
}

func (c *Core) typing(conn *registry.Conn, conversationID, event string) {
	if conversationID == "" {
		return
	}
	c.broadcastRoomExcept(conversationID, conn.ID, event, events.TypingPayload{
		UserID:         conn.Identity.ID,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	})
}
