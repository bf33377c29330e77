package core

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// broadcastOnline announces the identity into each of its rooms, skipping
// its own connection. Fired only on the 0->1 connection transition;
// additional devices of an already-online identity stay invisible to
// presence.
func (c *Core) broadcastOnline(conn *registry.Conn, roomIDs []string) {
	now := time.Now()
	for _, roomID := range roomIDs {
		c.broadcastRoomExcept(roomID, conn.ID, events.UserStatusChanged, events.UserStatusPayload{
			UserID:         conn.Identity.ID,
			Status:         events.StatusOnline,
			ConversationID: roomID,
			Timestamp:      now,
		})
	}
}

// HandleDisconnect tears down all registry state for a closed connection.
// Runs unconditionally, even when the disconnect interrupts an
// in-flight operation. When the identity's last connection goes away an
// offline event is broadcast process-wide.
func (c *Core) HandleDisconnect(connID uuid.UUID) {
	identity, _, last, ok := c.reg.Deregister(connID)
	if !ok {
		return
	}
	if !last {
		return
	}

	c.broadcastAll(events.UserStatusChanged, events.UserStatusPayload{
		UserID:    identity.ID,
		Status:    events.StatusOffline,
		Timestamp: time.Now(),
	})
	c.logger.Info("user went offline", slog.String("userID", identity.ID))
}
