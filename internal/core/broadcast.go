package core

import (
	"log/slog"

	"github.com/google/uuid"

	"chatcore/internal/events"
	"chatcore/internal/registry"
)

// emit sends one event to a single connection.
func (c *Core) emit(conn *registry.Conn, event string, payload any) {
	msg, err := events.Marshal(event, payload)
	if err != nil {
		c.logger.Error("failed to marshal outbound event", slog.String("event", event), slog.Any("error", err))
		return
	}
	conn.Transport.Send(msg)
}

// broadcastRoom fans an event out to every connection subscribed to the
// room, the origin included. Delivery is best-effort per member; one slow
// or dead connection never blocks the rest.
func (c *Core) broadcastRoom(roomID, event string, payload any) {
	c.fanOut(c.reg.RoomConnections(roomID), uuid.Nil, event, payload)
}

// broadcastRoomExcept is broadcastRoom minus the originating connection.
// The origin's other devices still receive the event.
func (c *Core) broadcastRoomExcept(roomID string, origin uuid.UUID, event string, payload any) {
	c.fanOut(c.reg.RoomConnections(roomID), origin, event, payload)
}

// broadcastUser reaches every live connection of one identity.
func (c *Core) broadcastUser(userID, event string, payload any) {
	c.fanOut(c.reg.Connections(userID), uuid.Nil, event, payload)
}

// broadcastAll reaches every live connection in the process.
func (c *Core) broadcastAll(event string, payload any) {
	c.fanOut(c.reg.AllConnections(), uuid.Nil, event, payload)
}

func (c *Core) fanOut(conns []*registry.Conn, skip uuid.UUID, event string, payload any) {
	msg, err := events.Marshal(event, payload)
	if err != nil {
		c.logger.Error("failed to marshal outbound event", slog.String("event", event), slog.Any("error", err))
		return
	}
	for _, conn := range conns {
		if conn.ID == skip {
			continue
		}
		conn.Transport.Send(msg)
	}
}
