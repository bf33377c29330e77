// Package registry owns all transient connection state: which identities
// hold live connections and which connections are subscribed to which
// conversation rooms. Nothing here touches the persistent store, and the
// backing maps are never handed out to other components.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/chat"
)

// Sender is the transport-facing half of a connection. Send must be safe
// for concurrent use and must not block the caller.
type Sender interface {
	Send(msg []byte)
	Close(err error)
}

// Conn is one live, authenticated connection of an identity. The identity
// is attached at registration and immutable afterwards.
type Conn struct {
	ID        uuid.UUID
	Identity  chat.User
	Transport Sender
	CreatedAt time.Time
}

type Registry struct {
	mu        sync.RWMutex
	conns     map[uuid.UUID]*Conn
	users     map[string]map[uuid.UUID]*Conn // userID -> live connections
	rooms     map[string]map[uuid.UUID]*Conn // conversationID -> subscribed connections
	connRooms map[uuid.UUID]map[string]struct{}

	logger *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		conns:     make(map[uuid.UUID]*Conn),
		users:     make(map[string]map[uuid.UUID]*Conn),
		rooms:     make(map[string]map[uuid.UUID]*Conn),
		connRooms: make(map[uuid.UUID]map[string]struct{}),
		logger:    logger.With(slog.String("component", "registry")),
	}
}

// Register adds a connection for its identity. Idempotent per connection
// ID. The returned flag reports a 0->1 transition of the identity's live
// connection count, which is what drives the online presence broadcast.
func (r *Registry) Register(conn *Conn) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[conn.ID]; exists {
		return false
	}

	userID := conn.Identity.ID
	set, ok := r.users[userID]
	if !ok {
		set = make(map[uuid.UUID]*Conn)
		r.users[userID] = set
		first = true
	}
	set[conn.ID] = conn
	r.conns[conn.ID] = conn
	r.connRooms[conn.ID] = make(map[string]struct{})

	r.logger.Debug("connection registered",
		slog.String("connID", conn.ID.String()),
		slog.String("userID", userID),
		slog.Bool("first", first),
	)
	return first
}

// Deregister removes a connection and every room subscription it held.
// It reports the identity, the rooms the connection was in, and whether
// the identity just transitioned to zero live connections (1->0), which
// drives the offline presence broadcast. Safe to call for unknown IDs.
func (r *Registry) Deregister(connID uuid.UUID) (identity chat.User, roomIDs []string, last bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, found := r.conns[connID]
	if !found {
		return chat.User{}, nil, false, false
	}
	delete(r.conns, connID)

	for roomID := range r.connRooms[connID] {
		roomIDs = append(roomIDs, roomID)
		r.dropFromRoom(connID, roomID)
	}
	delete(r.connRooms, connID)

	userID := conn.Identity.ID
	if set, ok := r.users[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.users, userID)
			last = true
		}
	}

	r.logger.Debug("connection deregistered",
		slog.String("connID", connID.String()),
		slog.String("userID", userID),
		slog.Bool("last", last),
	)
	return conn.Identity, roomIDs, last, true
}

func (r *Registry) Get(connID uuid.UUID) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[connID]
	return conn, ok
}

// Connections returns every live connection of an identity, across all of
// its devices.
func (r *Registry) Connections(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	conns := make([]*Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// OldestConnection supports the "cycle" connection-limit mode: the oldest
// device connection is the one closed to make room for a new one.
func (r *Registry) OldestConnection(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var oldest *Conn
	for _, c := range r.users[userID] {
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	return oldest, oldest != nil
}

// Subscribe adds the connection to a room. Idempotent; reports whether
// the subscription is new.
func (r *Registry) Subscribe(connID uuid.UUID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return false
	}
	if _, already := r.connRooms[connID][roomID]; already {
		return false
	}

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[uuid.UUID]*Conn)
		r.rooms[roomID] = room
	}
	room[connID] = conn
	r.connRooms[connID][roomID] = struct{}{}
	return true
}

// Unsubscribe removes the connection from a room. Idempotent; a second
// call for the same room is a no-op.
func (r *Registry) Unsubscribe(connID uuid.UUID, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connRooms[connID][roomID]; !ok {
		return false
	}
	delete(r.connRooms[connID], roomID)
	r.dropFromRoom(connID, roomID)
	return true
}

// dropFromRoom removes the link and garbage-collects empty rooms.
// Callers must hold the write lock.
func (r *Registry) dropFromRoom(connID uuid.UUID, roomID string) {
	if room, ok := r.rooms[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(r.rooms, roomID)
		}
	}
}

// RoomConnections returns every connection currently subscribed to a
// room. An unknown room is an empty room.
func (r *Registry) RoomConnections(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	conns := make([]*Conn, 0, len(room))
	for _, c := range room {
		conns = append(conns, c)
	}
	return conns
}

// Rooms lists the room IDs a connection is subscribed to.
func (r *Registry) Rooms(connID uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.connRooms[connID]))
	for roomID := range r.connRooms[connID] {
		ids = append(ids, roomID)
	}
	return ids
}

// AllConnections returns every live connection, used for process-wide
// broadcasts and graceful shutdown.
func (r *Registry) AllConnections() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
