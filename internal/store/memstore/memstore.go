// Package memstore is the in-memory reference implementation of the
// store contract. It backs the demo server wiring and the test suites;
// a durable implementation lives outside this repository.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatcore/internal/chat"
	"chatcore/internal/store"
)

type conversation struct {
	meta         chat.Conversation
	participants map[string]chat.Participant // keyed by participant ID
	messages     []chat.Message
}

type Store struct {
	mu      sync.RWMutex
	users   map[string]chat.User
	convs   map[string]*conversation
	lastSeq uint64
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users: make(map[string]chat.User),
		convs: make(map[string]*conversation),
	}
}

// --- Seeding helpers (registration itself is out of scope) ---

func (s *Store) CreateUser(user chat.User) chat.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.users[user.ID] = user
	return user
}

// CreateConversation seeds a conversation. For groups the creator gets
// the admin role; everyone else starts as member. Personal conversations
// hold exactly two member participants.
func (s *Store) CreateConversation(name string, isGroup bool, creatorID string, memberIDs ...string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[creatorID]; !ok {
		return chat.Conversation{}, chat.NotFound("User not found!")
	}

	c := &conversation{
		meta: chat.Conversation{
			ID:        uuid.NewString(),
			Name:      name,
			IsGroup:   isGroup,
			UpdatedAt: time.Now(),
		},
		participants: make(map[string]chat.Participant),
	}

	role := chat.RoleMember
	if isGroup {
		role = chat.RoleAdmin
	}
	c.addParticipant(s.users[creatorID], role)

	for _, id := range memberIDs {
		u, ok := s.users[id]
		if !ok {
			return chat.Conversation{}, chat.NotFound("User not found!")
		}
		c.addParticipant(u, chat.RoleMember)
	}

	s.convs[c.meta.ID] = c
	return c.snapshot(), nil
}

func (c *conversation) addParticipant(u chat.User, role chat.Role) chat.Participant {
	user := u
	p := chat.Participant{
		ID:             uuid.NewString(),
		UserID:         u.ID,
		ConversationID: c.meta.ID,
		Role:           role,
		User:           &user,
	}
	c.participants[p.ID] = p
	return p
}

// snapshot copies the conversation with its roster and last message so
// callers never observe later mutations.
func (c *conversation) snapshot() chat.Conversation {
	out := c.meta
	out.Participants = c.roster()
	if n := len(c.messages); n > 0 {
		last := c.messages[n-1]
		out.LastMessage = &last
	}
	return out
}

func (c *conversation) roster() []chat.Participant {
	parts := make([]chat.Participant, 0, len(c.participants))
	for _, p := range c.participants {
		parts = append(parts, p)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].ID < parts[j].ID })
	return parts
}

// --- store.Store ---

func (s *Store) ConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []chat.Conversation
	for _, c := range s.convs {
		for _, p := range c.participants {
			if p.UserID == userID {
				out = append(out, c.snapshot())
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Store) ConversationByID(ctx context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[id]
	if !ok {
		return chat.Conversation{}, chat.NotFound("Conversation not found!")
	}
	return c.snapshot(), nil
}

func (s *Store) IsGroup(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return false, chat.NotFound("Conversation not found!")
	}
	return c.meta.IsGroup, nil
}

func (s *Store) TouchConversation(ctx context.Context, conversationID string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Conversation{}, chat.NotFound("Conversation not found!")
	}
	c.meta.UpdatedAt = time.Now()
	return c.snapshot(), nil
}

func (s *Store) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[conversationID]; !ok {
		return chat.NotFound("Conversation not found!")
	}
	delete(s.convs, conversationID)
	return nil
}

func (s *Store) IsParticipant(ctx context.Context, userID, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return false, nil
	}
	for _, p := range c.participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) IsAdmin(ctx context.Context, userID, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return false, nil
	}
	for _, p := range c.participants {
		if p.UserID == userID {
			return p.Role == chat.RoleAdmin, nil
		}
	}
	return false, nil
}

func (s *Store) Participants(ctx context.Context, conversationID string) ([]chat.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return nil, chat.NotFound("Conversation not found!")
	}
	return c.roster(), nil
}

func (s *Store) ParticipantByID(ctx context.Context, participantID, conversationID string) (chat.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Conversation not found!")
	}
	p, ok := c.participants[participantID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Participant not found in this group!")
	}
	return p, nil
}

func (s *Store) ParticipantOf(ctx context.Context, userID, conversationID string) (chat.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Conversation not found!")
	}
	for _, p := range c.participants {
		if p.UserID == userID {
			return p, nil
		}
	}
	return chat.Participant{}, chat.NotFound("User is not a participant of this group!")
}

func (s *Store) AddParticipant(ctx context.Context, conversationID, userID string) (chat.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Conversation not found!")
	}
	u, ok := s.users[userID]
	if !ok {
		return chat.Participant{}, chat.NotFound("User not found!")
	}
	for _, p := range c.participants {
		if p.UserID == userID {
			return chat.Participant{}, chat.Conflict("User is already a participant of this group!")
		}
	}
	return c.addParticipant(u, chat.RoleMember), nil
}

func (s *Store) RemoveParticipant(ctx context.Context, conversationID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.NotFound("Conversation not found!")
	}
	if _, ok := c.participants[participantID]; !ok {
		return chat.NotFound("Participant not found in this group!")
	}
	delete(c.participants, participantID)
	return nil
}

func (s *Store) UpdateParticipantRole(ctx context.Context, conversationID, participantID string, role chat.Role) (chat.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Conversation not found!")
	}
	p, ok := c.participants[participantID]
	if !ok {
		return chat.Participant{}, chat.NotFound("Participant not found in this group!")
	}
	p.Role = role
	c.participants[participantID] = p
	return p, nil
}

func (s *Store) CreateMessage(ctx context.Context, conversationID, authorID, content string, typ chat.MessageType) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return chat.Message{}, chat.NotFound("Conversation not found!")
	}
	s.lastSeq++
	msg := chat.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		AuthorID:       authorID,
		Content:        content,
		Type:           typ,
		CreatedAt:      time.Now(),
		Seq:            s.lastSeq,
	}
	c.messages = append(c.messages, msg)
	return msg, nil
}

func (s *Store) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.convs[conversationID]
	if !ok {
		return nil, chat.NotFound("Conversation not found!")
	}
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return chat.User{}, chat.NotFound("User not found!")
	}
	return u, nil
}
