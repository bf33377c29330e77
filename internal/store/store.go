// Package store defines the persistence contract the delivery core
// depends on. The core never mutates conversations, participants or
// messages directly; everything durable goes through this interface.
package store

import (
	"context"

	"chatcore/internal/chat"
)

type Store interface {
	// Conversations.
	ConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	ConversationByID(ctx context.Context, id string) (chat.Conversation, error)
	IsGroup(ctx context.Context, conversationID string) (bool, error)
	TouchConversation(ctx context.Context, conversationID string) (chat.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error

	// Participants. Authorization checks read these on every privileged
	// operation; roles are never cached by the core.
	IsParticipant(ctx context.Context, userID, conversationID string) (bool, error)
	IsAdmin(ctx context.Context, userID, conversationID string) (bool, error)
	Participants(ctx context.Context, conversationID string) ([]chat.Participant, error)
	ParticipantByID(ctx context.Context, participantID, conversationID string) (chat.Participant, error)
	ParticipantOf(ctx context.Context, userID, conversationID string) (chat.Participant, error)
	AddParticipant(ctx context.Context, conversationID, userID string) (chat.Participant, error)
	RemoveParticipant(ctx context.Context, conversationID, participantID string) error
	UpdateParticipantRole(ctx context.Context, conversationID, participantID string, role chat.Role) (chat.Participant, error)

	// Messages.
	CreateMessage(ctx context.Context, conversationID, authorID, content string, typ chat.MessageType) (chat.Message, error)
	Messages(ctx context.Context, conversationID string) ([]chat.Message, error)

	// Users.
	UserByID(ctx context.Context, id string) (chat.User, error)
}
