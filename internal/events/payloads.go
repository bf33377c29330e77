package events

import (
	"time"

	"chatcore/internal/chat"
)

// --- Inbound payloads ---

type ConversationRef struct {
	ConversationID string `json:"conversationId" validate:"required"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required"`
	Type           string `json:"type"`
}

type AddParticipantRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
}

type RemoveParticipantRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	ParticipantID  string `json:"participantId" validate:"required"`
}

type UpdateRoleRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	ParticipantID  string `json:"participantId" validate:"required"`
	Role           string `json:"role" validate:"required,oneof=ADMIN MEMBER"`
}

// --- Outbound payloads ---

type ErrorPayload struct {
	Message string `json:"message"`
}

type Ack struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message,omitempty"`
}

type RoomsInitializedPayload struct {
	Success     bool     `json:"success"`
	JoinedRooms []string `json:"joinedRooms"`
	Message     string   `json:"message"`
}

type ConversationsPayload struct {
	Success       bool                    `json:"success"`
	Conversations []chat.ConversationView `json:"conversations"`
	Count         int                     `json:"count"`
}

type MessageReceivedPayload struct {
	Success        bool         `json:"success"`
	Message        chat.Message `json:"message"`
	ConversationID string       `json:"conversationId"`
}

type MessageSentPayload struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

type ConversationUpdatedPayload struct {
	Conversation chat.Conversation `json:"conversation"`
}

type MessagesPayload struct {
	Success        bool           `json:"success"`
	ConversationID string         `json:"conversationId"`
	Messages       []chat.Message `json:"messages"`
	Count          int            `json:"count"`
}

type TypingPayload struct {
	UserID         string    `json:"userId"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

type ParticipantsPayload struct {
	Success        bool               `json:"success,omitempty"`
	ConversationID string             `json:"conversationId"`
	Participants   []chat.Participant `json:"participants"`
	Count          int                `json:"count,omitempty"`
}

type ParticipantAddedPayload struct {
	Success     bool             `json:"success"`
	Message     string           `json:"message"`
	Participant chat.Participant `json:"participant"`
}

type NewParticipantPayload struct {
	ConversationID string           `json:"conversationId"`
	Participant    chat.Participant `json:"participant"`
}

type AddedToGroupPayload struct {
	ConversationID string `json:"conversationId"`
	GroupName      string `json:"groupName"`
	AddedBy        string `json:"addedBy"`
}

type ParticipantRemovedPayload struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RemovedUserID string `json:"removedUserId"`
}

type RemovedFromGroupPayload struct {
	ConversationID string `json:"conversationId"`
	RemovedBy      string `json:"removedBy"`
}

type LeftGroupPayload struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

// GroupNotification types.
const (
	NotifyMemberRemoved = "member_removed"
	NotifyMemberLeft    = "member_left"
	NotifyRoleChanged   = "role_changed"
)

type GroupNotificationPayload struct {
	Type           string            `json:"type"`
	ConversationID string            `json:"conversationId"`
	Message        string            `json:"message"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Presence statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type UserStatusPayload struct {
	UserID         string    `json:"userId"`
	Status         string    `json:"status"`
	ConversationID string    `json:"conversationId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
