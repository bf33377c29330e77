package chat

import "time"

// Role of a participant inside a group conversation. Personal
// conversations carry no role semantics; the store keeps every
// personal participant as a member.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// MessageType mirrors the content types the store accepts.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
	MessageVideo MessageType = "VIDEO"
	MessageAudio MessageType = "AUDIO"
	MessageFile  MessageType = "FILE"
)

// ValidMessageType reports whether t is one of the known content types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageText, MessageImage, MessageVideo, MessageAudio, MessageFile:
		return true
	}
	return false
}

// User holds the display attributes of an identity as sourced from the
// store. Immutable for the lifetime of a connection.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Participant links an identity to a conversation with a role.
type Participant struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Role           Role   `json:"role"`
	User           *User  `json:"user,omitempty"`
}

// Message is immutable once created. Ordering is by CreatedAt with ties
// broken by the store-assigned Seq.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	AuthorID       string      `json:"authorId"`
	Content        string      `json:"content"`
	Type           MessageType `json:"type"`
	CreatedAt      time.Time   `json:"createdAt"`
	Seq            uint64      `json:"-"`
}

// Conversation is a broadcast room; its ID is the room key.
type Conversation struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IsGroup      bool          `json:"isGroup"`
	Participants []Participant `json:"participants,omitempty"`
	LastMessage  *Message      `json:"lastMessage,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

