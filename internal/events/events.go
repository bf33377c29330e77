// Package events defines the wire protocol: one distinct event name per
// operation, carried in a {event, payload} JSON envelope in both
// directions.
package events

import "encoding/json"

// Inbound event names (client -> core).
const (
	InitializeUserRooms = "initialize_user_rooms"
	GetConversations    = "get_conversations"
	JoinConversation    = "join_conversation"
	LeaveConversation   = "leave_conversation"
	SendMessage         = "send_message"
	GetMessages         = "get_messages"
	TypingStart         = "typing_start"
	TypingEnd           = "typing_end"
	GetParticipants     = "get_participants"
	AddParticipant      = "add_participant"
	RemoveParticipant   = "remove_participant"
	UpdateRole          = "update_role"
	LeaveGroup          = "leave_group"
)

// Outbound event names (core -> connection or room).
const (
	RoomsInitialized      = "rooms_initialized"
	ConversationsReceived = "conversations_received"
	JoinedConversation    = "joined_conversation"
	LeftConversation      = "left_conversation"
	MessageReceived       = "message_received"
	MessageSent           = "message_sent"
	ConversationUpdated   = "conversation_updated"
	MessagesReceived      = "messages_received"
	UserTyping            = "user_typing"
	UserStoppedTyping     = "user_stopped_typing"
	ParticipantsReceived  = "participants_received"
	ParticipantsUpdated   = "participants_updated"
	ParticipantAdded      = "participant_added"
	NewParticipant        = "new_participant"
	AddedToGroup          = "added_to_group"
	ParticipantRemoved    = "participant_removed"
	RemovedFromGroup      = "removed_from_group"
	LeftGroup             = "left_group"
	GroupNotification     = "group_notification"
	UserStatusChanged     = "user_status_changed"
	Error                 = "error"
)

// Envelope is the wire framing for both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Marshal frames an outbound event.
func Marshal(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Payload: raw})
}
