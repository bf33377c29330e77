package chat

import "github.com/samber/lo"

// ConversationView is the client-facing projection of a conversation.
// For personal conversations the name and avatar come from the *other*
// participant, so each side sees the peer rather than a stored title.
type ConversationView struct {
	Conversation
	OtherUser *User `json:"otherUser,omitempty"`
}

// ViewFor projects a conversation for a given viewer. Pure and stateless;
// callers re-derive it per read.
func ViewFor(conv Conversation, viewerID string) ConversationView {
	view := ConversationView{Conversation: conv}
	if conv.IsGroup {
		return view
	}

	other, ok := lo.Find(conv.Participants, func(p Participant) bool {
		return p.UserID != viewerID
	})
	if !ok || other.User == nil {
		view.Name = "Unknown"
		return view
	}
	view.Name = other.User.Name
	view.OtherUser = other.User
	return view
}

// ViewsFor projects a conversation list for one viewer.
func ViewsFor(convs []Conversation, viewerID string) []ConversationView {
	return lo.Map(convs, func(c Conversation, _ int) ConversationView {
		return ViewFor(c, viewerID)
	})
}
