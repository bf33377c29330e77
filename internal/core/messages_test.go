package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chatcore/internal/chat"
	"chatcore/internal/events"
)

func TestSendMessageFanOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	aConn, aRec := f.connect(alice)
	bConn, bRec := f.connect(bob)
	require.NoError(t, f.core.JoinConversation(ctx, aConn, conv.ID))
	require.NoError(t, f.core.JoinConversation(ctx, bConn, conv.ID))
	aRec.reset()
	bRec.reset()

	require.NoError(t, f.core.SendMessage(ctx, aConn, conv.ID, "hi", chat.MessageText))

	var aMsg, bMsg events.MessageReceivedPayload
	aRec.payload(t, events.MessageReceived, &aMsg)
	bRec.payload(t, events.MessageReceived, &bMsg)
	require.Equal(t, "hi", aMsg.Message.Content)
	require.Equal(t, "hi", bMsg.Message.Content)
	require.Equal(t, alice.ID, bMsg.Message.AuthorID)

	// Delivery ack goes to the sender alone.
	var sent events.MessageSentPayload
	aRec.payload(t, events.MessageSent, &sent)
	require.Equal(t, aMsg.Message.ID, sent.MessageID)
	require.Zero(t, bRec.count(t, events.MessageSent))

	// Recency refresh reaches the whole room.
	require.Equal(t, 1, aRec.count(t, events.ConversationUpdated))
	require.Equal(t, 1, bRec.count(t, events.ConversationUpdated))
}

func TestSendMessageEmptyContentNeverReachesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	aConn, _ := f.connect(alice)

	for _, content := range []string{"", "   ", "\n\t"} {
		err := f.core.SendMessage(ctx, aConn, conv.ID, content, chat.MessageText)
		require.ErrorIs(t, err, chat.ErrValidation)
	}

	msgs, err := f.st.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Empty(t, msgs, "rejected content must not be persisted")
}

func TestSendMessageNonParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	mallory := f.st.CreateUser(chat.User{Name: "Mallory"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	mConn, _ := f.connect(mallory)

	err = f.core.SendMessage(ctx, mConn, conv.ID, "let me in", chat.MessageText)
	require.ErrorIs(t, err, chat.ErrPermission)

	msgs, err := f.st.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestSendMessageAutoJoinsSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	// Alice never joined the room; sending must subscribe her.
	aConn, aRec := f.connect(alice)
	require.NoError(t, f.core.SendMessage(ctx, aConn, conv.ID, "hello", chat.MessageText))

	require.Equal(t, 1, aRec.count(t, events.MessageReceived))
	require.Contains(t, f.reg.Rooms(aConn.ID), conv.ID)
}

func TestSendMessageUnknownType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	aConn, _ := f.connect(alice)
	err = f.core.SendMessage(ctx, aConn, conv.ID, "hi", chat.MessageType("CARRIER_PIGEON"))
	require.ErrorIs(t, err, chat.ErrValidation)
}

func TestSendMessageDefaultsToText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	aConn, _ := f.connect(alice)
	require.NoError(t, f.core.SendMessage(ctx, aConn, conv.ID, "hi", ""))

	msgs, err := f.st.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, chat.MessageText, msgs[0].Type)
}

func TestGetMessagesPermissionGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := f.st.CreateUser(chat.User{Name: "Alice"})
	bob := f.st.CreateUser(chat.User{Name: "Bob"})
	mallory := f.st.CreateUser(chat.User{Name: "Mallory"})
	conv, err := f.st.CreateConversation("", false, alice.ID, bob.ID)
	require.NoError(t, err)

	aConn, aRec := f.connect(alice)
	require.NoError(t, f.core.SendMessage(ctx, aConn, conv.ID, "hello bob", chat.MessageText))
	aRec.reset()

	require.NoError(t, f.core.GetMessages(ctx, aConn, conv.ID))
	var got events.MessagesPayload
	aRec.payload(t, events.MessagesReceived, &got)
	require.Equal(t, 1, got.Count)
	require.Equal(t, "hello bob", got.Messages[0].Content)

	mConn, _ := f.connect(mallory)
	require.ErrorIs(t, f.core.GetMessages(ctx, mConn, conv.ID), chat.ErrPermission)
}
