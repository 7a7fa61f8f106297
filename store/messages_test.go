package store

import (
	"context"
	"testing"
	"time"

	"Bt1QSocial/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateConversation_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)

	first, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)
	again, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)
	reordered, err := st.CreateConversation(ctx, []string{"user_b", "user_a", "user_b"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.ID, reordered.ID)
	assert.Len(t, st.GetAllConversations(ctx), 1)

	group, err := st.CreateConversation(ctx, []string{"user_a", "user_b", "user_c"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, group.ID)
}

func TestCreateConversation_NeedsTwoParticipants(t *testing.T) {
	st := newTestStore(t, nil, nil)
	_, err := st.CreateConversation(context.Background(), []string{"user_a", "user_a", " "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateMessage_UpdatesConversation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	conv, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)

	msg, err := st.CreateMessage(ctx, model.MessageInput{ConversationID: conv.ID, SenderID: "user_a", Text: "hey"})
	require.NoError(t, err)
	assert.Equal(t, model.MessageTypeText, msg.Type)

	got := st.GetConversationByID(ctx, conv.ID)
	require.NotNil(t, got)
	assert.Equal(t, conv.UnreadCount+1, got.UnreadCount)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, *msg, *got.LastMessage)
	assert.Equal(t, msg.Timestamp, got.LastActivity)

	_, err = st.CreateMessage(ctx, model.MessageInput{ConversationID: conv.ID, SenderID: "user_b", Text: "yo"})
	require.NoError(t, err)
	assert.Equal(t, conv.UnreadCount+2, st.GetConversationByID(ctx, conv.ID).UnreadCount)
}

func TestCreateMessage_UnknownConversation(t *testing.T) {
	st := newTestStore(t, nil, nil)
	_, err := st.CreateMessage(context.Background(), model.MessageInput{ConversationID: "conv_missing", SenderID: "user_a"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, st.GetAllMessages(context.Background()))
}

func TestCreateMessage_RejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	conv, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)
	_, err = st.CreateMessage(ctx, model.MessageInput{ConversationID: conv.ID, SenderID: "user_a", Type: "video"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetMessages_AscendingByTimestamp(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	conv, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{3 * time.Minute, time.Minute, 2 * time.Minute} {
		_, err := st.CreateMessage(ctx, model.MessageInput{
			ConversationID: conv.ID,
			SenderID:       "user_a",
			Text:           offset.String(),
			Timestamp:      base.Add(offset),
		})
		require.NoError(t, err)
	}

	msgs := st.GetMessages(ctx, conv.ID)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"1m0s", "2m0s", "3m0s"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})

	// lastActivity follows the most recently created message, not the latest timestamp
	assert.Equal(t, base.Add(2*time.Minute), st.GetConversationByID(ctx, conv.ID).LastActivity)
}

func TestGetConversations_SortedByActivity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	older, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)
	newer, err := st.CreateConversation(ctx, []string{"user_a", "user_c"})
	require.NoError(t, err)
	_, err = st.CreateConversation(ctx, []string{"user_b", "user_c"})
	require.NoError(t, err)

	convs := st.GetConversations(ctx, "user_a")
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)

	_, err = st.CreateMessage(ctx, model.MessageInput{ConversationID: older.ID, SenderID: "user_b", Text: "ping"})
	require.NoError(t, err)
	convs = st.GetConversations(ctx, "user_a")
	assert.Equal(t, older.ID, convs[0].ID)
}

func TestMarkConversationRead(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	conv, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := st.CreateMessage(ctx, model.MessageInput{ConversationID: conv.ID, SenderID: "user_b", Text: "x"})
		require.NoError(t, err)
	}

	read, err := st.MarkConversationRead(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, read)
	assert.Zero(t, read.UnreadCount)
	assert.True(t, read.LastMessage.IsRead)
	for _, m := range st.GetMessages(ctx, conv.ID) {
		assert.True(t, m.IsRead)
	}

	missing, err := st.MarkConversationRead(ctx, "conv_missing")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateConversation(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t, nil, nil)
	conv, err := st.CreateConversation(ctx, []string{"user_a", "user_b"})
	require.NoError(t, err)

	n := 5
	updated, err := st.UpdateConversation(ctx, conv.ID, model.ConversationPatch{UnreadCount: &n})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.UnreadCount)
	assert.Equal(t, conv.Participants, updated.Participants)

	missing, err := st.UpdateConversation(ctx, "conv_missing", model.ConversationPatch{UnreadCount: &n})
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
