package messaging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestModule builds a module over an in-memory store, with no event bus
// and no cache.
func newTestModule(t *testing.T) *Module {
	t.Helper()
	return &Module{repo: NewRepository(setupTestDB(t))}
}

func TestSendDirect_PersistsMessage(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	resp, err := m.sendDirect(ctx, SendDirectRequest{
		SenderID:    "alice",
		RecipientID: "bob",
		Body:        "hey",
	}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Message.ID)
	assert.False(t, resp.Message.IsRead)

	stored, err := m.repo.FindDirectByID(resp.Message.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.SenderID)
	assert.Equal(t, "bob", stored.RecipientID)
	assert.Equal(t, "hey", stored.Body)
}

func TestSendDirect_Validation(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SendDirectRequest
	}{
		{"missing recipient", SendDirectRequest{SenderID: "alice", Body: "hi"}},
		{"self message", SendDirectRequest{SenderID: "alice", RecipientID: "alice", Body: "hi"}},
		{"empty content", SendDirectRequest{SenderID: "alice", RecipientID: "bob"}},
		{"oversized body", SendDirectRequest{SenderID: "alice", RecipientID: "bob", Body: strings.Repeat("x", MaxBodyLength+1)}},
		{"invalid utf8", SendDirectRequest{SenderID: "alice", RecipientID: "bob", Body: string([]byte{0xff, 0xfe})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.sendDirect(ctx, tt.req, nil)
			assert.Error(t, err)
		})
	}
}

func TestSendDirect_AttachmentOnlyIsValid(t *testing.T) {
	m := newTestModule(t)

	resp, err := m.sendDirect(context.Background(), SendDirectRequest{
		SenderID:      "alice",
		RecipientID:   "bob",
		AttachmentURL: "https://cdn.example.com/pic.png",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Message.Body)
	assert.Equal(t, "https://cdn.example.com/pic.png", resp.Message.AttachmentURL)
}

func TestConversation_CreationOrder(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	first, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "alice", RecipientID: "bob", Body: "one"}, nil)
	require.NoError(t, err)
	second, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "bob", RecipientID: "alice", Body: "two"}, nil)
	require.NoError(t, err)

	resp, err := m.conversation(ctx, ConversationRequest{UserID: "alice", PeerID: "bob"}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, first.Message.ID, resp.Messages[0].ID)
	assert.Equal(t, second.Message.ID, resp.Messages[1].ID)
}

func TestMarkRead_RecipientOnly(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	sent, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "alice", RecipientID: "bob", Body: "hi"}, nil)
	require.NoError(t, err)

	// The sender may not mark their own message read.
	resp, err := m.markRead(ctx, MarkReadRequest{MessageID: sent.Message.ID, UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrCodePermissionDenied, resp.Error)
	assert.False(t, resp.Updated)

	resp, err = m.markRead(ctx, MarkReadRequest{MessageID: sent.Message.ID, UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Updated)
	assert.Empty(t, resp.Error)

	// Second mark is a no-op, not an error.
	resp, err = m.markRead(ctx, MarkReadRequest{MessageID: sent.Message.ID, UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.False(t, resp.Updated)
	assert.Empty(t, resp.Error)
}

func TestMarkRead_UnknownMessage(t *testing.T) {
	m := newTestModule(t)

	resp, err := m.markRead(context.Background(), MarkReadRequest{MessageID: "missing", UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeNotFound, resp.Error)
}

func TestUnreadCount_AfterMarkConversationRead(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "bob", RecipientID: "alice", Body: "hi"}, nil)
		require.NoError(t, err)
	}
	_, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "carol", RecipientID: "alice", Body: "hi"}, nil)
	require.NoError(t, err)

	count, err := m.unreadCount(ctx, UnreadCountRequest{UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count.Count)

	marked, err := m.markConversationRead(ctx, MarkConversationReadRequest{UserID: "alice", PeerID: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked.Updated)

	count, err = m.unreadCount(ctx, UnreadCountRequest{UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Count)
}

func TestDeleteDirect_SenderOnly(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	sent, err := m.sendDirect(ctx, SendDirectRequest{SenderID: "alice", RecipientID: "bob", Body: "hi"}, nil)
	require.NoError(t, err)

	resp, err := m.deleteDirect(ctx, DeleteDirectRequest{MessageID: sent.Message.ID, UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrCodePermissionDenied, resp.Error)
	assert.False(t, resp.Deleted)

	resp, err = m.deleteDirect(ctx, DeleteDirectRequest{MessageID: sent.Message.ID, UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Deleted)

	resp, err = m.deleteDirect(ctx, DeleteDirectRequest{MessageID: sent.Message.ID, UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeNotFound, resp.Error)
}

func TestSendGroup_SenderStartsSeen(t *testing.T) {
	m := newTestModule(t)

	resp, err := m.sendGroup(context.Background(), SendGroupRequest{SenderID: "alice", Body: "hello all"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Message.SeenBy.Contains("alice"))
}

func TestHistory_CreationOrder(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	var sent []string
	for _, body := range []string{"one", "two", "three"} {
		resp, err := m.sendGroup(ctx, SendGroupRequest{SenderID: "alice", Body: body}, nil)
		require.NoError(t, err)
		sent = append(sent, resp.Message.ID)
	}

	resp, err := m.history(ctx, HistoryRequest{}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	for i, id := range sent {
		assert.Equal(t, id, resp.Messages[i].ID)
	}
}

func TestMarkSeen_SkipsSeenAndUnknown(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	first, err := m.sendGroup(ctx, SendGroupRequest{SenderID: "alice", Body: "one"}, nil)
	require.NoError(t, err)
	second, err := m.sendGroup(ctx, SendGroupRequest{SenderID: "bob", Body: "two"}, nil)
	require.NoError(t, err)

	// bob already saw his own message; "missing" does not exist.
	resp, err := m.markSeen(ctx, MarkSeenRequest{
		MessageIDs: []string{first.Message.ID, second.Message.ID, "missing"},
		UserID:     "bob",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Marked)

	stored, err := m.repo.FindChatByID(first.Message.ID)
	require.NoError(t, err)
	assert.True(t, stored.SeenBy.Contains("alice"))
	assert.True(t, stored.SeenBy.Contains("bob"))

	// Marking again changes nothing.
	resp, err = m.markSeen(ctx, MarkSeenRequest{MessageIDs: []string{first.Message.ID}, UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Marked)
}

func TestDeleteGroup_SenderOnly(t *testing.T) {
	m := newTestModule(t)
	ctx := context.Background()

	sent, err := m.sendGroup(ctx, SendGroupRequest{SenderID: "alice", Body: "hi"}, nil)
	require.NoError(t, err)

	resp, err := m.deleteGroup(ctx, DeleteGroupRequest{MessageID: sent.Message.ID, UserID: "bob"}, nil)
	require.NoError(t, err)
	assert.Equal(t, ErrCodePermissionDenied, resp.Error)

	resp, err = m.deleteGroup(ctx, DeleteGroupRequest{MessageID: sent.Message.ID, UserID: "alice"}, nil)
	require.NoError(t, err)
	assert.True(t, resp.Deleted)
}
