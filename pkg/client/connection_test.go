package client

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

func TestDisconnectClearsPresenceButKeepsNotifications(t *testing.T) {
	store := NewConnectionStore()
	store.dispatch(connectionAction{kind: actionConnected})
	store.dispatch(connectionAction{kind: actionOnlineUsers, users: []dto.UserSummary{{ID: "u1", Name: "Ada"}}})
	store.dispatch(connectionAction{kind: actionTyping, userID: "u1", isTyping: true})
	store.notify(Notification{Type: dto.EventNewDoubt, Message: "New doubt: Limits"})

	store.dispatch(connectionAction{kind: actionDisconnected})
	state := store.State()
	require.False(t, state.IsConnected)
	require.Empty(t, state.OnlineUsers)
	require.Empty(t, state.TypingUsers)
	require.Len(t, state.Notifications, 1)
}

func TestTypingStopRemovesUser(t *testing.T) {
	store := NewConnectionStore()
	store.dispatch(connectionAction{kind: actionTyping, userID: "u1", isTyping: true})
	store.dispatch(connectionAction{kind: actionTyping, userID: "u2", isTyping: true})
	store.dispatch(connectionAction{kind: actionTyping, userID: "u1", isTyping: false})

	require.Equal(t, map[string]bool{"u2": true}, store.State().TypingUsers)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	store := NewConnectionStore()
	store.dispatch(connectionAction{kind: actionOnlineUsers, users: []dto.UserSummary{{ID: "u1", Name: "Ada"}}})

	snapshot := store.State()
	snapshot.OnlineUsers[0].Name = "changed"
	snapshot.TypingUsers["u9"] = true

	require.Equal(t, "Ada", store.State().OnlineUsers[0].Name)
	require.Empty(t, store.State().TypingUsers)
}

func TestNotificationIDsAreUnique(t *testing.T) {
	store := NewConnectionStore()
	store.notify(Notification{Message: "a"})
	store.notify(Notification{Message: "b"})

	state := store.State()
	require.Len(t, state.Notifications, 2)
	require.NotEqual(t, state.Notifications[0].ID, state.Notifications[1].ID)

	store.RemoveNotification(state.Notifications[0].ID)
	require.Equal(t, "b", store.State().Notifications[0].Message)
}
