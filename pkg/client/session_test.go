package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRestoreWithoutTokenLandsLoggedOut(t *testing.T) {
	store := NewSessionStore(New("http://127.0.0.1:1"), FileTokenStore{Path: filepath.Join(t.TempDir(), "token")})
	require.True(t, store.State().IsLoading)

	require.NoError(t, store.Restore(context.Background()))
	state := store.State()
	require.False(t, state.IsLoading)
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.Error)
}

func TestRestoreClearsRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "token expired"})
	}))
	defer server.Close()

	tokens := FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}
	require.NoError(t, tokens.Save("expired-token"))
	c := New(server.URL)
	store := NewSessionStore(c, tokens)

	require.Error(t, store.Restore(context.Background()))
	state := store.State()
	require.False(t, state.IsAuthenticated)
	require.Equal(t, SessionExpiredMessage, state.Error)
	require.Empty(t, c.Token())

	saved, err := tokens.Load()
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestRestoreAcceptsValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer good-token", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "u1", "name": "Ada"}})
	}))
	defer server.Close()

	tokens := FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}
	require.NoError(t, tokens.Save("good-token"))
	store := NewSessionStore(New(server.URL), tokens)

	require.NoError(t, store.Restore(context.Background()))
	state := store.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "Ada", state.User.Name)
	require.Equal(t, "good-token", state.Token)
}

func TestLoginFailureKeepsServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "invalid credentials"})
	}))
	defer server.Close()

	store := NewSessionStore(New(server.URL), FileTokenStore{Path: filepath.Join(t.TempDir(), "token")})

	var seen []SessionState
	unsubscribe := store.Subscribe(func(state SessionState) { seen = append(seen, state) })
	defer unsubscribe()

	require.Error(t, store.Login(context.Background(), "ada@example.com", "wrong-password"))
	require.Len(t, seen, 2)
	require.True(t, seen[0].IsLoading)
	require.Equal(t, "invalid credentials", seen[1].Error)
	require.False(t, seen[1].IsLoading)
}

func TestLoginPersistsAndLogoutClears(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true, "data": map[string]interface{}{"token": "tok", "user": map[string]string{"id": "u1", "name": "Ada"}},
		})
	}))
	defer server.Close()

	tokens := FileTokenStore{Path: filepath.Join(t.TempDir(), "nested", "token")}
	c := New(server.URL)
	store := NewSessionStore(c, tokens)

	require.NoError(t, store.Login(context.Background(), "ada@example.com", "password123"))
	saved, err := tokens.Load()
	require.NoError(t, err)
	require.Equal(t, "tok", saved)
	require.True(t, store.State().IsAuthenticated)

	require.NoError(t, store.Logout())
	require.Equal(t, SessionState{}, store.State())
	require.Empty(t, c.Token())
	saved, err = tokens.Load()
	require.NoError(t, err)
	require.Empty(t, saved)
}
