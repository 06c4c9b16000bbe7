package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// runCLI executes rootCmd against apiURL with the given token file and returns stdout.
func runCLI(t *testing.T, apiURL, tokenFile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--api-url", apiURL, "--token-file", tokenFile}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func storedToken(t *testing.T, token string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte(token+"\n"), 0o600))
	return path
}

func TestRoomsListPrintsRoomsAndFooter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rooms", r.URL.Path)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.Equal(t, "2", r.URL.Query().Get("page"))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true, "message": "rooms",
			"data": []map[string]interface{}{
				{"id": "r1", "name": "Calculus", "isPrivate": false, "memberCount": 3, "tags": []string{"math", "exam"}},
				{"id": "r2", "name": "R&D", "isPrivate": true, "memberCount": 1, "tags": []string{}},
			},
			"meta": map[string]int{"page": 2, "limit": 20, "total": 22},
		})
	}))
	defer server.Close()

	out, err := runCLI(t, server.URL, storedToken(t, "tok-1"), "rooms", "list", "--page", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "r1  Calculus"))
	require.Contains(t, lines[0], "public")
	require.Contains(t, lines[0], "members=3 math,exam")
	require.True(t, strings.HasPrefix(lines[1], "r2  R&D"))
	require.Contains(t, lines[1], "private")
	require.Equal(t, "-- page 2 (limit 20), 22 total", lines[2])
}

func TestDoubtsCloseReportsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/doubts/d1/close", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true, "message": "doubt closed",
			"data": map[string]interface{}{"id": "d1", "isClosed": true, "isUrgent": true},
		})
	}))
	defer server.Close()

	out, err := runCLI(t, server.URL, storedToken(t, "tok-1"), "doubts", "close", "d1")
	require.NoError(t, err)
	require.Equal(t, "d1 is closed\n", out)
}

func TestLoginStoresTokenAndLogoutRemovesIt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"success": true, "message": "logged in",
				"data": map[string]interface{}{"token": "tok-9", "expiresAt": time.Now().Add(time.Hour), "user": map[string]string{"id": "u1", "name": "Ada"}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	tokenFile := filepath.Join(t.TempDir(), "roomsctl", "token")
	_, err := runCLI(t, server.URL, tokenFile, "login", "ada@example.com", "password123")
	require.NoError(t, err)

	data, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	require.Equal(t, "tok-9", string(data))

	_, err = runCLI(t, server.URL, tokenFile, "logout")
	require.NoError(t, err)
	require.NoFileExists(t, tokenFile)

	_, err = runCLI(t, server.URL, tokenFile, "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestRejectedTokenIsRemoved(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "token expired"})
	}))
	defer server.Close()

	tokenFile := storedToken(t, "stale")
	_, err := runCLI(t, server.URL, tokenFile, "doubts", "reopen", "d1")
	require.Error(t, err)
	require.NoFileExists(t, tokenFile)
}
