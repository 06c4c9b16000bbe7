package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

// SessionExpiredMessage is the error left behind when a stored token no longer works.
const SessionExpiredMessage = "session expired, please log in again"

// SessionActionType names a session transition.
type SessionActionType string

const (
	SessionStart   SessionActionType = "start"
	SessionSuccess SessionActionType = "success"
	SessionFailure SessionActionType = "failure"
	SessionLogout  SessionActionType = "logout"
)

// SessionAction is dispatched to SessionStore.
type SessionAction struct {
	Type  SessionActionType
	User  *dto.UserResponse
	Token string
	Error string
}

// SessionState is the authenticated-user slice of client state.
type SessionState struct {
	User            *dto.UserResponse
	Token           string
	IsAuthenticated bool
	IsLoading       bool
	Error           string
}

func reduceSession(state SessionState, action SessionAction) SessionState {
	switch action.Type {
	case SessionStart:
		state.IsLoading = true
		state.Error = ""
	case SessionSuccess:
		state = SessionState{User: action.User, Token: action.Token, IsAuthenticated: true}
	case SessionFailure:
		state = SessionState{Error: action.Error}
	case SessionLogout:
		state = SessionState{}
	}
	return state
}

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore keeps the token in a single file readable only by the owner.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(s.Path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s FileTokenStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// SessionStore owns the session slice. State changes only through Dispatch.
type SessionStore struct {
	client *Client
	tokens TokenStore

	mu        sync.RWMutex
	state     SessionState
	listeners map[int]func(SessionState)
	nextID    int
}

// NewSessionStore starts in the loading state until Restore or a login settles it.
func NewSessionStore(client *Client, tokens TokenStore) *SessionStore {
	return &SessionStore{
		client:    client,
		tokens:    tokens,
		state:     SessionState{IsLoading: true},
		listeners: map[int]func(SessionState){},
	}
}

// State returns a snapshot of the session.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers fn for every state change and returns a function that removes it.
func (s *SessionStore) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Dispatch applies action and notifies subscribers with the resulting state.
func (s *SessionStore) Dispatch(action SessionAction) SessionState {
	s.mu.Lock()
	s.state = reduceSession(s.state, action)
	state := s.state
	listeners := make([]func(SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
	return state
}

// Restore re-authenticates silently from the persisted token. A rejected token is cleared
// and the session lands logged out.
func (s *SessionStore) Restore(ctx context.Context) error {
	token, err := s.tokens.Load()
	if err != nil {
		s.Dispatch(SessionAction{Type: SessionFailure, Error: err.Error()})
		return err
	}
	if token == "" {
		s.Dispatch(SessionAction{Type: SessionFailure})
		return nil
	}

	s.client.SetToken(token)
	user, err := s.client.Me(ctx)
	if err != nil {
		s.client.SetToken("")
		if clearErr := s.tokens.Clear(); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
		s.Dispatch(SessionAction{Type: SessionFailure, Error: SessionExpiredMessage})
		return err
	}

	s.Dispatch(SessionAction{Type: SessionSuccess, User: &user, Token: token})
	return nil
}

// Login authenticates and persists the new token.
func (s *SessionStore) Login(ctx context.Context, email, password string) error {
	s.Dispatch(SessionAction{Type: SessionStart})
	session, err := s.client.Login(ctx, dto.LoginRequest{Email: email, Password: password})
	return s.settle(session, err)
}

// Signup registers an account and persists its token.
func (s *SessionStore) Signup(ctx context.Context, name, email, password string) error {
	s.Dispatch(SessionAction{Type: SessionStart})
	session, err := s.client.Signup(ctx, dto.SignupRequest{Name: name, Email: email, Password: password})
	return s.settle(session, err)
}

func (s *SessionStore) settle(session dto.AuthResponse, err error) error {
	if err != nil {
		s.Dispatch(SessionAction{Type: SessionFailure, Error: errorMessage(err)})
		return err
	}
	if err := s.tokens.Save(session.Token); err != nil {
		s.Dispatch(SessionAction{Type: SessionFailure, Error: err.Error()})
		return err
	}
	s.Dispatch(SessionAction{Type: SessionSuccess, User: &session.User, Token: session.Token})
	return nil
}

// Logout forgets the token locally. Tokens are stateless, so nothing is sent to the server.
func (s *SessionStore) Logout() error {
	s.client.SetToken("")
	err := s.tokens.Clear()
	s.Dispatch(SessionAction{Type: SessionLogout})
	return err
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
