package client

import (
	"sync"
	"time"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

// Notification is a content announcement kept until the caller removes it.
type Notification struct {
	ID        int64
	Type      string
	Message   string
	RoomID    string
	PostID    string
	Timestamp time.Time
}

// ConnectionState is the realtime slice of client state.
type ConnectionState struct {
	IsConnected   bool
	IsConnecting  bool
	Error         string
	OnlineUsers   []dto.UserSummary
	TypingUsers   map[string]bool
	Notifications []Notification
	CurrentRoom   string
}

type connectionActionType int

const (
	actionConnecting connectionActionType = iota
	actionConnected
	actionDisconnected
	actionError
	actionOnlineUsers
	actionTyping
	actionAddNotification
	actionRemoveNotification
	actionCurrentRoom
)

type connectionAction struct {
	kind         connectionActionType
	err          string
	users        []dto.UserSummary
	userID       string
	isTyping     bool
	notification Notification
	id           int64
	roomID       string
}

func reduceConnection(state ConnectionState, action connectionAction) ConnectionState {
	switch action.kind {
	case actionConnecting:
		state.IsConnecting = true
		state.Error = ""
	case actionConnected:
		state.IsConnected = true
		state.IsConnecting = false
		state.Error = ""
	case actionDisconnected:
		state.IsConnected = false
		state.IsConnecting = false
		state.OnlineUsers = nil
		state.TypingUsers = map[string]bool{}
	case actionError:
		state.IsConnecting = false
		state.Error = action.err
	case actionOnlineUsers:
		state.OnlineUsers = append([]dto.UserSummary(nil), action.users...)
	case actionTyping:
		typing := make(map[string]bool, len(state.TypingUsers)+1)
		for id, value := range state.TypingUsers {
			typing[id] = value
		}
		if action.isTyping {
			typing[action.userID] = true
		} else {
			delete(typing, action.userID)
		}
		state.TypingUsers = typing
	case actionAddNotification:
		state.Notifications = append(append([]Notification(nil), state.Notifications...), action.notification)
	case actionRemoveNotification:
		kept := make([]Notification, 0, len(state.Notifications))
		for _, n := range state.Notifications {
			if n.ID != action.id {
				kept = append(kept, n)
			}
		}
		state.Notifications = kept
	case actionCurrentRoom:
		state.CurrentRoom = action.roomID
	}
	return state
}

// ConnectionStore owns the realtime slice. Only the realtime client dispatches into it;
// callers read snapshots and may dismiss notifications.
type ConnectionStore struct {
	mu        sync.RWMutex
	state     ConnectionState
	nextID    int64
	listeners map[int]func(ConnectionState)
	listenID  int
}

func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		state:     ConnectionState{TypingUsers: map[string]bool{}},
		listeners: map[int]func(ConnectionState){},
	}
}

// State returns a snapshot that is safe to keep after further updates.
func (s *ConnectionStore) State() ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot(s.state)
}

// Subscribe registers fn for every state change and returns a function that removes it.
func (s *ConnectionStore) Subscribe(fn func(ConnectionState)) func() {
	s.mu.Lock()
	id := s.listenID
	s.listenID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// RemoveNotification dismisses a notification once it has been shown.
func (s *ConnectionStore) RemoveNotification(id int64) {
	s.dispatch(connectionAction{kind: actionRemoveNotification, id: id})
}

func (s *ConnectionStore) notify(n Notification) {
	s.mu.Lock()
	s.nextID++
	n.ID = s.nextID
	s.mu.Unlock()
	s.dispatch(connectionAction{kind: actionAddNotification, notification: n})
}

func (s *ConnectionStore) dispatch(action connectionAction) {
	s.mu.Lock()
	s.state = reduceConnection(s.state, action)
	state := snapshot(s.state)
	listeners := make([]func(ConnectionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func snapshot(state ConnectionState) ConnectionState {
	out := state
	out.OnlineUsers = append([]dto.UserSummary(nil), state.OnlineUsers...)
	out.Notifications = append([]Notification(nil), state.Notifications...)
	out.TypingUsers = make(map[string]bool, len(state.TypingUsers))
	for id, value := range state.TypingUsers {
		out.TypingUsers[id] = value
	}
	return out
}
