package dto

import "time"

// Realtime message types exchanged over the websocket.
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventTyping      = "typing"
	EventOnlineUsers = "online_users"
	EventUserTyping  = "user_typing"
	EventNewPost     = "new_post"
	EventNewDoubt    = "new_doubt"
	EventNewComment  = "new_comment"
	EventError       = "error"
)

// RealtimeCommand is a message sent by a client.
type RealtimeCommand struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	IsTyping bool   `json:"isTyping"`
}

// RealtimeEvent is a room-scoped notification pushed to clients.
type RealtimeEvent struct {
	Type      string        `json:"type"`
	ID        string        `json:"id"`
	RoomID    string        `json:"roomId"`
	Timestamp time.Time     `json:"timestamp"`
	RoomName  string        `json:"roomName,omitempty"`
	Title     string        `json:"title,omitempty"`
	PostID    string        `json:"postId,omitempty"`
	PostTitle string        `json:"postTitle,omitempty"`
	ParentID  string        `json:"parentId,omitempty"`
	UserID    string        `json:"userId,omitempty"`
	UserName  string        `json:"userName,omitempty"`
	IsTyping  *bool         `json:"isTyping,omitempty"`
	IsUrgent  bool          `json:"isUrgent,omitempty"`
	Users     []UserSummary `json:"users,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// IsNotification reports whether the event announces new content.
func (e RealtimeEvent) IsNotification() bool {
	switch e.Type {
	case EventNewPost, EventNewDoubt, EventNewComment:
		return true
	}
	return false
}
