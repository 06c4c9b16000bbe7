package dto

import (
	"time"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// CreateRoomRequest describes a new room. InviteCode is required when IsPrivate is set.
type CreateRoomRequest struct {
	Name        string   `json:"name" validate:"required,min=3,max=50"`
	Description string   `json:"description" validate:"max=200"`
	IsPrivate   bool     `json:"isPrivate"`
	InviteCode  string   `json:"inviteCode" validate:"omitempty,alphanum,min=4,max=32"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
}

// UpdateRoomRequest changes only the fields that are present.
type UpdateRoomRequest struct {
	Name        *string   `json:"name" validate:"omitempty,min=3,max=50"`
	Description *string   `json:"description" validate:"omitempty,max=200"`
	IsPrivate   *bool     `json:"isPrivate"`
	InviteCode  *string   `json:"inviteCode" validate:"omitempty,alphanum,min=4,max=32"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,max=30"`
}

// JoinRoomRequest joins a private room by its invite code.
type JoinRoomRequest struct {
	InviteCode string `json:"inviteCode" validate:"required,min=4,max=32"`
}

// RoomListQuery filters the room listing.
type RoomListQuery struct {
	Query string
	Page  int
	Limit int
}

// RoomResponse is the API representation of a room.
type RoomResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	OwnerID     string      `json:"ownerId"`
	Owner       UserSummary `json:"owner"`
	IsPrivate   bool        `json:"isPrivate"`
	InviteCode  string      `json:"inviteCode,omitempty"`
	Tags        []string    `json:"tags"`
	MemberIDs   []string    `json:"memberIds"`
	MemberCount int         `json:"memberCount"`
	IsMember    bool        `json:"isMember"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewRoomResponse converts a room model. The invite code is only exposed to members.
func NewRoomResponse(room models.Room, owner UserSummary, memberIDs []string, viewerID string) RoomResponse {
	isMember := false
	for _, id := range memberIDs {
		if id == viewerID {
			isMember = true
			break
		}
	}

	response := RoomResponse{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		OwnerID:     room.OwnerID,
		Owner:       owner,
		IsPrivate:   room.IsPrivate,
		Tags:        nonNilStrings(room.Tags),
		MemberIDs:   nonNilStrings(memberIDs),
		MemberCount: len(memberIDs),
		IsMember:    isMember,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
	if isMember && room.InviteCode != nil {
		response.InviteCode = *room.InviteCode
	}
	return response
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
