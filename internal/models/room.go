package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Room is a collaboration space. Public rooms store a NULL invite code so the unique index only covers private rooms.
type Room struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	Name        string                      `gorm:"size:50;not null;index" json:"name"`
	Description string                      `gorm:"size:200" json:"description"`
	OwnerID     string                      `gorm:"size:36;not null;index" json:"ownerId"`
	IsPrivate   bool                        `gorm:"not null;default:false" json:"isPrivate"`
	InviteCode  *string                     `gorm:"size:32;uniqueIndex" json:"inviteCode,omitempty"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	TagIndex    string                      `gorm:"type:text" json:"-"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps the tag search column in step with Tags.
func (r *Room) BeforeSave(*gorm.DB) error {
	r.TagIndex = TagIndex(r.Tags)
	return nil
}

// RoomMember links a user to a room. The composite key keeps membership a set.
type RoomMember struct {
	RoomID   string    `gorm:"primaryKey;size:36" json:"roomId"`
	UserID   string    `gorm:"primaryKey;size:36;index" json:"userId"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joinedAt"`
}
