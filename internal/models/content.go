package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PostType enumerates the kinds of post a room can hold.
type PostType string

const (
	PostTypeNote         PostType = "note"
	PostTypeTopic        PostType = "topic"
	PostTypeAnnouncement PostType = "announcement"
)

// Attachment references an uploaded file attached to a post.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Post is a note, topic, or announcement published in a room.
type Post struct {
	ID          string                          `gorm:"primaryKey;size:36" json:"id"`
	RoomID      string                          `gorm:"size:36;not null;index" json:"roomId"`
	AuthorID    string                          `gorm:"size:36;not null;index" json:"authorId"`
	Title       string                          `gorm:"size:100;not null" json:"title"`
	Content     string                          `gorm:"type:text;not null" json:"content"`
	Type        PostType                        `gorm:"size:20;not null;default:note" json:"type"`
	Tags        datatypes.JSONSlice[string]     `json:"tags"`
	TagIndex    string                          `gorm:"type:text" json:"-"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments"`
	IsPinned    bool                            `gorm:"not null;default:false;index" json:"isPinned"`
	CreatedAt   time.Time                       `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                       `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Post) BeforeSave(*gorm.DB) error {
	p.TagIndex = TagIndex(p.Tags)
	return nil
}

// Doubt is a question raised in a room. Closed and urgent are independent flags.
type Doubt struct {
	ID          string                      `gorm:"primaryKey;size:36" json:"id"`
	RoomID      string                      `gorm:"size:36;not null;index" json:"roomId"`
	AuthorID    string                      `gorm:"size:36;not null;index" json:"authorId"`
	Title       string                      `gorm:"size:100;not null" json:"title"`
	Description string                      `gorm:"type:text;not null" json:"description"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	TagIndex    string                      `gorm:"type:text" json:"-"`
	IsUrgent    bool                        `gorm:"not null;default:false" json:"isUrgent"`
	IsClosed    bool                        `gorm:"not null;default:false" json:"isClosed"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (d *Doubt) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

func (d *Doubt) BeforeSave(*gorm.DB) error {
	d.TagIndex = TagIndex(d.Tags)
	return nil
}

// ParentType identifies what a comment replies to.
type ParentType string

const (
	ParentPost    ParentType = "post"
	ParentDoubt   ParentType = "doubt"
	ParentComment ParentType = "comment"
)

// Comment is a node in a reply tree rooted at a post or a doubt.
type Comment struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	RoomID     string     `gorm:"size:36;not null;index" json:"roomId"`
	ParentID   string     `gorm:"size:36;not null;index" json:"parentId"`
	ParentType ParentType `gorm:"size:16;not null" json:"parentType"`
	RootID     string     `gorm:"size:36;not null;index" json:"rootId"`
	RootType   ParentType `gorm:"size:16;not null" json:"rootType"`
	Depth      int        `gorm:"not null;default:0" json:"depth"`
	AuthorID   string     `gorm:"size:36;not null;index" json:"authorId"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	IsSolution bool       `gorm:"not null;default:false" json:"isSolution"`
	CreatedAt  time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TargetType identifies the kind of entity a reaction points at.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetDoubt   TargetType = "doubt"
	TargetComment TargetType = "comment"
)

// Reaction records one user's like on one entity.
type Reaction struct {
	TargetType TargetType `gorm:"primaryKey;size:16"`
	TargetID   string     `gorm:"primaryKey;size:36"`
	UserID     string     `gorm:"primaryKey;size:36"`
	RoomID     string     `gorm:"size:36;not null;index"`
	CreatedAt  time.Time
}
