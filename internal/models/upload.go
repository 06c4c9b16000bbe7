package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadRecord keeps metadata for an uploaded file.
type UploadRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID    string    `gorm:"size:36;index" json:"ownerId"`
	FileName   string    `gorm:"size:255;not null" json:"fileName"`
	URL        string    `gorm:"type:text;not null" json:"url"`
	StorageKey string    `gorm:"size:255" json:"-"`
	MimeType   string    `gorm:"size:128;not null" json:"mimeType"`
	SizeBytes  int64     `gorm:"not null" json:"sizeBytes"`
	Checksum   string    `gorm:"size:64;not null" json:"checksum"`
	CreatedAt  time.Time `json:"createdAt"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (u *UploadRecord) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
