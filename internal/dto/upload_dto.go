package dto

import (
	"time"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// UploadResponse describes the stored file metadata returned to the client.
type UploadResponse struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	SizeBytes int64     `json:"sizeBytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUploadResponse converts an upload record.
func NewUploadResponse(record models.UploadRecord) UploadResponse {
	return UploadResponse{
		ID:        record.ID,
		FileName:  record.FileName,
		URL:       record.URL,
		MimeType:  record.MimeType,
		SizeBytes: record.SizeBytes,
		Checksum:  record.Checksum,
		CreatedAt: record.CreatedAt,
	}
}

// AsAttachment converts the upload into a post attachment.
func (u UploadResponse) AsAttachment() AttachmentPayload {
	return AttachmentPayload{Name: u.FileName, URL: u.URL, Type: u.MimeType, Size: u.SizeBytes}
}
