package dto

import (
	"time"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// ListQuery carries paging and filtering for posts, doubts, and comments.
type ListQuery struct {
	Query  string
	Type   string
	Status string
	Page   int
	Limit  int
}

// AttachmentPayload references an uploaded file.
type AttachmentPayload struct {
	Name string `json:"name" validate:"required,max=255"`
	URL  string `json:"url" validate:"required,url,max=2048"`
	Type string `json:"type" validate:"max=128"`
	Size int64  `json:"size" validate:"min=0"`
}

// CreatePostRequest describes a new post.
type CreatePostRequest struct {
	Title       string              `json:"title" validate:"required,min=3,max=100"`
	Content     string              `json:"content" validate:"required,min=10,max=5000"`
	Type        string              `json:"type" validate:"omitempty,oneof=note topic announcement"`
	Tags        []string            `json:"tags" validate:"max=10,dive,max=30"`
	Attachments []AttachmentPayload `json:"attachments" validate:"max=10,dive"`
}

// UpdatePostRequest changes only the fields that are present.
type UpdatePostRequest struct {
	Title       *string              `json:"title" validate:"omitempty,min=3,max=100"`
	Content     *string              `json:"content" validate:"omitempty,min=10,max=5000"`
	Type        *string              `json:"type" validate:"omitempty,oneof=note topic announcement"`
	Tags        *[]string            `json:"tags" validate:"omitempty,max=10,dive,max=30"`
	Attachments *[]AttachmentPayload `json:"attachments" validate:"omitempty,max=10,dive"`
}

// PostResponse is the API representation of a post.
type PostResponse struct {
	ID          string              `json:"id"`
	RoomID      string              `json:"roomId"`
	AuthorID    string              `json:"authorId"`
	Author      UserSummary         `json:"author"`
	Title       string              `json:"title"`
	Content     string              `json:"content"`
	Type        string              `json:"type"`
	Tags        []string            `json:"tags"`
	Attachments []models.Attachment `json:"attachments"`
	LikedBy     []string            `json:"likedBy"`
	Likes       int                 `json:"likes"`
	Comments    int64               `json:"comments"`
	IsPinned    bool                `json:"isPinned"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewPostResponse converts a post model with its resolved relations.
func NewPostResponse(post models.Post, author UserSummary, likedBy []string, comments int64) PostResponse {
	attachments := []models.Attachment(post.Attachments)
	if attachments == nil {
		attachments = []models.Attachment{}
	}

	return PostResponse{
		ID:          post.ID,
		RoomID:      post.RoomID,
		AuthorID:    post.AuthorID,
		Author:      author,
		Title:       post.Title,
		Content:     post.Content,
		Type:        string(post.Type),
		Tags:        nonNilStrings(post.Tags),
		Attachments: attachments,
		LikedBy:     nonNilStrings(likedBy),
		Likes:       len(likedBy),
		Comments:    comments,
		IsPinned:    post.IsPinned,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
}

// CreateDoubtRequest describes a new doubt.
type CreateDoubtRequest struct {
	Title       string   `json:"title" validate:"required,min=5,max=100"`
	Description string   `json:"description" validate:"required,min=10,max=2000"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=30"`
	IsUrgent    bool     `json:"isUrgent"`
}

// UpdateDoubtRequest changes only the fields that are present.
type UpdateDoubtRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=5,max=100"`
	Description *string   `json:"description" validate:"omitempty,min=10,max=2000"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=10,dive,max=30"`
}

// DoubtResponse is the API representation of a doubt.
type DoubtResponse struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"roomId"`
	AuthorID    string      `json:"authorId"`
	Author      UserSummary `json:"author"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
	LikedBy     []string    `json:"likedBy"`
	Likes       int         `json:"likes"`
	Comments    int64       `json:"comments"`
	IsUrgent    bool        `json:"isUrgent"`
	IsClosed    bool        `json:"isClosed"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewDoubtResponse converts a doubt model with its resolved relations.
func NewDoubtResponse(doubt models.Doubt, author UserSummary, likedBy []string, comments int64) DoubtResponse {
	return DoubtResponse{
		ID:          doubt.ID,
		RoomID:      doubt.RoomID,
		AuthorID:    doubt.AuthorID,
		Author:      author,
		Title:       doubt.Title,
		Description: doubt.Description,
		Tags:        nonNilStrings(doubt.Tags),
		LikedBy:     nonNilStrings(likedBy),
		Likes:       len(likedBy),
		Comments:    comments,
		IsUrgent:    doubt.IsUrgent,
		IsClosed:    doubt.IsClosed,
		CreatedAt:   doubt.CreatedAt,
		UpdatedAt:   doubt.UpdatedAt,
	}
}

// CreateCommentRequest replies to a post, a doubt, or another comment.
type CreateCommentRequest struct {
	ParentID string `json:"parentId" validate:"required,max=64"`
	Content  string `json:"content" validate:"required,min=3,max=2000"`
}

// UpdateCommentRequest replaces a comment's content.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=3,max=2000"`
}

// CommentResponse is the API representation of a comment.
type CommentResponse struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"roomId"`
	ParentID   string      `json:"parentId"`
	ParentType string      `json:"parentType"`
	RootID     string      `json:"rootId"`
	RootType   string      `json:"rootType"`
	Depth      int         `json:"depth"`
	AuthorID   string      `json:"authorId"`
	Author     UserSummary `json:"author"`
	Content    string      `json:"content"`
	LikedBy    []string    `json:"likedBy"`
	Likes      int         `json:"likes"`
	Replies    int64       `json:"replies"`
	IsSolution bool        `json:"isSolution"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// NewCommentResponse converts a comment model with its resolved relations.
func NewCommentResponse(comment models.Comment, author UserSummary, likedBy []string, replies int64) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		RoomID:     comment.RoomID,
		ParentID:   comment.ParentID,
		ParentType: string(comment.ParentType),
		RootID:     comment.RootID,
		RootType:   string(comment.RootType),
		Depth:      comment.Depth,
		AuthorID:   comment.AuthorID,
		Author:     author,
		Content:    comment.Content,
		LikedBy:    nonNilStrings(likedBy),
		Likes:      len(likedBy),
		Replies:    replies,
		IsSolution: comment.IsSolution,
		CreatedAt:  comment.CreatedAt,
		UpdatedAt:  comment.UpdatedAt,
	}
}
