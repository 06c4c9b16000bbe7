package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// PostFilter narrows a room's post listing.
type PostFilter struct {
	RoomID string
	Type   models.PostType
	Query  string
	Page
}

// PostRepository persists room posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	ListByRoom(ctx context.Context, filter PostFilter) ([]models.Post, int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a GORM-backed post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Create(post).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return models.Post{}, translate(err)
	}
	return post, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Save(post).Error)
}

// Delete removes the post, its comment tree and every reaction attached to either.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteThread(tx, models.ParentPost, id); err != nil {
			return err
		}

		result := tx.Delete(&models.Post{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

// ListByRoom orders pinned posts first, then newest first.
func (r *postRepository) ListByRoom(ctx context.Context, filter PostFilter) ([]models.Post, int64, error) {
	page := filter.Page.normalize()

	query := r.db.WithContext(ctx).Model(&models.Post{}).Where("room_id = ?", filter.RoomID)
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		pattern := likePattern(term)
		authors := r.db.Model(&models.User{}).Select("id").Where(like("LOWER(display_name)"), pattern)
		query = query.Where(
			like("LOWER(title)")+" OR "+like("LOWER(content)")+" OR "+like("tag_index")+" OR author_id IN (?)",
			pattern, pattern, pattern, authors,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.
		Order("is_pinned DESC").
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// deleteThread removes every comment under a root together with the reactions on the root and its comments.
func deleteThread(tx *gorm.DB, rootType models.ParentType, rootID string) error {
	commentIDs := tx.Model(&models.Comment{}).Select("id").Where("root_type = ? AND root_id = ?", rootType, rootID)
	if err := tx.Where("target_type = ? AND target_id IN (?)", models.TargetComment, commentIDs).
		Delete(&models.Reaction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("target_type = ? AND target_id = ?", models.TargetType(rootType), rootID).
		Delete(&models.Reaction{}).Error; err != nil {
		return err
	}
	return tx.Where("root_type = ? AND root_id = ?", rootType, rootID).Delete(&models.Comment{}).Error
}
