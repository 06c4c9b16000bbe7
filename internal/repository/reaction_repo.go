package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// ReactionRepository stores the likedBy sets of posts, doubts, and comments.
type ReactionRepository interface {
	Add(ctx context.Context, reaction models.Reaction) error
	Remove(ctx context.Context, targetType models.TargetType, targetID, userID string) error
	LikedBy(ctx context.Context, targetType models.TargetType, targetIDs []string) (map[string][]string, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository constructs a GORM-backed reaction repository.
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

// Add is an insert-or-ignore so repeated likes leave the set unchanged.
func (r *reactionRepository) Add(ctx context.Context, reaction models.Reaction) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reaction).Error
}

func (r *reactionRepository) Remove(ctx context.Context, targetType models.TargetType, targetID, userID string) error {
	return r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND user_id = ?", targetType, targetID, userID).
		Delete(&models.Reaction{}).Error
}

// LikedBy returns the user ids that liked each target, in like order.
func (r *reactionRepository) LikedBy(ctx context.Context, targetType models.TargetType, targetIDs []string) (map[string][]string, error) {
	likes := make(map[string][]string, len(targetIDs))
	if len(targetIDs) == 0 {
		return likes, nil
	}

	var reactions []models.Reaction
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Order("created_at ASC").
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}

	for _, reaction := range reactions {
		likes[reaction.TargetID] = append(likes[reaction.TargetID], reaction.UserID)
	}
	return likes, nil
}
