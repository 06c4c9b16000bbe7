package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// CommentRepository persists comment trees stored as parent-id adjacency.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id string) error
	ListByParent(ctx context.Context, parentID string, page Page) ([]models.Comment, int64, error)
	MarkSolution(ctx context.Context, commentID, doubtID string) error
	CountByRoots(ctx context.Context, rootIDs []string) (map[string]int64, error)
	CountByParents(ctx context.Context, parentIDs []string) (map[string]int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository constructs a GORM-backed comment repository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Create(comment).Error)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return models.Comment{}, translate(err)
	}
	return comment, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return translate(r.db.WithContext(ctx).Save(comment).Error)
}

// Delete removes the comment and all of its descendants, level by level.
func (r *commentRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.First(&root, "id = ?", id).Error; err != nil {
			return err
		}

		doomed := []string{id}
		frontier := []string{id}
		for len(frontier) > 0 {
			var children []string
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			doomed = append(doomed, children...)
			frontier = children
		}

		if err := tx.Where("target_type = ? AND target_id IN ?", models.TargetComment, doomed).
			Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", doomed).Delete(&models.Comment{}).Error
	})
	return translate(err)
}

// ListByParent returns one level of the tree, oldest first.
func (r *commentRepository) ListByParent(ctx context.Context, parentID string, page Page) ([]models.Comment, int64, error) {
	page = page.normalize()
	query := r.db.WithContext(ctx).Model(&models.Comment{}).Where("parent_id = ?", parentID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := query.Order("created_at ASC").Order("id ASC").Offset(page.Offset).Limit(page.Limit).Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// MarkSolution flags the comment and clears any previous solution on the same doubt.
func (r *commentRepository) MarkSolution(ctx context.Context, commentID, doubtID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).
			Where("parent_type = ? AND parent_id = ? AND is_solution = ? AND id <> ?", models.ParentDoubt, doubtID, true, commentID).
			Update("is_solution", false).Error; err != nil {
			return err
		}

		result := tx.Model(&models.Comment{}).Where("id = ?", commentID).Update("is_solution", true)
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

type groupCount struct {
	GroupKey string
	Total    int64
}

func (r *commentRepository) CountByRoots(ctx context.Context, rootIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, "root_id", rootIDs)
}

func (r *commentRepository) CountByParents(ctx context.Context, parentIDs []string) (map[string]int64, error) {
	return r.countBy(ctx, "parent_id", parentIDs)
}

func (r *commentRepository) countBy(ctx context.Context, column string, ids []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []groupCount
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select(column+" AS group_key, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.GroupKey] = row.Total
	}
	return counts, nil
}
