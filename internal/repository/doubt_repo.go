package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// DoubtStatus filters doubts by their flags.
type DoubtStatus string

const (
	DoubtStatusAll    DoubtStatus = "all"
	DoubtStatusOpen   DoubtStatus = "open"
	DoubtStatusClosed DoubtStatus = "closed"
	DoubtStatusUrgent DoubtStatus = "urgent"
)

// DoubtFilter narrows a room's doubt listing.
type DoubtFilter struct {
	RoomID string
	Status DoubtStatus
	Query  string
	Page
}

// DoubtRepository persists room doubts.
type DoubtRepository interface {
	Create(ctx context.Context, doubt *models.Doubt) error
	GetByID(ctx context.Context, id string) (models.Doubt, error)
	Update(ctx context.Context, doubt *models.Doubt) error
	Delete(ctx context.Context, id string) error
	ListByRoom(ctx context.Context, filter DoubtFilter) ([]models.Doubt, int64, error)
}

type doubtRepository struct {
	db *gorm.DB
}

// NewDoubtRepository constructs a GORM-backed doubt repository.
func NewDoubtRepository(db *gorm.DB) DoubtRepository {
	return &doubtRepository{db: db}
}

func (r *doubtRepository) Create(ctx context.Context, doubt *models.Doubt) error {
	return translate(r.db.WithContext(ctx).Create(doubt).Error)
}

func (r *doubtRepository) GetByID(ctx context.Context, id string) (models.Doubt, error) {
	var doubt models.Doubt
	if err := r.db.WithContext(ctx).First(&doubt, "id = ?", id).Error; err != nil {
		return models.Doubt{}, translate(err)
	}
	return doubt, nil
}

func (r *doubtRepository) Update(ctx context.Context, doubt *models.Doubt) error {
	return translate(r.db.WithContext(ctx).Save(doubt).Error)
}

func (r *doubtRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteThread(tx, models.ParentDoubt, id); err != nil {
			return err
		}

		result := tx.Delete(&models.Doubt{}, "id = ?", id)
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

// ListByRoom orders urgent open doubts first, then newest first.
func (r *doubtRepository) ListByRoom(ctx context.Context, filter DoubtFilter) ([]models.Doubt, int64, error) {
	page := filter.Page.normalize()

	query := r.db.WithContext(ctx).Model(&models.Doubt{}).Where("room_id = ?", filter.RoomID)
	switch filter.Status {
	case DoubtStatusOpen:
		query = query.Where("is_closed = ?", false)
	case DoubtStatusClosed:
		query = query.Where("is_closed = ?", true)
	case DoubtStatusUrgent:
		query = query.Where("is_urgent = ? AND is_closed = ?", true, false)
	}

	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		pattern := likePattern(term)
		authors := r.db.Model(&models.User{}).Select("id").Where(like("LOWER(display_name)"), pattern)
		query = query.Where(
			like("LOWER(title)")+" OR "+like("LOWER(description)")+" OR "+like("tag_index")+" OR author_id IN (?)",
			pattern, pattern, pattern, authors,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var doubts []models.Doubt
	err := query.
		Order("is_closed ASC").
		Order("is_urgent DESC").
		Order("created_at DESC").
		Offset(page.Offset).
		Limit(page.Limit).
		Find(&doubts).Error
	if err != nil {
		return nil, 0, err
	}
	return doubts, total, nil
}
