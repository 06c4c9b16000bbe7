package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// UploadRepository persists metadata about uploaded files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	GetByID(ctx context.Context, id string) (models.UploadRecord, error)
	Delete(ctx context.Context, id string) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return translate(r.db.WithContext(ctx).Create(record).Error)
}

func (r *uploadRepository) GetByID(ctx context.Context, id string) (models.UploadRecord, error) {
	var record models.UploadRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return models.UploadRecord{}, translate(err)
	}
	return record, nil
}

func (r *uploadRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.UploadRecord{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}
