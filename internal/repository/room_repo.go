package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// RoomFilter narrows the rooms visible to a user.
type RoomFilter struct {
	Query string
	Page
}

// RoomRepository manages rooms and their membership sets.
type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	GetByID(ctx context.Context, id string) (models.Room, error)
	GetByInviteCode(ctx context.Context, code string) (models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	Delete(ctx context.Context, id string) error
	ListVisible(ctx context.Context, userID string, filter RoomFilter) ([]models.Room, int64, error)
	AddMember(ctx context.Context, roomID, userID string) (bool, error)
	RemoveMember(ctx context.Context, roomID, userID string) error
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	ListMembers(ctx context.Context, roomID string) ([]models.User, error)
	MemberIDs(ctx context.Context, roomID string) ([]string, error)
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository constructs a GORM-backed room repository.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

// Create inserts the room and enrols its owner in one transaction.
func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		member := models.RoomMember{RoomID: room.ID, UserID: room.OwnerID, JoinedAt: room.CreatedAt}
		return tx.Create(&member).Error
	})
	return translate(err)
}

func (r *roomRepository) GetByID(ctx context.Context, id string) (models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return models.Room{}, translate(err)
	}
	return room, nil
}

func (r *roomRepository) GetByInviteCode(ctx context.Context, code string) (models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).
		Where("invite_code = ? AND is_private = ?", strings.ToUpper(code), true).
		First(&room).Error
	if err != nil {
		return models.Room{}, translate(err)
	}
	return room, nil
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room) error {
	return translate(r.db.WithContext(ctx).Save(room).Error)
}

// Delete removes the room together with everything scoped to it.
func (r *roomRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Reaction{}, &models.Comment{}, &models.Post{}, &models.Doubt{}, &models.RoomMember{}} {
			if err := tx.Where("room_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}

		result := tx.Delete(&models.Room{}, "id = ?", id)
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

// ListVisible returns public rooms plus private rooms the user belongs to, newest first.
func (r *roomRepository) ListVisible(ctx context.Context, userID string, filter RoomFilter) ([]models.Room, int64, error) {
	page := filter.Page.normalize()

	memberRooms := r.db.Model(&models.RoomMember{}).Select("room_id").Where("user_id = ?", userID)
	query := r.db.WithContext(ctx).Model(&models.Room{}).
		Where("is_private = ? OR id IN (?)", false, memberRooms)

	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		pattern := likePattern(term)
		query = query.Where(
			like("LOWER(name)")+" OR "+like("LOWER(description)")+" OR "+like("tag_index"),
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []models.Room
	if err := query.Order("created_at DESC").Offset(page.Offset).Limit(page.Limit).Find(&rooms).Error; err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// AddMember is idempotent; the boolean reports whether a new row was written.
func (r *roomRepository) AddMember(ctx context.Context, roomID, userID string) (bool, error) {
	member := models.RoomMember{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&member)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *roomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	return r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMember{}).Error
}

func (r *roomRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) ListMembers(ctx context.Context, roomID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Select("users.*").
		Joins("JOIN room_members ON room_members.user_id = users.id").
		Where("room_members.room_id = ?", roomID).
		Order("room_members.joined_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *roomRepository) MemberIDs(ctx context.Context, roomID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.RoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	return ids, err
}
