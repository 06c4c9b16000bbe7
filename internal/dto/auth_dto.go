package dto

import (
	"time"

	"github.com/noah-isme/studyrooms-api/internal/models"
)

// SignupRequest registers a new account.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest changes only the fields that are present.
type UpdateProfileRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=50"`
	Bio        *string `json:"bio" validate:"omitempty,max=500"`
	University *string `json:"university" validate:"omitempty,max=150"`
	Major      *string `json:"major" validate:"omitempty,max=150"`
}

// ChangePasswordRequest replaces the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72"`
}

// UserSummary is the compact author/presence representation of a user.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserResponse is the public profile of a user.
type UserResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	University string    `json:"university"`
	Major      string    `json:"major"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// NewUserResponse converts a user model into its API representation.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		Name:       user.DisplayName,
		Bio:        user.Bio,
		University: user.University,
		Major:      user.Major,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// NewUserSummary converts a user model into its compact representation.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{ID: user.ID, Name: user.DisplayName}
}
