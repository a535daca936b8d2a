package dto

import (
	"time"

	"github.com/localaid/localaid-api/internal/models"
)

// RegisterRequest is the payload to create an account.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=120"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the credential payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the full profile returned to the owning user.
type UserResponse struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Karma          int       `json:"karma"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserSummary carries the display fields embedded into posts, conversations
// and messages.
type UserSummary struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

// AuthResponse bundles a signed token with the authenticated profile.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// NewUserResponse converts a user model into the profile DTO.
func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
		Karma:          user.Karma,
		Role:           user.Role,
		CreatedAt:      user.CreatedAt,
	}
}

// NewUserSummary converts a user model into its display fields.
func NewUserSummary(user models.User) UserSummary {
	return UserSummary{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		ProfilePicture: user.ProfilePicture,
	}
}
