package models

import "time"

// User roles. Regular neighbors sign up as RoleUser; RoleAdmin is reserved
// for moderation tooling.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered neighbor. Karma counts fulfilled help
// requests credited to the user and never goes negative.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:120;not null" json:"name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"size:255;not null" json:"-"`
	ProfilePicture string    `gorm:"size:512" json:"profile_picture"`
	Karma          int       `gorm:"not null;default:0" json:"karma"`
	Role           string    `gorm:"size:32;not null;default:user" json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
