package models

import (
	"time"

	"gorm.io/datatypes"
)

// Post type values.
const (
	PostTypeRequest = "request"
	PostTypeOffer   = "offer"
)

// Post status values. A post transitions open -> fulfilled exactly once.
const (
	PostStatusOpen      = "open"
	PostStatusFulfilled = "fulfilled"
)

// Post is a request-for-help or offer-of-help pinned to a geographic point.
// Latitude and longitude are indexed so proximity queries can prefilter on a
// bounding box before the exact distance check.
type Post struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	User        User           `json:"user"`
	Title       string         `gorm:"size:160;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Type        string         `gorm:"size:16;not null" json:"type"`
	Category    string         `gorm:"size:64;not null" json:"category"`
	Status      string         `gorm:"size:16;not null;default:open" json:"status"`
	Latitude    float64        `gorm:"index;not null" json:"latitude"`
	Longitude   float64        `gorm:"index;not null" json:"longitude"`
	Address     string         `gorm:"size:255" json:"address"`
	Images      datatypes.JSON `gorm:"type:json" json:"images"`
	FulfilledBy *uint          `gorm:"index" json:"fulfilled_by,omitempty"`
	Helper      *User          `gorm:"foreignKey:FulfilledBy" json:"helper,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
