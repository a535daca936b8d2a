package dto

import (
	"encoding/json"
	"time"

	"github.com/localaid/localaid-api/internal/models"
)

// PostCreateRequest is the payload to publish a help request or offer.
type PostCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=160"`
	Description string   `json:"description" validate:"required,min=3"`
	Type        string   `json:"type" validate:"required,oneof=request offer"`
	Category    string   `json:"category" validate:"required,max=64"`
	Latitude    *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude   *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Address     string   `json:"address" validate:"omitempty,max=255"`
	Images      []string `json:"images" validate:"omitempty,max=4,dive,url"`
}

// PostQuery composes the discovery filters. A proximity filter applies only
// when both coordinates are provided.
type PostQuery struct {
	Lat       *float64 `query:"lat" validate:"omitempty,min=-90,max=90"`
	Lng       *float64 `query:"lng" validate:"omitempty,min=-180,max=180"`
	DistKm    float64  `query:"dist" validate:"omitempty,min=0,max=500"`
	ExcludeID uint     `query:"excludeId"`
	Type      string   `query:"type" validate:"omitempty,oneof=request offer"`
	Search    string   `query:"search" validate:"omitempty,max=120"`
}

// FulfillRequest credits an optional helper when the owner closes a post.
type FulfillRequest struct {
	HelperID *uint `json:"helperId"`
}

// TrendQuery scopes the trend aggregation to an area.
type TrendQuery struct {
	Lat       float64 `query:"lat" validate:"min=-90,max=90"`
	Lng       float64 `query:"lng" validate:"min=-180,max=180"`
	DistKm    float64 `query:"dist" validate:"omitempty,min=0,max=500"`
	ExcludeID uint    `query:"excludeId"`
}

// TrendResponse is the one-line neighborhood activity summary.
type TrendResponse struct {
	Summary     string `json:"summary"`
	MostNeeded  string `json:"mostNeeded,omitempty"`
	MostOffered string `json:"mostOffered,omitempty"`
}

// PostResponse is the serialized representation of a post, with the owner's
// display fields expanded and the distance annotated on proximity queries.
type PostResponse struct {
	ID          uint         `json:"id"`
	User        UserSummary  `json:"user"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Category    string       `json:"category"`
	Status      string       `json:"status"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Address     string       `json:"address,omitempty"`
	Images      []string     `json:"images,omitempty"`
	Helper      *UserSummary `json:"helper,omitempty"`
	DistanceKm  *float64     `json:"distance_km,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewPostResponse converts a post model into a DTO.
func NewPostResponse(post models.Post) PostResponse {
	response := PostResponse{
		ID:          post.ID,
		User:        NewUserSummary(post.User),
		Title:       post.Title,
		Description: post.Description,
		Type:        post.Type,
		Category:    post.Category,
		Status:      post.Status,
		Latitude:    post.Latitude,
		Longitude:   post.Longitude,
		Address:     post.Address,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}

	if len(post.Images) > 0 {
		var images []string
		if err := json.Unmarshal(post.Images, &images); err == nil {
			response.Images = images
		}
	}

	if post.Helper != nil {
		helper := NewUserSummary(*post.Helper)
		response.Helper = &helper
	}

	return response
}

// NewPostResponseSlice converts a slice of post models into DTOs.
func NewPostResponseSlice(posts []models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, NewPostResponse(post))
	}
	return out
}
