package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/models"
	"github.com/localaid/localaid-api/pkg/geo"
)

// PostFilter composes the discovery filters applied at the store level.
// Bounds is a coarse prefilter; the service applies the exact radius check.
type PostFilter struct {
	Bounds       *geo.Bounds
	ExcludeOwner uint
	Type         string
	Search       string
	OnlyOpen     bool
}

// PostRepository handles persistence and filtered lookups for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id uint) (models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, error)
	ListByOwner(ctx context.Context, ownerID uint) ([]models.Post, error)
	Delete(ctx context.Context, id uint) error
	MarkFulfilled(ctx context.Context, id uint, helperID *uint) (bool, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository constructs a post repository backed by GORM.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uint) (models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").Preload("Helper").First(&post, id).Error; err != nil {
		return models.Post{}, err
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Preload("User")

	if filter.Bounds != nil {
		query = query.
			Where("latitude BETWEEN ? AND ?", filter.Bounds.MinLat, filter.Bounds.MaxLat).
			Where("longitude BETWEEN ? AND ?", filter.Bounds.MinLng, filter.Bounds.MaxLng)
	}
	if filter.ExcludeOwner != 0 {
		query = query.Where("user_id <> ?", filter.ExcludeOwner)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.OnlyOpen {
		query = query.Where("status = ?", models.PostStatusOpen)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var posts []models.Post
	if err := query.Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).Preload("User").Preload("Helper").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkFulfilled flips status open -> fulfilled with a conditional update.
// The status predicate makes the transition single-shot: a concurrent or
// repeated call observes zero affected rows and reports false.
func (r *postRepository) MarkFulfilled(ctx context.Context, id uint, helperID *uint) (bool, error) {
	updates := map[string]interface{}{"status": models.PostStatusFulfilled}
	if helperID != nil {
		updates["fulfilled_by"] = *helperID
	}

	result := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ?", id, models.PostStatusOpen).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
