package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/models"
)

// UserRepository handles persistence for user accounts and karma totals.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfilePicture(ctx context.Context, id uint, url string) error
	IncrementKarma(ctx context.Context, id uint, delta int) (int, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a user repository backed by GORM.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) UpdateProfilePicture(ctx context.Context, id uint, url string) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("profile_picture", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementKarma applies the delta as a single document-level update and
// returns the new total.
func (r *userRepository) IncrementKarma(ctx context.Context, id uint, delta int) (int, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("karma", gorm.Expr("karma + ?", delta))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var user models.User
	if err := r.db.WithContext(ctx).Select("karma").First(&user, id).Error; err != nil {
		return 0, err
	}
	return user.Karma, nil
}
