package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/localaid/localaid-api/internal/models"
)

// ConversationRepository maps unordered user pairs to their single thread.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userA, userB uint) (models.Conversation, error)
	FindByID(ctx context.Context, id uint) (models.Conversation, error)
	ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error)
	SetLatestMessage(ctx context.Context, conversationID, messageID uint) error
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository constructs a conversation repository backed by GORM.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// GetOrCreate resolves the thread for an unordered pair. The pair is stored
// in canonical (low, high) order and covered by a composite unique index, so
// concurrent first contacts collapse onto one row: the loser of the insert
// race re-reads the winner's record.
func (r *conversationRepository) GetOrCreate(ctx context.Context, userA, userB uint) (models.Conversation, error) {
	low, high := userA, userB
	if low > high {
		low, high = high, low
	}

	conversation := models.Conversation{MemberOneID: low, MemberTwoID: high}
	err := r.db.WithContext(ctx).
		Where("member_one_id = ? AND member_two_id = ?", low, high).
		FirstOrCreate(&conversation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = r.db.WithContext(ctx).
			Where("member_one_id = ? AND member_two_id = ?", low, high).
			First(&conversation).Error
	}
	if err != nil {
		return models.Conversation{}, err
	}

	return r.FindByID(ctx, conversation.ID)
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Preload("MemberOne").
		Preload("MemberTwo").
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		First(&conversation, id).Error
	if err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.WithContext(ctx).
		Preload("MemberOne").
		Preload("MemberTwo").
		Preload("LatestMessage").
		Preload("LatestMessage.Sender").
		Where("member_one_id = ? OR member_two_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *conversationRepository) SetLatestMessage(ctx context.Context, conversationID, messageID uint) error {
	return r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"latest_message_id": messageID,
			"updated_at":        time.Now().UTC(),
		}).Error
}
