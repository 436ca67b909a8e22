package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

// CreateChat inserts an active chat linking the request's creator and the
// accepter. The chat ID is a random UUID and CreatedAt is set to UTC.
func CreateChat(ctx context.Context, db *gorm.DB, requestID string, creatorID *string, accepterID string) (*domain.Chat, error) {
	now := time.Now().UTC()
	c := &domain.Chat{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		CreatorID:  creatorID,
		AccepterID: accepterID,
		Status:     domain.ChatActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetChat fetches a chat by id or returns ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetActiveChatForRequest returns the request's active chat, or ErrNotFound
// when there is none.
func GetActiveChatForRequest(ctx context.Context, db *gorm.DB, requestID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("request_id = ? AND status = ?", requestID, domain.ChatActive).
		Order("created_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChatsForUser returns every chat userID takes part in, as creator or
// accepter, newest first.
func ListChatsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Where("creator_id = ? OR accepter_id = ?", userID, userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// TransitionChat moves chat id from one status to another only while the
// stored status still equals from. It reports whether a row changed.
func TransitionChat(ctx context.Context, db *gorm.DB, id string, from, to domain.ChatStatus) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
