package repo

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/domain"
)

// CreateChatMessage appends a message to chatID. IDs are monotonic ULIDs so
// that (created_at, id) ordering matches insertion order.
func CreateChatMessage(ctx context.Context, db *gorm.DB, chatID, senderID, text string) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:        ulid.Make().String(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListChatMessages returns all messages of a chat, oldest first.
func ListChatMessages(ctx context.Context, db *gorm.DB, chatID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListChatMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListChatMessagesPage(ctx context.Context, db *gorm.DB, chatID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountChatMessages returns the number of messages in a chat.
func CountChatMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("chat_id = ?", chatID).
		Count(&total).Error
	return total, err
}

// GetChatMessage fetches a message by ID.
func GetChatMessage(ctx context.Context, db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
