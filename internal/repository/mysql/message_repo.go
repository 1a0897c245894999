package mysql

import (
	"context"

	"Lee_Social/internal/model"

	"gorm.io/gorm"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return wrapErr(r.DB.WithContext(ctx).Create(msg).Error)
}

// Conversation 两人之间双向的消息，按时间正序
func (r *MessageRepository) Conversation(ctx context.Context, userID, otherID string, page Page) ([]model.Message, error) {
	var rows []model.Message
	if err := r.DB.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherID, otherID, userID).
		Order("created_at ASC").Order("id ASC").
		Scopes(page.scope).
		Find(&rows).Error; err != nil {
		return nil, wrapErr(err)
	}
	return rows, nil
}
