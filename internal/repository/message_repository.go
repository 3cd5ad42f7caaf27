package repository

import (
	"github.com/backuo/backuo-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(message *models.ChatMessage) error {
	return r.db.Create(message).Error
}

func (r *MessageRepository) FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error) {
	var message models.ChatMessage
	err := r.db.Where("client_id = ? AND sender_id = ?", clientID, senderID).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListBefore fetches newest-first under the cursor, then reverses so callers
// always see ascending ids. A zero beforeID means "most recent page".
func (r *MessageRepository) ListBefore(conversationID uint, beforeID uint, limit int) ([]models.ChatMessage, error) {
	q := r.db.Where("conversation_id = ?", conversationID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var messages []models.ChatMessage
	err := q.Order("id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepository) LatestID(conversationID uint) (uint, error) {
	var id uint
	err := r.db.Model(&models.ChatMessage{}).
		Where("conversation_id = ?", conversationID).
		Select("COALESCE(MAX(id), 0)").
		Scan(&id).Error
	return id, err
}
