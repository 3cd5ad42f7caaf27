package repository

import (
	"github.com/backuo/backuo-backend/internal/models"
	"gorm.io/gorm"
)

type ReadMarkRepository struct {
	db *gorm.DB
}

func NewReadMarkRepository(db *gorm.DB) *ReadMarkRepository {
	return &ReadMarkRepository{db: db}
}

// MarkReadUpTo inserts the read marks the user is missing for messages of the
// conversation up to and including lastMessageID. One statement, atomic in
// the storage engine, safe to repeat: already-marked rows are filtered out by
// the anti-join, and ON CONFLICT absorbs the rows a concurrent mark of the
// same cursor inserted between the scan and the write.
func (r *ReadMarkRepository) MarkReadUpTo(conversationID, userID, lastMessageID uint) (int64, error) {
	res := r.db.Exec(`
		INSERT INTO message_reads (message_id, user_id, created_at)
		SELECT m.id, ?, NOW()
		FROM chat_messages m
		LEFT JOIN message_reads r
			ON r.message_id = m.id AND r.user_id = ?
		WHERE m.conversation_id = ?
			AND m.id <= ?
			AND r.message_id IS NULL
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, userID, userID, conversationID, lastMessageID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UnreadCount counts the messages in the conversation sent by others that the
// user holds no read mark for. Own messages never count.
func (r *ReadMarkRepository) UnreadCount(conversationID, userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChatMessage{}).
		Joins("LEFT JOIN message_reads r ON r.message_id = chat_messages.id AND r.user_id = ?", userID).
		Where("chat_messages.conversation_id = ? AND chat_messages.sender_id <> ? AND r.message_id IS NULL", conversationID, userID).
		Count(&count).Error
	return count, err
}
