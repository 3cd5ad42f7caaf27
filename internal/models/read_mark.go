package models

import (
	"time"
)

// MessageRead records that a user has read a message. Rows only accumulate:
// marking read inserts every missing row up to the cursor, and nothing ever
// deletes one, so concurrent marks from the same user commute.
type MessageRead struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uint      `gorm:"primaryKey;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
