package models

import (
	"time"
)

// Notification is a persisted best-effort alert, independent of conversation
// messages. Offline recipients miss the push and pick the record up via list.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint   `gorm:"not null;index" json:"user_id"`
	Title  string `gorm:"type:varchar(255);not null" json:"title"`
	Body   string `gorm:"type:text" json:"body"`
	IsRead bool   `gorm:"not null;default:false" json:"is_read"`
}
