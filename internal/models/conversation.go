package models

import (
	"fmt"
	"time"
)

// Conversation is a container of ordered messages for a fixed membership set.
// Direct (non-group) conversations carry a pair_key derived from the sorted
// member pair; the unique index on it is what makes ensure idempotent under
// two-sided concurrent creation.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	IsGroup bool    `gorm:"not null;default:false" json:"is_group"`
	PairKey *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationMember joins a user to a conversation. Immutable after creation
// for direct conversations.
type ConversationMember struct {
	ConversationID uint      `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint      `gorm:"primaryKey;index" json:"user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// PairKey returns the canonical uniqueness key for a direct conversation
// between two users, independent of argument order.
func PairKey(userA, userB uint) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%d:%d", userA, userB)
}
