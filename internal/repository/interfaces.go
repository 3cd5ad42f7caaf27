package repository

import (
	"github.com/backuo/backuo-backend/internal/models"
)

// UserRepositoryInterface is the read-only view of the account subsystem this
// core depends on.
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	AllIDs() ([]uint, error)
}

// ConversationRepositoryInterface defines the contract for conversation and
// membership operations.
type ConversationRepositoryInterface interface {
	// EnsureDirect returns the id of the direct conversation for the pair,
	// creating it (with both memberships) when absent. created reports
	// whether this call made the row. Safe under concurrent two-sided calls.
	EnsureDirect(userA, userB uint) (id uint, created bool, err error)
	IsMember(conversationID, userID uint) (bool, error)
	MemberIDs(conversationID uint) ([]uint, error)
}

// MessageRepositoryInterface defines the contract for the durable message log.
type MessageRepositoryInterface interface {
	Create(message *models.ChatMessage) error
	FindByClientID(clientID string, senderID uint) (*models.ChatMessage, error)
	// ListBefore returns up to limit messages of the conversation strictly
	// older than beforeID (all most-recent when beforeID is 0), ascending.
	ListBefore(conversationID uint, beforeID uint, limit int) ([]models.ChatMessage, error)
	LatestID(conversationID uint) (uint, error)
	ListConversationsForUser(userID uint) ([]ConversationListRow, error)
}

// ReadMarkRepositoryInterface defines the contract for read-cursor bookkeeping.
type ReadMarkRepositoryInterface interface {
	// MarkReadUpTo inserts the missing read marks for every message of the
	// conversation with id <= lastMessageID that the user has not read.
	// Idempotent; returns the number of rows inserted.
	MarkReadUpTo(conversationID, userID, lastMessageID uint) (int64, error)
	UnreadCount(conversationID, userID uint) (int64, error)
}

// NotificationRepositoryInterface defines the contract for persisted alerts.
type NotificationRepositoryInterface interface {
	CreateBatch(notifications []*models.Notification) error
	ListForUser(userID uint, limit int) ([]models.Notification, error)
	MarkAllRead(userID uint) error
	ClearAll(userID uint) error
}
