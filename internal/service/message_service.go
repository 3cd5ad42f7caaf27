package service

import (
	"errors"
	"strings"

	"github.com/backuo/backuo-backend/internal/apperr"
	"github.com/backuo/backuo-backend/internal/models"
	"github.com/backuo/backuo-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	convRepo    repository.ConversationRepositoryInterface
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, convRepo repository.ConversationRepositoryInterface) *MessageService {
	return &MessageService{messageRepo: messageRepo, convRepo: convRepo}
}

type AppendMessageInput struct {
	ClientID string `json:"client_id"`
	Content  string `json:"content"`
	ImageKey string `json:"image_key"`
}

// Append persists a message with a freshly allocated monotonic id. When the
// sender replays a client_id it already used, the original row is returned
// instead of a duplicate.
func (s *MessageService) Append(conversationID, senderID uint, input AppendMessageInput) (*models.ChatMessage, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.ImageKey == "" {
		return nil, apperr.Validation("empty_message", "content or image_key is required")
	}

	if err := s.requireMember(conversationID, senderID, "not a member of this conversation"); err != nil {
		return nil, err
	}

	message := &models.ChatMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		ImageKey:       input.ImageKey,
	}
	if input.ClientID != "" {
		message.ClientID = &input.ClientID
	}

	if err := s.messageRepo.Create(message); err != nil {
		if input.ClientID != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.messageRepo.FindByClientID(input.ClientID, senderID)
		}
		return nil, err
	}
	return message, nil
}

// ListMessages returns an ascending page strictly older than beforeID
// (the most recent page when beforeID is 0).
func (s *MessageService) ListMessages(conversationID, requesterID uint, beforeID uint, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if err := s.requireMember(conversationID, requesterID, "not a member of this conversation"); err != nil {
		return nil, err
	}

	return s.messageRepo.ListBefore(conversationID, beforeID, limit)
}

// ListConversations returns the user's conversation list snapshot, most
// recent activity first.
func (s *MessageService) ListConversations(userID uint) ([]repository.ConversationListRow, error) {
	return s.messageRepo.ListConversationsForUser(userID)
}

func (s *MessageService) requireMember(conversationID, userID uint, message string) error {
	ok, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbidden("not_a_member", message)
	}
	return nil
}
