package service

import (
	"github.com/backuo/backuo-backend/internal/apperr"
	"github.com/backuo/backuo-backend/internal/repository"
)

type ReadService struct {
	readRepo    repository.ReadMarkRepositoryInterface
	convRepo    repository.ConversationRepositoryInterface
	messageRepo repository.MessageRepositoryInterface
}

func NewReadService(readRepo repository.ReadMarkRepositoryInterface, convRepo repository.ConversationRepositoryInterface, messageRepo repository.MessageRepositoryInterface) *ReadService {
	return &ReadService{readRepo: readRepo, convRepo: convRepo, messageRepo: messageRepo}
}

// MarkRead advances the user's read cursor to lastMessageID: every message of
// the conversation up to it gains a read mark for the user. Repeating the
// call, or calling with a smaller id, changes nothing and is not an error.
// Returns the number of marks actually inserted.
func (s *ReadService) MarkRead(conversationID, userID, lastMessageID uint) (int64, error) {
	if conversationID == 0 || lastMessageID == 0 {
		return 0, apperr.Validation("missing_params", "conversation id and last_message_id are required")
	}

	ok, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.Forbidden("not_a_member", "not a member of this conversation")
	}

	return s.readRepo.MarkReadUpTo(conversationID, userID, lastMessageID)
}

// MarkConversationRead catches the cursor up to the newest message and
// returns it alongside the inserted count. A no-op on empty conversations.
func (s *ReadService) MarkConversationRead(conversationID, userID uint) (int64, uint, error) {
	if conversationID == 0 {
		return 0, 0, apperr.Validation("missing_params", "conversation id is required")
	}

	ok, err := s.convRepo.IsMember(conversationID, userID)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, apperr.Forbidden("not_a_member", "not a member of this conversation")
	}

	latest, err := s.messageRepo.LatestID(conversationID)
	if err != nil {
		return 0, 0, err
	}
	if latest == 0 {
		return 0, 0, nil
	}

	marked, err := s.readRepo.MarkReadUpTo(conversationID, userID, latest)
	return marked, latest, err
}

// UnreadCount derives the unread total for one conversation; the user's own
// messages never count.
func (s *ReadService) UnreadCount(conversationID, userID uint) (int64, error) {
	return s.readRepo.UnreadCount(conversationID, userID)
}
