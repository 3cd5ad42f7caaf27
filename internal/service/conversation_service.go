package service

import (
	"errors"

	"github.com/backuo/backuo-backend/internal/apperr"
	"github.com/backuo/backuo-backend/internal/repository"
	"gorm.io/gorm"
)

type ConversationService struct {
	convRepo repository.ConversationRepositoryInterface
	userRepo repository.UserRepositoryInterface
}

func NewConversationService(convRepo repository.ConversationRepositoryInterface, userRepo repository.UserRepositoryInterface) *ConversationService {
	return &ConversationService{convRepo: convRepo, userRepo: userRepo}
}

// EnsureDirect resolves the direct conversation between the requester and the
// other user, creating it on first contact. ensure(A,B) and ensure(B,A)
// always converge on the same id.
func (s *ConversationService) EnsureDirect(requesterID, otherUserID uint) (uint, error) {
	if requesterID == 0 || otherUserID == 0 {
		return 0, apperr.Validation("missing_user", "other_user_id is required")
	}
	if requesterID == otherUserID {
		return 0, apperr.Validation("self_conversation", "cannot start a conversation with yourself")
	}

	if _, err := s.userRepo.FindByID(otherUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperr.NotFound("user_not_found", "user not found")
		}
		return 0, err
	}

	id, _, err := s.convRepo.EnsureDirect(requesterID, otherUserID)
	return id, err
}

// IsMember reports membership, for callers that gate access themselves
// (e.g. live-channel joins).
func (s *ConversationService) IsMember(conversationID, userID uint) (bool, error) {
	return s.convRepo.IsMember(conversationID, userID)
}

// MemberIDs lists the members of a conversation.
func (s *ConversationService) MemberIDs(conversationID uint) ([]uint, error) {
	return s.convRepo.MemberIDs(conversationID)
}
