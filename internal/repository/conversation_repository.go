package repository

import (
	"errors"

	"github.com/backuo/backuo-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// EnsureDirect finds or creates the single direct conversation for the pair.
// The pair_key unique index is the authority: when two users ensure toward
// each other concurrently, exactly one INSERT commits and the loser re-reads
// the winner's row.
func (r *ConversationRepository) EnsureDirect(userA, userB uint) (uint, bool, error) {
	pairKey := models.PairKey(userA, userB)

	existing, err := r.findByPairKey(pairKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, err
	}

	conv := models.Conversation{IsGroup: false, PairKey: &pairKey}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		members := []models.ConversationMember{
			{ConversationID: conv.ID, UserID: userA},
			{ConversationID: conv.ID, UserID: userB},
		}
		return tx.Create(&members).Error
	})
	if err == nil {
		return conv.ID, true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the race; the other side's row is now visible.
		id, ferr := r.findByPairKey(pairKey)
		if ferr != nil {
			return 0, false, ferr
		}
		return id, false, nil
	}
	return 0, false, err
}

func (r *ConversationRepository) findByPairKey(pairKey string) (uint, error) {
	var conv models.Conversation
	err := r.db.Select("id").Where("is_group = false AND pair_key = ?", pairKey).First(&conv).Error
	if err != nil {
		return 0, err
	}
	return conv.ID, nil
}

func (r *ConversationRepository) IsMember(conversationID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *ConversationRepository) MemberIDs(conversationID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ConversationMember{}).
		Where("conversation_id = ?", conversationID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}
