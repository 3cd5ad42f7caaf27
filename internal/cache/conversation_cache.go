package cache

import (
	"fmt"
	"time"

	"github.com/backuo/backuo-backend/internal/repository"
	"github.com/vmihailenco/msgpack/v5"
)

// ConversationListTTL bounds staleness of the cached sidebar snapshot.
const ConversationListTTL = 2 * time.Minute

// ConversationCache stores each user's aggregated conversation list — the one
// read expensive enough to be worth caching. Entries are invalidated for both
// members on append and for the reader on markRead; a miss or a Redis failure
// falls through to the database.
type ConversationCache struct {
	redis *RedisCache
}

func NewConversationCache(redis *RedisCache) *ConversationCache {
	return &ConversationCache{redis: redis}
}

func conversationListKey(userID uint) string {
	return fmt.Sprintf("convlist:%d", userID)
}

// GetList retrieves a cached conversation list snapshot.
func (cc *ConversationCache) GetList(userID uint) ([]repository.ConversationListRow, bool) {
	if cc == nil || cc.redis == nil {
		return nil, false
	}
	data, err := cc.redis.Get(conversationListKey(userID))
	if err != nil || data == nil {
		return nil, false
	}

	var rows []repository.ConversationListRow
	if err := msgpack.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	return rows, true
}

// SetList caches a conversation list snapshot.
func (cc *ConversationCache) SetList(userID uint, rows []repository.ConversationListRow) error {
	if cc == nil || cc.redis == nil {
		return nil
	}
	data, err := msgpack.Marshal(rows)
	if err != nil {
		return err
	}
	return cc.redis.Set(conversationListKey(userID), data, ConversationListTTL)
}

// Invalidate drops the cached lists of the given users.
func (cc *ConversationCache) Invalidate(userIDs ...uint) {
	if cc == nil || cc.redis == nil {
		return
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, conversationListKey(id))
	}
	_ = cc.redis.Delete(keys...)
}
