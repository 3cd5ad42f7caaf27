package repository

import (
	"strings"
	"time"
)

// ConversationListRow is a denormalized row for one conversation in the
// sidebar: counterpart profile + last message + unread count.
//
// NOTE: deliberately not the full models.User shape; the peer's email never
// leaves the storage layer, and one query serves the whole list (no N+1).
type ConversationListRow struct {
	ConversationID uint `gorm:"column:conversation_id"`

	PeerID       uint       `gorm:"column:peer_id"`
	PeerUsername string     `gorm:"column:peer_username"`
	PeerFullName string     `gorm:"column:peer_full_name"`
	PeerAvatar   string     `gorm:"column:peer_avatar"`
	PeerIsOnline bool       `gorm:"column:peer_is_online"`
	PeerLastSeen *time.Time `gorm:"column:peer_last_seen"`

	UnreadCount int64 `gorm:"column:unread_count"`

	MessageID        uint       `gorm:"column:message_id"`
	MessageSenderID  uint       `gorm:"column:message_sender_id"`
	MessageContent   string     `gorm:"column:message_content"`
	MessageImageKey  string     `gorm:"column:message_image_key"`
	MessageCreatedAt *time.Time `gorm:"column:message_created_at"`
}

// ListConversationsForUser computes one consistent snapshot of the user's
// conversation list: last message per conversation, unread counts derived
// from missing read marks, counterpart profile — all in a single query.
func (r *MessageRepository) ListConversationsForUser(userID uint) ([]ConversationListRow, error) {
	query := strings.TrimSpace(`
WITH my_convs AS (
	SELECT cm.conversation_id
	FROM conversation_members cm
	WHERE cm.user_id = ?
),
last_msg AS (
	SELECT DISTINCT ON (m.conversation_id)
		m.conversation_id,
		m.id AS message_id,
		m.sender_id AS message_sender_id,
		m.content AS message_content,
		m.image_key AS message_image_key,
		m.created_at AS message_created_at
	FROM chat_messages m
	WHERE m.conversation_id IN (SELECT conversation_id FROM my_convs)
	ORDER BY m.conversation_id, m.id DESC
),
unread AS (
	SELECT m.conversation_id, COUNT(*) AS unread_count
	FROM chat_messages m
	LEFT JOIN message_reads r
		ON r.message_id = m.id AND r.user_id = ?
	WHERE m.conversation_id IN (SELECT conversation_id FROM my_convs)
		AND m.sender_id <> ?
		AND r.message_id IS NULL
	GROUP BY m.conversation_id
)
SELECT
	c.id AS conversation_id,
	peer.id AS peer_id,
	peer.username AS peer_username,
	peer.full_name AS peer_full_name,
	peer.avatar AS peer_avatar,
	peer.is_online AS peer_is_online,
	peer.last_seen AS peer_last_seen,
	COALESCE(u.unread_count, 0) AS unread_count,
	COALESCE(lm.message_id, 0) AS message_id,
	COALESCE(lm.message_sender_id, 0) AS message_sender_id,
	COALESCE(lm.message_content, '') AS message_content,
	COALESCE(lm.message_image_key, '') AS message_image_key,
	lm.message_created_at AS message_created_at
FROM conversations c
JOIN conversation_members cm2
	ON cm2.conversation_id = c.id AND cm2.user_id <> ?
JOIN users peer ON peer.id = cm2.user_id
LEFT JOIN last_msg lm ON lm.conversation_id = c.id
LEFT JOIN unread u ON u.conversation_id = c.id
WHERE c.id IN (SELECT conversation_id FROM my_convs)
	AND c.is_group = false
ORDER BY lm.message_created_at DESC NULLS LAST, c.id DESC
`)

	var rows []ConversationListRow
	err := r.db.Raw(query, userID, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
