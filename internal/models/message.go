package models

import (
	"time"
)

// ChatMessage is append-only: never edited, never deleted. The bigserial id is
// strictly increasing across the system and is the cursor for backward paging.
type ChatMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ConversationID uint `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint `gorm:"not null;index;uniqueIndex:idx_messages_client_sender,priority:2" json:"sender_id"`

	// ClientID is the client-generated correlation id. It is echoed back in
	// both the append response and the message:new live event so optimistic
	// entries can be matched exactly, and doubles as an idempotency key per
	// sender. NULL when the sender supplied none.
	ClientID *string `gorm:"type:varchar(64);uniqueIndex:idx_messages_client_sender,priority:1" json:"client_id,omitempty"`

	Content  string `gorm:"type:text" json:"content"`
	ImageKey string `gorm:"type:varchar(255)" json:"image_key"`

	Sender *User `gorm:"foreignKey:SenderID" json:"-"`
}

type ChatMessageResponse struct {
	ID             uint      `json:"id"`
	ConversationID uint      `json:"conversation_id"`
	SenderID       uint      `json:"sender_id"`
	ClientID       string    `json:"client_id,omitempty"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"image_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse maps a stored message to its wire shape. mediaBaseURL prefixes
// the stored object key; pass "" when the deployment has no object store.
func (m *ChatMessage) ToResponse(mediaBaseURL string) ChatMessageResponse {
	resp := ChatMessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.ClientID != nil {
		resp.ClientID = *m.ClientID
	}
	if m.ImageKey != "" {
		if mediaBaseURL != "" {
			resp.ImageURL = mediaBaseURL + "/" + m.ImageKey
		} else {
			resp.ImageURL = m.ImageKey
		}
	}
	return resp
}
