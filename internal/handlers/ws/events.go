package ws

import (
	"github.com/backuo/backuo-backend/internal/models"
)

// Outbound event types.
const (
	EventMessageNew         = "message:new"
	EventTyping             = "typing"
	EventRead               = "read"
	EventNotificationNew    = "notification:new"
	EventNotificationNewAll = "notification:new:all"
)

// Event is the outbound wire envelope. The payload of message:new carries the
// sender's client_id so optimistic entries correlate exactly.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type newMessagePayload struct {
	Message models.ChatMessageResponse `json:"message"`
}

type typingPayload struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
	IsTyping       bool `json:"is_typing"`
}

type readPayload struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
	LastMessageID  uint `json:"last_message_id"`
}

func NewMessageEvent(message models.ChatMessageResponse) Event {
	return Event{Type: EventMessageNew, Payload: newMessagePayload{Message: message}}
}

func NewTypingEvent(conversationID, userID uint, isTyping bool) Event {
	return Event{Type: EventTyping, Payload: typingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
	}}
}

func NewReadEvent(conversationID, userID, lastMessageID uint) Event {
	return Event{Type: EventRead, Payload: readPayload{
		ConversationID: conversationID,
		UserID:         userID,
		LastMessageID:  lastMessageID,
	}}
}

func NewNotificationEvent(notification models.Notification) Event {
	return Event{Type: EventNotificationNew, Payload: notification}
}

func NewNotificationBroadcastEvent(notification models.Notification) Event {
	return Event{Type: EventNotificationNewAll, Payload: notification}
}
