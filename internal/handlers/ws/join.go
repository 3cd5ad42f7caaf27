package ws

import (
	"log"
)

// MessageJoin subscribes the connection to a conversation room. Authorization
// lives at the durable layer: the join is validated against membership there,
// and a non-member join is dropped without a reply — the room only ever
// carries advisory events.
type MessageJoin struct {
	ConversationID uint `json:"conversation_id"`
}

func (msg *MessageJoin) GetType() string {
	return "join"
}

func (msg *MessageJoin) Process(ctx *MessageContext) error {
	if msg.ConversationID == 0 {
		return nil
	}
	ok, err := ctx.Conversations.IsMember(msg.ConversationID, ctx.UserID)
	if err != nil {
		log.Printf("join: membership check failed for user %d conv %d: %v", ctx.UserID, msg.ConversationID, err)
		return nil
	}
	if !ok {
		// Silently dropped.
		return nil
	}
	ctx.Hub.JoinRoom(msg.ConversationID, ctx.UserID)
	return nil
}

// MessageLeave unsubscribes the connection from a conversation room.
type MessageLeave struct {
	ConversationID uint `json:"conversation_id"`
}

func (msg *MessageLeave) GetType() string {
	return "leave"
}

func (msg *MessageLeave) Process(ctx *MessageContext) error {
	if msg.ConversationID == 0 {
		return nil
	}
	ctx.Hub.LeaveRoom(msg.ConversationID, ctx.UserID)
	return nil
}
