package ws

import (
	"github.com/backuo/backuo-backend/internal/apperr"
)

// MessageMarkRead advances the caller's read cursor through the durable layer
// and then announces it to the room so counterpart UIs can flip sent → seen
// without re-querying. The announcement is informational only.
type MessageMarkRead struct {
	ConversationID uint `json:"conversation_id"`
	LastMessageID  uint `json:"last_message_id"`
}

func (msg *MessageMarkRead) GetType() string {
	return "read"
}

func (msg *MessageMarkRead) Process(ctx *MessageContext) error {
	if _, err := ctx.Reads.MarkRead(msg.ConversationID, ctx.UserID, msg.LastMessageID); err != nil {
		if kind := apperr.KindOf(err); kind == apperr.KindForbidden || kind == apperr.KindValidation {
			return SendError(ctx.Client, apperr.CodeOf(err), apperr.MessageOf(err), "")
		}
		return err
	}

	// The cached sidebar carries unread counts, so a read cursor move
	// stales it the same way a new message does.
	if ctx.InvalidateLists != nil {
		ctx.InvalidateLists(ctx.UserID)
	}

	ctx.Hub.PublishToConversation(msg.ConversationID, ctx.UserID,
		NewReadEvent(msg.ConversationID, ctx.UserID, msg.LastMessageID))
	return nil
}
