package ws

// MessageTyping relays ephemeral typing state to the conversation room. It is
// never persisted; the hub expires it after ~1.2s without an explicit stop.
type MessageTyping struct {
	ConversationID uint `json:"conversation_id"`
	IsTyping       bool `json:"is_typing"`
}

func (msg *MessageTyping) GetType() string {
	return "typing"
}

func (msg *MessageTyping) Process(ctx *MessageContext) error {
	if msg.ConversationID == 0 {
		return nil
	}
	ctx.Hub.SetTyping(msg.ConversationID, ctx.UserID, msg.IsTyping)
	return nil
}
