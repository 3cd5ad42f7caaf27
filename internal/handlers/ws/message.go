package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/backuo/backuo-backend/internal/service"
)

// MessageContext provides the dependencies inbound message processing needs.
// InvalidateLists drops cached conversation list snapshots for the given
// users; it may be nil when no cache is wired.
type MessageContext struct {
	UserID          uint
	Client          *ClientConnection
	Hub             *Hub
	Conversations   *service.ConversationService
	Reads           *service.ReadService
	InvalidateLists func(userIDs ...uint)
}

// Message is implemented by every inbound WebSocket message type.
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the inbound wire format wrapper.
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorResponse is sent when message processing fails.
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func CreateMessage(msgType string, registry map[string]reflect.Type) (Message, error) {
	t, ok := registry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}
	return reflect.New(t).Interface().(Message), nil
}

// SendError sends an error response to the client.
func SendError(client *ClientConnection, code, message, details string) error {
	return client.WriteJSON(ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
}
