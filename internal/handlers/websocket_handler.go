package handlers

import (
	"log"
	"os"

	"github.com/gofiber/websocket/v2"

	"github.com/backuo/backuo-backend/internal/cache"
	"github.com/backuo/backuo-backend/internal/handlers/ws"
	"github.com/backuo/backuo-backend/internal/service"
)

type WebSocketHandler struct {
	conversationService *service.ConversationService
	readService         *service.ReadService
	hub                 *ws.Hub
	conversationCache   *cache.ConversationCache
}

func NewWebSocketHandler(
	conversationService *service.ConversationService,
	readService *service.ReadService,
	hub *ws.Hub,
	conversationCache *cache.ConversationCache,
) *WebSocketHandler {
	return &WebSocketHandler{
		conversationService: conversationService,
		readService:         readService,
		hub:                 hub,
		conversationCache:   conversationCache,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)
	wsDebug := os.Getenv("WS_DEBUG") == "true"

	client := h.hub.Register(userID, c)
	defer h.hub.Unregister(userID)

	log.Printf("User %d connected via WebSocket", userID)

	ctx := &ws.MessageContext{
		UserID:          userID,
		Client:          client,
		Hub:             h.hub,
		Conversations:   h.conversationService,
		Reads:           h.readService,
		InvalidateLists: h.conversationCache.Invalidate,
	}

	for {
		messageType, messageBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		if wsDebug {
			log.Printf("ws_recv user_id=%d frame_type=%d size=%d", userID, messageType, len(messageBytes))
		}

		msg, err := ws.Deserialize(messageBytes)
		if err != nil {
			log.Printf("Error deserializing message from user %d: %v", userID, err)
			_ = ws.SendError(client, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(ctx); err != nil {
			log.Printf("Error processing message %s from user %d: %v", msg.GetType(), userID, err)
			_ = ws.SendError(client, "processing_failed", "Failed to process message", err.Error())
		}
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
