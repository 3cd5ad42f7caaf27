package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/backuo/backuo-backend/internal/cache"
	"github.com/backuo/backuo-backend/internal/handlers/ws"
	"github.com/backuo/backuo-backend/internal/httpx"
	"github.com/backuo/backuo-backend/internal/metrics"
	"github.com/backuo/backuo-backend/internal/repository"
	"github.com/backuo/backuo-backend/internal/service"
	"github.com/backuo/backuo-backend/internal/validation"
)

type MessageHandler struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
	readService         *service.ReadService
	hub                 *ws.Hub
	conversationCache   *cache.ConversationCache
	mediaBaseURL        string
}

func NewMessageHandler(
	conversationService *service.ConversationService,
	messageService *service.MessageService,
	readService *service.ReadService,
	hub *ws.Hub,
	conversationCache *cache.ConversationCache,
	mediaBaseURL string,
) *MessageHandler {
	return &MessageHandler{
		conversationService: conversationService,
		messageService:      messageService,
		readService:         readService,
		hub:                 hub,
		conversationCache:   conversationCache,
		mediaBaseURL:        mediaBaseURL,
	}
}

// Ensure resolves (or creates) the direct conversation with another user.
func (h *MessageHandler) Ensure(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input struct {
		OtherUserID uint `json:"other_user_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	conversationID, err := h.conversationService.EnsureDirect(userID, input.OtherUserID)
	if err != nil {
		return httpx.FromError(c, err, "ensure_conversation_failed")
	}

	return c.JSON(fiber.Map{"conversation_id": conversationID})
}

type conversationPeer struct {
	ID       uint       `json:"id"`
	Username string     `json:"username"`
	FullName string     `json:"full_name"`
	Avatar   string     `json:"avatar,omitempty"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type conversationLastMessage struct {
	ID        uint      `json:"id"`
	SenderID  uint      `json:"sender_id"`
	Content   string    `json:"content"`
	HasImage  bool      `json:"has_image"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationListItem struct {
	ConversationID uint                     `json:"conversation_id"`
	Counterpart    conversationPeer         `json:"counterpart"`
	LastMessage    *conversationLastMessage `json:"last_message,omitempty"`
	UnreadCount    int64                    `json:"unread_count"`
}

func toConversationListItems(rows []repository.ConversationListRow) []conversationListItem {
	items := make([]conversationListItem, 0, len(rows))
	for _, row := range rows {
		item := conversationListItem{
			ConversationID: row.ConversationID,
			Counterpart: conversationPeer{
				ID:       row.PeerID,
				Username: row.PeerUsername,
				FullName: row.PeerFullName,
				Avatar:   row.PeerAvatar,
				IsOnline: row.PeerIsOnline,
				LastSeen: row.PeerLastSeen,
			},
			UnreadCount: row.UnreadCount,
		}
		if row.MessageID != 0 && row.MessageCreatedAt != nil {
			item.LastMessage = &conversationLastMessage{
				ID:        row.MessageID,
				SenderID:  row.MessageSenderID,
				Content:   row.MessageContent,
				HasImage:  row.MessageImageKey != "",
				CreatedAt: *row.MessageCreatedAt,
			}
		}
		items = append(items, item)
	}
	return items
}

// GetConversations returns the caller's sidebar snapshot, most recent
// activity first. Served from cache when fresh.
func (h *MessageHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if rows, ok := h.conversationCache.GetList(userID); ok {
		return c.JSON(fiber.Map{"conversations": toConversationListItems(rows)})
	}

	rows, err := h.messageService.ListConversations(userID)
	if err != nil {
		return httpx.FromError(c, err, "fetch_conversations_failed")
	}
	if err := h.conversationCache.SetList(userID, rows); err != nil {
		log.Printf("conversation list cache set failed: %v", err)
	}

	return c.JSON(fiber.Map{"conversations": toConversationListItems(rows)})
}

// GetMessages pages backward through a conversation: an ascending slice
// strictly older than before_id.
func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	var beforeID uint
	if beforeStr := c.Query("before_id"); beforeStr != "" {
		before, err := strconv.ParseUint(beforeStr, 10, 64)
		if err != nil {
			return httpx.BadRequest(c, "invalid_before_id", "Invalid before_id")
		}
		beforeID = uint(before)
	}

	limit := service.DefaultPageSize
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return httpx.BadRequest(c, "invalid_limit", "Invalid limit")
		}
		limit = l
	}

	messages, err := h.messageService.ListMessages(conversationID, userID, beforeID, limit)
	if err != nil {
		return httpx.FromError(c, err, "fetch_messages_failed")
	}

	responses := make([]interface{}, len(messages))
	for i, msg := range messages {
		responses[i] = msg.ToResponse(h.mediaBaseURL)
	}

	result := fiber.Map{
		"messages": responses,
		"count":    len(messages),
	}
	if len(messages) > 0 {
		// Oldest id in this ascending page; pass it as before_id to walk further back.
		result["next_before_id"] = messages[0].ID
	}

	return c.JSON(result)
}

// SendMessage appends to the conversation named in the path.
func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	conversationID, err := pathID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}
	return h.append(c, conversationID)
}

// Send is the body-addressed alias for clients that carry conversation_id in
// the payload.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var input struct {
		ConversationID uint `json:"conversation_id"`
	}
	if err := c.BodyParser(&input); err != nil || input.ConversationID == 0 {
		return httpx.BadRequest(c, "missing_conversation", "conversation_id is required")
	}
	return h.append(c, input.ConversationID)
}

func (h *MessageHandler) append(c *fiber.Ctx, conversationID uint) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.AppendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.Content = validation.TrimAndLimit(input.Content, validation.MaxMessageLength())
	if input.ClientID != "" && !validation.ValidateClientID(input.ClientID) {
		return httpx.BadRequest(c, "invalid_client_id", "Invalid client_id")
	}

	message, err := h.messageService.Append(conversationID, userID, input)
	if err != nil {
		return httpx.FromError(c, err, "send_message_failed")
	}
	metrics.MessagesAppended.Inc()

	memberIDs, err := h.conversationService.MemberIDs(conversationID)
	if err != nil {
		log.Printf("member lookup for publish failed: %v", err)
		memberIDs = nil
	}
	h.conversationCache.Invalidate(memberIDs...)

	// Best-effort push after the durable write; never fails the request.
	h.hub.NotifyConversation(conversationID, memberIDs, 0, ws.NewMessageEvent(message.ToResponse(h.mediaBaseURL)))

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse(h.mediaBaseURL))
}

// MarkRead advances the caller's read cursor in the conversation.
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return httpx.BadRequest(c, "invalid_conversation", "Invalid conversation id")
	}

	var input struct {
		LastMessageID uint `json:"last_message_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	// An omitted cursor means "everything so far".
	var marked int64
	lastID := input.LastMessageID
	if lastID == 0 {
		marked, lastID, err = h.readService.MarkConversationRead(conversationID, userID)
	} else {
		marked, err = h.readService.MarkRead(conversationID, userID, lastID)
	}
	if err != nil {
		return httpx.FromError(c, err, "mark_read_failed")
	}

	h.conversationCache.Invalidate(userID)
	if marked > 0 {
		h.hub.PublishToConversation(conversationID, userID, ws.NewReadEvent(conversationID, userID, lastID))
	}

	// Messages newer than the cursor stay unread; report what remains so
	// the client can settle its badge without refetching the list.
	unread, err := h.readService.UnreadCount(conversationID, userID)
	if err != nil {
		log.Printf("Error counting unread for conversation %d user %d: %v", conversationID, userID, err)
		return c.JSON(fiber.Map{"ok": true, "marked": marked})
	}

	return c.JSON(fiber.Map{"ok": true, "marked": marked, "unread": unread})
}

func pathID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
