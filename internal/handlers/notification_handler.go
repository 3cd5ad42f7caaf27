package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/backuo/backuo-backend/internal/handlers/ws"
	"github.com/backuo/backuo-backend/internal/httpx"
	"github.com/backuo/backuo-backend/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	hub                 *ws.Hub
}

func NewNotificationHandler(notificationService *service.NotificationService, hub *ws.Hub) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, hub: hub}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	notifications, err := h.notificationService.List(userID)
	if err != nil {
		return httpx.FromError(c, err, "fetch_notifications_failed")
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

// Create persists a notification per resolved recipient, then pushes
// best-effort. Admin only (enforced by route middleware).
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var input struct {
		Target service.NotificationTarget `json:"target"`
		Title  string                     `json:"title"`
		Body   string                     `json:"body"`
	}
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	notifications, err := h.notificationService.Send(input.Target, input.Title, input.Body)
	if err != nil {
		return httpx.FromError(c, err, "create_notification_failed")
	}

	// Push after the durable write. For "all", one broadcast frame reaches
	// every live connection; targeted sends go to each private channel.
	if input.Target.Kind == service.TargetAll && len(notifications) > 0 {
		shared := *notifications[0]
		shared.UserID = 0 // one frame for everyone; the per-user rows stay addressed
		h.hub.Broadcast(ws.NewNotificationBroadcastEvent(shared))
	} else {
		for _, n := range notifications {
			h.hub.SendToUser(n.UserID, ws.NewNotificationEvent(*n))
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "inserted": len(notifications)})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if err := h.notificationService.MarkAllRead(userID); err != nil {
		return httpx.FromError(c, err, "mark_notifications_failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *NotificationHandler) ClearAll(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if err := h.notificationService.ClearAll(userID); err != nil {
		return httpx.FromError(c, err, "clear_notifications_failed")
	}
	return c.JSON(fiber.Map{"ok": true})
}
