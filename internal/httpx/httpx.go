package httpx

import (
	"fmt"
	"log"

	"github.com/backuo/backuo-backend/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func requestID(c *fiber.Ctx) string {
	if v := c.Locals("requestid"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Error(c *fiber.Ctx, status int, code string, message string) error {
	if message == "" {
		message = "Request failed"
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(c),
	})
}

func BadRequest(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusBadRequest, code, message)
}

func Unauthorized(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusUnauthorized, code, message)
}

func Forbidden(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusForbidden, code, message)
}

func NotFound(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusNotFound, code, message)
}

func Conflict(c *fiber.Ctx, code string, message string) error {
	return Error(c, fiber.StatusConflict, code, message)
}

func Internal(c *fiber.Ctx, code string) error {
	return Error(c, fiber.StatusInternalServerError, code, "Internal server error")
}

// FromError maps a service-layer error to its HTTP response. Anything outside
// the apperr taxonomy is logged and hidden behind a 500.
func FromError(c *fiber.Ctx, err error, fallbackCode string) error {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return BadRequest(c, apperr.CodeOf(err), apperr.MessageOf(err))
	case apperr.KindForbidden:
		return Forbidden(c, apperr.CodeOf(err), apperr.MessageOf(err))
	case apperr.KindNotFound:
		return NotFound(c, apperr.CodeOf(err), apperr.MessageOf(err))
	case apperr.KindConflict:
		return Conflict(c, apperr.CodeOf(err), apperr.MessageOf(err))
	default:
		log.Printf("%s: %v", fallbackCode, err)
		return Internal(c, fallbackCode)
	}
}

func LocalUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Locals(key)
	if v == nil {
		return 0, fmt.Errorf("missing local %s", key)
	}
	u, ok := v.(uint)
	if !ok {
		return 0, fmt.Errorf("invalid local %s", key)
	}
	return u, nil
}
