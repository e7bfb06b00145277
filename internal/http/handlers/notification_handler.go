package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/services"
)

type NotificationHandler struct {
	Notify *services.NotifyService
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	unread := false
	if raw := c.Query("unread_only"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Invalid("unread_only must be true or false").With("field", "unread_only")
		}
		unread = b
	}
	page, size := pageOf(c)
	items, total, err := h.Notify.List(c.UserContext(), principal(c), unread, page, size)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	n, err := h.Notify.UnreadCount(c.UserContext(), principal(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.Notify.MarkRead(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	n, err := h.Notify.MarkAllRead(c.UserContext(), principal(c))
	if err != nil {
		return err
	}
	applog.Audit(c, "notifications.read_all", map[string]any{"count": n})
	return ok(c, fiber.StatusOK, fiber.Map{"marked": n})
}
