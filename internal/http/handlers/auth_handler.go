package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/services"
)

type AuthHandler struct {
	Auth      *services.AuthService
	Terminals *services.TerminalService
}

func (h *AuthHandler) Terminal(c *fiber.Ctx) error {
	var in services.TerminalLogin
	if err := bind(c, &in); err != nil {
		return err
	}
	sess, err := h.Terminals.Authenticate(c.UserContext(), in, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		applog.Security(c, "auth.terminal.fail", map[string]any{"serial": in.Serial, "kind": domain.KindOf(err)})
		return err
	}
	applog.Audit(c, "auth.terminal.success", map[string]any{"serial": in.Serial, "terminal_id": sess.Terminal.ID})
	return ok(c, fiber.StatusOK, sess)
}

func (h *AuthHandler) Merchant(c *fiber.Ctx) error {
	var in services.Credentials
	if err := bind(c, &in); err != nil {
		return err
	}
	tok, err := h.Auth.MerchantLogin(c.UserContext(), in)
	if err != nil {
		applog.Security(c, "auth.merchant.fail", map[string]any{"username": in.Username})
		return err
	}
	applog.Audit(c, "auth.merchant.success", map[string]any{"username": in.Username})
	return ok(c, fiber.StatusOK, tok)
}

func (h *AuthHandler) Operator(c *fiber.Ctx) error {
	var in services.Credentials
	if err := bind(c, &in); err != nil {
		return err
	}
	tok, err := h.Auth.OperatorLogin(c.UserContext(), in)
	if err != nil {
		applog.Security(c, "auth.operator.fail", map[string]any{"username": in.Username})
		return err
	}
	applog.Audit(c, "auth.operator.success", map[string]any{"username": in.Username})
	return ok(c, fiber.StatusOK, tok)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	p := principal(c)
	if err := h.Auth.Logout(c.UserContext(), p); err != nil {
		return err
	}
	applog.Audit(c, "auth.logout", nil)
	return c.SendStatus(fiber.StatusNoContent)
}
