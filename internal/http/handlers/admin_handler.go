package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/services"
)

// AdminHandler serves operator administration of merchants and merchant
// administration of their own shops, terminals and rate.
type AdminHandler struct {
	Admin *services.AdminService
}

func (h *AdminHandler) CreateMerchant(c *fiber.Ctx) error {
	var in services.MerchantInput
	if err := bind(c, &in); err != nil {
		return err
	}
	m, err := h.Admin.CreateMerchant(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "admin.merchant.create", map[string]any{"merchant_id": m.ID, "username": m.Username})
	return ok(c, fiber.StatusCreated, m)
}

func (h *AdminHandler) Merchants(c *fiber.Ctx) error {
	page, size := pageOf(c)
	items, total, err := h.Admin.ListMerchants(c.UserContext(), principal(c), page, size)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

func (h *AdminHandler) merchantActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		m, err := h.Admin.SetMerchantActive(c.UserContext(), principal(c), id, active)
		if err != nil {
			return err
		}
		applog.Audit(c, "admin.merchant.active", map[string]any{"merchant_id": m.ID, "active": active})
		return ok(c, fiber.StatusOK, m)
	}
}

func (h *AdminHandler) Me(c *fiber.Ctx) error {
	me, err := h.Admin.Me(c.UserContext(), principal(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, me)
}

type rateInput struct {
	Rate domain.Amount `json:"local_to_usd_rate"`
}

func (h *AdminHandler) SetRate(c *fiber.Ctx) error {
	var in rateInput
	if err := bind(c, &in); err != nil {
		return err
	}
	m, err := h.Admin.SetRate(c.UserContext(), principal(c), in.Rate)
	if err != nil {
		return err
	}
	applog.Audit(c, "merchant.rate", map[string]any{"rate": m.Rate})
	return ok(c, fiber.StatusOK, m)
}

func (h *AdminHandler) Shops(c *fiber.Ctx) error {
	items, err := h.Admin.ListShops(c.UserContext(), principal(c))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

func (h *AdminHandler) CreateShop(c *fiber.Ctx) error {
	var in services.ShopInput
	if err := bind(c, &in); err != nil {
		return err
	}
	sh, err := h.Admin.CreateShop(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "shop.create", map[string]any{"shop_id": sh.ID, "commerce_type": sh.CommerceType})
	return ok(c, fiber.StatusCreated, sh)
}

func (h *AdminHandler) UpdateShop(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var patch services.ShopPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	sh, err := h.Admin.UpdateShop(c.UserContext(), principal(c), id, patch)
	if err != nil {
		return err
	}
	applog.Audit(c, "shop.update", map[string]any{"shop_id": sh.ID})
	return ok(c, fiber.StatusOK, sh)
}

func (h *AdminHandler) Terminals(c *fiber.Ctx) error {
	shopID, err := queryID(c, "shop_id")
	if err != nil {
		return err
	}
	items, err := h.Admin.ListTerminals(c.UserContext(), principal(c), shopID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

func (h *AdminHandler) CreateTerminal(c *fiber.Ctx) error {
	var in services.TerminalInput
	if err := bind(c, &in); err != nil {
		return err
	}
	t, err := h.Admin.CreateTerminal(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "terminal.create", map[string]any{"terminal_id": t.ID, "serial": t.Serial, "shop_id": t.ShopID})
	return ok(c, fiber.StatusCreated, t)
}

func (h *AdminHandler) UpdateTerminal(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var patch services.TerminalPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	t, err := h.Admin.UpdateTerminal(c.UserContext(), principal(c), id, patch)
	if err != nil {
		return err
	}
	applog.Audit(c, "terminal.update", map[string]any{"terminal_id": t.ID, "legacy_client": t.LegacyClient})
	return ok(c, fiber.StatusOK, t)
}

func (h *AdminHandler) terminalActive(active bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return err
		}
		t, err := h.Admin.SetTerminalActive(c.UserContext(), principal(c), id, active)
		if err != nil {
			return err
		}
		applog.Audit(c, "terminal.active", map[string]any{"terminal_id": t.ID, "active": active})
		return ok(c, fiber.StatusOK, t)
	}
}
