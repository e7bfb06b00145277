package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
	"stockpos/internal/validate"
)

type SaleHandler struct {
	Sales *services.SaleService
}

func clientMeta(c *fiber.Ctx) services.ClientMeta {
	return services.ClientMeta{IP: c.IP(), AppVersion: c.Get("X-App-Version")}
}

// Submit always answers 200 with an outcome: rejections are data, not errors.
func (h *SaleHandler) Submit(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return domain.Invalid("request body is required")
	}
	raw := append(json.RawMessage(nil), body...)
	out, err := h.Sales.Submit(c.UserContext(), principal(c), raw, clientMeta(c))
	if err != nil {
		return err
	}
	applog.Audit(c, "sale.submit", map[string]any{"uid": out.UID, "status": out.Status, "reason": out.Reason})
	return ok(c, fiber.StatusOK, out)
}

func (h *SaleHandler) SubmitBatch(c *fiber.Ctx) error {
	var batch []json.RawMessage
	if err := json.Unmarshal(c.Body(), &batch); err != nil {
		var wrapped struct {
			Sales []json.RawMessage `json:"sales"`
		}
		if err := json.Unmarshal(c.Body(), &wrapped); err != nil {
			return domain.Invalid("body must be an array of sales")
		}
		batch = wrapped.Sales
	}
	outs, err := h.Sales.SubmitBatch(c.UserContext(), principal(c), batch, clientMeta(c))
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, o := range outs {
		counts[o.Status]++
	}
	applog.Audit(c, "sale.batch", map[string]any{"size": len(outs), "outcomes": counts})
	return ok(c, fiber.StatusOK, outs)
}

func (h *SaleHandler) List(c *fiber.Ctx) error {
	page, size := pageOf(c)
	f := repos.SaleFilter{Page: page, Size: size}
	var err error
	if f.ShopID, err = queryID(c, "shop_id"); err != nil {
		return err
	}
	if f.From, err = timeQuery(c, "from"); err != nil {
		return err
	}
	if f.To, err = timeQuery(c, "to"); err != nil {
		return err
	}
	items, total, err := h.Sales.List(c.UserContext(), principal(c), f)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

func (h *SaleHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	sale, err := h.Sales.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, sale)
}

func (h *SaleHandler) Cancel(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	sale, err := h.Sales.Cancel(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "sale.cancel", map[string]any{"sale_id": sale.ID, "invoice": sale.InvoiceNumber})
	return ok(c, fiber.StatusOK, sale)
}

func (h *SaleHandler) Rejected(c *fiber.Ctx) error {
	shopID, err := queryID(c, "shop_id")
	if err != nil {
		return err
	}
	var handled *bool
	if raw := c.Query("handled"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Invalid("handled must be true or false").With("field", "handled")
		}
		handled = &b
	}
	page, size := pageOf(c)
	items, total, err := h.Sales.ListRejected(c.UserContext(), principal(c), shopID, handled, page, size)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

type handleInput struct {
	Notes string `json:"notes" validate:"max=1000"`
}

func (h *SaleHandler) HandleRejected(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in handleInput
	if len(c.Body()) > 0 {
		if err := bind(c, &in); err != nil {
			return err
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
	}
	rs, err := h.Sales.HandleRejected(c.UserContext(), principal(c), id, in.Notes)
	if err != nil {
		return err
	}
	applog.Audit(c, "sale.rejected.handle", map[string]any{"rejected_id": rs.ID, "uid": rs.UID})
	return ok(c, fiber.StatusOK, rs)
}
