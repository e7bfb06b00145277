package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

type StockHandler struct {
	Stock     *services.StockService
	Transfers *services.TransferService
}

func (h *StockHandler) Record(c *fiber.Ctx) error {
	var in services.MovementRequest
	if err := bind(c, &in); err != nil {
		return err
	}
	m, err := h.Stock.Record(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "stock.movement", map[string]any{
		"movement_id": m.ID, "article_id": m.ArticleID, "kind": m.Kind, "qty": m.Qty, "stock_after": m.StockAfter,
	})
	return ok(c, fiber.StatusCreated, m)
}

func timeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.Invalid("%s must be an RFC 3339 timestamp", name).With("field", name)
	}
	return &t, nil
}

func (h *StockHandler) Movements(c *fiber.Ctx) error {
	page, size := pageOf(c)
	f := repos.MovementFilter{Kind: domain.MovementKind(c.Query("kind")), Ref: c.Query("ref"), Page: page, Size: size}
	var err error
	if f.ShopID, err = queryID(c, "shop_id"); err != nil {
		return err
	}
	if f.ArticleID, err = queryID(c, "article_id"); err != nil {
		return err
	}
	if f.From, err = timeQuery(c, "from"); err != nil {
		return err
	}
	if f.To, err = timeQuery(c, "to"); err != nil {
		return err
	}
	items, total, err := h.Stock.Movements(c.UserContext(), principal(c), f)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

func (h *StockHandler) CreateTransfer(c *fiber.Ctx) error {
	var in services.TransferInput
	if err := bind(c, &in); err != nil {
		return err
	}
	tr, err := h.Transfers.Create(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "transfer.create", map[string]any{"transfer_id": tr.ID, "reference": tr.Reference})
	return ok(c, fiber.StatusCreated, tr)
}

func (h *StockHandler) ValidateTransfer(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	tr, err := h.Transfers.Validate(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "transfer.validate", map[string]any{"transfer_id": tr.ID, "reference": tr.Reference})
	return ok(c, fiber.StatusOK, tr)
}

func (h *StockHandler) CancelTransfer(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	tr, err := h.Transfers.Cancel(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "transfer.cancel", map[string]any{"transfer_id": tr.ID, "reference": tr.Reference})
	return ok(c, fiber.StatusOK, tr)
}

func (h *StockHandler) GetTransfer(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	tr, err := h.Transfers.Get(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, tr)
}

func (h *StockHandler) ListTransfers(c *fiber.Ctx) error {
	page, size := pageOf(c)
	items, total, err := h.Transfers.List(c.UserContext(), principal(c), domain.TransferStatus(c.Query("status")), page, size)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}
