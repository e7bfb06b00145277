package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
	"stockpos/internal/validate"
)

type ArticleHandler struct {
	Catalog *services.CatalogService
}

func (h *ArticleHandler) List(c *fiber.Ctx) error {
	shopID, err := queryID(c, "shop_id")
	if err != nil {
		return err
	}
	param := "category_id"
	if c.Query(param) == "" {
		param = "category"
	}
	categoryID, err := queryID(c, param)
	if err != nil {
		return err
	}
	page, size := pageOf(c)
	f := repos.ArticleFilter{
		ShopID: shopID, CategoryID: categoryID, State: domain.StockState(c.Query("state")), Page: page, Size: size,
	}
	if raw := c.Query("q"); raw != "" {
		q, valid := validate.Q(raw)
		if !valid {
			return domain.Invalid("q contains unsupported characters").With("field", "q")
		}
		f.Q = q
	}
	items, total, err := h.Catalog.ListArticles(c.UserContext(), principal(c), f)
	if err != nil {
		return err
	}
	return paged(c, items, page, size, total)
}

func (h *ArticleHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Catalog.GetArticle(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, a)
}

func (h *ArticleHandler) Create(c *fiber.Ctx) error {
	var in services.ArticleInput
	if err := bind(c, &in); err != nil {
		return err
	}
	a, err := h.Catalog.CreateArticle(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "article.create", map[string]any{"article_id": a.ID, "shop_id": a.ShopID, "code": a.Code})
	return ok(c, fiber.StatusCreated, a)
}

func (h *ArticleHandler) Update(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var patch services.ArticlePatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	a, err := h.Catalog.UpdateArticle(c.UserContext(), principal(c), id, patch)
	if err != nil {
		return err
	}
	applog.Audit(c, "article.update", map[string]any{"article_id": a.ID})
	return ok(c, fiber.StatusOK, a)
}

// Delete deactivates; movements keep referencing the article.
func (h *ArticleHandler) Delete(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Catalog.DeactivateArticle(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	applog.Audit(c, "article.deactivate", map[string]any{"article_id": a.ID})
	return ok(c, fiber.StatusOK, a)
}

func (h *ArticleHandler) Variants(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.Catalog.ListVariants(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

func (h *ArticleHandler) CreateVariant(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in services.VariantInput
	if err := bind(c, &in); err != nil {
		return err
	}
	v, err := h.Catalog.CreateVariant(c.UserContext(), principal(c), id, in)
	if err != nil {
		return err
	}
	applog.Audit(c, "variant.create", map[string]any{"article_id": id, "variant_id": v.ID, "barcode": v.Barcode})
	return ok(c, fiber.StatusCreated, v)
}

func (h *ArticleHandler) Prices(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	items, err := h.Catalog.PriceHistory(c.UserContext(), principal(c), id)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

type receptionInput struct {
	Received int `json:"received_qty" validate:"gte=0"`
}

func (h *ArticleHandler) Reception(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var in receptionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := validate.Struct(in); err != nil {
		return err
	}
	a, err := h.Catalog.ConfirmReception(c.UserContext(), principal(c), id, in.Received)
	if err != nil {
		return err
	}
	applog.Audit(c, "article.reception", map[string]any{"article_id": a.ID, "received": in.Received})
	return ok(c, fiber.StatusOK, a)
}

func (h *ArticleHandler) Categories(c *fiber.Ctx) error {
	shopID, err := queryID(c, "shop_id")
	if err != nil {
		return err
	}
	items, err := h.Catalog.ListCategories(c.UserContext(), principal(c), shopID)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, items)
}

func (h *ArticleHandler) CreateCategory(c *fiber.Ctx) error {
	var in services.CategoryInput
	if err := bind(c, &in); err != nil {
		return err
	}
	cat, err := h.Catalog.CreateCategory(c.UserContext(), principal(c), in)
	if err != nil {
		return err
	}
	applog.Audit(c, "category.create", map[string]any{"category_id": cat.ID, "shop_id": cat.ShopID})
	return ok(c, fiber.StatusCreated, cat)
}
