package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

type CatalogService struct {
	Store *repos.Store
	Stock *StockService
	Obs   Observer
	Hook  ArticleHook
}

func NewCatalogService(store *repos.Store, stock *StockService, obs Observer, hook ArticleHook) *CatalogService {
	return &CatalogService{Store: store, Stock: stock, Obs: obs, Hook: hook}
}

type ArticleInput struct {
	ShopID        int64           `json:"shop_id" validate:"required,gt=0"`
	CategoryID    *int64          `json:"category_id"`
	Code          string          `json:"code" validate:"required,code"`
	Name          string          `json:"name" validate:"required,max=200"`
	Description   string          `json:"description" validate:"max=2000"`
	SalePrice     domain.Amount   `json:"sale_price"`
	SalePriceUSD  *domain.Amount  `json:"sale_price_usd"`
	PurchasePrice domain.Amount   `json:"purchase_price"`
	Currency      domain.Currency `json:"currency"`
	Qty           int             `json:"qty" validate:"gte=0"`
}

// ArticlePatch carries only the fields to change. Stock is not patchable.
type ArticlePatch struct {
	CategoryID    *int64         `json:"category_id"`
	Code          *string        `json:"code" validate:"omitempty,code"`
	Name          *string        `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string        `json:"description" validate:"omitempty,max=2000"`
	SalePrice     *domain.Amount `json:"sale_price"`
	SalePriceUSD  *domain.Amount `json:"sale_price_usd"`
	PurchasePrice *domain.Amount `json:"purchase_price"`
	Active        *bool          `json:"active"`
}

type VariantInput struct {
	Barcode string             `json:"barcode" validate:"required,code"`
	Name    string             `json:"name" validate:"required,max=120"`
	Kind    domain.VariantKind `json:"kind"`
	Qty     int                `json:"qty" validate:"gte=0"`
}

type CategoryInput struct {
	ShopID      int64  `json:"shop_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

func duplicate(err error, format string, args ...any) error {
	if errors.Is(err, repos.ErrDuplicate) {
		return domain.E(domain.KindDuplicateCode, format, args...)
	}
	return err
}

func checkPrices(sale domain.Amount, usd *domain.Amount, purchase domain.Amount) error {
	if !sale.IsPositive() {
		return domain.Invalid("sale_price must be positive").With("field", "sale_price")
	}
	if usd != nil && !usd.IsPositive() {
		return domain.Invalid("sale_price_usd must be positive").With("field", "sale_price_usd")
	}
	if purchase.Cmp(domain.Amount{}) < 0 {
		return domain.Invalid("purchase_price must not be negative").With("field", "purchase_price")
	}
	return nil
}

// categoryFor checks the category belongs to the article's shop.
func categoryFor(ctx context.Context, r *repos.Repos, scope domain.Scope, id *int64, shopID int64) error {
	if id == nil {
		return nil
	}
	c, err := r.Categories.Get(ctx, scope, *id)
	if err != nil {
		return err
	}
	if c.ShopID != shopID {
		return domain.Invalid("category %d belongs to another shop", c.ID).With("field", "category_id")
	}
	return nil
}

func (s *CatalogService) CreateArticle(ctx context.Context, p *domain.Principal, in ArticleInput) (*domain.Article, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := checkPrices(in.SalePrice, in.SalePriceUSD, in.PurchasePrice); err != nil {
		return nil, err
	}
	if in.Currency == "" {
		in.Currency = domain.CurrencyLocal
	}

	var out *domain.Article
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		if _, err := r.Shops.Get(ctx, p.Scope, in.ShopID); err != nil {
			return err
		}
		if err := categoryFor(ctx, r, p.Scope, in.CategoryID, in.ShopID); err != nil {
			return err
		}
		a := &domain.Article{
			ShopID:          in.ShopID,
			CategoryID:      in.CategoryID,
			Code:            strings.TrimSpace(in.Code),
			Name:            strings.TrimSpace(in.Name),
			Description:     in.Description,
			SalePrice:       in.SalePrice,
			SalePriceUSD:    in.SalePriceUSD,
			PurchasePrice:   in.PurchasePrice,
			Currency:        in.Currency,
			Active:          true,
			ClientValidated: true,
		}
		if err := r.Articles.Insert(ctx, p.Scope, a); err != nil {
			return duplicate(err, "article code %q already exists in shop %d", a.Code, a.ShopID)
		}
		if in.Qty > 0 {
			_, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: a.ID, Kind: domain.MoveEntry, Qty: in.Qty,
				Ref: "INIT-" + a.Code, Actor: p.Actor, Comment: "initial stock",
			})
			if err != nil {
				return err
			}
		}
		var err error
		out, err = r.Articles.Get(ctx, p.Scope, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	runHook(ctx, s.Hook, *out)
	return out, nil
}

// UpdateArticle applies a patch. Each changed sale price writes a history row
// and notifies the shop's terminals in the same transaction.
func (s *CatalogService) UpdateArticle(ctx context.Context, p *domain.Principal, id int64, patch ArticlePatch) (*domain.Article, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	var out *domain.Article
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		a, err := r.Articles.Lock(ctx, p.Scope, id)
		if err != nil {
			return err
		}
		prev := *a
		if patch.CategoryID != nil {
			if err := categoryFor(ctx, r, p.Scope, patch.CategoryID, a.ShopID); err != nil {
				return err
			}
			a.CategoryID = patch.CategoryID
		}
		if patch.Code != nil {
			a.Code = strings.TrimSpace(*patch.Code)
		}
		if patch.Name != nil {
			a.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			a.Description = *patch.Description
		}
		if patch.SalePrice != nil {
			a.SalePrice = *patch.SalePrice
		}
		if patch.SalePriceUSD != nil {
			a.SalePriceUSD = patch.SalePriceUSD
		}
		if patch.PurchasePrice != nil {
			a.PurchasePrice = *patch.PurchasePrice
		}
		if patch.Active != nil {
			a.Active = *patch.Active
		}
		if err := checkPrices(a.SalePrice, a.SalePriceUSD, a.PurchasePrice); err != nil {
			return err
		}
		if err := r.Articles.Update(ctx, p.Scope, a); err != nil {
			return duplicate(err, "article code %q already exists in shop %d", a.Code, a.ShopID)
		}

		if !prev.SalePrice.Equal(a.SalePrice) {
			if err := s.priceChanged(ctx, r, p, a, prev.SalePrice, a.SalePrice, domain.CurrencyLocal); err != nil {
				return err
			}
		}
		if prev.SalePriceUSD != nil && a.SalePriceUSD != nil && !prev.SalePriceUSD.Equal(*a.SalePriceUSD) {
			if err := s.priceChanged(ctx, r, p, a, *prev.SalePriceUSD, *a.SalePriceUSD, domain.CurrencyUSD); err != nil {
				return err
			}
		}
		out, err = r.Articles.Get(ctx, p.Scope, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	runHook(ctx, s.Hook, *out)
	return out, nil
}

func (s *CatalogService) priceChanged(ctx context.Context, r *repos.Repos, p *domain.Principal, a *domain.Article, before, after domain.Amount, cur domain.Currency) error {
	if err := r.Prices.Insert(ctx, p.Scope, &domain.PriceChange{
		ArticleID: a.ID, ShopID: a.ShopID, Before: before, After: after, Currency: cur, Actor: p.Actor,
	}); err != nil {
		return err
	}
	if s.Obs == nil {
		return nil
	}
	if err := s.Obs.PriceChanged(ctx, r, domain.PriceChanged{Article: *a, Before: before, After: after, Currency: cur, Actor: p.Actor}); err != nil {
		return fmt.Errorf("notify price change: %w", err)
	}
	return nil
}

func (s *CatalogService) DeactivateArticle(ctx context.Context, p *domain.Principal, id int64) (*domain.Article, error) {
	off := false
	return s.UpdateArticle(ctx, p, id, ArticlePatch{Active: &off})
}

// visible hides what a terminal must not sell: inactive or unvalidated articles.
func visible(p *domain.Principal, a *domain.Article) bool {
	return !p.IsTerminal() || (a.Active && a.ClientValidated)
}

func (s *CatalogService) GetArticle(ctx context.Context, p *domain.Principal, id int64) (*domain.Article, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	a, err := s.Store.Articles.Get(ctx, p.Scope, id)
	if err != nil {
		return nil, err
	}
	if !visible(p, a) {
		return nil, domain.NotFound("article")
	}
	return a, nil
}

func (s *CatalogService) ListArticles(ctx context.Context, p *domain.Principal, f repos.ArticleFilter) ([]domain.Article, int, error) {
	if p == nil {
		return nil, 0, domain.Unauthenticated("missing credentials")
	}
	switch f.State {
	case "", domain.StateInStock, domain.StateLow, domain.StateOut:
	default:
		return nil, 0, domain.Invalid("unknown stock state %q", f.State).With("field", "state")
	}
	f.TerminalView = p.IsTerminal()
	return s.Store.Articles.List(ctx, p.Scope, f)
}

func (s *CatalogService) CreateVariant(ctx context.Context, p *domain.Principal, articleID int64, in VariantInput) (*domain.Variant, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Kind == "" {
		in.Kind = domain.VariantOther
	}
	if !in.Kind.Valid() {
		return nil, domain.Invalid("unknown variant kind %q", in.Kind).With("field", "kind")
	}
	var out *domain.Variant
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		a, err := r.Articles.Lock(ctx, p.Scope, articleID)
		if err != nil {
			return err
		}
		v := &domain.Variant{
			ArticleID: a.ID, ShopID: a.ShopID, Barcode: strings.TrimSpace(in.Barcode),
			Name: strings.TrimSpace(in.Name), Kind: in.Kind, Active: true,
		}
		if err := r.Variants.Insert(ctx, p.Scope, v); err != nil {
			return duplicate(err, "barcode %q is already used", v.Barcode)
		}
		if in.Qty > 0 {
			vid := v.ID
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: a.ID, VariantID: &vid, Kind: domain.MoveEntry, Qty: in.Qty,
				Ref: "INIT-" + v.Barcode, Actor: p.Actor, Comment: "initial stock",
			}); err != nil {
				return err
			}
		}
		out, err = r.Variants.Get(ctx, p.Scope, v.ID)
		return err
	})
	return out, err
}

func (s *CatalogService) ListVariants(ctx context.Context, p *domain.Principal, articleID int64) ([]domain.Variant, error) {
	if _, err := s.GetArticle(ctx, p, articleID); err != nil {
		return nil, err
	}
	vs, err := s.Store.Variants.ForArticle(ctx, p.Scope, articleID)
	if err != nil || !p.IsTerminal() {
		return vs, err
	}
	active := vs[:0]
	for _, v := range vs {
		if v.Active {
			active = append(active, v)
		}
	}
	return active, nil
}

func (s *CatalogService) PriceHistory(ctx context.Context, p *domain.Principal, articleID int64) ([]domain.PriceChange, error) {
	if _, err := s.GetArticle(ctx, p, articleID); err != nil {
		return nil, err
	}
	return s.Store.Prices.ForArticle(ctx, p.Scope, articleID)
}

func (s *CatalogService) CreateCategory(ctx context.Context, p *domain.Principal, in CategoryInput) (*domain.Category, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Store.Shops.Get(ctx, p.Scope, in.ShopID); err != nil {
		return nil, err
	}
	c := &domain.Category{ShopID: in.ShopID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.Store.Categories.Insert(ctx, p.Scope, c); err != nil {
		return nil, duplicate(err, "category %q already exists in shop %d", c.Name, c.ShopID)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, p *domain.Principal, shopID int64) ([]domain.Category, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	scope := p.Scope
	if shopID != 0 {
		scope = scope.Narrow(shopID)
	}
	return s.Store.Categories.List(ctx, scope)
}

// ConfirmReception marks a transferred article as received by the shop. A
// count that differs from what was sent is booked as a VALIDATION movement.
func (s *CatalogService) ConfirmReception(ctx context.Context, p *domain.Principal, articleID int64, received int) (*domain.Article, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	if received < 0 {
		return nil, domain.Invalid("received_qty must not be negative").With("field", "received_qty")
	}
	var out *domain.Article
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		a, err := r.Articles.Lock(ctx, p.Scope, articleID)
		if err != nil {
			return err
		}
		if a.ClientValidated {
			return domain.Invalid("article %s was already validated", a.Code)
		}
		if diff := received - a.QtySentToClient; diff != 0 {
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: a.ID, Kind: domain.MoveValidation, Qty: diff,
				Ref: "VALIDATION-" + a.Code, Actor: p.Actor,
				Comment: fmt.Sprintf("sent %d, received %d", a.QtySentToClient, received),
			}); err != nil {
				return err
			}
			applog.OpWarn("article.reception.discrepancy", map[string]any{
				"article_id": a.ID, "sent": a.QtySentToClient, "received": received, "actor": p.Actor,
			})
		}
		a.ClientValidated = true
		if err := r.Articles.Update(ctx, p.Scope, a); err != nil {
			return err
		}
		out, err = r.Articles.Get(ctx, p.Scope, a.ID)
		return err
	})
	return out, err
}
