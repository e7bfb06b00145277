package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

// TransferService moves stock between two shops of one merchant, typically
// from the depot to a selling shop.
type TransferService struct {
	Store *repos.Store
	Stock *StockService
	Hook  ArticleHook
}

func NewTransferService(store *repos.Store, stock *StockService, hook ArticleHook) *TransferService {
	return &TransferService{Store: store, Stock: stock, Hook: hook}
}

type TransferInput struct {
	SourceShopID int64               `json:"source_shop_id" validate:"required,gt=0"`
	DestShopID   int64               `json:"dest_shop_id" validate:"required,gt=0"`
	Comment      string              `json:"comment" validate:"max=500"`
	Lines        []TransferLineInput `json:"lines" validate:"required,min=1,dive"`
}

// TransferLineInput names the source article by id or by code.
type TransferLineInput struct {
	ArticleID int64  `json:"article_id"`
	Code      string `json:"code"`
	Qty       int    `json:"qty" validate:"gt=0"`
}

func (s *TransferService) Create(ctx context.Context, p *domain.Principal, in TransferInput) (*domain.Transfer, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.SourceShopID == in.DestShopID {
		return nil, domain.Invalid("source and destination must differ").With("field", "dest_shop_id")
	}

	var out *domain.Transfer
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		src, err := r.Shops.Get(ctx, p.Scope, in.SourceShopID)
		if err != nil {
			return err
		}
		dst, err := r.Shops.Get(ctx, p.Scope, in.DestShopID)
		if err != nil {
			return err
		}
		if src.MerchantID != dst.MerchantID {
			return domain.Invalid("shops belong to different merchants")
		}
		if !dst.Active {
			return domain.Inactive("destination shop")
		}

		t := &domain.Transfer{
			MerchantID:   src.MerchantID,
			SourceShopID: src.ID,
			DestShopID:   dst.ID,
			Status:       domain.TransferPending,
			Reference:    "TRF-" + strings.ToUpper(uuid.NewString()[:8]),
			Actor:        p.Actor,
			Comment:      strings.TrimSpace(in.Comment),
		}
		for i, l := range in.Lines {
			a, err := sourceArticle(ctx, r, p.Scope, src.ID, l)
			if err != nil {
				return domain.Invalid("line %d: %v", i+1, err).With("line", i+1)
			}
			t.Lines = append(t.Lines, domain.TransferLine{SourceArticleID: a.ID, Code: a.Code, Qty: l.Qty})
		}
		if err := r.Transfers.Insert(ctx, p.Scope, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	applog.Op("transfer.created", map[string]any{
		"transfer_id": out.ID, "reference": out.Reference, "source": out.SourceShopID, "dest": out.DestShopID,
		"lines": len(out.Lines), "actor": p.Actor,
	})
	return out, nil
}

func sourceArticle(ctx context.Context, r *repos.Repos, scope domain.Scope, shopID int64, l TransferLineInput) (*domain.Article, error) {
	if l.ArticleID > 0 {
		a, err := r.Articles.Get(ctx, scope, l.ArticleID)
		if err != nil {
			return nil, err
		}
		if a.ShopID != shopID {
			return nil, domain.Invalid("article %d is not in the source shop", a.ID)
		}
		return a, nil
	}
	if code := strings.TrimSpace(l.Code); code != "" {
		return r.Articles.ByCode(ctx, scope, shopID, code)
	}
	return nil, domain.Invalid("article_id or code is required")
}

// Validate books every line as TRANSFER_OUT at the source and TRANSFER_IN at
// the destination, creating destination articles as needed. All or nothing.
func (s *TransferService) Validate(ctx context.Context, p *domain.Principal, id int64) (*domain.Transfer, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "transfer.validate", trace.WithAttributes(attribute.Int64("transfer_id", id)))
	defer span.End()

	var out *domain.Transfer
	var created []domain.Article
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		t, err := r.Transfers.Get(ctx, p.Scope, id)
		if err != nil {
			return err
		}
		switch t.Status {
		case domain.TransferValidated:
			out = t
			return nil
		case domain.TransferCancelled:
			return domain.Invalid("transfer %s is cancelled", t.Reference)
		}
		ref := t.Reference
		for i := range t.Lines {
			l := &t.Lines[i]
			src, err := r.Articles.Get(ctx, p.Scope, l.SourceArticleID)
			if err != nil {
				return err
			}
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: src.ID, Kind: domain.MoveTransferOut, Qty: l.Qty, Ref: ref, Actor: p.Actor,
				Comment: fmt.Sprintf("transfer to shop %d", t.DestShopID),
			}); err != nil {
				return err
			}
			dst, fresh, err := destArticle(ctx, r, p.Scope, src, t.DestShopID, l.Qty)
			if err != nil {
				return err
			}
			if fresh {
				created = append(created, *dst)
			}
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: dst.ID, Kind: domain.MoveTransferIn, Qty: l.Qty, Ref: ref, Actor: p.Actor,
				Comment: fmt.Sprintf("transfer from shop %d", t.SourceShopID),
			}); err != nil {
				return err
			}
			if err := r.Transfers.SetDestArticle(ctx, l.ID, dst.ID); err != nil {
				return err
			}
			dstID := dst.ID
			l.DestArticleID = &dstID
		}
		if err := r.Transfers.SetStatus(ctx, p.Scope, t, domain.TransferValidated); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, a := range created {
		runHook(ctx, s.Hook, a)
	}
	applog.Op("transfer.validated", map[string]any{
		"transfer_id": out.ID, "reference": out.Reference, "lines": len(out.Lines), "actor": p.Actor,
	})
	return out, nil
}

// destArticle finds the destination article by code or clones the source one.
// Clones await reception: client_validated=false and qty_sent_to_client=qty.
// A match still awaiting reception accumulates qty into qty_sent_to_client.
func destArticle(ctx context.Context, r *repos.Repos, scope domain.Scope, src *domain.Article, shopID int64, qty int) (*domain.Article, bool, error) {
	a, err := r.Articles.ByCode(ctx, scope, shopID, src.Code)
	if err == nil {
		if !a.ClientValidated {
			a.QtySentToClient += qty
			if err := r.Articles.Update(ctx, scope, a); err != nil {
				return nil, false, err
			}
		}
		return a, false, nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return nil, false, err
	}
	var catID *int64
	if src.CategoryID != nil {
		c, err := r.Categories.Get(ctx, scope, *src.CategoryID)
		if err != nil {
			return nil, false, err
		}
		dc, err := r.Categories.ByName(ctx, scope, shopID, c.Name)
		if domain.IsKind(err, domain.KindNotFound) {
			dc = &domain.Category{ShopID: shopID, Name: c.Name, Description: c.Description}
			err = r.Categories.Insert(ctx, scope, dc)
		}
		if err != nil {
			return nil, false, err
		}
		catID = &dc.ID
	}
	clone := &domain.Article{
		ShopID:          shopID,
		CategoryID:      catID,
		Code:            src.Code,
		Name:            src.Name,
		Description:     src.Description,
		SalePrice:       src.SalePrice,
		SalePriceUSD:    src.SalePriceUSD,
		PurchasePrice:   src.PurchasePrice,
		Currency:        src.Currency,
		Active:          true,
		ClientValidated: false,
		QtySentToClient: qty,
	}
	if err := r.Articles.Insert(ctx, scope, clone); err != nil {
		return nil, false, err
	}
	return clone, true, nil
}

func (s *TransferService) Cancel(ctx context.Context, p *domain.Principal, id int64) (*domain.Transfer, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	var out *domain.Transfer
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		t, err := r.Transfers.Get(ctx, p.Scope, id)
		if err != nil {
			return err
		}
		switch t.Status {
		case domain.TransferCancelled:
			out = t
			return nil
		case domain.TransferValidated:
			return domain.Invalid("transfer %s is already validated", t.Reference)
		}
		if err := r.Transfers.SetStatus(ctx, p.Scope, t, domain.TransferCancelled); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err == nil {
		applog.Op("transfer.cancelled", map[string]any{"transfer_id": out.ID, "actor": p.Actor})
	}
	return out, err
}

func (s *TransferService) Get(ctx context.Context, p *domain.Principal, id int64) (*domain.Transfer, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	return s.Store.Transfers.Get(ctx, p.Scope, id)
}

func (s *TransferService) List(ctx context.Context, p *domain.Principal, status domain.TransferStatus, page, size int) ([]domain.Transfer, int, error) {
	if err := requireMerchant(p); err != nil {
		return nil, 0, err
	}
	switch status {
	case "", domain.TransferPending, domain.TransferValidated, domain.TransferCancelled:
	default:
		return nil, 0, domain.Invalid("unknown transfer status %q", status).With("field", "status")
	}
	return s.Store.Transfers.List(ctx, p.Scope, status, page, size)
}
