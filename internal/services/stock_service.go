package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockpos/internal/domain"
	"stockpos/internal/repos"
)

// StockService is the only writer of article and variant quantities.
type StockService struct {
	Store    *repos.Store
	Observer Observer
}

func NewStockService(store *repos.Store, obs Observer) *StockService {
	return &StockService{Store: store, Observer: obs}
}

type MovementRequest struct {
	ArticleID int64               `json:"article_id" validate:"required,gt=0"`
	VariantID *int64              `json:"variant_id"`
	Kind      domain.MovementKind `json:"kind" validate:"required"`
	Qty       int                 `json:"qty"`
	Ref       string              `json:"ref" validate:"max=100"`
	Comment   string              `json:"comment" validate:"max=500"`

	Actor         string `json:"-"`
	AllowNegative bool   `json:"allow_negative"`
}

// manualKinds may be posted directly by a merchant. The others are written by
// sales, transfers and receptions.
var manualKinds = map[domain.MovementKind]bool{
	domain.MoveEntry:      true,
	domain.MoveExit:       true,
	domain.MoveAdjustment: true,
	domain.MoveReturn:     true,
	domain.MoveCorrection: true,
	domain.MoveRestore:    true,
}

// Record applies a merchant-submitted movement in its own transaction.
func (s *StockService) Record(ctx context.Context, p *domain.Principal, req MovementRequest) (*domain.Movement, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	if !manualKinds[req.Kind] {
		return nil, domain.Invalid("movement kind %q cannot be recorded manually", req.Kind).With("field", "kind")
	}
	req.Actor = p.Actor
	var out *domain.Movement
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		m, err := s.ApplyIn(ctx, r, p.Scope, req)
		out = m
		return err
	})
	return out, err
}

// ApplyIn writes one movement using the caller's transaction.
func (s *StockService) ApplyIn(ctx context.Context, r *repos.Repos, scope domain.Scope, req MovementRequest) (*domain.Movement, error) {
	ctx, span := tracer.Start(ctx, "stock.apply", trace.WithAttributes(
		attribute.Int64("article_id", req.ArticleID),
		attribute.String("kind", string(req.Kind)),
		attribute.Int("qty", req.Qty),
	))
	defer span.End()

	m, err := s.apply(ctx, r, scope, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return m, err
}

func (s *StockService) apply(ctx context.Context, r *repos.Repos, scope domain.Scope, req MovementRequest) (*domain.Movement, error) {
	if !req.Kind.Valid() {
		return nil, domain.Invalid("unknown movement kind %q", req.Kind).With("field", "kind")
	}
	qty, err := signedQty(req.Kind, req.Qty)
	if err != nil {
		return nil, err
	}
	if prefix := req.Kind.RefPrefix(); prefix != "" {
		if !strings.HasPrefix(req.Ref, prefix) {
			return nil, domain.Invalid("%s movements need a reference starting with %s", req.Kind, prefix).With("field", "ref")
		}
		if strings.TrimSpace(req.Comment) == "" {
			return nil, domain.Invalid("%s movements need a comment", req.Kind).With("field", "comment")
		}
	}

	a, err := r.Articles.Lock(ctx, scope, req.ArticleID)
	if err != nil {
		return nil, err
	}
	var v *domain.Variant
	if req.VariantID != nil {
		v, err = r.Variants.Lock(ctx, scope, *req.VariantID)
		if err != nil {
			return nil, err
		}
		if v.ArticleID != a.ID {
			return nil, domain.Invalid("variant %d does not belong to article %d", v.ID, a.ID)
		}
	}

	before, after := a.StockQty, a.StockQty+qty
	if v != nil && v.StockQty+qty < 0 {
		if err := negative(req, a.ID, a.Name+" / "+v.Name, v.StockQty, qty); err != nil {
			return nil, err
		}
	}
	if after < 0 {
		if err := negative(req, a.ID, a.Name, before, qty); err != nil {
			return nil, err
		}
	}

	at, err := nextTimestamp(ctx, r, a.ID)
	if err != nil {
		return nil, err
	}
	if err := r.Articles.SetStock(ctx, scope, a, before, after); err != nil {
		return nil, stockWriteErr(err)
	}
	if v != nil {
		if err := r.Variants.SetStock(ctx, scope, v, v.StockQty, v.StockQty+qty); err != nil {
			return nil, stockWriteErr(err)
		}
		v.StockQty += qty
	}

	m := &domain.Movement{
		ArticleID:   a.ID,
		VariantID:   req.VariantID,
		ShopID:      a.ShopID,
		Kind:        req.Kind,
		Qty:         qty,
		StockBefore: before,
		StockAfter:  after,
		Ref:         req.Ref,
		Actor:       req.Actor,
		Comment:     req.Comment,
		CreatedAt:   at,
	}
	if err := r.Movements.Insert(ctx, scope, m); err != nil {
		return nil, err
	}

	a.StockQty = after
	a.Derive()
	if s.Observer != nil {
		if err := s.Observer.StockChanged(ctx, r, domain.StockChanged{Movement: *m, Article: *a, Variant: v}); err != nil {
			return nil, fmt.Errorf("notify stock change: %w", err)
		}
	}
	return m, nil
}

// signedQty applies the kind's direction. Administrative kinds keep the caller's sign.
func signedQty(k domain.MovementKind, qty int) (int, error) {
	if qty == 0 {
		return 0, domain.Invalid("qty must not be zero").With("field", "qty")
	}
	if qty < 0 {
		qty = -qty
		if k.Direction() == 0 {
			return -qty, nil
		}
	}
	if d := k.Direction(); d != 0 {
		return d * qty, nil
	}
	return qty, nil
}

func negative(req MovementRequest, id int64, name string, available, qty int) error {
	if req.Kind.Guarded() {
		if req.AllowNegative {
			return nil
		}
		return domain.InsufficientStock(id, name, available, -qty)
	}
	return domain.Invalid("%s of %d would leave %s below zero", req.Kind, qty, name).
		With("available", available)
}

// nextTimestamp keeps movement times strictly increasing per article.
func nextTimestamp(ctx context.Context, r *repos.Repos, articleID int64) (time.Time, error) {
	now := time.Now().UTC()
	last, err := r.Movements.LastAt(ctx, articleID)
	if err != nil {
		return time.Time{}, err
	}
	if !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	return now, nil
}

func stockWriteErr(err error) error {
	if errors.Is(err, repos.ErrStockConflict) {
		return fmt.Errorf("stock write lost a race: %w", err)
	}
	return err
}

// Movements lists the journal inside the caller's scope.
func (s *StockService) Movements(ctx context.Context, p *domain.Principal, f repos.MovementFilter) ([]domain.Movement, int, error) {
	if p == nil {
		return nil, 0, domain.Unauthenticated("missing credentials")
	}
	return s.Store.Movements.List(ctx, p.Scope, f)
}
