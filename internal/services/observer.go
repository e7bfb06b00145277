package services

import (
	"context"

	"go.opentelemetry.io/otel"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
)

var tracer = otel.Tracer("stockpos/services")

// Observer receives domain events inside the transaction that produced them.
// An error aborts that transaction.
type Observer interface {
	StockChanged(ctx context.Context, r *repos.Repos, ev domain.StockChanged) error
	PriceChanged(ctx context.Context, r *repos.Repos, ev domain.PriceChanged) error
	SaleRejected(ctx context.Context, r *repos.Repos, ev domain.SaleRejected) error
}

// ArticleHook runs after an article has been committed, outside the write path.
// Failures are logged and never reach the caller.
type ArticleHook interface {
	ArticleSaved(ctx context.Context, a domain.Article) error
}

// LogArtifacts records that the article's QR artifact should be (re)generated.
type LogArtifacts struct{}

func (LogArtifacts) ArticleSaved(_ context.Context, a domain.Article) error {
	applog.Op("article.artifact.queued", map[string]any{"article_id": a.ID, "shop_id": a.ShopID, "code": a.Code})
	return nil
}

func runHook(ctx context.Context, h ArticleHook, a domain.Article) {
	if h == nil {
		return
	}
	if err := h.ArticleSaved(ctx, a); err != nil {
		applog.OpError("article.artifact.failed", err, map[string]any{"article_id": a.ID})
	}
}

func requireMerchant(p *domain.Principal) error {
	if p == nil {
		return domain.Unauthenticated("missing credentials")
	}
	if !p.IsMerchant() && !p.IsOperator() {
		return domain.Forbidden("merchant access required")
	}
	return nil
}

func requireTerminal(p *domain.Principal) error {
	if p == nil {
		return domain.Unauthenticated("missing credentials")
	}
	if !p.IsTerminal() {
		return domain.Forbidden("terminal access required")
	}
	return nil
}

func requireOperator(p *domain.Principal) error {
	if p == nil {
		return domain.Unauthenticated("missing credentials")
	}
	if !p.IsOperator() {
		return domain.Forbidden("operator access required")
	}
	return nil
}
