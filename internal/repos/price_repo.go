package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type PriceRepo struct{ q Querier }

func NewPriceRepo(q Querier) *PriceRepo { return &PriceRepo{q: q} }

func (r *PriceRepo) Insert(ctx context.Context, s domain.Scope, p *domain.PriceChange) error {
	if err := guard(s, p.ShopID); err != nil {
		return err
	}
	p.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO price_history(article_id, shop_id, price_before, price_after, currency, actor, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		p.ArticleID, p.ShopID, p.Before, p.After, p.Currency, p.Actor, p.CreatedAt)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PriceRepo) ForArticle(ctx context.Context, s domain.Scope, articleID int64) ([]domain.PriceChange, error) {
	where, args := scopeFilter(s, "shop_id")
	out := []domain.PriceChange{}
	err := sel(ctx, r.q, &out, `
		SELECT id, article_id, shop_id, price_before, price_after, currency, actor, created_at
		FROM price_history WHERE article_id = ? AND `+where+` ORDER BY created_at DESC, id DESC`,
		append([]any{articleID}, args...)...)
	return out, err
}
