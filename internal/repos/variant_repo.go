package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type VariantRepo struct{ q Querier }

func NewVariantRepo(q Querier) *VariantRepo { return &VariantRepo{q: q} }

const variantSelect = `
	SELECT v.id, v.article_id, v.barcode, v.name, v.kind, v.stock_qty, v.active, v.created_at, a.shop_id
	FROM variants v
	JOIN articles a ON a.id = v.article_id`

func (r *VariantRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Variant, error) {
	where, args := scopeFilter(s, "a.shop_id")
	var v domain.Variant
	if err := get(ctx, r.q, &v, variantSelect+` WHERE v.id = ? AND `+where, append([]any{id}, args...)...); err != nil {
		return nil, notFound(err, "variant")
	}
	return &v, nil
}

func (r *VariantRepo) Lock(ctx context.Context, s domain.Scope, id int64) (*domain.Variant, error) {
	var got int64
	if err := get(ctx, r.q, &got, `SELECT id FROM variants WHERE id = ?`+forUpdate(r.q), id); err != nil {
		return nil, notFound(err, "variant")
	}
	return r.Get(ctx, s, id)
}

// ByBarcode looks a barcode up inside the scope; barcodes are globally unique.
func (r *VariantRepo) ByBarcode(ctx context.Context, s domain.Scope, barcode string) (*domain.Variant, error) {
	where, args := scopeFilter(s, "a.shop_id")
	var v domain.Variant
	if err := get(ctx, r.q, &v, variantSelect+` WHERE v.barcode = ? AND `+where, append([]any{barcode}, args...)...); err != nil {
		return nil, notFound(err, "variant")
	}
	return &v, nil
}

func (r *VariantRepo) ForArticle(ctx context.Context, s domain.Scope, articleID int64) ([]domain.Variant, error) {
	where, args := scopeFilter(s, "a.shop_id")
	out := []domain.Variant{}
	err := sel(ctx, r.q, &out, variantSelect+` WHERE v.article_id = ? AND `+where+` ORDER BY v.name, v.id`,
		append([]any{articleID}, args...)...)
	return out, err
}

// Insert starts the variant at zero stock, like articles.
func (r *VariantRepo) Insert(ctx context.Context, s domain.Scope, v *domain.Variant) error {
	if err := guard(s, v.ShopID); err != nil {
		return err
	}
	v.CreatedAt, v.StockQty = time.Now().UTC(), 0
	id, err := insert(ctx, r.q, `
		INSERT INTO variants(article_id, barcode, name, kind, stock_qty, active, created_at)
		VALUES(?, ?, ?, ?, 0, ?, ?)`,
		v.ArticleID, v.Barcode, v.Name, v.Kind, v.Active, v.CreatedAt)
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

func (r *VariantRepo) SetStock(ctx context.Context, s domain.Scope, v *domain.Variant, before, after int) error {
	if err := guard(s, v.ShopID); err != nil {
		return err
	}
	n, err := exec(ctx, r.q, `UPDATE variants SET stock_qty=? WHERE id=? AND stock_qty=?`, after, v.ID, before)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockConflict
	}
	return nil
}
