package repos

import (
	"context"
	"errors"
	"time"

	"stockpos/internal/domain"
)

type ArticleRepo struct{ q Querier }

func NewArticleRepo(q Querier) *ArticleRepo { return &ArticleRepo{q: q} }

// ErrStockConflict means the row changed between read and write.
var ErrStockConflict = errors.New("article stock changed concurrently")

const articleSelect = `
	SELECT a.id, a.shop_id, a.category_id, a.code, a.name, a.description,
	       a.sale_price, a.sale_price_usd, a.purchase_price, a.currency,
	       a.stock_qty, a.active, a.client_validated, a.qty_sent_to_client,
	       a.created_at, a.updated_at, s.low_stock_threshold,
	       (SELECT COUNT(*) FROM variants v WHERE v.article_id = a.id) AS variant_count,
	       (SELECT COALESCE(SUM(v.stock_qty), 0) FROM variants v WHERE v.article_id = a.id AND v.active = ?) AS variants_total_stock
	FROM articles a
	JOIN shops s ON s.id = a.shop_id`

type ArticleFilter struct {
	ShopID     int64
	Q          string
	CategoryID int64
	State      domain.StockState
	Active     *bool
	// TerminalView hides inactive and not yet validated articles.
	TerminalView bool
	Page         int
	Size         int
}

func (r *ArticleRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Article, error) {
	where, args := scopeFilter(s, "a.shop_id")
	var a domain.Article
	err := get(ctx, r.q, &a, articleSelect+` WHERE a.id = ? AND `+where, append([]any{true, id}, args...)...)
	if err != nil {
		return nil, notFound(err, "article")
	}
	a.Derive()
	return &a, nil
}

// Lock takes the row lock for the rest of the transaction and returns the fresh row.
func (r *ArticleRepo) Lock(ctx context.Context, s domain.Scope, id int64) (*domain.Article, error) {
	where, args := scopeFilter(s, "shop_id")
	var got int64
	err := get(ctx, r.q, &got, `SELECT id FROM articles WHERE id = ? AND `+where+forUpdate(r.q), append([]any{id}, args...)...)
	if err != nil {
		return nil, notFound(err, "article")
	}
	return r.Get(ctx, s, id)
}

func (r *ArticleRepo) ByCode(ctx context.Context, s domain.Scope, shopID int64, code string) (*domain.Article, error) {
	if err := guard(s, shopID); err != nil {
		return nil, err
	}
	var a domain.Article
	if err := get(ctx, r.q, &a, articleSelect+` WHERE a.shop_id = ? AND a.code = ?`, true, shopID, code); err != nil {
		return nil, notFound(err, "article")
	}
	a.Derive()
	return &a, nil
}

// ByPrice lists sellable articles of a shop whose unit price equals price.
func (r *ArticleRepo) ByPrice(ctx context.Context, s domain.Scope, shopID int64, price domain.Amount, usd bool) ([]domain.Article, error) {
	if err := guard(s, shopID); err != nil {
		return nil, err
	}
	col := "a.sale_price"
	if usd {
		col = "a.sale_price_usd"
	}
	out := []domain.Article{}
	err := sel(ctx, r.q, &out, articleSelect+` WHERE a.shop_id = ? AND `+col+` = ? AND a.active = ? AND a.client_validated = ? ORDER BY a.id`,
		true, shopID, price, true, true)
	for i := range out {
		out[i].Derive()
	}
	return out, err
}

func (r *ArticleRepo) List(ctx context.Context, s domain.Scope, f ArticleFilter) ([]domain.Article, int, error) {
	if f.ShopID != 0 {
		s = s.Narrow(f.ShopID)
	}
	where, args := scopeFilter(s, "a.shop_id")
	if f.Q != "" {
		where += ` AND (LOWER(a.code) LIKE LOWER(?) OR LOWER(a.name) LIKE LOWER(?))`
		like := "%" + f.Q + "%"
		args = append(args, like, like)
	}
	if f.CategoryID != 0 {
		where += ` AND a.category_id = ?`
		args = append(args, f.CategoryID)
	}
	switch f.State {
	case domain.StateOut:
		where += ` AND a.stock_qty <= 0`
	case domain.StateLow:
		where += ` AND a.stock_qty > 0 AND a.stock_qty <= s.low_stock_threshold`
	case domain.StateInStock:
		where += ` AND a.stock_qty > s.low_stock_threshold`
	}
	if f.Active != nil {
		where += ` AND a.active = ?`
		args = append(args, *f.Active)
	}
	if f.TerminalView {
		where += ` AND a.active = ? AND a.client_validated = ?`
		args = append(args, true, true)
	}

	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM articles a JOIN shops s ON s.id = a.shop_id WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.Article{}
	err := sel(ctx, r.q, &out, articleSelect+` WHERE `+where+` ORDER BY a.shop_id, LOWER(a.name), a.id`+pageClause(f.Page, f.Size),
		append([]any{true}, args...)...)
	for i := range out {
		out[i].Derive()
	}
	return out, total, err
}

// Insert always starts at zero stock; initial quantities go through the stock engine.
func (r *ArticleRepo) Insert(ctx context.Context, s domain.Scope, a *domain.Article) error {
	if err := guard(s, a.ShopID); err != nil {
		return err
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt, a.StockQty = now, now, 0
	id, err := insert(ctx, r.q, `
		INSERT INTO articles(shop_id, category_id, code, name, description, sale_price, sale_price_usd,
		                     purchase_price, currency, stock_qty, active, client_validated, qty_sent_to_client,
		                     created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		a.ShopID, a.CategoryID, a.Code, a.Name, a.Description, a.SalePrice, a.SalePriceUSD,
		a.PurchasePrice, a.Currency, a.Active, a.ClientValidated, a.QtySentToClient, now, now)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

// Update writes descriptive and price fields. Stock is never written here.
func (r *ArticleRepo) Update(ctx context.Context, s domain.Scope, a *domain.Article) error {
	if err := guard(s, a.ShopID); err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	_, err := exec(ctx, r.q, `
		UPDATE articles SET category_id=?, code=?, name=?, description=?, sale_price=?, sale_price_usd=?,
		       purchase_price=?, currency=?, active=?, client_validated=?, qty_sent_to_client=?, updated_at=?
		WHERE id=? AND shop_id=?`,
		a.CategoryID, a.Code, a.Name, a.Description, a.SalePrice, a.SalePriceUSD,
		a.PurchasePrice, a.Currency, a.Active, a.ClientValidated, a.QtySentToClient, a.UpdatedAt, a.ID, a.ShopID)
	return err
}

// SetStock moves stock_qty from before to after, failing if another writer got there first.
func (r *ArticleRepo) SetStock(ctx context.Context, s domain.Scope, a *domain.Article, before, after int) error {
	if err := guard(s, a.ShopID); err != nil {
		return err
	}
	n, err := exec(ctx, r.q, `UPDATE articles SET stock_qty=?, updated_at=? WHERE id=? AND stock_qty=?`,
		after, time.Now().UTC(), a.ID, before)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStockConflict
	}
	return nil
}
