package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

// MovementRepo is append-only: rows are never updated or deleted.
type MovementRepo struct{ q Querier }

func NewMovementRepo(q Querier) *MovementRepo { return &MovementRepo{q: q} }

const movementCols = `id, article_id, variant_id, shop_id, kind, qty, stock_before, stock_after, reference, actor, comment, created_at`

type MovementFilter struct {
	ShopID    int64
	ArticleID int64
	Kind      domain.MovementKind
	Ref       string
	From, To  *time.Time
	Page      int
	Size      int
}

func (r *MovementRepo) Insert(ctx context.Context, s domain.Scope, m *domain.Movement) error {
	if err := guard(s, m.ShopID); err != nil {
		return err
	}
	id, err := insert(ctx, r.q, `
		INSERT INTO stock_movements(article_id, variant_id, shop_id, kind, qty, stock_before, stock_after,
		                            reference, actor, comment, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ArticleID, m.VariantID, m.ShopID, m.Kind, m.Qty, m.StockBefore, m.StockAfter,
		m.Ref, m.Actor, m.Comment, m.CreatedAt.UTC())
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// LastAt returns the timestamp of the newest movement of an article, zero if none.
func (r *MovementRepo) LastAt(ctx context.Context, articleID int64) (time.Time, error) {
	var ts []time.Time
	err := sel(ctx, r.q, &ts, `SELECT created_at FROM stock_movements WHERE article_id=? ORDER BY created_at DESC, id DESC LIMIT 1`, articleID)
	if err != nil || len(ts) == 0 {
		return time.Time{}, err
	}
	return ts[0], nil
}

func (r *MovementRepo) List(ctx context.Context, s domain.Scope, f MovementFilter) ([]domain.Movement, int, error) {
	if f.ShopID != 0 {
		s = s.Narrow(f.ShopID)
	}
	where, args := scopeFilter(s, "shop_id")
	if f.ArticleID != 0 {
		where += ` AND article_id = ?`
		args = append(args, f.ArticleID)
	}
	if f.Kind != "" {
		where += ` AND kind = ?`
		args = append(args, f.Kind)
	}
	if f.Ref != "" {
		where += ` AND reference = ?`
		args = append(args, f.Ref)
	}
	if f.From != nil {
		where += ` AND created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where += ` AND created_at <= ?`
		args = append(args, f.To.UTC())
	}
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM stock_movements WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.Movement{}
	err := sel(ctx, r.q, &out, `SELECT `+movementCols+` FROM stock_movements WHERE `+where+
		` ORDER BY created_at DESC, id DESC`+pageClause(f.Page, f.Size), args...)
	return out, total, err
}

// Journal returns every movement of an article in commit order.
func (r *MovementRepo) Journal(ctx context.Context, s domain.Scope, articleID int64) ([]domain.Movement, error) {
	where, args := scopeFilter(s, "shop_id")
	out := []domain.Movement{}
	err := sel(ctx, r.q, &out, `SELECT `+movementCols+` FROM stock_movements WHERE article_id = ? AND `+where+` ORDER BY id`,
		append([]any{articleID}, args...)...)
	return out, err
}
