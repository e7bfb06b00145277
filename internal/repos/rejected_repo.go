package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type RejectedRepo struct{ q Querier }

func NewRejectedRepo(q Querier) *RejectedRepo { return &RejectedRepo{q: q} }

const rejectedCols = `id, shop_id, terminal_id, uid, payload, reason, message, article_id, article_name,
	requested, available, handled, handled_at, notes, created_at`

func (r *RejectedRepo) ByUID(ctx context.Context, shopID int64, uid string) (*domain.RejectedSale, error) {
	var rs domain.RejectedSale
	if err := get(ctx, r.q, &rs, `SELECT `+rejectedCols+` FROM rejected_sales WHERE shop_id=? AND uid=?`, shopID, uid); err != nil {
		return nil, notFound(err, "rejected sale")
	}
	return &rs, nil
}

func (r *RejectedRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.RejectedSale, error) {
	where, args := scopeFilter(s, "shop_id")
	var rs domain.RejectedSale
	if err := get(ctx, r.q, &rs, `SELECT `+rejectedCols+` FROM rejected_sales WHERE id=? AND `+where, append([]any{id}, args...)...); err != nil {
		return nil, notFound(err, "rejected sale")
	}
	return &rs, nil
}

func (r *RejectedRepo) List(ctx context.Context, s domain.Scope, shopID int64, handled *bool, page, size int) ([]domain.RejectedSale, int, error) {
	if shopID != 0 {
		s = s.Narrow(shopID)
	}
	where, args := scopeFilter(s, "shop_id")
	if handled != nil {
		where += ` AND handled = ?`
		args = append(args, *handled)
	}
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM rejected_sales WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.RejectedSale{}
	err := sel(ctx, r.q, &out, `SELECT `+rejectedCols+` FROM rejected_sales WHERE `+where+` ORDER BY created_at DESC, id DESC`+pageClause(page, size), args...)
	return out, total, err
}

// Insert records a rejection. It reports false when the UID was already
// rejected for the shop, in which case rs.ID stays zero.
func (r *RejectedRepo) Insert(ctx context.Context, s domain.Scope, rs *domain.RejectedSale) (bool, error) {
	if err := guard(s, rs.ShopID); err != nil {
		return false, err
	}
	rs.CreatedAt = time.Now().UTC()
	n, err := exec(ctx, r.q, `
		INSERT INTO rejected_sales(shop_id, terminal_id, uid, payload, reason, message, article_id, article_name,
		                           requested, available, handled, notes, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(shop_id, uid) DO NOTHING`,
		rs.ShopID, rs.TerminalID, rs.UID, rs.Payload, rs.Reason, rs.Message, rs.ArticleID, rs.ArticleName,
		rs.Requested, rs.Available, false, "", rs.CreatedAt)
	if err != nil || n == 0 {
		return false, err
	}
	stored, err := r.ByUID(ctx, rs.ShopID, rs.UID)
	if err != nil {
		return true, err
	}
	*rs = *stored
	return true, nil
}

func (r *RejectedRepo) MarkHandled(ctx context.Context, s domain.Scope, rs *domain.RejectedSale, notes string) error {
	if err := guard(s, rs.ShopID); err != nil {
		return err
	}
	now := time.Now().UTC()
	if _, err := exec(ctx, r.q, `UPDATE rejected_sales SET handled=?, handled_at=?, notes=? WHERE id=?`, true, now, notes, rs.ID); err != nil {
		return err
	}
	rs.Handled, rs.HandledAt, rs.Notes = true, &now, notes
	return nil
}
