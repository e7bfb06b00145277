package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type TransferRepo struct{ q Querier }

func NewTransferRepo(q Querier) *TransferRepo { return &TransferRepo{q: q} }

const transferCols = `id, merchant_id, source_shop_id, dest_shop_id, status, reference, actor, comment,
	created_at, validated_at, cancelled_at`

// transferScope matches transfers touching at least one shop of the scope.
func transferScope(s domain.Scope) (string, []any) {
	src, a1 := scopeFilter(s, "source_shop_id")
	dst, a2 := scopeFilter(s, "dest_shop_id")
	return "(" + src + " OR " + dst + ")", append(a1, a2...)
}

func (r *TransferRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Transfer, error) {
	where, args := transferScope(s)
	var t domain.Transfer
	err := get(ctx, r.q, &t, `SELECT `+transferCols+` FROM stock_transfers WHERE id=? AND `+where+forUpdate(r.q),
		append([]any{id}, args...)...)
	if err != nil {
		return nil, notFound(err, "transfer")
	}
	lines := []domain.TransferLine{}
	if err := sel(ctx, r.q, &lines, `
		SELECT id, transfer_id, position, source_article_id, dest_article_id, code, qty
		FROM transfer_lines WHERE transfer_id=? ORDER BY position`, id); err != nil {
		return nil, err
	}
	t.Lines = lines
	return &t, nil
}

func (r *TransferRepo) List(ctx context.Context, s domain.Scope, status domain.TransferStatus, page, size int) ([]domain.Transfer, int, error) {
	where, args := transferScope(s)
	if status != "" {
		where += ` AND status = ?`
		args = append(args, status)
	}
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM stock_transfers WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.Transfer{}
	err := sel(ctx, r.q, &out, `SELECT `+transferCols+` FROM stock_transfers WHERE `+where+` ORDER BY created_at DESC, id DESC`+pageClause(page, size), args...)
	return out, total, err
}

// Insert needs both shops inside the scope.
func (r *TransferRepo) Insert(ctx context.Context, s domain.Scope, t *domain.Transfer) error {
	if err := guard(s, t.SourceShopID); err != nil {
		return err
	}
	if err := guard(s, t.DestShopID); err != nil {
		return err
	}
	t.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO stock_transfers(merchant_id, source_shop_id, dest_shop_id, status, reference, actor, comment, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		t.MerchantID, t.SourceShopID, t.DestShopID, t.Status, t.Reference, t.Actor, t.Comment, t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID = id
	for i := range t.Lines {
		l := &t.Lines[i]
		l.TransferID, l.Position = id, i+1
		lid, err := insert(ctx, r.q, `
			INSERT INTO transfer_lines(transfer_id, position, source_article_id, dest_article_id, code, qty)
			VALUES(?, ?, ?, ?, ?, ?)`, l.TransferID, l.Position, l.SourceArticleID, l.DestArticleID, l.Code, l.Qty)
		if err != nil {
			return err
		}
		l.ID = lid
	}
	return nil
}

func (r *TransferRepo) SetDestArticle(ctx context.Context, lineID, articleID int64) error {
	_, err := exec(ctx, r.q, `UPDATE transfer_lines SET dest_article_id=? WHERE id=?`, articleID, lineID)
	return err
}

// SetStatus moves a PENDING transfer to its final status.
func (r *TransferRepo) SetStatus(ctx context.Context, s domain.Scope, t *domain.Transfer, status domain.TransferStatus) error {
	if err := guard(s, t.SourceShopID); err != nil {
		return err
	}
	now := time.Now().UTC()
	col := "validated_at"
	if status == domain.TransferCancelled {
		col = "cancelled_at"
	}
	n, err := exec(ctx, r.q, `UPDATE stock_transfers SET status=?, `+col+`=? WHERE id=? AND status=?`,
		status, now, t.ID, domain.TransferPending)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.Invalid("transfer %d is no longer pending", t.ID)
	}
	t.Status = status
	if status == domain.TransferCancelled {
		t.CancelledAt = &now
	} else {
		t.ValidatedAt = &now
	}
	return nil
}
