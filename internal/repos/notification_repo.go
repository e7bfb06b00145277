package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type NotificationRepo struct{ q Querier }

func NewNotificationRepo(q Querier) *NotificationRepo { return &NotificationRepo{q: q} }

const notificationCols = `id, terminal_id, shop_id, kind, title, message, article_id, movement_id, qty_delta,
	stock_before, stock_after, is_read, read_at, payload, created_at`

// Insert is a no-op when the terminal already has a notification for the movement.
func (r *NotificationRepo) Insert(ctx context.Context, s domain.Scope, n *domain.Notification) (bool, error) {
	if err := guard(s, n.ShopID); err != nil {
		return false, err
	}
	if n.Payload == "" {
		n.Payload = "{}"
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	added, err := exec(ctx, r.q, `
		INSERT INTO notifications(terminal_id, shop_id, kind, title, message, article_id, movement_id, qty_delta,
		                          stock_before, stock_after, is_read, payload, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(terminal_id, movement_id) DO NOTHING`,
		n.TerminalID, n.ShopID, n.Kind, n.Title, n.Message, n.ArticleID, n.MovementID, n.QtyDelta,
		n.StockBefore, n.StockAfter, false, n.Payload, n.CreatedAt.UTC())
	return added == 1, err
}

func (r *NotificationRepo) List(ctx context.Context, s domain.Scope, terminalID int64, unreadOnly bool, page, size int) ([]domain.Notification, int, error) {
	where, args := scopeFilter(s, "shop_id")
	where = `terminal_id = ? AND ` + where
	args = append([]any{terminalID}, args...)
	if unreadOnly {
		where += ` AND is_read = ?`
		args = append(args, false)
	}
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM notifications WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.Notification{}
	err := sel(ctx, r.q, &out, `SELECT `+notificationCols+` FROM notifications WHERE `+where+` ORDER BY created_at, id`+pageClause(page, size), args...)
	return out, total, err
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, s domain.Scope, terminalID int64) (int, error) {
	where, args := scopeFilter(s, "shop_id")
	var n int
	err := get(ctx, r.q, &n, `SELECT COUNT(*) FROM notifications WHERE terminal_id = ? AND is_read = ? AND `+where,
		append([]any{terminalID, false}, args...)...)
	return n, err
}

// MarkRead is idempotent: an already read notification keeps its first read_at.
func (r *NotificationRepo) MarkRead(ctx context.Context, s domain.Scope, terminalID, id int64) (*domain.Notification, error) {
	where, args := scopeFilter(s, "shop_id")
	var n domain.Notification
	if err := get(ctx, r.q, &n, `SELECT `+notificationCols+` FROM notifications WHERE id = ? AND terminal_id = ? AND `+where,
		append([]any{id, terminalID}, args...)...); err != nil {
		return nil, notFound(err, "notification")
	}
	if n.Read {
		return &n, nil
	}
	now := time.Now().UTC()
	if _, err := exec(ctx, r.q, `UPDATE notifications SET is_read = ?, read_at = ? WHERE id = ? AND is_read = ?`, true, now, id, false); err != nil {
		return nil, err
	}
	n.Read, n.ReadAt = true, &now
	return &n, nil
}

// MarkAllRead returns how many notifications were newly marked.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, s domain.Scope, terminalID int64) (int64, error) {
	where, args := scopeFilter(s, "shop_id")
	return exec(ctx, r.q, `UPDATE notifications SET is_read = ?, read_at = ? WHERE terminal_id = ? AND is_read = ? AND `+where,
		append([]any{true, time.Now().UTC(), terminalID, false}, args...)...)
}

// ForMovement lists the fan-out of one movement.
func (r *NotificationRepo) ForMovement(ctx context.Context, s domain.Scope, movementID int64) ([]domain.Notification, error) {
	where, args := scopeFilter(s, "shop_id")
	out := []domain.Notification{}
	err := sel(ctx, r.q, &out, `SELECT `+notificationCols+` FROM notifications WHERE movement_id = ? AND `+where+` ORDER BY terminal_id`,
		append([]any{movementID}, args...)...)
	return out, err
}
