package services

import (
	"context"
	"encoding/json"
	"fmt"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
)

// NotifyService fans stock and price events out to every active terminal of
// the affected shop, and serves the terminal inbox.
type NotifyService struct {
	Store *repos.Store
}

func NewNotifyService(store *repos.Store) *NotifyService { return &NotifyService{Store: store} }

var _ Observer = (*NotifyService)(nil)

func (s *NotifyService) StockChanged(ctx context.Context, r *repos.Repos, ev domain.StockChanged) error {
	m, a := ev.Movement, ev.Article
	ids, err := r.Terminals.ActiveIDs(ctx, m.ShopID)
	if err != nil || len(ids) == 0 {
		return err
	}
	kind := m.Kind.Notification()
	title, msg := stockText(kind, ev)
	details := map[string]any{
		"article_code": a.Code,
		"article_name": a.Name,
		"price":        a.SalePrice,
		"currency":     a.Currency,
		"reference":    m.Ref,
		"actor":        m.Actor,
		"kind":         m.Kind,
	}
	if ev.Variant != nil {
		details["variant_barcode"] = ev.Variant.Barcode
		details["variant_name"] = ev.Variant.Name
	}
	if m.Comment != "" {
		details["comment"] = m.Comment
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	scope := domain.ShopScope(m.ShopID)
	articleID, movementID := a.ID, m.ID
	qty, before, after := m.Qty, m.StockBefore, m.StockAfter
	for _, tid := range ids {
		n := &domain.Notification{
			TerminalID:  tid,
			ShopID:      m.ShopID,
			Kind:        kind,
			Title:       title,
			Message:     msg,
			ArticleID:   &articleID,
			MovementID:  &movementID,
			QtyDelta:    &qty,
			StockBefore: &before,
			StockAfter:  &after,
			Payload:     string(payload),
			CreatedAt:   m.CreatedAt,
		}
		if _, err := r.Notifications.Insert(ctx, scope, n); err != nil {
			return err
		}
	}
	return nil
}

func stockText(kind domain.NotificationKind, ev domain.StockChanged) (string, string) {
	m, a := ev.Movement, ev.Article
	name := a.Name
	if ev.Variant != nil {
		name += " (" + ev.Variant.Name + ")"
	}
	var title string
	switch kind {
	case domain.NotifyStockAdded:
		title = "Stock added: " + name
	case domain.NotifyStockRemoved:
		title = "Stock removed: " + name
	case domain.NotifyStockAdjusted:
		title = "Stock adjusted: " + name
	default:
		title = "Stock changed: " + name
	}
	msg := fmt.Sprintf("%s (%s) %s %+d, stock %d -> %d", a.Name, a.Code, m.Kind, m.Qty, m.StockBefore, m.StockAfter)
	if m.Ref != "" {
		msg += ", ref " + m.Ref
	}
	return title, msg
}

func (s *NotifyService) PriceChanged(ctx context.Context, r *repos.Repos, ev domain.PriceChanged) error {
	a := ev.Article
	ids, err := r.Terminals.ActiveIDs(ctx, a.ShopID)
	if err != nil || len(ids) == 0 {
		return err
	}
	delta := ev.After.Sub(ev.Before)
	details := map[string]any{
		"article_code": a.Code,
		"article_name": a.Name,
		"before":       ev.Before,
		"after":        ev.After,
		"delta":        delta,
		"currency":     ev.Currency,
		"stock":        a.StockQty,
		"actor":        ev.Actor,
	}
	if pct, ok := ev.Before.PercentChange(ev.After); ok {
		details["delta_pct"] = pct
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	scope := domain.ShopScope(a.ShopID)
	articleID := a.ID
	for _, tid := range ids {
		n := &domain.Notification{
			TerminalID: tid,
			ShopID:     a.ShopID,
			Kind:       domain.NotifyPriceChanged,
			Title:      "Price changed: " + a.Name,
			Message:    fmt.Sprintf("%s (%s) %s -> %s %s", a.Name, a.Code, ev.Before, ev.After, ev.Currency),
			ArticleID:  &articleID,
			Payload:    string(payload),
		}
		if _, err := r.Notifications.Insert(ctx, scope, n); err != nil {
			return err
		}
	}
	return nil
}

// SaleRejected only informs the terminal that submitted the sale.
func (s *NotifyService) SaleRejected(ctx context.Context, r *repos.Repos, ev domain.SaleRejected) error {
	rs := ev.Rejected
	if rs.TerminalID == nil {
		return nil
	}
	details := map[string]any{
		"uid":     rs.UID,
		"reason":  rs.Reason,
		"message": rs.Message,
	}
	if rs.ArticleID != nil {
		details["article_id"] = *rs.ArticleID
		details["article_name"] = rs.ArticleName
	}
	if rs.Requested != nil {
		details["requested"] = *rs.Requested
	}
	if rs.Available != nil {
		details["available"] = *rs.Available
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	_, err = r.Notifications.Insert(ctx, domain.ShopScope(rs.ShopID), &domain.Notification{
		TerminalID: *rs.TerminalID,
		ShopID:     rs.ShopID,
		Kind:       domain.NotifySaleRejected,
		Title:      "Sale rejected: " + rs.UID,
		Message:    fmt.Sprintf("sale %s rejected: %s", rs.UID, rs.Reason),
		ArticleID:  rs.ArticleID,
		Payload:    string(payload),
	})
	return err
}

func (s *NotifyService) List(ctx context.Context, p *domain.Principal, unreadOnly bool, page, size int) ([]domain.Notification, int, error) {
	if err := requireTerminal(p); err != nil {
		return nil, 0, err
	}
	return s.Store.Notifications.List(ctx, p.Scope, p.TerminalID, unreadOnly, page, size)
}

func (s *NotifyService) UnreadCount(ctx context.Context, p *domain.Principal) (int, error) {
	if err := requireTerminal(p); err != nil {
		return 0, err
	}
	return s.Store.Notifications.UnreadCount(ctx, p.Scope, p.TerminalID)
}

func (s *NotifyService) MarkRead(ctx context.Context, p *domain.Principal, id int64) (*domain.Notification, error) {
	if err := requireTerminal(p); err != nil {
		return nil, err
	}
	return s.Store.Notifications.MarkRead(ctx, p.Scope, p.TerminalID, id)
}

func (s *NotifyService) MarkAllRead(ctx context.Context, p *domain.Principal) (int64, error) {
	if err := requireTerminal(p); err != nil {
		return 0, err
	}
	n, err := s.Store.Notifications.MarkAllRead(ctx, p.Scope, p.TerminalID)
	if err == nil && n > 0 {
		applog.Op("notifications.read_all", map[string]any{"terminal_id": p.TerminalID, "count": n})
	}
	return n, err
}
