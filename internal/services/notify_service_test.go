package services_test

import (
	"testing"

	"stockpos/internal/domain"
	"stockpos/internal/services"
)

func TestNotificationFanOut(t *testing.T) {
	w := newWorld(t)
	a := w.article(w.m1, w.shop.ID, "N1", "100", 0)

	m, err := w.stock.Record(w.ctx, w.m1, services.MovementRequest{ArticleID: a.ID, Kind: domain.MoveEntry, Qty: 4})
	if err != nil {
		t.Fatal(err)
	}
	fan, err := w.store.Notifications.ForMovement(w.ctx, domain.OperatorScope(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fan) != 2 || fan[0].TerminalID == fan[1].TerminalID {
		t.Fatalf("want one notification per active terminal, got %+v", fan)
	}
	n := fan[0]
	if n.Kind != domain.NotifyStockAdded || *n.QtyDelta != 4 || *n.StockBefore != 0 || *n.StockAfter != 4 {
		t.Fatalf("notification fields wrong: %+v", n)
	}
	if got := len(w.inbox(w.t3)); got != 0 {
		t.Fatalf("other merchant's terminal got %d notifications", got)
	}

	if _, err := w.admin.SetTerminalActive(w.ctx, w.m1, w.t2.TerminalID, false); err != nil {
		t.Fatal(err)
	}
	m, err = w.stock.Record(w.ctx, w.m1, services.MovementRequest{ArticleID: a.ID, Kind: domain.MoveExit, Qty: 1})
	if err != nil {
		t.Fatal(err)
	}
	fan, err = w.store.Notifications.ForMovement(w.ctx, domain.OperatorScope(), m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fan) != 1 || fan[0].TerminalID != w.t1.TerminalID || fan[0].Kind != domain.NotifyStockRemoved {
		t.Fatalf("inactive terminal should be skipped: %+v", fan)
	}
}

func TestNotificationReadState(t *testing.T) {
	w := newWorld(t)
	a := w.article(w.m1, w.shop.ID, "R1", "100", 0)
	for i := 0; i < 3; i++ {
		if _, err := w.stock.Record(w.ctx, w.m1, services.MovementRequest{ArticleID: a.ID, Kind: domain.MoveEntry, Qty: 1}); err != nil {
			t.Fatal(err)
		}
	}
	items := w.inbox(w.t1)
	if len(items) != 3 {
		t.Fatalf("want 3 notifications, got %d", len(items))
	}

	first, err := w.notify.MarkRead(w.ctx, w.t1, items[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	again, err := w.notify.MarkRead(w.ctx, w.t1, items[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Read || again.ReadAt == nil || !again.ReadAt.Equal(*first.ReadAt) {
		t.Fatalf("second read should keep the first read_at: %+v / %+v", first, again)
	}
	if n, _ := w.notify.UnreadCount(w.ctx, w.t1); n != 2 {
		t.Fatalf("want 2 unread, got %d", n)
	}

	if _, err := w.notify.MarkRead(w.ctx, w.t2, items[0].ID); kindOf(t, err) != domain.KindNotFound {
		t.Fatalf("another terminal's notification should be NOT_FOUND, got %v", err)
	}
	if _, err := w.notify.MarkRead(w.ctx, w.t3, items[0].ID); kindOf(t, err) != domain.KindNotFound {
		t.Fatalf("foreign notification should be NOT_FOUND, got %v", err)
	}
	if _, err := w.notify.MarkRead(w.ctx, w.m1, items[0].ID); kindOf(t, err) != domain.KindForbidden {
		t.Fatalf("merchants have no inbox, got %v", err)
	}

	n, err := w.notify.MarkAllRead(w.ctx, w.t1)
	if err != nil || n != 2 {
		t.Fatalf("want 2 newly read, got %d (%v)", n, err)
	}
	if n, _ := w.notify.MarkAllRead(w.ctx, w.t1); n != 0 {
		t.Fatalf("nothing left to mark, got %d", n)
	}
	unread, total, err := w.notify.List(w.ctx, w.t1, true, 1, 50)
	if err != nil || total != 0 || len(unread) != 0 {
		t.Fatalf("unread list should be empty: %d (%v)", total, err)
	}
	if n, _ := w.notify.UnreadCount(w.ctx, w.t2); n != 3 {
		t.Fatalf("t2 inbox is independent, want 3 unread, got %d", n)
	}
}
