package services_test

import (
	"testing"

	"stockpos/internal/domain"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

func TestStockEqualsJournal(t *testing.T) {
	w := newWorld(t)
	a := w.article(w.m1, w.shop.ID, "J1", "100", 10)

	steps := []services.MovementRequest{
		{Kind: domain.MoveEntry, Qty: 5},
		{Kind: domain.MoveExit, Qty: 3},
		{Kind: domain.MoveAdjustment, Qty: -4},
		{Kind: domain.MoveReturn, Qty: 2},
		{Kind: domain.MoveCorrection, Qty: 1, Ref: "FIX-7", Comment: "miscount"},
		{Kind: domain.MoveRestore, Qty: -2, Ref: "RESTORE-7", Comment: "undo fix"},
	}
	for _, req := range steps {
		req.ArticleID = a.ID
		if _, err := w.stock.Record(w.ctx, w.m1, req); err != nil {
			t.Fatalf("%s: %v", req.Kind, err)
		}
	}

	journal, err := w.store.Movements.Journal(w.ctx, w.m1.Scope, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(journal) != len(steps)+1 {
		t.Fatalf("want %d movements, got %d", len(steps)+1, len(journal))
	}
	sum, prev := 0, 0
	for i, m := range journal {
		sum += m.Qty
		if m.StockBefore != prev || m.StockAfter != m.StockBefore+m.Qty {
			t.Fatalf("movement %d breaks the chain: %+v", i, m)
		}
		if i > 0 && !m.CreatedAt.After(journal[i-1].CreatedAt) {
			t.Fatalf("movement %d is not strictly after its predecessor", i)
		}
		prev = m.StockAfter
	}
	if got := w.stockOf(a.ID); got != sum || got != 9 {
		t.Fatalf("stock %d, journal sum %d, want 9", got, sum)
	}
}

func TestManualMovementRules(t *testing.T) {
	w := newWorld(t)
	a := w.article(w.m1, w.shop.ID, "M1", "100", 10)
	rec := func(req services.MovementRequest) error {
		req.ArticleID = a.ID
		_, err := w.stock.Record(w.ctx, w.m1, req)
		return err
	}

	if k := kindOf(t, rec(services.MovementRequest{Kind: domain.MoveSale, Qty: 1})); k != domain.KindValidationFailed {
		t.Fatalf("SALE cannot be posted by hand, got %s", k)
	}
	if k := kindOf(t, rec(services.MovementRequest{Kind: domain.MoveCorrection, Qty: 1, Ref: "X-1", Comment: "c"})); k != domain.KindValidationFailed {
		t.Fatalf("CORRECTION needs a FIX- reference, got %s", k)
	}
	if k := kindOf(t, rec(services.MovementRequest{Kind: domain.MoveCorrection, Qty: 1, Ref: "FIX-1"})); k != domain.KindValidationFailed {
		t.Fatalf("CORRECTION needs a comment, got %s", k)
	}
	if k := kindOf(t, rec(services.MovementRequest{Kind: domain.MoveEntry, Qty: 0})); k != domain.KindValidationFailed {
		t.Fatalf("zero qty should fail, got %s", k)
	}

	err := rec(services.MovementRequest{Kind: domain.MoveExit, Qty: 20})
	de, ok := domain.AsError(err)
	if !ok || de.Kind != domain.KindInsufficientStock || de.Details["available"] != 10 || de.Details["requested"] != 20 {
		t.Fatalf("want INSUFFICIENT_STOCK 10/20, got %v", err)
	}
	if got := w.stockOf(a.ID); got != 10 {
		t.Fatalf("failed exit changed stock: %d", got)
	}

	if err := rec(services.MovementRequest{Kind: domain.MoveExit, Qty: 20, AllowNegative: true}); err != nil {
		t.Fatalf("opted-in exit should pass: %v", err)
	}
	got, err := w.catalog.GetArticle(w.ctx, w.m1, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.StockQty != -10 || got.State != domain.StateOut {
		t.Fatalf("want -10/out, got %d/%s", got.StockQty, got.State)
	}
	if k := kindOf(t, rec(services.MovementRequest{Kind: domain.MoveAdjustment, Qty: -1})); k != domain.KindValidationFailed {
		t.Fatalf("adjustment below zero should fail, got %s", k)
	}

	_, err = w.stock.Record(w.ctx, w.t1, services.MovementRequest{ArticleID: a.ID, Kind: domain.MoveEntry, Qty: 1})
	if kindOf(t, err) != domain.KindForbidden {
		t.Fatalf("terminals cannot post movements, got %v", err)
	}
}

func TestArticleStockStates(t *testing.T) {
	w := newWorld(t)
	w.article(w.m1, w.shop.ID, "S-IN", "100", 50)
	w.article(w.m1, w.shop.ID, "S-LOW", "100", 5)
	w.article(w.m1, w.shop.ID, "S-OUT", "100", 0)

	for state, code := range map[domain.StockState]string{
		domain.StateInStock: "S-IN", domain.StateLow: "S-LOW", domain.StateOut: "S-OUT",
	} {
		items, total, err := w.catalog.ListArticles(w.ctx, w.m1, repos.ArticleFilter{ShopID: w.shop.ID, State: state})
		if err != nil {
			t.Fatal(err)
		}
		if total != 1 || items[0].Code != code || items[0].State != state {
			t.Fatalf("state %s: got %+v", state, items)
		}
	}
	if _, _, err := w.catalog.ListArticles(w.ctx, w.m1, repos.ArticleFilter{ShopID: w.shop.ID, State: "sideways"}); kindOf(t, err) != domain.KindValidationFailed {
		t.Fatalf("unknown state should fail, got %v", err)
	}

	_, err := w.catalog.CreateArticle(w.ctx, w.m1, services.ArticleInput{
		ShopID: w.shop.ID, Code: "S-IN", Name: "dup", SalePrice: domain.MustAmount("1"),
	})
	if kindOf(t, err) != domain.KindDuplicateCode {
		t.Fatalf("duplicate code should fail DUPLICATE_CODE, got %v", err)
	}
}
