package handlers_test

import (
	"encoding/json"
	"testing"
)

type outcome struct {
	UID           string `json:"uid"`
	Status        string `json:"status"`
	InvoiceNumber string `json:"invoice_number"`
	SaleID        int64  `json:"sale_id"`
	Reason        string `json:"reason"`
	Available     *int   `json:"available"`
	Requested     *int   `json:"requested"`
}

func sale(uid string, articleID int64, qty int, unit string) map[string]any {
	return map[string]any{
		"uid":   uid,
		"date":  "2026-03-02T10:15:00Z",
		"lines": []map[string]any{{"article_id": articleID, "qty": qty, "unit_price": unit}},
	}
}

func (w *world) stock(articleID int64) int {
	var a struct {
		StockQty int `json:"stock_qty"`
	}
	w.must(200, "GET", path("/articles/%d", articleID), w.alpha, nil, &a)
	return a.StockQty
}

func TestSaleSubmissionOverHTTP(t *testing.T) {
	w := newWorld(t)
	soap := w.article(w.alpha, w.shop, "SAVON-1", "1500", 5)

	var out outcome
	w.must(200, "POST", path("/sales"), w.t1, sale("uid-1", soap, 2, "1500"), &out)
	if out.Status != "committed" || out.InvoiceNumber == "" || out.SaleID == 0 {
		t.Fatalf("first submission: %+v", out)
	}
	if got := w.stock(soap); got != 3 {
		t.Fatalf("stock after sale = %d, want 3", got)
	}

	// a retry answers with the stored sale and does not sell twice
	var again outcome
	w.must(200, "POST", path("/sales"), w.t1, sale("uid-1", soap, 2, "1500"), &again)
	if again.Status != "duplicate" || again.SaleID != out.SaleID || again.InvoiceNumber != out.InvoiceNumber {
		t.Fatalf("retry: %+v", again)
	}
	if got := w.stock(soap); got != 3 {
		t.Fatalf("stock after retry = %d, want 3", got)
	}

	var short outcome
	w.must(200, "POST", path("/sales"), w.t2, sale("uid-2", soap, 9, "1500"), &short)
	if short.Status != "rejected" || short.Reason != "INSUFFICIENT_STOCK" || short.Available == nil || *short.Available != 3 {
		t.Fatalf("oversell: %+v", short)
	}

	status, env := w.raw("POST", path("/sales"), w.t1, []byte(`{"uid":"uid-3","lines":"none"}`))
	if status != 200 {
		t.Fatalf("malformed sale: want 200 outcome, got %d %+v", status, env.Error)
	}
	var bad outcome
	_ = json.Unmarshal(env.Data, &bad)
	if bad.Status != "rejected" || bad.Reason != "VALIDATION_FAILED" || bad.UID != "uid-3" {
		t.Fatalf("malformed sale: %+v", bad)
	}

	var rejected []struct {
		ID      int64           `json:"id"`
		UID     string          `json:"uid"`
		Reason  string          `json:"reason"`
		Handled bool            `json:"handled"`
		Payload json.RawMessage `json:"payload"`
	}
	w.must(200, "GET", path("/sales/rejected?handled=false"), w.alpha, nil, &rejected)
	if len(rejected) != 2 {
		t.Fatalf("rejected queue: %+v", rejected)
	}
	var oversell int64
	for _, r := range rejected {
		if r.UID == "uid-2" {
			oversell = r.ID
			if len(r.Payload) == 0 {
				t.Fatal("rejected sale lost its payload")
			}
		}
	}
	w.must(200, "POST", path("/sales/rejected/%d/handle", oversell), w.alpha, map[string]string{"notes": "called the cashier"}, nil)
	w.must(200, "GET", path("/sales/rejected?handled=false"), w.alpha, nil, &rejected)
	if len(rejected) != 1 || rejected[0].UID != "uid-3" {
		t.Fatalf("after handling: %+v", rejected)
	}
	w.must(200, "GET", path("/sales/rejected"), w.beta, nil, &rejected)
	if len(rejected) != 0 {
		t.Fatalf("beta sees alpha's rejections: %+v", rejected)
	}

	var detail struct {
		ID    int64 `json:"id"`
		Lines []struct {
			Qty       int    `json:"qty"`
			LineTotal string `json:"line_total"`
		} `json:"lines"`
		TotalLocal string `json:"total_local"`
	}
	w.must(200, "GET", path("/sales/%d", out.SaleID), w.alpha, nil, &detail)
	if len(detail.Lines) != 1 || detail.Lines[0].LineTotal != "3000.00" || detail.TotalLocal != "3000.00" {
		t.Fatalf("sale detail: %+v", detail)
	}
	if status, _ := w.do("GET", path("/sales/%d", out.SaleID), w.beta, nil); status != 404 {
		t.Fatalf("foreign sale: want 404, got %d", status)
	}

	if e := w.logs.find("sale.submit"); e == nil || e["category"] != "audit" || e["uid"] != "uid-1" {
		t.Fatalf("submission not audited: %v", e)
	}
}

func TestSaleBatchOverHTTP(t *testing.T) {
	w := newWorld(t)
	bread := w.article(w.alpha, w.shop, "PAIN-1", "500", 4)

	batch := []map[string]any{
		sale("b-1", bread, 1, "500"),
		sale("b-2", bread, 10, "500"),
		sale("b-1", bread, 1, "500"),
		sale("b-3", bread, 2, "500"),
	}
	var outs []outcome
	w.must(200, "POST", path("/sales/batch"), w.t1, batch, &outs)
	want := []string{"committed", "rejected", "duplicate", "committed"}
	if len(outs) != len(want) {
		t.Fatalf("batch: %+v", outs)
	}
	for i, o := range outs {
		if o.Status != want[i] {
			t.Fatalf("batch[%d] = %s, want %s", i, o.Status, want[i])
		}
	}
	if got := w.stock(bread); got != 1 {
		t.Fatalf("stock after batch = %d, want 1", got)
	}

	w.must(200, "POST", path("/sales/batch"), w.t1, map[string]any{"sales": []any{sale("b-4", bread, 1, "500")}}, &outs)
	if len(outs) != 1 || outs[0].Status != "committed" {
		t.Fatalf("wrapped batch: %+v", outs)
	}
	if status, _ := w.raw("POST", path("/sales/batch"), w.t1, []byte(`"nope"`)); status != 422 {
		t.Fatalf("non-array batch: want 422, got %d", status)
	}
}

type note struct {
	ID      int64          `json:"id"`
	Kind    string         `json:"kind"`
	Read    bool           `json:"read"`
	Details map[string]any `json:"details"`
}

func (w *world) inbox(c call, unreadOnly bool) []note {
	var out []note
	w.must(200, "GET", path("/notifications?unread_only=%t", unreadOnly), c, nil, &out)
	return out
}

func TestPriceChangeReachesTerminals(t *testing.T) {
	w := newWorld(t)
	oil := w.article(w.alpha, w.shop, "HUILE-1", "8000", 6)

	w.must(200, "PATCH", path("/articles/%d", oil), w.alpha, map[string]any{"sale_price": "8800"}, nil)

	for _, c := range []call{w.t1, w.t2} {
		var found *note
		for _, n := range w.inbox(c, true) {
			if n.Kind == "PRICE_CHANGED" {
				found = &n
			}
		}
		if found == nil {
			t.Fatalf("%s has no PRICE_CHANGED", c.serial)
		}
		d := found.Details
		if d["before"] != "8000.00" || d["after"] != "8800.00" || d["delta"] != "800.00" || d["delta_pct"] != "10.00" || d["article_code"] != "HUILE-1" {
			t.Fatalf("%s details: %v", c.serial, d)
		}
	}
	for _, n := range w.inbox(w.t3, false) {
		if n.Kind == "PRICE_CHANGED" {
			t.Fatal("beta's terminal was told about alpha's price")
		}
	}

	var history []struct {
		Before string `json:"before"`
		After  string `json:"after"`
	}
	w.must(200, "GET", path("/articles/%d/prices", oil), w.alpha, nil, &history)
	if len(history) != 1 || history[0].Before != "8000.00" || history[0].After != "8800.00" {
		t.Fatalf("price history: %+v", history)
	}
}

func TestNotificationReadFlow(t *testing.T) {
	w := newWorld(t)
	tea := w.article(w.alpha, w.shop, "THE-1", "2500", 1)
	w.must(201, "POST", path("/stock/movements"), w.alpha, map[string]any{
		"article_id": tea, "kind": "ENTRY", "qty": 5, "ref": "BL-7",
	}, nil)

	unread := w.inbox(w.t1, true)
	if len(unread) == 0 {
		t.Fatal("no notification for the stock entry")
	}
	first := unread[0].ID

	// another terminal cannot touch t1's notifications
	if status, _ := w.do("POST", path("/notifications/%d/read", first), w.t2, nil); status != 404 {
		t.Fatalf("foreign mark read: want 404, got %d", status)
	}
	w.must(200, "POST", path("/notifications/%d/read", first), w.t1, nil, nil)
	w.must(200, "POST", path("/notifications/%d/read", first), w.t1, nil, nil)
	if got := len(w.inbox(w.t1, true)); got != len(unread)-1 {
		t.Fatalf("unread after one read = %d, want %d", got, len(unread)-1)
	}

	var marked struct {
		Marked int `json:"marked"`
	}
	w.must(200, "POST", path("/notifications/read_all"), w.t1, nil, &marked)
	if marked.Marked != len(unread)-1 {
		t.Fatalf("read_all marked %d, want %d", marked.Marked, len(unread)-1)
	}
	var count struct {
		Unread int `json:"unread"`
	}
	w.must(200, "GET", path("/notifications/unread/count"), w.t1, nil, &count)
	if count.Unread != 0 {
		t.Fatalf("unread count = %d", count.Unread)
	}
	w.must(200, "GET", path("/notifications/unread/count"), w.t2, nil, &count)
	if count.Unread != len(unread) {
		t.Fatalf("t2 inbox affected by t1: %d", count.Unread)
	}
	if status, _ := w.do("GET", path("/notifications?unread_only=maybe"), w.t1, nil); status != 422 {
		t.Fatalf("bad unread_only: want 422, got %d", status)
	}
}

func TestSaleCancelOverHTTP(t *testing.T) {
	w := newWorld(t)
	milk := w.article(w.alpha, w.shop, "LAIT-1", "1200", 3)

	var out outcome
	w.must(200, "POST", path("/sales"), w.t1, sale("c-1", milk, 2, "1200"), &out)
	if status, _ := w.do("POST", path("/sales/%d/cancel", out.SaleID), w.beta, nil); status != 404 {
		t.Fatalf("foreign cancel: want 404, got %d", status)
	}
	var cancelled struct {
		Cancelled bool `json:"cancelled"`
	}
	w.must(200, "POST", path("/sales/%d/cancel", out.SaleID), w.alpha, nil, &cancelled)
	if !cancelled.Cancelled || w.stock(milk) != 3 {
		t.Fatalf("cancel: %+v stock %d", cancelled, w.stock(milk))
	}
	status, env := w.do("POST", path("/sales/%d/cancel", out.SaleID), w.alpha, nil)
	if status != 422 {
		t.Fatalf("second cancel: want 422, got %d %+v", status, env.Error)
	}

	var moves []struct {
		Kind string `json:"kind"`
		Ref  string `json:"reference"`
	}
	w.must(200, "GET", path("/stock/movements?article_id=%d", milk), w.alpha, nil, &moves)
	kinds := map[string]bool{}
	for _, m := range moves {
		kinds[m.Kind] = true
	}
	if !kinds["SALE"] || !kinds["RETURN"] {
		t.Fatalf("movement log: %+v", moves)
	}
}
