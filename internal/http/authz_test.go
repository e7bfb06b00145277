package handlers_test

import (
	"encoding/json"
	"testing"
)

func TestTenantsCannotSeeEachOther(t *testing.T) {
	w := newWorld(t)
	rice := w.article(w.alpha, w.shop, "RIZ-25", "45000", 10)

	var items []idOnly
	w.must(200, "GET", path("/articles?shop_id=%d", w.shop), w.beta, nil, &items)
	if len(items) != 0 {
		t.Fatalf("beta listed alpha's articles: %+v", items)
	}
	status, env := w.do("GET", path("/articles/%d", rice), w.beta, nil)
	if status != 404 || env.Error.Kind != "NOT_FOUND" {
		t.Fatalf("foreign article: want 404, got %d", status)
	}
	if status, _ := w.do("GET", path("/articles/%d", rice), w.t3, nil); status != 404 {
		t.Fatalf("foreign terminal read an article: %d", status)
	}
	if status, _ := w.do("PATCH", path("/articles/%d", rice), w.beta, map[string]any{"sale_price": "1"}); status != 404 {
		t.Fatalf("foreign patch: want 404, got %d", status)
	}
	status, _ = w.do("POST", path("/articles"), w.beta, map[string]any{
		"shop_id": w.shop, "code": "HACK", "name": "Hack", "sale_price": "1",
	})
	if status != 404 {
		t.Fatalf("article in a foreign shop: want 404, got %d", status)
	}
	if status, _ := w.do("PATCH", path("/shops/%d", w.shop), w.beta, map[string]any{"name": "Mine"}); status != 404 {
		t.Fatalf("foreign shop update: want 404, got %d", status)
	}

	var shops []idOnly
	w.must(200, "GET", path("/shops"), w.beta, nil, &shops)
	if len(shops) != 1 || shops[0].ID != w.shopB {
		t.Fatalf("beta sees shops %+v", shops)
	}

	// the owner and its terminals do see it
	w.must(200, "GET", path("/articles/%d", rice), w.alpha, nil, nil)
	w.must(200, "GET", path("/articles?shop_id=%d", w.shop), w.t1, nil, &items)
	if len(items) != 1 || items[0].ID != rice {
		t.Fatalf("terminal listing: %+v", items)
	}
	// a terminal's scope is its own shop, whatever it asks for
	w.must(200, "GET", path("/articles?shop_id=%d", w.depot), w.t1, nil, &items)
	if len(items) != 0 {
		t.Fatalf("terminal listed another shop: %+v", items)
	}
}

func TestRoleGuards(t *testing.T) {
	w := newWorld(t)

	cases := []struct {
		name   string
		who    call
		method string
		url    string
		body   any
	}{
		{"terminal creates article", w.t1, "POST", path("/articles"), map[string]any{"shop_id": w.shop, "code": "X1", "name": "x", "sale_price": "1"}},
		{"terminal lists terminals", w.t1, "GET", path("/terminals"), nil},
		{"terminal reads profile", w.t1, "GET", path("/me"), nil},
		{"merchant submits sale", w.alpha, "POST", path("/sales"), map[string]any{"uid": "m-1"}},
		{"merchant reads inbox", w.alpha, "GET", path("/notifications"), nil},
		{"merchant creates merchant", w.alpha, "POST", path("/admin/merchants"), map[string]any{"username": "x"}},
		{"operator reads inbox", w.op, "GET", path("/notifications"), nil},
		{"operator creates shop", w.op, "POST", path("/shops"), map[string]any{"name": "x", "commerce_type": "BOUTIQUE"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := w.do(tc.method, tc.url, tc.who, tc.body)
			if status != 403 || env.Error == nil || env.Error.Kind != "FORBIDDEN" {
				t.Fatalf("want 403 FORBIDDEN, got %d %+v", status, env.Error)
			}
		})
	}
	if e := w.logs.find("access.denied"); e == nil || e["category"] != "security" {
		t.Fatalf("denials not logged: %v", e)
	}
}

func TestOperatorAdministration(t *testing.T) {
	w := newWorld(t)

	var merchants []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Active   bool   `json:"active"`
	}
	status, env := w.do("GET", path("/admin/merchants?page_size=1"), w.op, nil)
	if status != 200 || env.Meta == nil || env.Meta.Total != 2 || env.Meta.Size != 1 {
		t.Fatalf("merchant listing: %d %+v", status, env.Meta)
	}
	if err := json.Unmarshal(env.Data, &merchants); err != nil || len(merchants) != 1 {
		t.Fatalf("page of merchants: %v %+v", err, merchants)
	}

	var beta idOnly
	var all []struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	w.must(200, "GET", path("/admin/merchants"), w.op, nil, &all)
	for _, m := range all {
		if m.Username == "beta" {
			beta.ID = m.ID
		}
	}
	if beta.ID == 0 {
		t.Fatal("beta not listed")
	}

	w.must(200, "POST", path("/admin/merchants/%d/deactivate", beta.ID), w.op, nil, nil)
	status, env = w.do("GET", path("/shops"), w.beta, nil)
	if status != 403 || env.Error.Details["reason"] != "INACTIVE" {
		t.Fatalf("deactivated merchant token: want 403/INACTIVE, got %d %+v", status, env.Error)
	}
	if status, _ := w.do("GET", path("/articles"), w.t3, nil); status != 403 {
		t.Fatalf("terminal of a deactivated merchant: want 403, got %d", status)
	}
	if e := w.logs.find("admin.merchant.active"); e == nil || e["category"] != "audit" || e["principal"] != "OPERATOR" {
		t.Fatalf("deactivation not audited: %v", e)
	}

	w.must(200, "POST", path("/admin/merchants/%d/activate", beta.ID), w.op, nil, nil)
	w.must(200, "GET", path("/shops"), w.beta, nil, nil)

	status, env = w.do("POST", path("/admin/merchants"), w.op, map[string]any{
		"name": "Dup", "username": "alpha", "password": testPassword, "local_to_usd_rate": "2800",
	})
	if status != 409 || env.Error.Kind != "DUPLICATE_CODE" {
		t.Fatalf("duplicate username: want 409, got %d %+v", status, env.Error)
	}
}
