package handlers_test

import (
	"strings"
	"testing"
)

func TestErrorEnvelope(t *testing.T) {
	w := newWorld(t)

	status, env := w.do("GET", path("/nowhere"), w.alpha, nil)
	if status != 404 || env.Error == nil || env.Error.Kind != "NOT_FOUND" || env.Data != nil {
		t.Fatalf("unknown route: %d %+v", status, env.Error)
	}
	if status, env := w.do("GET", "/elsewhere", call{}, nil); status != 404 || env.Error.Kind != "NOT_FOUND" {
		t.Fatalf("route outside the api: %d %+v", status, env.Error)
	}
	if status, _ := w.do("GET", path("/nowhere"), call{}, nil); status != 401 {
		t.Fatalf("anonymous probe: want 401, got %d", status)
	}

	status, env = w.do("POST", path("/articles"), w.alpha, map[string]any{"shop_id": w.shop, "code": "NEG", "name": "neg", "sale_price": "-5"})
	if status != 422 || env.Error.Kind != "VALIDATION_FAILED" {
		t.Fatalf("negative price: %d %+v", status, env.Error)
	}
	w.article(w.alpha, w.shop, "DUP-1", "100", 0)
	status, env = w.do("POST", path("/articles"), w.alpha, map[string]any{"shop_id": w.shop, "code": "DUP-1", "name": "again", "sale_price": "100"})
	if status != 409 || env.Error.Kind != "DUPLICATE_CODE" {
		t.Fatalf("duplicate code: %d %+v", status, env.Error)
	}
	if strings.Contains(strings.ToLower(env.Error.Message), "unique constraint") {
		t.Fatalf("driver text leaked: %q", env.Error.Message)
	}
}

