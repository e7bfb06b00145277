package handlers_test

import (
	"encoding/json"
	"testing"
)

func TestInputValidation(t *testing.T) {
	w := newWorld(t)

	status, env := w.raw("POST", path("/articles"), w.alpha, []byte(`{"shop_id": 1,`))
	if status != 422 || env.Error.Kind != "VALIDATION_FAILED" || env.Error.Message != "malformed JSON body" {
		t.Fatalf("malformed json: %d %+v", status, env.Error)
	}
	status, env = w.raw("POST", path("/articles"), w.alpha, nil)
	if status != 422 || env.Error.Message != "request body is required" {
		t.Fatalf("empty body: %d %+v", status, env.Error)
	}

	for _, bad := range []string{"abc", "0", "-4", "1e3"} {
		status, env = w.do("GET", path("/articles/%s", bad), w.alpha, nil)
		if status != 422 || env.Error.Details["field"] != "id" {
			t.Fatalf("id %q: want 422 on field id, got %d %+v", bad, status, env.Error)
		}
	}
	status, env = w.do("GET", path("/articles?shop_id=x"), w.alpha, nil)
	if status != 422 || env.Error.Details["field"] != "shop_id" {
		t.Fatalf("bad shop_id: %d %+v", status, env.Error)
	}
	status, env = w.do("GET", path("/articles?state=RARE"), w.alpha, nil)
	if status != 422 || env.Error.Details["field"] != "state" {
		t.Fatalf("bad state: %d %+v", status, env.Error)
	}
	status, env = w.do("GET", path("/articles?q=%%3Cscript%%3E"), w.alpha, nil)
	if status != 422 || env.Error.Details["field"] != "q" {
		t.Fatalf("bad search text: %d %+v", status, env.Error)
	}
}

func TestPagination(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 3; i++ {
		w.article(w.alpha, w.shop, "P-"+string(rune('A'+i)), "10", 1)
	}

	cases := []struct {
		query      string
		page, size int
		items      int
	}{
		{"", 1, 50, 3},
		{"?page=2&page_size=2", 2, 2, 1},
		{"?page_size=1000", 1, 200, 3},
		{"?page_size=0", 1, 50, 3},
		{"?page=-3&size=2", 1, 2, 2},
	}
	for _, tc := range cases {
		status, env := w.do("GET", path("/articles"+tc.query), w.alpha, nil)
		if status != 200 || env.Meta == nil {
			t.Fatalf("%q: %d", tc.query, status)
		}
		if env.Meta.Page != tc.page || env.Meta.Size != tc.size || env.Meta.Total != 3 {
			t.Fatalf("%q: meta %+v", tc.query, *env.Meta)
		}
		var items []idOnly
		if err := json.Unmarshal(env.Data, &items); err != nil {
			t.Fatal(err)
		}
		if len(items) != tc.items {
			t.Fatalf("%q: %d items, want %d", tc.query, len(items), tc.items)
		}
	}
}
