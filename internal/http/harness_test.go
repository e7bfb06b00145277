package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"stockpos/internal/config"
	"stockpos/internal/http/handlers"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *struct {
		Page  int `json:"page"`
		Size  int `json:"size"`
		Total int `json:"total"`
	} `json:"meta"`
	Error *struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type lockedWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// entries parses the captured JSON log lines.
func (w *lockedWriter) entries() []map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(w.buf.String()), "\n") {
		var e map[string]any
		if json.Unmarshal([]byte(line), &e) == nil {
			out = append(out, e)
		}
	}
	return out
}

func (w *lockedWriter) find(action string) map[string]any {
	for _, e := range w.entries() {
		if e["action"] == action {
			return e
		}
	}
	return nil
}

type harness struct {
	t    *testing.T
	app  *fiber.App
	svc  *handlers.Services
	logs *lockedWriter
}

const testPassword = "s3cret-pass"

// newHarness builds the API over an in-memory store. extra middleware runs
// before the routes, e.g. a limiter under test.
func newHarness(t *testing.T, bodyLimit int, extra ...fiber.Handler) *harness {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logs := &lockedWriter{}
	prev := applog.Writer()
	applog.SetOutput(logs)
	t.Cleanup(func() { applog.SetOutput(prev) })

	cfg := config.Config{
		JWTSecret: "test-secret", TokenTTL: time.Hour, Timezone: "UTC",
		PhoneRegion: "CD", RequestTimeout: 5 * time.Second,
	}
	svc := handlers.NewServices(repos.NewStore(db), cfg, nil)
	if bodyLimit == 0 {
		bodyLimit = 1 << 20
	}
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler, BodyLimit: bodyLimit})
	app.Use(requestid.New())
	for _, h := range extra {
		app.Use(h)
	}
	handlers.Mount(app, handlers.NewDeps(svc, cfg), nil)

	if err := services.EnsureOperator(context.Background(), svc.Store, "root", "root-password"); err != nil {
		t.Fatal(err)
	}
	return &harness{t: t, app: app, svc: svc, logs: logs}
}

type call struct {
	token  string
	serial string
}

func (h *harness) raw(method, path string, c call, body []byte) (int, envelope) {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.serial != "" {
		req.Header.Set("X-Device-Serial", c.serial)
	}
	resp, err := h.app.Test(req, -1)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	b, _ := io.ReadAll(resp.Body)
	if len(b) > 0 {
		if err := json.Unmarshal(b, &env); err != nil {
			h.t.Fatalf("%s %s: body is not an envelope: %s", method, path, b)
		}
	}
	return resp.StatusCode, env
}

func (h *harness) do(method, path string, c call, body any) (int, envelope) {
	h.t.Helper()
	var b []byte
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			h.t.Fatal(err)
		}
	}
	return h.raw(method, path, c, b)
}

// must performs a call that has to answer want, and decodes data into out.
func (h *harness) must(want int, method, path string, c call, body, out any) {
	h.t.Helper()
	status, env := h.do(method, path, c, body)
	if status != want {
		h.t.Fatalf("%s %s: want %d, got %d (%+v)", method, path, want, status, env.Error)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			h.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

type idOnly struct {
	ID int64 `json:"id"`
}

type tokenBody struct {
	Token string `json:"token"`
}

func (h *harness) operator() call {
	var tok tokenBody
	h.must(200, "POST", "/api/v2/auth/operator", call{}, map[string]string{"username": "root", "password": "root-password"}, &tok)
	return call{token: tok.Token}
}

func (h *harness) merchant(op call, username string) call {
	h.must(201, "POST", "/api/v2/admin/merchants", op, map[string]any{
		"name": "Merchant " + username, "username": username, "password": testPassword, "local_to_usd_rate": "2800",
	}, nil)
	return h.login(username)
}

func (h *harness) login(username string) call {
	var tok tokenBody
	h.must(200, "POST", "/api/v2/auth/merchant", call{}, map[string]string{"username": username, "password": testPassword}, &tok)
	return call{token: tok.Token}
}

func (h *harness) shop(m call, name, kind string) int64 {
	var sh idOnly
	h.must(201, "POST", "/api/v2/shops", m, map[string]any{"name": name, "commerce_type": kind}, &sh)
	return sh.ID
}

func (h *harness) terminal(m call, shopID int64, serial string) call {
	h.must(201, "POST", "/api/v2/terminals", m, map[string]any{"shop_id": shopID, "serial": serial, "name": serial}, nil)
	return h.connect(serial)
}

func (h *harness) connect(serial string) call {
	var sess struct {
		Token string `json:"session_token"`
	}
	h.must(200, "POST", "/api/v2/auth/terminal", call{}, map[string]string{"device_serial": serial, "app_version": "2.4.0"}, &sess)
	return call{token: sess.Token, serial: serial}
}

func (h *harness) article(m call, shopID int64, code, price string, qty int) int64 {
	var a idOnly
	h.must(201, "POST", "/api/v2/articles", m, map[string]any{
		"shop_id": shopID, "code": code, "name": "Article " + code, "sale_price": price, "qty": qty,
	}, &a)
	return a.ID
}

// world: alpha owns a depot and a shop with two terminals, beta owns one shop.
type world struct {
	*harness
	op          call
	alpha, beta call
	depot, shop int64
	shopB       int64
	t1, t2, t3  call
}

func newWorld(t *testing.T) *world {
	h := newHarness(t, 0)
	w := &world{harness: h}
	w.op = h.operator()
	w.alpha = h.merchant(w.op, "alpha")
	w.beta = h.merchant(w.op, "beta")
	w.depot = h.shop(w.alpha, "Depot", "DEPOT")
	w.shop = h.shop(w.alpha, "Boutique", "BOUTIQUE")
	w.shopB = h.shop(w.beta, "Kiosque", "KIOSQUE")
	// tokens carry identity only; the shop scope is resolved per request
	w.t1 = h.terminal(w.alpha, w.shop, "POS-A1")
	w.t2 = h.terminal(w.alpha, w.shop, "POS-A2")
	w.t3 = h.terminal(w.beta, w.shopB, "POS-B1")
	return w
}

func path(format string, args ...any) string { return fmt.Sprintf("/api/v2"+format, args...) }
