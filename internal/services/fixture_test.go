package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"stockpos/internal/domain"
	"stockpos/internal/lock"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

type env struct {
	t         *testing.T
	ctx       context.Context
	store     *repos.Store
	stock     *services.StockService
	notify    *services.NotifyService
	catalog   *services.CatalogService
	sales     *services.SaleService
	transfers *services.TransferService
	terminals *services.TerminalService
	auth      *services.AuthService
	admin     *services.AdminService
	op        *domain.Principal
	logs      *bytes.Buffer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logs := &bytes.Buffer{}
	prev := applog.Writer()
	applog.SetOutput(logs)
	t.Cleanup(func() { applog.SetOutput(prev) })

	store := repos.NewStore(db)
	locks := lock.NewLocal()
	notify := services.NewNotifyService(store)
	stock := services.NewStockService(store, notify)
	terminals := services.NewTerminalService(store, locks)
	e := &env{
		t:         t,
		ctx:       context.Background(),
		store:     store,
		stock:     stock,
		notify:    notify,
		catalog:   services.NewCatalogService(store, stock, notify, services.LogArtifacts{}),
		sales:     services.NewSaleService(store, stock, notify, locks, time.UTC),
		transfers: services.NewTransferService(store, stock, services.LogArtifacts{}),
		terminals: terminals,
		auth:      services.NewAuthService(store, terminals, "test-secret", time.Hour),
		admin:     services.NewAdminService(store, "CD"),
		op:        &domain.Principal{Kind: domain.PrincipalOperator, Actor: "operator:test", Scope: domain.OperatorScope()},
		logs:      logs,
	}
	return e
}

const testPassword = "s3cret-pass"

func (e *env) merchant(username string) *domain.Merchant {
	e.t.Helper()
	m, err := e.admin.CreateMerchant(e.ctx, e.op, services.MerchantInput{
		Name: "Merchant " + username, Username: username, Password: testPassword, Rate: domain.MustAmount("2800"),
	})
	if err != nil {
		e.t.Fatal(err)
	}
	return m
}

// login resolves a fresh principal, so the scope reflects the merchant's current shops.
func (e *env) login(username string) *domain.Principal {
	e.t.Helper()
	tok, err := e.auth.MerchantLogin(e.ctx, services.Credentials{Username: username, Password: testPassword})
	if err != nil {
		e.t.Fatal(err)
	}
	p, err := e.auth.Resolve(e.ctx, tok.Token, "", "127.0.0.1")
	if err != nil {
		e.t.Fatal(err)
	}
	return p
}

func (e *env) shop(mp *domain.Principal, name string, kind domain.CommerceType) *domain.Shop {
	e.t.Helper()
	sh, err := e.admin.CreateShop(e.ctx, mp, services.ShopInput{Name: name, CommerceType: kind})
	if err != nil {
		e.t.Fatal(err)
	}
	return sh
}

func (e *env) terminal(mp *domain.Principal, shopID int64, serial string) *domain.Principal {
	e.t.Helper()
	if _, err := e.admin.CreateTerminal(e.ctx, mp, services.TerminalInput{ShopID: shopID, Serial: serial, Name: serial}); err != nil {
		e.t.Fatal(err)
	}
	return e.connect(serial)
}

func (e *env) connect(serial string) *domain.Principal {
	e.t.Helper()
	sess, err := e.terminals.Authenticate(e.ctx, services.TerminalLogin{Serial: serial, AppVersion: "2.4.0"}, "10.0.0.1", "pos-test")
	if err != nil {
		e.t.Fatal(err)
	}
	p, err := e.auth.Resolve(e.ctx, sess.Token, serial, "10.0.0.1")
	if err != nil {
		e.t.Fatal(err)
	}
	return p
}

func (e *env) article(mp *domain.Principal, shopID int64, code, price string, qty int) *domain.Article {
	e.t.Helper()
	a, err := e.catalog.CreateArticle(e.ctx, mp, services.ArticleInput{
		ShopID: shopID, Code: code, Name: "Article " + code, SalePrice: domain.MustAmount(price), Qty: qty,
	})
	if err != nil {
		e.t.Fatal(err)
	}
	return a
}

func (e *env) stockOf(id int64) int {
	e.t.Helper()
	a, err := e.store.Articles.Get(e.ctx, domain.OperatorScope(), id)
	if err != nil {
		e.t.Fatal(err)
	}
	return a.StockQty
}

// world is two merchants: m1 owns a depot and a shop with two terminals,
// m2 owns one shop with one terminal.
type world struct {
	*env
	m1, m2      *domain.Principal
	depot, shop *domain.Shop
	shop2       *domain.Shop
	t1, t2, t3  *domain.Principal
}

func newWorld(t *testing.T) *world {
	e := newEnv(t)
	w := &world{env: e}
	e.merchant("alpha")
	e.merchant("beta")
	w.m1 = e.login("alpha")
	w.depot = e.shop(w.m1, "Depot", domain.CommerceDepot)
	w.shop = e.shop(w.m1, "Boutique", domain.CommerceShop)
	w.m1 = e.login("alpha")
	w.m2 = e.login("beta")
	w.shop2 = e.shop(w.m2, "Kiosque", domain.CommerceKiosk)
	w.m2 = e.login("beta")
	w.t1 = e.terminal(w.m1, w.shop.ID, "POS-A1")
	w.t2 = e.terminal(w.m1, w.shop.ID, "POS-A2")
	w.t3 = e.terminal(w.m2, w.shop2.ID, "POS-B1")
	return w
}

type line struct {
	ArticleID int64  `json:"article_id,omitempty"`
	Barcode   string `json:"barcode,omitempty"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"unit_price"`
}

func saleJSON(t *testing.T, uid string, total string, lines ...line) json.RawMessage {
	t.Helper()
	body := map[string]any{"uid": uid, "lines": lines, "payment_mode": "CASH"}
	if total != "" {
		body["total"] = total
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func (e *env) submit(p *domain.Principal, raw json.RawMessage) services.Outcome {
	e.t.Helper()
	out, err := e.sales.Submit(e.ctx, p, raw, services.ClientMeta{IP: "10.0.0.1", AppVersion: "2.4.0"})
	if err != nil {
		e.t.Fatal(err)
	}
	return out
}

func (e *env) inbox(p *domain.Principal) []domain.Notification {
	e.t.Helper()
	items, _, err := e.notify.List(e.ctx, p, false, 1, 200)
	if err != nil {
		e.t.Fatal(err)
	}
	return items
}

func kindOf(t *testing.T, err error) domain.Kind {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return domain.KindOf(err)
}
