package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
)

// EnsureOperator creates the platform operator on first start. An existing
// account keeps its password.
func EnsureOperator(ctx context.Context, store *repos.Store, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		applog.OpWarn("seed.operator.skipped", map[string]any{"reason": "OPERATOR_PASSWORD not set"})
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return store.Accounts.EnsureOperator(ctx, username, string(hash))
}

const demoUsername = "demo"

type demoArticle struct {
	shop  int
	code  string
	name  string
	price string
	usd   string
	qty   int
}

var demoArticles = []demoArticle{
	{0, "RIZ-25", "Riz 25kg", "75000", "27.00", 40},
	{0, "HUILE-5L", "Huile 5L", "32000", "11.50", 60},
	{0, "SUCRE-1", "Sucre 1kg", "4500", "", 120},
	{1, "EAU-50", "Eau 50cl", "1000", "", 48},
	{1, "SAVON-B", "Savon de Marseille", "2500", "0.90", 3},
}

// SeedDemo creates a demo merchant with a depot, a shop, two terminals and a
// few articles. It does nothing once the demo merchant exists.
func SeedDemo(ctx context.Context, store *repos.Store, admin *AdminService, catalog *CatalogService) error {
	if _, err := store.Merchants.ByUsername(ctx, demoUsername); err == nil {
		applog.Op("seed.demo.skipped", map[string]any{"reason": "already seeded"})
		return nil
	} else if !domain.IsKind(err, domain.KindNotFound) {
		return err
	}

	op := &domain.Principal{Kind: domain.PrincipalOperator, Actor: "seed", Scope: domain.OperatorScope()}
	m, err := admin.CreateMerchant(ctx, op, MerchantInput{
		Name: "Demo Merchant", Phone: "+243815550123", Email: "demo@example.com",
		Username: demoUsername, Password: "demo-pass", Rate: domain.MustAmount("2800"),
	})
	if err != nil {
		return err
	}
	mp := &domain.Principal{Kind: domain.PrincipalMerchant, Actor: "seed", MerchantID: m.ID, Scope: domain.MerchantScope(m.ID, nil)}
	depot, err := admin.CreateShop(ctx, mp, ShopInput{Name: "Depot central", CommerceType: domain.CommerceDepot})
	if err != nil {
		return err
	}
	shop, err := admin.CreateShop(ctx, mp, ShopInput{Name: "Boutique Gombe", CommerceType: domain.CommerceShop, Address: "Gombe, Kinshasa"})
	if err != nil {
		return err
	}
	mp.Scope = domain.MerchantScope(m.ID, []int64{depot.ID, shop.ID})

	for i, serial := range []string{"DEMO-POS-1", "DEMO-POS-2"} {
		if _, err := admin.CreateTerminal(ctx, mp, TerminalInput{
			ShopID: shop.ID, Serial: serial, Name: "Caisse " + string(rune('A'+i)),
		}); err != nil {
			return err
		}
	}

	shops := []int64{depot.ID, shop.ID}
	for _, d := range demoArticles {
		in := ArticleInput{
			ShopID: shops[d.shop], Code: d.code, Name: d.name,
			SalePrice: domain.MustAmount(d.price), Currency: domain.CurrencyLocal, Qty: d.qty,
		}
		if d.usd != "" {
			usd := domain.MustAmount(d.usd)
			in.SalePriceUSD = &usd
		}
		if _, err := catalog.CreateArticle(ctx, mp, in); err != nil {
			return err
		}
	}
	applog.Op("seed.demo.created", map[string]any{"merchant_id": m.ID, "depot_id": depot.ID, "shop_id": shop.ID})
	return nil
}
