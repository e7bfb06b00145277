package handlers

import (
	"github.com/gofiber/fiber/v2"

	"stockpos/internal/domain"
)

// Mount registers the /api/v2 surface. authLimit, when set, guards the login
// endpoints on top of any app-wide limiter.
func Mount(app *fiber.App, d *Deps, authLimit fiber.Handler) {
	api := app.Group("/api/v2", Deadline(d.RequestTimeout))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	login := []fiber.Handler{}
	if authLimit != nil {
		login = append(login, authLimit)
	}
	auth := api.Group("/auth")
	auth.Post("/terminal", append(login, d.AuthHandler.Terminal)...)
	auth.Post("/merchant", append(login, d.AuthHandler.Merchant)...)
	auth.Post("/operator", append(login, d.AuthHandler.Operator)...)

	authed := api.Group("", Authenticate(d.Services.Auth))
	authed.Post("/auth/logout", d.AuthHandler.Logout)

	merchant := Require(domain.PrincipalMerchant)
	operator := Require(domain.PrincipalOperator)
	terminal := Require(domain.PrincipalTerminal)

	ah := d.ArticleHandler
	authed.Get("/articles", ah.List)
	authed.Post("/articles", merchant, ah.Create)
	authed.Get("/articles/:id", ah.Get)
	authed.Patch("/articles/:id", merchant, ah.Update)
	authed.Delete("/articles/:id", merchant, ah.Delete)
	authed.Get("/articles/:id/variants", ah.Variants)
	authed.Post("/articles/:id/variants", merchant, ah.CreateVariant)
	authed.Get("/articles/:id/prices", ah.Prices)
	authed.Post("/articles/:id/reception", Require(domain.PrincipalMerchant, domain.PrincipalTerminal), ah.Reception)
	authed.Get("/categories", ah.Categories)
	authed.Post("/categories", merchant, ah.CreateCategory)

	sh := d.StockHandler
	authed.Post("/stock/movements", merchant, sh.Record)
	authed.Get("/stock/movements", sh.Movements)
	authed.Get("/stock/transfers", merchant, sh.ListTransfers)
	authed.Post("/stock/transfers", merchant, sh.CreateTransfer)
	authed.Get("/stock/transfers/:id", merchant, sh.GetTransfer)
	authed.Post("/stock/transfers/:id/validate", merchant, sh.ValidateTransfer)
	authed.Post("/stock/transfers/:id/cancel", merchant, sh.CancelTransfer)

	sa := d.SaleHandler
	authed.Post("/sales", terminal, sa.Submit)
	authed.Post("/sales/batch", terminal, sa.SubmitBatch)
	authed.Get("/sales", sa.List)
	authed.Get("/sales/rejected", sa.Rejected)
	authed.Post("/sales/rejected/:id/handle", merchant, sa.HandleRejected)
	authed.Get("/sales/:id", sa.Get)
	authed.Post("/sales/:id/cancel", sa.Cancel)

	nh := d.NotificationHandler
	authed.Get("/notifications", terminal, nh.List)
	authed.Get("/notifications/unread/count", terminal, nh.UnreadCount)
	authed.Post("/notifications/read_all", terminal, nh.MarkAllRead)
	authed.Post("/notifications/:id/read", terminal, nh.MarkRead)

	adm := d.AdminHandler
	authed.Get("/me", merchant, adm.Me)
	authed.Patch("/merchant/rate", merchant, adm.SetRate)
	authed.Get("/shops", adm.Shops)
	authed.Post("/shops", merchant, adm.CreateShop)
	authed.Patch("/shops/:id", merchant, adm.UpdateShop)
	authed.Get("/terminals", merchant, adm.Terminals)
	authed.Post("/terminals", merchant, adm.CreateTerminal)
	authed.Patch("/terminals/:id", merchant, adm.UpdateTerminal)
	authed.Post("/terminals/:id/activate", merchant, adm.terminalActive(true))
	authed.Post("/terminals/:id/deactivate", merchant, adm.terminalActive(false))

	authed.Get("/admin/merchants", operator, adm.Merchants)
	authed.Post("/admin/merchants", operator, adm.CreateMerchant)
	authed.Post("/admin/merchants/:id/activate", operator, adm.merchantActive(true))
	authed.Post("/admin/merchants/:id/deactivate", operator, adm.merchantActive(false))

	api.Use(func(c *fiber.Ctx) error {
		return domain.NotFound("route")
	})
}
