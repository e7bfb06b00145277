package handlers

import (
	"time"

	"stockpos/internal/config"
	"stockpos/internal/lock"
	"stockpos/internal/repos"
	"stockpos/internal/services"
)

// Services is the wired service layer. main and the HTTP tests share it.
type Services struct {
	Store     *repos.Store
	Stock     *services.StockService
	Notify    *services.NotifyService
	Catalog   *services.CatalogService
	Sales     *services.SaleService
	Transfers *services.TransferService
	Terminals *services.TerminalService
	Auth      *services.AuthService
	Admin     *services.AdminService
}

func NewServices(store *repos.Store, cfg config.Config, locks lock.Locker) *Services {
	if locks == nil {
		locks = lock.NewLocal()
	}
	hook := services.LogArtifacts{}
	notify := services.NewNotifyService(store)
	stock := services.NewStockService(store, notify)
	terminals := services.NewTerminalService(store, locks)
	return &Services{
		Store:     store,
		Stock:     stock,
		Notify:    notify,
		Catalog:   services.NewCatalogService(store, stock, notify, hook),
		Sales:     services.NewSaleService(store, stock, notify, locks, cfg.Location()),
		Transfers: services.NewTransferService(store, stock, hook),
		Terminals: terminals,
		Auth:      services.NewAuthService(store, terminals, cfg.JWTSecret, cfg.TokenTTL),
		Admin:     services.NewAdminService(store, cfg.PhoneRegion),
	}
}

type Deps struct {
	Services *Services

	AuthHandler         *AuthHandler
	ArticleHandler      *ArticleHandler
	StockHandler        *StockHandler
	SaleHandler         *SaleHandler
	NotificationHandler *NotificationHandler
	AdminHandler        *AdminHandler

	RequestTimeout time.Duration
}

func NewDeps(svc *Services, cfg config.Config) *Deps {
	return &Deps{
		Services:            svc,
		AuthHandler:         &AuthHandler{Auth: svc.Auth, Terminals: svc.Terminals},
		ArticleHandler:      &ArticleHandler{Catalog: svc.Catalog},
		StockHandler:        &StockHandler{Stock: svc.Stock, Transfers: svc.Transfers},
		SaleHandler:         &SaleHandler{Sales: svc.Sales},
		NotificationHandler: &NotificationHandler{Notify: svc.Notify},
		AdminHandler:        &AdminHandler{Admin: svc.Admin},
		RequestTimeout:      cfg.RequestTimeout,
	}
}
