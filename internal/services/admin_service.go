package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

// DefaultLowStockThreshold applies to shops created without an explicit threshold.
const DefaultLowStockThreshold = 5

// AdminService covers platform administration (operators) and merchant
// self-administration of shops, terminals and the exchange rate.
type AdminService struct {
	Store       *repos.Store
	PhoneRegion string
}

func NewAdminService(store *repos.Store, phoneRegion string) *AdminService {
	return &AdminService{Store: store, PhoneRegion: phoneRegion}
}

type MerchantInput struct {
	Name     string        `json:"name" validate:"required,max=200"`
	Phone    string        `json:"phone" validate:"max=40"`
	Email    string        `json:"email" validate:"omitempty,email,max=200"`
	Username string        `json:"username" validate:"required,min=3,max=100"`
	Password string        `json:"password" validate:"required,min=8,max=200"`
	Rate     domain.Amount `json:"local_to_usd_rate"`
}

type ShopInput struct {
	Name              string              `json:"name" validate:"required,max=200"`
	CommerceType      domain.CommerceType `json:"commerce_type" validate:"required"`
	Address           string              `json:"address" validate:"max=500"`
	LowStockThreshold *int                `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

type ShopPatch struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address           *string `json:"address" validate:"omitempty,max=500"`
	Active            *bool   `json:"active"`
	LowStockThreshold *int    `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

type TerminalInput struct {
	ShopID       int64  `json:"shop_id" validate:"required,gt=0"`
	Serial       string `json:"serial" validate:"required,serial"`
	Name         string `json:"name" validate:"required,max=120"`
	LegacyClient bool   `json:"legacy_client"`
}

type TerminalPatch struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	LegacyClient *bool   `json:"legacy_client"`
}

// CreatedTerminal is the only response that ever carries the API key.
type CreatedTerminal struct {
	domain.Terminal
	APIKey string `json:"api_key"`
}

type MerchantProfile struct {
	domain.Merchant
	Shops []domain.Shop `json:"shops"`
}

func requireOwner(p *domain.Principal) error {
	if p == nil {
		return domain.Unauthenticated("missing credentials")
	}
	if !p.IsMerchant() {
		return domain.Forbidden("merchant account required")
	}
	return nil
}

func (s *AdminService) CreateMerchant(ctx context.Context, p *domain.Principal, in MerchantInput) (*domain.Merchant, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	phone := ""
	if strings.TrimSpace(in.Phone) != "" {
		var ok bool
		if phone, ok = validate.Phone(in.Phone, s.PhoneRegion); !ok {
			return nil, domain.Invalid("phone %q is not a valid number", in.Phone).With("field", "phone")
		}
	}
	if !in.Rate.IsPositive() {
		return nil, domain.Invalid("local_to_usd_rate must be positive").With("field", "local_to_usd_rate")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	m := &domain.Merchant{
		Name:         strings.TrimSpace(in.Name),
		Phone:        phone,
		Email:        strings.TrimSpace(in.Email),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(hash),
		Active:       true,
		Rate:         in.Rate,
	}
	if err := s.Store.Merchants.Insert(ctx, m); err != nil {
		return nil, duplicate(err, "username %q is taken", m.Username)
	}
	return m, nil
}

func (s *AdminService) ListMerchants(ctx context.Context, p *domain.Principal, page, size int) ([]domain.Merchant, int, error) {
	if err := requireOperator(p); err != nil {
		return nil, 0, err
	}
	return s.Store.Merchants.List(ctx, page, size)
}

func (s *AdminService) SetMerchantActive(ctx context.Context, p *domain.Principal, id int64, active bool) (*domain.Merchant, error) {
	if err := requireOperator(p); err != nil {
		return nil, err
	}
	if err := s.Store.Merchants.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	return s.Store.Merchants.Get(ctx, id)
}

func (s *AdminService) Me(ctx context.Context, p *domain.Principal) (*MerchantProfile, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	m, err := s.Store.Merchants.Get(ctx, p.MerchantID)
	if err != nil {
		return nil, err
	}
	shops, err := s.Store.Shops.List(ctx, p.Scope)
	if err != nil {
		return nil, err
	}
	return &MerchantProfile{Merchant: *m, Shops: shops}, nil
}

func (s *AdminService) SetRate(ctx context.Context, p *domain.Principal, rate domain.Amount) (*domain.Merchant, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, domain.Invalid("local_to_usd_rate must be positive").With("field", "local_to_usd_rate")
	}
	if err := s.Store.Merchants.SetRate(ctx, p.MerchantID, rate); err != nil {
		return nil, err
	}
	return s.Store.Merchants.Get(ctx, p.MerchantID)
}

func (s *AdminService) CreateShop(ctx context.Context, p *domain.Principal, in ShopInput) (*domain.Shop, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !in.CommerceType.Valid() {
		return nil, domain.Invalid("unknown commerce type %q", in.CommerceType).With("field", "commerce_type")
	}
	sh := &domain.Shop{
		MerchantID:        p.MerchantID,
		Name:              strings.TrimSpace(in.Name),
		CommerceType:      in.CommerceType,
		Address:           strings.TrimSpace(in.Address),
		Active:            true,
		IsDepot:           in.CommerceType == domain.CommerceDepot,
		LowStockThreshold: DefaultLowStockThreshold,
	}
	if in.LowStockThreshold != nil {
		sh.LowStockThreshold = *in.LowStockThreshold
	}
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		if sh.IsDepot {
			_, err := r.Shops.Depot(ctx, p.MerchantID)
			if err == nil {
				return domain.Invalid("merchant already has a depot").With("field", "commerce_type")
			}
			if !domain.IsKind(err, domain.KindNotFound) {
				return err
			}
		}
		return r.Shops.Insert(ctx, sh)
	})
	if err != nil {
		return nil, duplicate(err, "shop %q already exists", sh.Name)
	}
	return sh, nil
}

func (s *AdminService) ListShops(ctx context.Context, p *domain.Principal) ([]domain.Shop, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	return s.Store.Shops.List(ctx, p.Scope)
}

func (s *AdminService) UpdateShop(ctx context.Context, p *domain.Principal, id int64, patch ShopPatch) (*domain.Shop, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	sh, err := s.Store.Shops.Get(ctx, p.Scope, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		sh.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Address != nil {
		sh.Address = strings.TrimSpace(*patch.Address)
	}
	if patch.Active != nil {
		sh.Active = *patch.Active
	}
	if patch.LowStockThreshold != nil {
		sh.LowStockThreshold = *patch.LowStockThreshold
	}
	if err := s.Store.Shops.Update(ctx, p.Scope, sh); err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *AdminService) CreateTerminal(ctx context.Context, p *domain.Principal, in TerminalInput) (*CreatedTerminal, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	in.Serial = strings.TrimSpace(in.Serial)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.Store.Shops.Get(ctx, p.Scope, in.ShopID); err != nil {
		return nil, err
	}
	t := &domain.Terminal{
		ShopID:       in.ShopID,
		Serial:       in.Serial,
		Name:         strings.TrimSpace(in.Name),
		APIKey:       uuid.NewString(),
		Active:       true,
		LegacyClient: in.LegacyClient,
	}
	if err := s.Store.Terminals.Insert(ctx, p.Scope, t); err != nil {
		return nil, duplicate(err, "terminal serial %q is already registered", t.Serial)
	}
	applog.Op("terminal.registered", map[string]any{"terminal_id": t.ID, "serial": t.Serial, "shop_id": t.ShopID, "actor": p.Actor})
	return &CreatedTerminal{Terminal: *t, APIKey: t.APIKey}, nil
}

func (s *AdminService) ListTerminals(ctx context.Context, p *domain.Principal, shopID int64) ([]domain.Terminal, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	return s.Store.Terminals.List(ctx, p.Scope, shopID)
}

func (s *AdminService) UpdateTerminal(ctx context.Context, p *domain.Principal, id int64, patch TerminalPatch) (*domain.Terminal, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	if err := validate.Struct(patch); err != nil {
		return nil, err
	}
	t, err := s.Store.Terminals.Get(ctx, p.Scope, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		t.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.LegacyClient != nil {
		t.LegacyClient = *patch.LegacyClient
	}
	if err := s.Store.Terminals.Update(ctx, p.Scope, t); err != nil {
		return nil, err
	}
	return t, nil
}

// SetTerminalActive toggles a terminal. Deactivation also ends its session.
func (s *AdminService) SetTerminalActive(ctx context.Context, p *domain.Principal, id int64, active bool) (*domain.Terminal, error) {
	if err := requireOwner(p); err != nil {
		return nil, err
	}
	var out *domain.Terminal
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		t, err := r.Terminals.Get(ctx, p.Scope, id)
		if err != nil {
			return err
		}
		t.Active = active
		if err := r.Terminals.Update(ctx, p.Scope, t); err != nil {
			return err
		}
		if !active {
			if _, err := r.Sessions.CloseAll(ctx, t.ID); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	return out, err
}
