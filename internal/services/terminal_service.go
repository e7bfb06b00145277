package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"stockpos/internal/domain"
	"stockpos/internal/lock"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

// TerminalService owns terminal sessions. A terminal holds at most one active
// session; logging in closes the previous one.
type TerminalService struct {
	Store *repos.Store
	Locks lock.Locker
}

func NewTerminalService(store *repos.Store, locks lock.Locker) *TerminalService {
	if locks == nil {
		locks = lock.NewLocal()
	}
	return &TerminalService{Store: store, Locks: locks}
}

type TerminalLogin struct {
	Serial     string `json:"device_serial" validate:"required,serial"`
	AppVersion string `json:"app_version" validate:"max=40"`
	APIKey     string `json:"api_key" validate:"max=100"`
}

type TerminalSession struct {
	Token      string          `json:"session_token"`
	TerminalID int64           `json:"terminal_id"`
	Terminal   domain.Terminal `json:"terminal"`
	Shop       domain.Shop     `json:"shop"`
	Merchant   domain.Merchant `json:"merchant"`
}

func newSessionToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

func (s *TerminalService) Authenticate(ctx context.Context, in TerminalLogin, ip, userAgent string) (*TerminalSession, error) {
	in.Serial = strings.TrimSpace(in.Serial)
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	release, err := s.Locks.Acquire(ctx, "terminal:"+in.Serial)
	if err != nil {
		return nil, fmt.Errorf("terminal lock: %w", err)
	}
	defer release()

	t, err := s.Store.Terminals.BySerial(ctx, in.Serial)
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.Forbidden("unknown terminal")
	}
	if err != nil {
		return nil, err
	}
	if in.APIKey != "" && subtle.ConstantTimeCompare([]byte(in.APIKey), []byte(t.APIKey)) != 1 {
		return nil, domain.Forbidden("invalid api key")
	}
	shop, merchant, err := s.owners(ctx, t)
	if err != nil {
		return nil, err
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	var closed int64
	err = s.Store.Tx(ctx, func(r *repos.Repos) error {
		var err error
		if closed, err = r.Sessions.CloseAll(ctx, t.ID); err != nil {
			return err
		}
		if err := r.Sessions.Insert(ctx, &domain.Session{
			TerminalID: t.ID, TokenHash: hashToken(token), IP: ip, UserAgent: userAgent,
		}); err != nil {
			return err
		}
		return r.Terminals.Touch(ctx, t.ID, in.AppVersion, ip, true)
	})
	if err != nil {
		return nil, err
	}
	t.AppVersion, t.LastIP = in.AppVersion, ip
	applog.Op("terminal.login", map[string]any{
		"terminal_id": t.ID, "serial": t.Serial, "shop_id": t.ShopID, "app_version": in.AppVersion,
		"ip": ip, "replaced_sessions": closed,
	})
	return &TerminalSession{Token: token, TerminalID: t.ID, Terminal: *t, Shop: *shop, Merchant: *merchant}, nil
}

// owners loads the terminal's shop and merchant and checks the whole chain is active.
func (s *TerminalService) owners(ctx context.Context, t *domain.Terminal) (*domain.Shop, *domain.Merchant, error) {
	if !t.Active {
		return nil, nil, domain.Inactive("terminal")
	}
	shop, err := s.Store.Shops.Get(ctx, domain.OperatorScope(), t.ShopID)
	if err != nil {
		return nil, nil, err
	}
	if !shop.Active {
		return nil, nil, domain.Inactive("shop")
	}
	m, err := s.Store.Merchants.Get(ctx, shop.MerchantID)
	if err != nil {
		return nil, nil, err
	}
	if !m.Active {
		return nil, nil, domain.Inactive("merchant")
	}
	return shop, m, nil
}

// VerifySession resolves a session token. A device serial, when sent, must
// match the terminal the session belongs to.
func (s *TerminalService) VerifySession(ctx context.Context, token, deviceSerial, ip string) (*domain.Principal, error) {
	sess, err := s.Store.Sessions.ActiveByHash(ctx, hashToken(strings.TrimSpace(token)))
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, domain.Unauthenticated("invalid or expired session")
	}
	if err != nil {
		return nil, err
	}
	t, err := s.Store.Terminals.Get(ctx, domain.OperatorScope(), sess.TerminalID)
	if err != nil {
		return nil, err
	}
	if deviceSerial = strings.TrimSpace(deviceSerial); deviceSerial != "" && deviceSerial != t.Serial {
		applog.OpWarn("terminal.serial_mismatch", map[string]any{"terminal_id": t.ID, "sent": deviceSerial, "ip": ip})
		return nil, domain.Unauthenticated("session does not belong to this device")
	}
	shop, m, err := s.owners(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Terminals.Touch(ctx, t.ID, "", ip, false); err != nil {
		applog.OpError("terminal.touch", err, map[string]any{"terminal_id": t.ID})
	}
	return &domain.Principal{
		Kind:       domain.PrincipalTerminal,
		Actor:      "terminal:" + t.Serial,
		MerchantID: m.ID,
		ShopID:     shop.ID,
		TerminalID: t.ID,
		Legacy:     t.LegacyClient,
		TokenID:    strconv.FormatInt(sess.ID, 10),
		Scope:      domain.TerminalScope(m.ID, shop.ID),
	}, nil
}

func (s *TerminalService) Logout(ctx context.Context, p *domain.Principal) error {
	if err := requireTerminal(p); err != nil {
		return err
	}
	id, err := strconv.ParseInt(p.TokenID, 10, 64)
	if err != nil {
		return domain.Unauthenticated("invalid session")
	}
	if err := s.Store.Sessions.Close(ctx, id); err != nil {
		return err
	}
	applog.Op("terminal.logout", map[string]any{"terminal_id": p.TerminalID})
	return nil
}
