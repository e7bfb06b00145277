package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"stockpos/internal/domain"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

// AuthService issues bearer tokens to merchants and operators and resolves
// every incoming credential into a Principal.
type AuthService struct {
	Store     *repos.Store
	Terminals *TerminalService
	Secret    []byte
	TTL       time.Duration
	Now       func() time.Time
}

func NewAuthService(store *repos.Store, terminals *TerminalService, secret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{Store: store, Terminals: terminals, Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

type Credentials struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type Token struct {
	Token     string               `json:"token"`
	Kind      domain.PrincipalKind `json:"kind"`
	ExpiresAt time.Time            `json:"expires_at"`
}

type claims struct {
	Role domain.PrincipalKind `json:"role"`
	jwt.RegisteredClaims
}

func badCredentials() error { return domain.Unauthenticated("invalid username or password") }

func (s *AuthService) MerchantLogin(ctx context.Context, c Credentials) (*Token, error) {
	if err := validate.Struct(c); err != nil {
		return nil, err
	}
	m, err := s.Store.Merchants.ByUsername(ctx, strings.TrimSpace(c.Username))
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, badCredentials()
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(c.Password)) != nil {
		return nil, badCredentials()
	}
	if !m.Active {
		return nil, domain.Inactive("merchant")
	}
	return s.issue(domain.PrincipalMerchant, m.ID)
}

func (s *AuthService) OperatorLogin(ctx context.Context, c Credentials) (*Token, error) {
	if err := validate.Struct(c); err != nil {
		return nil, err
	}
	a, err := s.Store.Accounts.OperatorByUsername(ctx, strings.TrimSpace(c.Username))
	if domain.IsKind(err, domain.KindNotFound) {
		return nil, badCredentials()
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(c.Password)) != nil {
		return nil, badCredentials()
	}
	if !a.Active {
		return nil, domain.Inactive("operator")
	}
	return s.issue(domain.PrincipalOperator, a.ID)
}

func (s *AuthService) issue(kind domain.PrincipalKind, id int64) (*Token, error) {
	now := s.Now()
	exp := now.Add(s.TTL)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return nil, err
	}
	return &Token{Token: signed, Kind: kind, ExpiresAt: exp.UTC()}, nil
}

// Resolve turns a bearer credential into a Principal. JWTs belong to merchants
// and operators; anything else is looked up as a terminal session token.
func (s *AuthService) Resolve(ctx context.Context, bearer, deviceSerial, ip string) (*domain.Principal, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, domain.Unauthenticated("missing bearer token")
	}
	if strings.Count(bearer, ".") == 2 {
		return s.resolveJWT(ctx, bearer)
	}
	return s.Terminals.VerifySession(ctx, bearer, deviceSerial, ip)
}

func (s *AuthService) resolveJWT(ctx context.Context, raw string) (*domain.Principal, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.Now),
	)
	if err != nil || !tok.Valid {
		return nil, domain.Unauthenticated("invalid or expired token")
	}
	revoked, err := s.Store.Accounts.IsRevoked(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, domain.Unauthenticated("token has been revoked")
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return nil, domain.Unauthenticated("invalid token subject")
	}

	switch c.Role {
	case domain.PrincipalOperator:
		a, err := s.Store.Accounts.OperatorByID(ctx, id)
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Unauthenticated("unknown operator")
		}
		if err != nil {
			return nil, err
		}
		if !a.Active {
			return nil, domain.Inactive("operator")
		}
		return &domain.Principal{
			Kind: domain.PrincipalOperator, Actor: "operator:" + a.Username, AccountID: a.ID,
			TokenID: c.ID, Scope: domain.OperatorScope(),
		}, nil
	case domain.PrincipalMerchant:
		m, err := s.Store.Merchants.Get(ctx, id)
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.Unauthenticated("unknown merchant")
		}
		if err != nil {
			return nil, err
		}
		if !m.Active {
			return nil, domain.Inactive("merchant")
		}
		shops, err := s.Store.Shops.IDsForMerchant(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		return &domain.Principal{
			Kind: domain.PrincipalMerchant, Actor: "merchant:" + m.Username, MerchantID: m.ID,
			TokenID: c.ID, Scope: domain.MerchantScope(m.ID, shops),
		}, nil
	}
	return nil, domain.Unauthenticated("invalid token role")
}

// Logout revokes a bearer token or closes the terminal session.
func (s *AuthService) Logout(ctx context.Context, p *domain.Principal) error {
	if p == nil {
		return domain.Unauthenticated("missing credentials")
	}
	if p.IsTerminal() {
		return s.Terminals.Logout(ctx, p)
	}
	if err := s.Store.Accounts.Revoke(ctx, p.TokenID, s.Now().Add(s.TTL)); err != nil {
		return err
	}
	applog.Op("auth.logout", map[string]any{"actor": p.Actor})
	return nil
}

// PurgeRevoked drops revocations of tokens that have expired anyway.
func (s *AuthService) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.Store.Accounts.PurgeRevoked(ctx, s.Now())
}
