package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type TerminalRepo struct{ q Querier }

func NewTerminalRepo(q Querier) *TerminalRepo { return &TerminalRepo{q: q} }

const terminalCols = `id, shop_id, serial, name, api_key, active, legacy_client, app_version, last_ip,
	last_seen_at, last_login_at, created_at`

// BySerial is used before any principal exists, so it is not scoped.
func (r *TerminalRepo) BySerial(ctx context.Context, serial string) (*domain.Terminal, error) {
	var t domain.Terminal
	if err := get(ctx, r.q, &t, `SELECT `+terminalCols+` FROM terminals WHERE serial=?`, serial); err != nil {
		return nil, notFound(err, "terminal")
	}
	return &t, nil
}

func (r *TerminalRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Terminal, error) {
	where, args := scopeFilter(s, "shop_id")
	var t domain.Terminal
	if err := get(ctx, r.q, &t, `SELECT `+terminalCols+` FROM terminals WHERE id=? AND `+where, append([]any{id}, args...)...); err != nil {
		return nil, notFound(err, "terminal")
	}
	return &t, nil
}

func (r *TerminalRepo) List(ctx context.Context, s domain.Scope, shopID int64) ([]domain.Terminal, error) {
	if shopID != 0 {
		s = s.Narrow(shopID)
	}
	where, args := scopeFilter(s, "shop_id")
	out := []domain.Terminal{}
	err := sel(ctx, r.q, &out, `SELECT `+terminalCols+` FROM terminals WHERE `+where+` ORDER BY shop_id, name, id`, args...)
	return out, err
}

// ActiveIDs lists the terminals that receive notifications for a shop.
func (r *TerminalRepo) ActiveIDs(ctx context.Context, shopID int64) ([]int64, error) {
	ids := []int64{}
	err := sel(ctx, r.q, &ids, `SELECT id FROM terminals WHERE shop_id=? AND active=? ORDER BY id`, shopID, true)
	return ids, err
}

func (r *TerminalRepo) Insert(ctx context.Context, s domain.Scope, t *domain.Terminal) error {
	if err := guard(s, t.ShopID); err != nil {
		return err
	}
	t.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO terminals(shop_id, serial, name, api_key, active, legacy_client, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ShopID, t.Serial, t.Name, t.APIKey, t.Active, t.LegacyClient, t.CreatedAt)
	if err != nil {
		return err
	}
	t.ID = id
	return nil
}

func (r *TerminalRepo) Update(ctx context.Context, s domain.Scope, t *domain.Terminal) error {
	if err := guard(s, t.ShopID); err != nil {
		return err
	}
	_, err := exec(ctx, r.q, `UPDATE terminals SET name=?, active=?, legacy_client=? WHERE id=?`,
		t.Name, t.Active, t.LegacyClient, t.ID)
	return err
}

// Touch records activity; login also stamps last_login_at and the client version.
func (r *TerminalRepo) Touch(ctx context.Context, id int64, appVersion, ip string, login bool) error {
	now := time.Now().UTC()
	if login {
		_, err := exec(ctx, r.q, `UPDATE terminals SET last_seen_at=?, last_login_at=?, app_version=?, last_ip=? WHERE id=?`,
			now, now, appVersion, ip, id)
		return err
	}
	_, err := exec(ctx, r.q, `UPDATE terminals SET last_seen_at=?, last_ip=? WHERE id=?`, now, ip, id)
	return err
}
