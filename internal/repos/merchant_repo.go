package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type MerchantRepo struct{ q Querier }

func NewMerchantRepo(q Querier) *MerchantRepo { return &MerchantRepo{q: q} }

const merchantCols = `id, name, phone, email, username, password_hash, active, local_to_usd_rate, created_at`

func (r *MerchantRepo) Get(ctx context.Context, id int64) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := get(ctx, r.q, &m, `SELECT `+merchantCols+` FROM merchants WHERE id=?`, id); err != nil {
		return nil, notFound(err, "merchant")
	}
	return &m, nil
}

func (r *MerchantRepo) ByUsername(ctx context.Context, username string) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := get(ctx, r.q, &m, `SELECT `+merchantCols+` FROM merchants WHERE LOWER(username)=LOWER(?)`, username); err != nil {
		return nil, notFound(err, "merchant")
	}
	return &m, nil
}

// List is only reachable by operators.
func (r *MerchantRepo) List(ctx context.Context, page, size int) ([]domain.Merchant, int, error) {
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM merchants`); err != nil {
		return nil, 0, err
	}
	out := []domain.Merchant{}
	err := sel(ctx, r.q, &out, `SELECT `+merchantCols+` FROM merchants ORDER BY name, id`+pageClause(page, size))
	return out, total, err
}

func (r *MerchantRepo) Insert(ctx context.Context, m *domain.Merchant) error {
	m.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO merchants(name, phone, email, username, password_hash, active, local_to_usd_rate, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Phone, m.Email, m.Username, m.PasswordHash, m.Active, m.Rate, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (r *MerchantRepo) SetActive(ctx context.Context, id int64, active bool) error {
	n, err := exec(ctx, r.q, `UPDATE merchants SET active=? WHERE id=?`, active, id)
	if err == nil && n == 0 {
		return domain.NotFound("merchant")
	}
	return err
}

func (r *MerchantRepo) SetRate(ctx context.Context, id int64, rate domain.Amount) error {
	n, err := exec(ctx, r.q, `UPDATE merchants SET local_to_usd_rate=? WHERE id=?`, rate, id)
	if err == nil && n == 0 {
		return domain.NotFound("merchant")
	}
	return err
}
