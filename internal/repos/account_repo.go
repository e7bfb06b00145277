package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

// AccountRepo stores operator logins and revoked bearer tokens.
type AccountRepo struct{ q Querier }

func NewAccountRepo(q Querier) *AccountRepo { return &AccountRepo{q: q} }

func (r *AccountRepo) OperatorByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var a domain.Account
	err := get(ctx, r.q, &a, `SELECT id, username, password_hash, active FROM operators WHERE LOWER(username)=LOWER(?)`, username)
	if err != nil {
		return nil, notFound(err, "operator")
	}
	return &a, nil
}

func (r *AccountRepo) OperatorByID(ctx context.Context, id int64) (*domain.Account, error) {
	var a domain.Account
	if err := get(ctx, r.q, &a, `SELECT id, username, password_hash, active FROM operators WHERE id=?`, id); err != nil {
		return nil, notFound(err, "operator")
	}
	return &a, nil
}

// EnsureOperator creates the operator if the username is free; existing rows are left untouched.
func (r *AccountRepo) EnsureOperator(ctx context.Context, username, hash string) error {
	_, err := exec(ctx, r.q, `
		INSERT INTO operators(username, password_hash, active, created_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(username) DO NOTHING`, username, hash, true, time.Now().UTC())
	return err
}

func (r *AccountRepo) Revoke(ctx context.Context, jti string, exp time.Time) error {
	_, err := exec(ctx, r.q, `INSERT INTO revoked_tokens(jti, expires_at) VALUES(?, ?) ON CONFLICT(jti) DO NOTHING`, jti, exp.UTC())
	return err
}

func (r *AccountRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := get(ctx, r.q, &n, `SELECT COUNT(*) FROM revoked_tokens WHERE jti=?`, jti); err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeRevoked drops entries whose token has expired anyway.
func (r *AccountRepo) PurgeRevoked(ctx context.Context, now time.Time) (int64, error) {
	return exec(ctx, r.q, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now.UTC())
}
