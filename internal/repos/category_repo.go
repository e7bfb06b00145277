package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type CategoryRepo struct{ q Querier }

func NewCategoryRepo(q Querier) *CategoryRepo { return &CategoryRepo{q: q} }

const categoryCols = `id, shop_id, name, description, created_at`

func (r *CategoryRepo) List(ctx context.Context, s domain.Scope) ([]domain.Category, error) {
	where, args := scopeFilter(s, "shop_id")
	out := []domain.Category{}
	err := sel(ctx, r.q, &out, `SELECT `+categoryCols+` FROM categories WHERE `+where+` ORDER BY shop_id, LOWER(name)`, args...)
	return out, err
}

func (r *CategoryRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Category, error) {
	where, args := scopeFilter(s, "shop_id")
	var c domain.Category
	if err := get(ctx, r.q, &c, `SELECT `+categoryCols+` FROM categories WHERE id=? AND `+where, append([]any{id}, args...)...); err != nil {
		return nil, notFound(err, "category")
	}
	return &c, nil
}

func (r *CategoryRepo) ByName(ctx context.Context, s domain.Scope, shopID int64, name string) (*domain.Category, error) {
	if err := guard(s, shopID); err != nil {
		return nil, err
	}
	var c domain.Category
	if err := get(ctx, r.q, &c, `SELECT `+categoryCols+` FROM categories WHERE shop_id=? AND name=?`, shopID, name); err != nil {
		return nil, notFound(err, "category")
	}
	return &c, nil
}

func (r *CategoryRepo) Insert(ctx context.Context, s domain.Scope, c *domain.Category) error {
	if err := guard(s, c.ShopID); err != nil {
		return err
	}
	c.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `INSERT INTO categories(shop_id, name, description, created_at) VALUES(?, ?, ?, ?)`,
		c.ShopID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
