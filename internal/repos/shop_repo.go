package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type ShopRepo struct{ q Querier }

func NewShopRepo(q Querier) *ShopRepo { return &ShopRepo{q: q} }

const shopCols = `id, merchant_id, name, commerce_type, address, active, is_depot, low_stock_threshold, created_at`

// IDsForMerchant feeds the access guard when it builds a merchant scope.
func (r *ShopRepo) IDsForMerchant(ctx context.Context, merchantID int64) ([]int64, error) {
	ids := []int64{}
	err := sel(ctx, r.q, &ids, `SELECT id FROM shops WHERE merchant_id=? ORDER BY id`, merchantID)
	return ids, err
}

func (r *ShopRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Shop, error) {
	where, args := scopeFilter(s, "id")
	var sh domain.Shop
	err := get(ctx, r.q, &sh, `SELECT `+shopCols+` FROM shops WHERE id=? AND `+where, append([]any{id}, args...)...)
	if err != nil {
		return nil, notFound(err, "shop")
	}
	return &sh, nil
}

func (r *ShopRepo) List(ctx context.Context, s domain.Scope) ([]domain.Shop, error) {
	where, args := scopeFilter(s, "id")
	out := []domain.Shop{}
	err := sel(ctx, r.q, &out, `SELECT `+shopCols+` FROM shops WHERE `+where+` ORDER BY merchant_id, is_depot DESC, name`, args...)
	return out, err
}

func (r *ShopRepo) Depot(ctx context.Context, merchantID int64) (*domain.Shop, error) {
	var sh domain.Shop
	if err := get(ctx, r.q, &sh, `SELECT `+shopCols+` FROM shops WHERE merchant_id=? AND is_depot=?`, merchantID, true); err != nil {
		return nil, notFound(err, "depot")
	}
	return &sh, nil
}

// Insert creates a shop; the owning merchant is checked by the caller.
func (r *ShopRepo) Insert(ctx context.Context, sh *domain.Shop) error {
	sh.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO shops(merchant_id, name, commerce_type, address, active, is_depot, low_stock_threshold, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.MerchantID, sh.Name, sh.CommerceType, sh.Address, sh.Active, sh.IsDepot, sh.LowStockThreshold, sh.CreatedAt)
	if err != nil {
		return err
	}
	sh.ID = id
	return nil
}

func (r *ShopRepo) Update(ctx context.Context, s domain.Scope, sh *domain.Shop) error {
	if err := guard(s, sh.ID); err != nil {
		return err
	}
	_, err := exec(ctx, r.q, `
		UPDATE shops SET name=?, commerce_type=?, address=?, active=?, is_depot=?, low_stock_threshold=?
		WHERE id=?`,
		sh.Name, sh.CommerceType, sh.Address, sh.Active, sh.IsDepot, sh.LowStockThreshold, sh.ID)
	return err
}
