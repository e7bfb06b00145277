package repos

import (
	"context"
	"time"

	"stockpos/internal/domain"
)

type SaleRepo struct{ q Querier }

func NewSaleRepo(q Querier) *SaleRepo { return &SaleRepo{q: q} }

const saleCols = `id, merchant_id, shop_id, terminal_id, uid, invoice_number, sold_at, currency, total_local, total_usd,
	rate, paid, payment_mode, cancelled, cancelled_at, client_ip, app_version, created_at`

const saleLineCols = `id, sale_id, position, article_id, variant_id, qty, unit_price, unit_price_usd, list_price, negotiated, line_total`

type SaleFilter struct {
	ShopID   int64
	From, To *time.Time
	Page     int
	Size     int
}

// ByUID is the idempotence probe; it reads the sale without lines.
func (r *SaleRepo) ByUID(ctx context.Context, shopID int64, uid string) (*domain.Sale, error) {
	var s domain.Sale
	if err := get(ctx, r.q, &s, `SELECT `+saleCols+` FROM sales WHERE shop_id=? AND uid=?`, shopID, uid); err != nil {
		return nil, notFound(err, "sale")
	}
	return &s, nil
}

func (r *SaleRepo) InvoiceTaken(ctx context.Context, merchantID int64, invoice string) (bool, error) {
	var n int
	err := get(ctx, r.q, &n, `SELECT COUNT(*) FROM sales WHERE merchant_id=? AND invoice_number=?`, merchantID, invoice)
	return n > 0, err
}

func (r *SaleRepo) Get(ctx context.Context, s domain.Scope, id int64) (*domain.Sale, error) {
	where, args := scopeFilter(s, "shop_id")
	var sale domain.Sale
	if err := get(ctx, r.q, &sale, `SELECT `+saleCols+` FROM sales WHERE id=? AND `+where, append([]any{id}, args...)...); err != nil {
		return nil, notFound(err, "sale")
	}
	lines := []domain.SaleLine{}
	if err := sel(ctx, r.q, &lines, `SELECT `+saleLineCols+` FROM sale_lines WHERE sale_id=? ORDER BY position`, id); err != nil {
		return nil, err
	}
	sale.Lines = lines
	return &sale, nil
}

func (r *SaleRepo) List(ctx context.Context, s domain.Scope, f SaleFilter) ([]domain.Sale, int, error) {
	if f.ShopID != 0 {
		s = s.Narrow(f.ShopID)
	}
	where, args := scopeFilter(s, "shop_id")
	if f.From != nil {
		where += ` AND sold_at >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where += ` AND sold_at <= ?`
		args = append(args, f.To.UTC())
	}
	var total int
	if err := get(ctx, r.q, &total, `SELECT COUNT(*) FROM sales WHERE `+where, args...); err != nil {
		return nil, 0, err
	}
	out := []domain.Sale{}
	err := sel(ctx, r.q, &out, `SELECT `+saleCols+` FROM sales WHERE `+where+` ORDER BY sold_at DESC, id DESC`+pageClause(f.Page, f.Size), args...)
	return out, total, err
}

// Insert writes the sale and its lines. Lines are renumbered from 1 in slice order.
func (r *SaleRepo) Insert(ctx context.Context, s domain.Scope, sale *domain.Sale) error {
	if err := guard(s, sale.ShopID); err != nil {
		return err
	}
	sale.CreatedAt = time.Now().UTC()
	id, err := insert(ctx, r.q, `
		INSERT INTO sales(merchant_id, shop_id, terminal_id, uid, invoice_number, sold_at, currency, total_local,
		                  total_usd, rate, paid, payment_mode, cancelled, client_ip, app_version, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.MerchantID, sale.ShopID, sale.TerminalID, sale.UID, sale.InvoiceNumber, sale.SoldAt.UTC(), sale.Currency,
		sale.TotalLocal, sale.TotalUSD, sale.Rate, sale.Paid, sale.PaymentMode, false, sale.ClientIP, sale.AppVersion,
		sale.CreatedAt)
	if err != nil {
		return err
	}
	sale.ID = id
	for i := range sale.Lines {
		l := &sale.Lines[i]
		l.SaleID, l.Position = id, i+1
		lid, err := insert(ctx, r.q, `
			INSERT INTO sale_lines(sale_id, position, article_id, variant_id, qty, unit_price, unit_price_usd,
			                       list_price, negotiated, line_total)
			VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.SaleID, l.Position, l.ArticleID, l.VariantID, l.Qty, l.UnitPrice, l.UnitPriceUSD,
			l.ListPrice, l.Negotiated, l.LineTotal)
		if err != nil {
			return err
		}
		l.ID = lid
	}
	return nil
}

// MarkCancelled flips the flag once; a second call reports false.
func (r *SaleRepo) MarkCancelled(ctx context.Context, s domain.Scope, sale *domain.Sale, at time.Time) (bool, error) {
	if err := guard(s, sale.ShopID); err != nil {
		return false, err
	}
	n, err := exec(ctx, r.q, `UPDATE sales SET cancelled=?, cancelled_at=? WHERE id=? AND cancelled=?`, true, at.UTC(), sale.ID, false)
	return n == 1, err
}
