package domain

import (
	"encoding/json"
	"time"
)

type Merchant struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	Rate         Amount    `db:"local_to_usd_rate" json:"local_to_usd_rate"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Shop struct {
	ID                int64        `db:"id" json:"id"`
	MerchantID        int64        `db:"merchant_id" json:"merchant_id"`
	Name              string       `db:"name" json:"name"`
	CommerceType      CommerceType `db:"commerce_type" json:"commerce_type"`
	Address           string       `db:"address" json:"address"`
	Active            bool         `db:"active" json:"active"`
	IsDepot           bool         `db:"is_depot" json:"is_depot"`
	LowStockThreshold int          `db:"low_stock_threshold" json:"low_stock_threshold"`
	CreatedAt         time.Time    `db:"created_at" json:"created_at"`
}

type Category struct {
	ID          int64     `db:"id" json:"id"`
	ShopID      int64     `db:"shop_id" json:"shop_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Article struct {
	ID              int64     `db:"id" json:"id"`
	ShopID          int64     `db:"shop_id" json:"shop_id"`
	CategoryID      *int64    `db:"category_id" json:"category_id"`
	Code            string    `db:"code" json:"code"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	SalePrice       Amount    `db:"sale_price" json:"sale_price"`
	SalePriceUSD    *Amount   `db:"sale_price_usd" json:"sale_price_usd"`
	PurchasePrice   Amount    `db:"purchase_price" json:"purchase_price"`
	Currency        Currency  `db:"currency" json:"currency"`
	StockQty        int       `db:"stock_qty" json:"stock_qty"`
	Active          bool      `db:"active" json:"active"`
	ClientValidated bool      `db:"client_validated" json:"client_validated"`
	QtySentToClient int       `db:"qty_sent_to_client" json:"qty_sent_to_client"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// derived by the list/get queries
	VariantCount       int        `db:"variant_count" json:"-"`
	VariantsTotalStock int        `db:"variants_total_stock" json:"variants_total_stock"`
	Threshold          int        `db:"low_stock_threshold" json:"-"`
	HasVariants        bool       `db:"-" json:"has_variants"`
	State              StockState `db:"-" json:"stock_state"`
}

// Derive fills the computed fields after a load.
func (a *Article) Derive() {
	a.HasVariants = a.VariantCount > 0
	a.State = StateOf(a.StockQty, a.Threshold)
}

// Price returns the unit price in the given currency, falling back to the local price.
func (a *Article) Price(c Currency) Amount {
	if c == CurrencyUSD && a.SalePriceUSD != nil {
		return *a.SalePriceUSD
	}
	return a.SalePrice
}

type Variant struct {
	ID        int64       `db:"id" json:"id"`
	ArticleID int64       `db:"article_id" json:"article_id"`
	Barcode   string      `db:"barcode" json:"barcode"`
	Name      string      `db:"name" json:"name"`
	Kind      VariantKind `db:"kind" json:"kind"`
	StockQty  int         `db:"stock_qty" json:"stock_qty"`
	Active    bool        `db:"active" json:"active"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`

	ShopID int64 `db:"shop_id" json:"shop_id"`
}

type Movement struct {
	ID          int64        `db:"id" json:"id"`
	ArticleID   int64        `db:"article_id" json:"article_id"`
	VariantID   *int64       `db:"variant_id" json:"variant_id,omitempty"`
	ShopID      int64        `db:"shop_id" json:"shop_id"`
	Kind        MovementKind `db:"kind" json:"kind"`
	Qty         int          `db:"qty" json:"qty"`
	StockBefore int          `db:"stock_before" json:"stock_before"`
	StockAfter  int          `db:"stock_after" json:"stock_after"`
	Ref         string       `db:"reference" json:"reference"`
	Actor       string       `db:"actor" json:"actor"`
	Comment     string       `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

type PriceChange struct {
	ID        int64     `db:"id" json:"id"`
	ArticleID int64     `db:"article_id" json:"article_id"`
	ShopID    int64     `db:"shop_id" json:"shop_id"`
	Before    Amount    `db:"price_before" json:"before"`
	After     Amount    `db:"price_after" json:"after"`
	Currency  Currency  `db:"currency" json:"currency"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Sale struct {
	ID            int64       `db:"id" json:"id"`
	MerchantID    int64       `db:"merchant_id" json:"merchant_id"`
	ShopID        int64       `db:"shop_id" json:"shop_id"`
	TerminalID    *int64      `db:"terminal_id" json:"terminal_id"`
	UID           string      `db:"uid" json:"uid"`
	InvoiceNumber string      `db:"invoice_number" json:"invoice_number"`
	SoldAt        time.Time   `db:"sold_at" json:"date"`
	Currency      Currency    `db:"currency" json:"currency"`
	TotalLocal    Amount      `db:"total_local" json:"total_local"`
	TotalUSD      Amount      `db:"total_usd" json:"total_usd"`
	Rate          Amount      `db:"rate" json:"rate"`
	Paid          bool        `db:"paid" json:"paid"`
	PaymentMode   PaymentMode `db:"payment_mode" json:"payment_mode"`
	Cancelled     bool        `db:"cancelled" json:"cancelled"`
	CancelledAt   *time.Time  `db:"cancelled_at" json:"cancelled_at,omitempty"`
	ClientIP      string      `db:"client_ip" json:"client_ip"`
	AppVersion    string      `db:"app_version" json:"app_version"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`

	Lines []SaleLine `db:"-" json:"lines,omitempty"`
}

// Total is the sale total in the sale currency.
func (s *Sale) Total() Money {
	if s.Currency == CurrencyUSD {
		return Money{Amount: s.TotalUSD, Currency: CurrencyUSD}
	}
	return Money{Amount: s.TotalLocal, Currency: CurrencyLocal}
}

type SaleLine struct {
	ID           int64   `db:"id" json:"id"`
	SaleID       int64   `db:"sale_id" json:"sale_id"`
	Position     int     `db:"position" json:"position"`
	ArticleID    int64   `db:"article_id" json:"article_id"`
	VariantID    *int64  `db:"variant_id" json:"variant_id,omitempty"`
	Qty          int     `db:"qty" json:"qty"`
	UnitPrice    Amount  `db:"unit_price" json:"unit_price"`
	UnitPriceUSD *Amount `db:"unit_price_usd" json:"unit_price_usd,omitempty"`
	ListPrice    Amount  `db:"list_price" json:"list_price"`
	Negotiated   bool    `db:"negotiated" json:"negotiated"`
	LineTotal    Amount  `db:"line_total" json:"line_total"`
}

type RejectedSale struct {
	ID          int64        `db:"id" json:"id"`
	ShopID      int64        `db:"shop_id" json:"shop_id"`
	TerminalID  *int64       `db:"terminal_id" json:"terminal_id"`
	UID         string       `db:"uid" json:"uid"`
	Payload     string       `db:"payload" json:"-"`
	Reason      RejectReason `db:"reason" json:"reason"`
	Message     string       `db:"message" json:"message"`
	ArticleID   *int64       `db:"article_id" json:"article_id,omitempty"`
	ArticleName string       `db:"article_name" json:"article_name,omitempty"`
	Requested   *int         `db:"requested" json:"requested,omitempty"`
	Available   *int         `db:"available" json:"available,omitempty"`
	Handled     bool         `db:"handled" json:"handled"`
	HandledAt   *time.Time   `db:"handled_at" json:"handled_at,omitempty"`
	Notes       string       `db:"notes" json:"notes"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// MarshalJSON exposes the stored submission without re-encoding it.
func (r RejectedSale) MarshalJSON() ([]byte, error) {
	type alias RejectedSale
	var payload json.RawMessage
	if json.Valid([]byte(r.Payload)) {
		payload = json.RawMessage(r.Payload)
	}
	return json.Marshal(struct {
		alias
		Payload json.RawMessage `json:"payload,omitempty"`
	}{alias(r), payload})
}

type Transfer struct {
	ID           int64          `db:"id" json:"id"`
	MerchantID   int64          `db:"merchant_id" json:"merchant_id"`
	SourceShopID int64          `db:"source_shop_id" json:"source_shop_id"`
	DestShopID   int64          `db:"dest_shop_id" json:"dest_shop_id"`
	Status       TransferStatus `db:"status" json:"status"`
	Reference    string         `db:"reference" json:"reference"`
	Actor        string         `db:"actor" json:"actor"`
	Comment      string         `db:"comment" json:"comment"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	ValidatedAt  *time.Time     `db:"validated_at" json:"validated_at,omitempty"`
	CancelledAt  *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`

	Lines []TransferLine `db:"-" json:"lines"`
}

type TransferLine struct {
	ID              int64  `db:"id" json:"id"`
	TransferID      int64  `db:"transfer_id" json:"transfer_id"`
	Position        int    `db:"position" json:"position"`
	SourceArticleID int64  `db:"source_article_id" json:"source_article_id"`
	DestArticleID   *int64 `db:"dest_article_id" json:"dest_article_id,omitempty"`
	Code            string `db:"code" json:"code"`
	Qty             int    `db:"qty" json:"qty"`
}

type Terminal struct {
	ID           int64      `db:"id" json:"id"`
	ShopID       int64      `db:"shop_id" json:"shop_id"`
	Serial       string     `db:"serial" json:"serial"`
	Name         string     `db:"name" json:"name"`
	APIKey       string     `db:"api_key" json:"-"`
	Active       bool       `db:"active" json:"active"`
	LegacyClient bool       `db:"legacy_client" json:"legacy_client"`
	AppVersion   string     `db:"app_version" json:"app_version"`
	LastIP       string     `db:"last_ip" json:"last_ip"`
	LastSeenAt   *time.Time `db:"last_seen_at" json:"last_seen_at,omitempty"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

type Session struct {
	ID         int64      `db:"id"`
	TerminalID int64      `db:"terminal_id"`
	TokenHash  string     `db:"token_hash"`
	IP         string     `db:"ip"`
	UserAgent  string     `db:"user_agent"`
	StartedAt  time.Time  `db:"started_at"`
	EndedAt    *time.Time `db:"ended_at"`
	Active     bool       `db:"active"`
}

type Notification struct {
	ID          int64            `db:"id" json:"id"`
	TerminalID  int64            `db:"terminal_id" json:"terminal_id"`
	ShopID      int64            `db:"shop_id" json:"shop_id"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	ArticleID   *int64           `db:"article_id" json:"article_id,omitempty"`
	MovementID  *int64           `db:"movement_id" json:"movement_id,omitempty"`
	QtyDelta    *int             `db:"qty_delta" json:"quantity_delta,omitempty"`
	StockBefore *int             `db:"stock_before" json:"stock_before,omitempty"`
	StockAfter  *int             `db:"stock_after" json:"stock_after,omitempty"`
	Read        bool             `db:"is_read" json:"read"`
	ReadAt      *time.Time       `db:"read_at" json:"read_at,omitempty"`
	Payload     string           `db:"payload" json:"-"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	details := json.RawMessage("{}")
	if n.Payload != "" && json.Valid([]byte(n.Payload)) {
		details = json.RawMessage(n.Payload)
	}
	return json.Marshal(struct {
		alias
		Details json.RawMessage `json:"details"`
	}{alias(n), details})
}

// Account is a platform operator login.
type Account struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	Active       bool   `db:"active"`
}
