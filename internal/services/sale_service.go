package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockpos/internal/domain"
	"stockpos/internal/lock"
	applog "stockpos/internal/log"
	"stockpos/internal/repos"
	"stockpos/internal/validate"
)

const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
	StatusDuplicate = "duplicate"
)

// MaxBatch bounds one batch submission.
const MaxBatch = 500

type SaleService struct {
	Store    *repos.Store
	Stock    *StockService
	Obs      Observer
	Locks    lock.Locker
	Invoices InvoiceFormatter
	Loc      *time.Location
	// CancelWindow is how long after submission a terminal may cancel its own sale.
	CancelWindow time.Duration
	Now          func() time.Time
}

func NewSaleService(store *repos.Store, stock *StockService, obs Observer, locks lock.Locker, loc *time.Location) *SaleService {
	if locks == nil {
		locks = lock.NewLocal()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SaleService{
		Store: store, Stock: stock, Obs: obs, Locks: locks, Loc: loc,
		Invoices: DefaultInvoiceFormat, CancelWindow: time.Hour, Now: time.Now,
	}
}

type SaleInput struct {
	UID           string             `json:"uid" validate:"required,max=64"`
	InvoiceNumber string             `json:"invoice_number" validate:"max=64"`
	Date          string             `json:"date"`
	Currency      domain.Currency    `json:"currency"`
	PaymentMode   domain.PaymentMode `json:"payment_mode"`
	Paid          *bool              `json:"paid"`
	Total         *domain.Amount     `json:"total"`
	TotalLocal    *domain.Amount     `json:"total_local"`
	TotalUSD      *domain.Amount     `json:"total_usd"`
	Lines         []SaleLineInput    `json:"lines" validate:"required,min=1"`
}

type SaleLineInput struct {
	ArticleID    int64          `json:"article_id"`
	Barcode      string         `json:"barcode"`
	Qty          int            `json:"qty"`
	UnitPrice    domain.Amount  `json:"unit_price"`
	UnitPriceUSD *domain.Amount `json:"unit_price_usd"`
	LineTotal    *domain.Amount `json:"line_total"`
}

type ClientMeta struct {
	IP         string
	AppVersion string
}

// Outcome is what a terminal gets back for one submitted sale.
type Outcome struct {
	UID           string              `json:"uid"`
	Status        string              `json:"status"`
	InvoiceNumber string              `json:"invoice_number,omitempty"`
	SaleID        int64               `json:"sale_id,omitempty"`
	Reason        domain.RejectReason `json:"reason,omitempty"`
	Message       string              `json:"message,omitempty"`
	ArticleID     *int64              `json:"article_id,omitempty"`
	Available     *int                `json:"available,omitempty"`
	Requested     *int                `json:"requested,omitempty"`
}

func decodeSale(raw json.RawMessage) (SaleInput, error) {
	var in SaleInput
	if err := json.Unmarshal(raw, &in); err != nil {
		// keep the uid so the rejection can still be keyed
		var probe struct {
			UID string `json:"uid"`
		}
		_ = json.Unmarshal(raw, &probe)
		return SaleInput{UID: strings.TrimSpace(probe.UID)}, domain.Invalid("malformed sale: %v", err)
	}
	in.UID = strings.TrimSpace(in.UID)
	return in, nil
}

// Submit runs one sale through the pipeline. The error is only set when the
// caller may not submit sales at all; every other failure is an Outcome.
func (s *SaleService) Submit(ctx context.Context, p *domain.Principal, raw json.RawMessage, meta ClientMeta) (Outcome, error) {
	if err := requireTerminal(p); err != nil {
		return Outcome{}, err
	}
	ctx, span := tracer.Start(ctx, "sale.submit", trace.WithAttributes(attribute.Int64("shop_id", p.ShopID)))
	defer span.End()

	in, decodeErr := decodeSale(raw)
	span.SetAttributes(attribute.String("uid", in.UID))
	if in.UID == "" {
		return Outcome{Status: StatusRejected, Reason: domain.RejectValidationFailed, Message: "uid is required"}, nil
	}

	release, err := s.Locks.Acquire(ctx, fmt.Sprintf("sale:%d:%s", p.ShopID, in.UID))
	if err != nil {
		applog.OpError("sale.lock.failed", err, map[string]any{"uid": in.UID, "shop_id": p.ShopID})
		return busy(in.UID), nil
	}
	defer release()

	if out, ok, err := s.existing(ctx, p.ShopID, in.UID); err != nil {
		applog.OpError("sale.lookup.failed", err, map[string]any{"uid": in.UID, "shop_id": p.ShopID})
		return busy(in.UID), nil
	} else if ok {
		return out, nil
	}

	if decodeErr == nil {
		decodeErr = validate.Struct(in)
	}
	if decodeErr != nil {
		return s.reject(ctx, p, in.UID, raw, decodeErr), nil
	}

	sale, err := s.commit(ctx, p, in, meta)
	if err == nil {
		applog.Op("sale.committed", map[string]any{
			"uid": sale.UID, "invoice": sale.InvoiceNumber, "shop_id": sale.ShopID,
			"terminal": p.Actor, "total": sale.Total().Amount, "currency": sale.Currency,
		})
		return Outcome{UID: sale.UID, Status: StatusCommitted, InvoiceNumber: sale.InvoiceNumber, SaleID: sale.ID}, nil
	}
	if errors.Is(err, repos.ErrDuplicate) {
		if out, ok, _ := s.existing(ctx, p.ShopID, in.UID); ok {
			return out, nil
		}
		err = domain.Invalid("invoice number %q is already used", in.InvoiceNumber)
	}
	return s.reject(ctx, p, in.UID, raw, err), nil
}

// SubmitBatch processes sales in order; one failure never affects the others.
func (s *SaleService) SubmitBatch(ctx context.Context, p *domain.Principal, raws []json.RawMessage, meta ClientMeta) ([]Outcome, error) {
	if err := requireTerminal(p); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, domain.Invalid("batch is empty")
	}
	if len(raws) > MaxBatch {
		return nil, domain.Invalid("batch holds %d sales, the limit is %d", len(raws), MaxBatch)
	}
	out := make([]Outcome, 0, len(raws))
	for _, raw := range raws {
		o, err := s.Submit(ctx, p, raw, meta)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func busy(uid string) Outcome {
	return Outcome{UID: uid, Status: StatusRejected, Reason: domain.RejectInternalError, Message: "sale could not be processed, retry later"}
}

func (s *SaleService) existing(ctx context.Context, shopID int64, uid string) (Outcome, bool, error) {
	sale, err := s.Store.Sales.ByUID(ctx, shopID, uid)
	if err == nil {
		return Outcome{UID: uid, Status: StatusDuplicate, InvoiceNumber: sale.InvoiceNumber, SaleID: sale.ID}, true, nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return Outcome{}, false, err
	}
	rs, err := s.Store.Rejected.ByUID(ctx, shopID, uid)
	if err == nil {
		return rejectedOutcome(*rs), true, nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return Outcome{}, false, err
	}
	return Outcome{}, false, nil
}

func rejectedOutcome(rs domain.RejectedSale) Outcome {
	return Outcome{
		UID: rs.UID, Status: StatusRejected, Reason: rs.Reason, Message: rs.Message,
		ArticleID: rs.ArticleID, Available: rs.Available, Requested: rs.Requested,
	}
}

type lineRef struct {
	in      SaleLineInput
	article *domain.Article
	variant *domain.Variant
}

func (s *SaleService) commit(ctx context.Context, p *domain.Principal, in SaleInput, meta ClientMeta) (*domain.Sale, error) {
	soldAt, err := s.parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	cur := in.Currency
	if cur == "" {
		cur = domain.CurrencyLocal
	}
	mode := in.PaymentMode
	if mode == "" {
		mode = domain.PayCash
	}

	var sale *domain.Sale
	err = s.Store.Tx(ctx, func(r *repos.Repos) error {
		shop, err := r.Shops.Get(ctx, p.Scope, p.ShopID)
		if err != nil {
			return err
		}
		merchant, err := r.Merchants.Get(ctx, shop.MerchantID)
		if err != nil {
			return err
		}
		shopIDs, err := r.Shops.IDsForMerchant(ctx, merchant.ID)
		if err != nil {
			return err
		}
		wide := domain.MerchantScope(merchant.ID, shopIDs)

		lines := make([]lineRef, len(in.Lines))
		for i, l := range in.Lines {
			a, v, err := s.resolve(ctx, r, p, wide, i+1, l, cur)
			if err != nil {
				return err
			}
			if a.ShopID != p.ShopID {
				return domain.Invalid("line %d: article %d belongs to another shop", i+1, a.ID).With("article_id", a.ID)
			}
			lines[i] = lineRef{in: l, article: a, variant: v}
		}

		if shop.IsDepot {
			return domain.E(domain.KindShopIsDepot, "shop %s is a depot and cannot sell", shop.Name)
		}
		for i, l := range lines {
			if l.in.Qty < 1 {
				return domain.Invalid("line %d: qty must be at least 1", i+1).With("line", i+1)
			}
			if !l.in.UnitPrice.IsPositive() {
				return domain.Invalid("line %d: unit_price must be positive", i+1).With("line", i+1)
			}
		}
		for i, l := range lines {
			a := l.article
			if !a.Active || !a.ClientValidated {
				return domain.E(domain.KindUnknownArticle, "line %d: article %s is not available for sale", i+1, a.Code).
					With("article_id", a.ID).With("article_name", a.Name)
			}
			if l.variant != nil && !l.variant.Active {
				return domain.E(domain.KindInactiveArticle, "line %d: variant %s is inactive", i+1, l.variant.Barcode).
					With("article_id", a.ID).With("article_name", a.Name)
			}
		}

		invoice := strings.TrimSpace(in.InvoiceNumber)
		if invoice != "" {
			taken, err := r.Sales.InvoiceTaken(ctx, merchant.ID, invoice)
			if err != nil {
				return err
			}
			if taken {
				return domain.Invalid("invoice number %q is already used", invoice).With("field", "invoice_number")
			}
		} else if invoice, err = nextInvoice(ctx, r, s.Invoices, merchant.ID); err != nil {
			return err
		}

		for _, l := range lines {
			var vid *int64
			if l.variant != nil {
				id := l.variant.ID
				vid = &id
			}
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: l.article.ID, VariantID: vid, Kind: domain.MoveSale, Qty: l.in.Qty,
				Ref: invoice, Actor: p.Actor,
			}); err != nil {
				return err
			}
		}

		sale, err = s.build(p, merchant, in, lines, cur)
		if err != nil {
			return err
		}
		sale.InvoiceNumber, sale.SoldAt, sale.PaymentMode = invoice, soldAt, mode
		sale.ClientIP, sale.AppVersion = meta.IP, meta.AppVersion
		return r.Sales.Insert(ctx, p.Scope, sale)
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// resolve finds a line's article by id, then by barcode, then (legacy clients
// only) by a unique price match.
func (s *SaleService) resolve(ctx context.Context, r *repos.Repos, p *domain.Principal, wide domain.Scope, n int, l SaleLineInput, cur domain.Currency) (*domain.Article, *domain.Variant, error) {
	if l.ArticleID > 0 {
		a, err := r.Articles.Get(ctx, wide, l.ArticleID)
		if err == nil {
			return a, nil, nil
		}
		if !domain.IsKind(err, domain.KindNotFound) {
			return nil, nil, err
		}
	}
	if code := strings.TrimSpace(l.Barcode); code != "" {
		a, err := r.Articles.ByCode(ctx, p.Scope, p.ShopID, code)
		if err == nil {
			return a, nil, nil
		}
		if !domain.IsKind(err, domain.KindNotFound) {
			return nil, nil, err
		}
		v, err := r.Variants.ByBarcode(ctx, wide, code)
		if err == nil {
			a, err := r.Articles.Get(ctx, wide, v.ArticleID)
			return a, v, err
		}
		if !domain.IsKind(err, domain.KindNotFound) {
			return nil, nil, err
		}
	}
	if p.Legacy && l.UnitPrice.IsPositive() {
		cands, err := r.Articles.ByPrice(ctx, p.Scope, p.ShopID, l.UnitPrice, cur == domain.CurrencyUSD)
		if err != nil {
			return nil, nil, err
		}
		if len(cands) == 1 {
			applog.OpWarn("sale.line.price_match", map[string]any{
				"terminal": p.Actor, "line": n, "sent_article_id": l.ArticleID,
				"article_id": cands[0].ID, "unit_price": l.UnitPrice,
			})
			return &cands[0], nil, nil
		}
	}
	return nil, nil, domain.E(domain.KindUnknownArticle, "line %d: article could not be resolved", n).With("line", n)
}

func (s *SaleService) build(p *domain.Principal, m *domain.Merchant, in SaleInput, lines []lineRef, cur domain.Currency) (*domain.Sale, error) {
	sum := domain.Amount{}
	out := make([]domain.SaleLine, len(lines))
	for i, l := range lines {
		total := l.in.UnitPrice.Times(l.in.Qty)
		if l.in.LineTotal != nil {
			if !l.in.LineTotal.Within(total, domain.Tolerance) {
				return nil, domain.Invalid("line %d: line_total %s does not match %d x %s", i+1, l.in.LineTotal, l.in.Qty, l.in.UnitPrice).
					With("line", i+1)
			}
			total = *l.in.LineTotal
		}
		sum = sum.Add(total)

		list, err := listPrice(l.article, cur, m.Rate)
		if err != nil {
			return nil, err
		}
		negotiated := !l.in.UnitPrice.Within(list, domain.Tolerance)
		if negotiated {
			applog.Op("sale.line.negotiated", map[string]any{
				"uid": in.UID, "article_id": l.article.ID, "list_price": list, "unit_price": l.in.UnitPrice, "terminal": p.Actor,
			})
		}
		unitUSD := l.in.UnitPriceUSD
		if cur == domain.CurrencyUSD {
			u := l.in.UnitPrice
			unitUSD = &u
		}
		line := domain.SaleLine{
			ArticleID: l.article.ID, Qty: l.in.Qty, UnitPrice: l.in.UnitPrice, UnitPriceUSD: unitUSD,
			ListPrice: list, Negotiated: negotiated, LineTotal: total,
		}
		if l.variant != nil {
			id := l.variant.ID
			line.VariantID = &id
		}
		out[i] = line
	}

	declared := in.Total
	if declared == nil && cur == domain.CurrencyLocal {
		declared = in.TotalLocal
	}
	if declared == nil && cur == domain.CurrencyUSD {
		declared = in.TotalUSD
	}
	total := sum
	if declared != nil {
		if !declared.Within(sum, domain.Tolerance) {
			return nil, domain.Invalid("total %s does not match the sum of lines %s", declared, sum).
				With("total", *declared).With("lines_total", sum)
		}
		total = *declared
	}

	sale := &domain.Sale{
		MerchantID: m.ID, ShopID: p.ShopID, UID: in.UID, Currency: cur, Rate: m.Rate, Paid: true, Lines: out,
	}
	tid := p.TerminalID
	sale.TerminalID = &tid
	if in.Paid != nil {
		sale.Paid = *in.Paid
	}
	money := domain.Money{Amount: total, Currency: cur}
	if cur == domain.CurrencyUSD {
		sale.TotalUSD = total
		if in.TotalLocal != nil {
			sale.TotalLocal = *in.TotalLocal
		} else {
			local, err := money.Convert(domain.CurrencyLocal, m.Rate)
			if err != nil {
				return nil, err
			}
			sale.TotalLocal = local.Amount
		}
	} else {
		sale.TotalLocal = total
		if in.TotalUSD != nil {
			sale.TotalUSD = *in.TotalUSD
		} else {
			usd, err := money.Convert(domain.CurrencyUSD, m.Rate)
			if err != nil {
				return nil, err
			}
			sale.TotalUSD = usd.Amount
		}
	}
	return sale, nil
}

func listPrice(a *domain.Article, cur domain.Currency, rate domain.Amount) (domain.Amount, error) {
	if cur != domain.CurrencyUSD {
		return a.SalePrice, nil
	}
	if a.SalePriceUSD != nil {
		return *a.SalePriceUSD, nil
	}
	usd, err := domain.Money{Amount: a.SalePrice, Currency: domain.CurrencyLocal}.Convert(domain.CurrencyUSD, rate)
	return usd.Amount, err
}

var naiveLayouts = []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts RFC 3339. Input without an offset is read in the server timezone.
func (s *SaleService) parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return s.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, v, s.Loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, domain.Invalid("date %q is not an ISO-8601 timestamp", v).With("field", "date")
}

// reject stores the rejection in its own transaction so it survives the
// rollback of the sale, then notifies the submitting terminal.
func (s *SaleService) reject(ctx context.Context, p *domain.Principal, uid string, raw json.RawMessage, cause error) Outcome {
	de, ok := domain.AsError(cause)
	if !ok {
		applog.OpError("sale.internal_error", cause, map[string]any{"uid": uid, "shop_id": p.ShopID})
		de = domain.E(domain.KindInternal, "internal error")
	}
	tid := p.TerminalID
	rs := domain.RejectedSale{
		ShopID: p.ShopID, TerminalID: &tid, UID: uid, Payload: payloadText(raw),
		Reason: domain.ReasonFor(de.Kind), Message: de.Message,
	}
	if v, ok := de.Details["article_id"].(int64); ok {
		rs.ArticleID = &v
	}
	if v, ok := de.Details["article_name"].(string); ok {
		rs.ArticleName = v
	}
	if v, ok := de.Details["requested"].(int); ok {
		rs.Requested = &v
	}
	if v, ok := de.Details["available"].(int); ok {
		rs.Available = &v
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := s.Store.Tx(wctx, func(r *repos.Repos) error {
		added, err := r.Rejected.Insert(wctx, p.Scope, &rs)
		if err != nil {
			return err
		}
		if !added {
			prior, err := r.Rejected.ByUID(wctx, p.ShopID, uid)
			if err != nil {
				return err
			}
			rs = *prior
			return nil
		}
		if s.Obs == nil {
			return nil
		}
		return s.Obs.SaleRejected(wctx, r, domain.SaleRejected{Rejected: rs})
	})
	if err != nil {
		applog.OpError("sale.reject.persist_failed", err, map[string]any{"uid": uid, "shop_id": p.ShopID})
	}
	applog.OpWarn("sale.rejected", map[string]any{
		"uid": uid, "shop_id": p.ShopID, "terminal": p.Actor, "reason": rs.Reason, "message": rs.Message,
	})
	return rejectedOutcome(rs)
}

func payloadText(raw json.RawMessage) string {
	if json.Valid(raw) {
		return string(raw)
	}
	b, _ := json.Marshal(string(raw))
	return string(b)
}

// Cancel reverses a committed sale with one RETURN movement per line.
func (s *SaleService) Cancel(ctx context.Context, p *domain.Principal, id int64) (*domain.Sale, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	var out *domain.Sale
	err := s.Store.Tx(ctx, func(r *repos.Repos) error {
		sale, err := r.Sales.Get(ctx, p.Scope, id)
		if err != nil {
			return err
		}
		if sale.Cancelled {
			return domain.Invalid("sale %s is already cancelled", sale.InvoiceNumber)
		}
		if p.IsTerminal() && s.Now().Sub(sale.CreatedAt) > s.CancelWindow {
			return domain.Forbidden(fmt.Sprintf("terminals may only cancel a sale within %s", s.CancelWindow))
		}
		ref := "ANNUL-" + sale.InvoiceNumber
		for _, l := range sale.Lines {
			if _, err := s.Stock.ApplyIn(ctx, r, p.Scope, MovementRequest{
				ArticleID: l.ArticleID, VariantID: l.VariantID, Kind: domain.MoveReturn, Qty: l.Qty,
				Ref: ref, Actor: p.Actor, Comment: "sale cancelled",
			}); err != nil {
				return err
			}
		}
		ok, err := r.Sales.MarkCancelled(ctx, p.Scope, sale, s.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.Invalid("sale %s is already cancelled", sale.InvoiceNumber)
		}
		out, err = r.Sales.Get(ctx, p.Scope, id)
		return err
	})
	return out, err
}

func (s *SaleService) Get(ctx context.Context, p *domain.Principal, id int64) (*domain.Sale, error) {
	if p == nil {
		return nil, domain.Unauthenticated("missing credentials")
	}
	return s.Store.Sales.Get(ctx, p.Scope, id)
}

func (s *SaleService) List(ctx context.Context, p *domain.Principal, f repos.SaleFilter) ([]domain.Sale, int, error) {
	if p == nil {
		return nil, 0, domain.Unauthenticated("missing credentials")
	}
	return s.Store.Sales.List(ctx, p.Scope, f)
}

func (s *SaleService) ListRejected(ctx context.Context, p *domain.Principal, shopID int64, handled *bool, page, size int) ([]domain.RejectedSale, int, error) {
	if p == nil {
		return nil, 0, domain.Unauthenticated("missing credentials")
	}
	return s.Store.Rejected.List(ctx, p.Scope, shopID, handled, page, size)
}

func (s *SaleService) HandleRejected(ctx context.Context, p *domain.Principal, id int64, notes string) (*domain.RejectedSale, error) {
	if err := requireMerchant(p); err != nil {
		return nil, err
	}
	rs, err := s.Store.Rejected.Get(ctx, p.Scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Rejected.MarkHandled(ctx, p.Scope, rs, strings.TrimSpace(notes)); err != nil {
		return nil, err
	}
	return rs, nil
}
