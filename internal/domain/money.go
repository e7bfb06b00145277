package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tolerance is one minor unit.
var Tolerance = MustAmount("0.01")

// Amount is a fixed-point value with two fractional digits.
type Amount struct{ d decimal.Decimal }

func NewAmount(s string) (Amount, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return Amount{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{d: d.Round(2)}, nil
}

func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func AmountFromInt(n int64) Amount { return Amount{d: decimal.NewFromInt(n)} }

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Times(qty int) Amount { return Amount{d: a.d.Mul(decimal.NewFromInt(int64(qty))).Round(2)} }
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }
func (a Amount) IsZero() bool { return a.d.IsZero() }
func (a Amount) IsPositive() bool { return a.d.IsPositive() }
func (a Amount) Abs() Amount { return Amount{d: a.d.Abs()} }
func (a Amount) Decimal() decimal.Decimal { return a.d }
func (a Amount) String() string { return a.d.StringFixed(2) }

// Within reports |a-b| <= tol.
func (a Amount) Within(b, tol Amount) bool { return a.d.Sub(b.d).Abs().Cmp(tol.d) <= 0 }

// PercentChange returns (b-a)/a*100 rounded to two digits; ok is false when a is zero.
func (a Amount) PercentChange(b Amount) (Amount, bool) {
	if a.d.IsZero() {
		return Amount{}, false
	}
	return Amount{d: b.d.Sub(a.d).Div(a.d).Mul(decimal.NewFromInt(100)).Round(2)}, true
}

func (a Amount) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// UnmarshalJSON accepts both "12.50" and 12.5.
func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	raw = strings.Trim(raw, `"`)
	v, err := NewAmount(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

func (a Amount) Value() (driver.Value, error) { return a.String(), nil }

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
	case string:
		return a.parse(v)
	case []byte:
		return a.parse(string(v))
	case int64:
		*a = AmountFromInt(v)
	case float64:
		*a = Amount{d: decimal.NewFromFloat(v).Round(2)}
	case fmt.Stringer:
		return a.parse(v.String())
	default:
		return fmt.Errorf("cannot scan %T into Amount", src)
	}
	return nil
}

func (a *Amount) parse(s string) error {
	v, err := NewAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money pairs an amount with its currency. Arithmetic across currencies is refused;
// use Convert with the merchant rate first.
type Money struct {
	Amount   Amount   `json:"amount"`
	Currency Currency `json:"currency"`
}

func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, o.Currency)
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Convert uses rate = local units per USD.
func (m Money) Convert(to Currency, rate Amount) (Money, error) {
	if m.Currency == to {
		return m, nil
	}
	if !rate.IsPositive() {
		return Money{}, errors.New("conversion rate must be positive")
	}
	switch to {
	case CurrencyUSD:
		return Money{Amount: Amount{d: m.Amount.d.Div(rate.d).Round(2)}, Currency: CurrencyUSD}, nil
	case CurrencyLocal:
		return Money{Amount: Amount{d: m.Amount.d.Mul(rate.d).Round(2)}, Currency: CurrencyLocal}, nil
	}
	return Money{}, fmt.Errorf("unsupported currency %s", to)
}
