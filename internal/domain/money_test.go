package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"stockpos/internal/domain"
)

func TestAmountParsingAndFormatting(t *testing.T) {
	a, err := domain.NewAmount("6172,5")
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != "6172.50" {
		t.Fatalf("want 6172.50, got %s", a)
	}
	if got := a.Times(2).String(); got != "12345.00" {
		t.Fatalf("want 12345.00, got %s", got)
	}
	if _, err := domain.NewAmount("abc"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAmountJSONAcceptsStringsAndNumbers(t *testing.T) {
	var v struct {
		A domain.Amount  `json:"a"`
		B domain.Amount  `json:"b"`
		C *domain.Amount `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"10.5","b":3,"c":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A.String() != "10.50" || v.B.String() != "3.00" || v.C != nil {
		t.Fatalf("unexpected decode: %+v", v)
	}
	out, _ := json.Marshal(v.A)
	if string(out) != `"10.50"` {
		t.Fatalf("want quoted fixed amount, got %s", out)
	}
}

func TestAmountWithinTolerance(t *testing.T) {
	a := domain.MustAmount("100.00")
	if !a.Within(domain.MustAmount("100.01"), domain.Tolerance) {
		t.Fatal("one minor unit should be tolerated")
	}
	if a.Within(domain.MustAmount("100.02"), domain.Tolerance) {
		t.Fatal("two minor units should not be tolerated")
	}
}

func TestPercentChange(t *testing.T) {
	pct, ok := domain.MustAmount("1000.00").PercentChange(domain.MustAmount("1200.00"))
	if !ok || pct.String() != "20.00" {
		t.Fatalf("want 20.00, got %s (%v)", pct, ok)
	}
	if _, ok := domain.MustAmount("0").PercentChange(domain.MustAmount("5")); ok {
		t.Fatal("percent change from zero must not be reported")
	}
}

func TestMoneyRefusesMixedCurrencies(t *testing.T) {
	local := domain.Money{Amount: domain.MustAmount("2800"), Currency: domain.CurrencyLocal}
	usd := domain.Money{Amount: domain.MustAmount("1"), Currency: domain.CurrencyUSD}
	if _, err := local.Add(usd); !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("want currency mismatch, got %v", err)
	}
	conv, err := local.Convert(domain.CurrencyUSD, domain.MustAmount("2800"))
	if err != nil {
		t.Fatal(err)
	}
	sum, err := conv.Add(usd)
	if err != nil || sum.Amount.String() != "2.00" {
		t.Fatalf("want 2.00 USD, got %+v %v", sum, err)
	}
}

func TestScopeNarrowing(t *testing.T) {
	s := domain.MerchantScope(1, []int64{10, 11})
	if !s.Allows(10) || s.Allows(30) {
		t.Fatal("merchant scope membership wrong")
	}
	if n := s.Narrow(30); !n.Empty() {
		t.Fatal("narrowing outside the scope must give an empty scope")
	}
	if n := s.Narrow(11); n.Empty() || n.Allows(10) {
		t.Fatal("narrowing to an owned shop must keep only that shop")
	}
	var zero domain.Scope
	if !zero.Empty() || zero.Allows(10) {
		t.Fatal("zero scope must see nothing")
	}
	if !domain.OperatorScope().Allows(99) {
		t.Fatal("operator scope is unrestricted")
	}
}
