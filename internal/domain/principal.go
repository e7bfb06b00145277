package domain

import "slices"

// Scope is the set of shops a caller may see. The zero value sees nothing.
// Fields are unexported so a scope can only come from the constructors below.
type Scope struct {
	all      bool
	merchant int64
	shops    []int64
}

func OperatorScope() Scope { return Scope{all: true} }

func MerchantScope(merchantID int64, shops []int64) Scope {
	return Scope{merchant: merchantID, shops: slices.Clone(shops)}
}

func TerminalScope(merchantID, shopID int64) Scope {
	return Scope{merchant: merchantID, shops: []int64{shopID}}
}

// ShopScope confines internal writers, such as the notification fan-out, to one shop.
func ShopScope(shopID int64) Scope { return Scope{shops: []int64{shopID}} }

func (s Scope) Unrestricted() bool { return s.all }
func (s Scope) MerchantID() int64  { return s.merchant }
func (s Scope) Shops() []int64     { return slices.Clone(s.shops) }
func (s Scope) Empty() bool        { return !s.all && len(s.shops) == 0 }

func (s Scope) Allows(shopID int64) bool {
	return s.all || slices.Contains(s.shops, shopID)
}

// Narrow restricts the scope to one shop. A shop outside the scope yields an
// empty scope, so list queries return nothing instead of failing.
func (s Scope) Narrow(shopID int64) Scope {
	if !s.Allows(shopID) {
		return Scope{merchant: s.merchant}
	}
	return Scope{merchant: s.merchant, shops: []int64{shopID}}
}

// Principal is the resolved caller of a request.
type Principal struct {
	Kind       PrincipalKind
	Actor      string
	AccountID  int64
	MerchantID int64
	ShopID     int64
	TerminalID int64
	Legacy     bool
	TokenID    string
	Scope      Scope
}

func (p *Principal) IsTerminal() bool { return p != nil && p.Kind == PrincipalTerminal }
func (p *Principal) IsMerchant() bool { return p != nil && p.Kind == PrincipalMerchant }
func (p *Principal) IsOperator() bool { return p != nil && p.Kind == PrincipalOperator }
