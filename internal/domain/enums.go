package domain

import (
	"encoding/json"
	"errors"
	"strings"
)

type MovementKind string

const (
	MoveEntry       MovementKind = "ENTRY"
	MoveExit        MovementKind = "EXIT"
	MoveAdjustment  MovementKind = "ADJUSTMENT"
	MoveSale        MovementKind = "SALE"
	MoveReturn      MovementKind = "RETURN"
	MoveCorrection  MovementKind = "CORRECTION"
	MoveValidation  MovementKind = "VALIDATION"
	MoveRestore     MovementKind = "RESTORE"
	MoveTransferOut MovementKind = "TRANSFER_OUT"
	MoveTransferIn  MovementKind = "TRANSFER_IN"
)

// Direction reports +1 for kinds that only add stock, -1 for kinds that only
// remove stock and 0 for administrative kinds whose sign comes from the caller.
func (k MovementKind) Direction() int {
	switch k {
	case MoveEntry, MoveReturn, MoveTransferIn:
		return 1
	case MoveExit, MoveSale, MoveTransferOut:
		return -1
	case MoveAdjustment, MoveCorrection, MoveValidation, MoveRestore:
		return 0
	}
	return 0
}

// Guarded kinds fail on negative stock unless the caller opted in.
func (k MovementKind) Guarded() bool {
	switch k {
	case MoveExit, MoveSale, MoveTransferOut:
		return true
	}
	return false
}

// RefPrefix is the mandatory reference prefix of administrative kinds.
func (k MovementKind) RefPrefix() string {
	switch k {
	case MoveCorrection:
		return "FIX-"
	case MoveRestore:
		return "RESTORE-"
	}
	return ""
}

// Notification maps a movement kind onto the kind of notification it fans out.
func (k MovementKind) Notification() NotificationKind {
	switch k {
	case MoveEntry, MoveReturn:
		return NotifyStockAdded
	case MoveExit, MoveSale, MoveTransferOut:
		return NotifyStockRemoved
	case MoveAdjustment, MoveCorrection, MoveRestore, MoveTransferIn, MoveValidation:
		return NotifyStockAdjusted
	}
	return NotifyStockAdjusted
}

func (k MovementKind) Valid() bool {
	switch k {
	case MoveEntry, MoveExit, MoveAdjustment, MoveSale, MoveReturn,
		MoveCorrection, MoveValidation, MoveRestore, MoveTransferOut, MoveTransferIn:
		return true
	}
	return false
}

type NotificationKind string

const (
	NotifyStockAdded    NotificationKind = "STOCK_ADDED"
	NotifyStockRemoved  NotificationKind = "STOCK_REMOVED"
	NotifyStockAdjusted NotificationKind = "STOCK_ADJUSTED"
	NotifyPriceChanged  NotificationKind = "PRICE_CHANGED"
	NotifySaleRejected  NotificationKind = "SALE_REJECTED"
)

// RejectReason is the closed set of reasons a submitted sale is not committed.
type RejectReason string

const (
	RejectDuplicateUID      RejectReason = "DUPLICATE_UID"
	RejectUnknownArticle    RejectReason = "UNKNOWN_ARTICLE"
	RejectInsufficientStock RejectReason = "INSUFFICIENT_STOCK"
	RejectInactiveArticle   RejectReason = "INACTIVE_ARTICLE"
	RejectShopIsDepot       RejectReason = "SHOP_IS_DEPOT"
	RejectValidationFailed  RejectReason = "VALIDATION_FAILED"
	RejectInternalError     RejectReason = "INTERNAL_ERROR"
)

// ReasonFor converts an error kind into the rejection reason recorded for a sale.
func ReasonFor(k Kind) RejectReason {
	switch k {
	case KindDuplicateUID:
		return RejectDuplicateUID
	case KindUnknownArticle:
		return RejectUnknownArticle
	case KindInsufficientStock:
		return RejectInsufficientStock
	case KindInactiveArticle:
		return RejectInactiveArticle
	case KindShopIsDepot:
		return RejectShopIsDepot
	case KindValidationFailed, KindForbidden, KindNotFound, KindDuplicateCode:
		return RejectValidationFailed
	}
	return RejectInternalError
}

type PaymentMode string

const (
	PayCash   PaymentMode = "CASH"
	PayCard   PaymentMode = "CARD"
	PayMobile PaymentMode = "MOBILE"
)

func (m *PaymentMode) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("payment mode must be a string")
	}
	switch PaymentMode(strings.ToUpper(strings.TrimSpace(s))) {
	case PayCash, "":
		*m = PayCash
	case PayCard:
		*m = PayCard
	case PayMobile:
		*m = PayMobile
	default:
		return errors.New("invalid payment mode")
	}
	return nil
}

type Currency string

const (
	CurrencyLocal Currency = "LOCAL"
	CurrencyUSD   Currency = "USD"
)

// ParseCurrency accepts CDF as the historical spelling of the local currency.
func ParseCurrency(s string) (Currency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOCAL", "CDF", "":
		return CurrencyLocal, nil
	case "USD":
		return CurrencyUSD, nil
	}
	return "", errors.New("invalid currency")
}

func (c *Currency) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("currency must be a string")
	}
	v, err := ParseCurrency(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferValidated TransferStatus = "VALIDATED"
	TransferCancelled TransferStatus = "CANCELLED"
)

type CommerceType string

const (
	CommerceDepot         CommerceType = "DEPOT"
	CommercePharmacy      CommerceType = "PHARMACIE"
	CommerceGrocery       CommerceType = "ALIMENTATION"
	CommerceSupermarket   CommerceType = "SUPERMARCHE"
	CommerceShop          CommerceType = "BOUTIQUE"
	CommerceKiosk         CommerceType = "KIOSQUE"
	CommerceBar           CommerceType = "BAR"
	CommerceRestaurant    CommerceType = "RESTAURANT"
	CommerceClothing      CommerceType = "HABILLEMENT"
	CommerceBeauty        CommerceType = "COIFFURE_BEAUTE"
	CommerceElectronics   CommerceType = "ELECTRONIQUE"
	CommerceMobile        CommerceType = "TELEPHONIE_MOBILE"
	CommerceHardware      CommerceType = "QUINCAILLERIE"
	CommerceOfficeService CommerceType = "SERVICES_BUREAU"
	CommerceOther         CommerceType = "AUTRE"
)

func (t CommerceType) Valid() bool {
	switch t {
	case CommerceDepot, CommercePharmacy, CommerceGrocery, CommerceSupermarket, CommerceShop,
		CommerceKiosk, CommerceBar, CommerceRestaurant, CommerceClothing, CommerceBeauty,
		CommerceElectronics, CommerceMobile, CommerceHardware, CommerceOfficeService, CommerceOther:
		return true
	}
	return false
}

type VariantKind string

const (
	VariantColor  VariantKind = "COULEUR"
	VariantSize   VariantKind = "TAILLE"
	VariantScent  VariantKind = "PARFUM"
	VariantWeight VariantKind = "POIDS"
	VariantVolume VariantKind = "VOLUME"
	VariantModel  VariantKind = "MODELE"
	VariantOther  VariantKind = "AUTRE"
)

func (k VariantKind) Valid() bool {
	switch k {
	case VariantColor, VariantSize, VariantScent, VariantWeight, VariantVolume, VariantModel, VariantOther:
		return true
	}
	return false
}

// StockState buckets an article's quantity against its shop threshold.
type StockState string

const (
	StateInStock StockState = "in_stock"
	StateLow     StockState = "low"
	StateOut     StockState = "out"
)

func StateOf(qty, threshold int) StockState {
	switch {
	case qty <= 0:
		return StateOut
	case qty <= threshold:
		return StateLow
	}
	return StateInStock
}

type PrincipalKind string

const (
	PrincipalOperator PrincipalKind = "OPERATOR"
	PrincipalMerchant PrincipalKind = "MERCHANT"
	PrincipalTerminal PrincipalKind = "TERMINAL"
)
