package domain

// StockChanged is emitted by the stock engine once a movement row is written.
type StockChanged struct {
	Movement Movement
	Article  Article
	Variant  *Variant
}

// PriceChanged is emitted when an article's sale price is updated.
type PriceChanged struct {
	Article  Article
	Before   Amount
	After    Amount
	Currency Currency
	Actor    string
}

// SaleRejected is emitted after a rejection has been recorded.
type SaleRejected struct {
	Rejected RejectedSale
}
