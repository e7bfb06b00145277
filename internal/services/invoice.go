package services

import (
	"context"
	"fmt"

	"stockpos/internal/repos"
)

// InvoiceFormatter renders a merchant sequence number as an invoice number.
type InvoiceFormatter func(merchantID, seq int64) string

// DefaultInvoiceFormat yields INV-<merchant>-<seq padded to 6>.
func DefaultInvoiceFormat(merchantID, seq int64) string {
	return fmt.Sprintf("INV-%d-%06d", merchantID, seq)
}

// nextInvoice draws from the merchant counter inside the sale transaction,
// so a rolled back sale does not consume a number.
func nextInvoice(ctx context.Context, r *repos.Repos, f InvoiceFormatter, merchantID int64) (string, error) {
	if f == nil {
		f = DefaultInvoiceFormat
	}
	seq, err := r.Counters.Next(ctx, merchantID)
	if err != nil {
		return "", err
	}
	return f(merchantID, seq), nil
}
