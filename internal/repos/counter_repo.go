package repos

import "context"

// CounterRepo hands out per-merchant invoice sequence numbers.
type CounterRepo struct{ q Querier }

func NewCounterRepo(q Querier) *CounterRepo { return &CounterRepo{q: q} }

// Next increments and returns the merchant's sequence. The upsert holds the
// counter row until the surrounding transaction ends.
func (r *CounterRepo) Next(ctx context.Context, merchantID int64) (int64, error) {
	var seq int64
	err := get(ctx, r.q, &seq, `
		INSERT INTO invoice_counters(merchant_id, seq) VALUES(?, 1)
		ON CONFLICT(merchant_id) DO UPDATE SET seq = invoice_counters.seq + 1
		RETURNING seq`, merchantID)
	return seq, mapWriteErr(err)
}
