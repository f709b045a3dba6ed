package inventory

import "github.com/shopspring/decimal"

// Totals is the cross-provider summary of an aggregate.
type Totals struct {
	TotalCost      *decimal.Decimal `json:"total_cost,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	TotalSizeBytes *decimal.Decimal `json:"total_size_bytes,omitempty"`
}

// AggregateResult is the unified view for one request.
type AggregateResult struct {
	Domain       Domain          `json:"domain"`
	Rows         []Row           `json:"rows"`
	Totals       *Totals         `json:"totals,omitempty"`
	Failures     []*QueryFailure `json:"failures"`
	DecodeErrors []RowError      `json:"decode_errors"`
}

// FailedProviders returns the providers whose query failed, in failure order.
func (r AggregateResult) FailedProviders() []Provider {
	out := make([]Provider, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Provider)
	}
	return out
}
