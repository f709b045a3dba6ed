package inventory

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Costs and totals are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Row is the contract shared by the unified row types. Aggregation only needs the source
// provider, a name for tie-breaking and the domain's sort metric.
type Row interface {
	Source() Provider
	Label() string
	// Metric is the domain's designated sort value; invalid means unknown.
	Metric() decimal.NullDecimal
}

// StorageRow is a bucket or storage account.
type StorageRow struct {
	Provider    Provider   `json:"provider"`
	Name        string     `json:"name"`
	Location    *string    `json:"location"`
	Class       *string    `json:"class,omitempty"`
	CreatedAt   *Timestamp `json:"created_at"`
	SizeBytes   *int64     `json:"size_bytes"`
	ObjectCount *int64     `json:"object_count"`
}

func (r StorageRow) Source() Provider { return r.Provider }
func (r StorageRow) Label() string    { return r.Name }

func (r StorageRow) Metric() decimal.NullDecimal {
	if r.SizeBytes == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(*r.SizeBytes))
}

// ComputeRow is a virtual machine or instance.
type ComputeRow struct {
	Provider     Provider   `json:"provider"`
	Name         string     `json:"name"`
	InstanceType *string    `json:"instance_type"`
	State        *string    `json:"state"`
	Location     *string    `json:"location"`
	CPUCount     *int64     `json:"cpu_count"`
	LaunchedAt   *Timestamp `json:"launched_at"`
}

func (r ComputeRow) Source() Provider { return r.Provider }
func (r ComputeRow) Label() string    { return r.Name }

func (r ComputeRow) Metric() decimal.NullDecimal {
	if r.CPUCount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromInt(*r.CPUCount))
}

// BillingRow is the cost of one service (or resource type) for the current period.
// Cost is null when the engine reported no amount; it is never defaulted to zero.
type BillingRow struct {
	Provider Provider            `json:"provider"`
	Service  string              `json:"service"`
	Cost     decimal.NullDecimal `json:"cost"`
	Currency string              `json:"currency"`
}

func (r BillingRow) Source() Provider            { return r.Provider }
func (r BillingRow) Label() string               { return r.Service }
func (r BillingRow) Metric() decimal.NullDecimal { return r.Cost }

// Timestamp keeps the engine's original text next to the parsed time so that a value such
// as "2024-01-01" is echoed back unchanged.
type Timestamp struct {
	Time time.Time
	Raw  string
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw != "" {
		return json.Marshal(t.Raw)
	}
	return t.Time.MarshalJSON()
}
