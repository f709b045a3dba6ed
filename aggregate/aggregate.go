// Package aggregate fans domain queries out to providers and merges their rows into one
// ordered, totalled view.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/catalog"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/decode"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// Executor runs one engine query.
type Executor interface {
	Execute(ctx context.Context, q inventory.Query) (inventory.RawTable, error)
}

// Aggregator merges per-provider results for a domain. It holds no per-request state and
// is safe for concurrent use.
type Aggregator struct {
	catalog *catalog.Catalog
	exec    Executor
	metrics *Metrics
}

// New creates an Aggregator. metrics may be nil.
func New(c *catalog.Catalog, exec Executor, metrics *Metrics) *Aggregator {
	return &Aggregator{catalog: c, exec: exec, metrics: metrics}
}

// outcome is what one provider unit produced; units never share one.
type outcome struct {
	provider inventory.Provider
	rows     []inventory.Row
	dropped  []inventory.RowError
	failure  *inventory.QueryFailure
}

// Aggregate queries every provider in providers for domain d. Provider failures are
// recorded in the result and never cancel sibling queries; only an unknown domain or
// provider is returned as an error.
func (a *Aggregator) Aggregate(ctx context.Context, d inventory.Domain, providers []inventory.Provider) (inventory.AggregateResult, error) {
	providers = lo.Uniq(providers)
	if len(providers) == 0 {
		return inventory.AggregateResult{}, fmt.Errorf("%w: no provider selected", inventory.ErrUnknownProvider)
	}
	adapters := make([]catalog.Adapter, 0, len(providers))
	for _, p := range providers {
		ad, ok := a.catalog.Lookup(p, d)
		if !ok {
			if !lo.Contains(inventory.Domains, d) {
				return inventory.AggregateResult{}, fmt.Errorf("%w: %q", inventory.ErrUnknownDomain, d)
			}
			return inventory.AggregateResult{}, fmt.Errorf("%w: %q", inventory.ErrUnknownProvider, p)
		}
		adapters = append(adapters, ad)
	}

	start := time.Now()
	outcomes := make([]outcome, len(adapters))
	if len(adapters) == 1 {
		outcomes[0] = a.run(ctx, adapters[0])
	} else {
		var g errgroup.Group
		for i, ad := range adapters {
			g.Go(func() error {
				outcomes[i] = a.run(ctx, ad)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := merge(d, outcomes)
	slog.Info("aggregate.done",
		"domain", d,
		"providers", providers,
		"rows", len(res.Rows),
		"failures", len(res.Failures),
		"dropped", len(res.DecodeErrors),
		"duration", time.Since(start))
	return res, nil
}

func (a *Aggregator) run(ctx context.Context, ad catalog.Adapter) outcome {
	q := ad.Build()
	out := outcome{provider: ad.Provider}

	start := time.Now()
	table, err := a.exec.Execute(ctx, q)
	if err != nil {
		var qf *inventory.QueryFailure
		if !errors.As(err, &qf) {
			qf = inventory.NewFailure(q, inventory.FailureInvocation, err.Error())
		}
		a.metrics.observeQuery(q, string(qf.Kind), time.Since(start))
		slog.Warn("aggregate.provider.failed", "provider", q.Provider, "domain", q.Domain, "kind", qf.Kind, "error", qf.Message)
		out.failure = qf
		return out
	}
	a.metrics.observeQuery(q, "ok", time.Since(start))

	records, dropped := decode.Decode(table, ad.Fields)
	for i := range dropped {
		dropped[i].Provider = ad.Provider
		slog.Warn("aggregate.row.dropped", "provider", q.Provider, "domain", q.Domain, "row", dropped[i].Row, "field", dropped[i].Field, "error", dropped[i].Message)
	}
	a.metrics.observeDropped(q, len(dropped))

	out.rows = ad.Rows(records)
	out.dropped = dropped
	return out
}

func merge(d inventory.Domain, outcomes []outcome) inventory.AggregateResult {
	res := inventory.AggregateResult{
		Domain:       d,
		Rows:         []inventory.Row{},
		Failures:     []*inventory.QueryFailure{},
		DecodeErrors: []inventory.RowError{},
	}
	for _, o := range outcomes {
		if o.failure != nil {
			res.Failures = append(res.Failures, o.failure)
			continue
		}
		res.Rows = append(res.Rows, o.rows...)
		res.DecodeErrors = append(res.DecodeErrors, o.dropped...)
	}

	switch d {
	case inventory.Billing:
		res.Rows = groupBilling(res.Rows)
		sortRows(res.Rows)
		res.Totals = billingTotals(res.Rows)
	case inventory.Storage:
		sortRows(res.Rows)
		res.Totals = storageTotals(res.Rows)
	default:
		sortRows(res.Rows)
	}
	return res
}

// sortRows orders by metric descending with unknown metrics last, then provider name,
// then row label, so equal inputs always produce the same sequence.
func sortRows(rows []inventory.Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, mj := rows[i].Metric(), rows[j].Metric()
		if mi.Valid != mj.Valid {
			return mi.Valid
		}
		if mi.Valid {
			if c := mi.Decimal.Cmp(mj.Decimal); c != 0 {
				return c > 0
			}
		}
		if pi, pj := rows[i].Source(), rows[j].Source(); pi != pj {
			return pi < pj
		}
		return rows[i].Label() < rows[j].Label()
	})
}

func storageTotals(rows []inventory.Row) *inventory.Totals {
	total := decimal.Zero
	for _, r := range rows {
		if s, ok := r.(inventory.StorageRow); ok && s.SizeBytes != nil {
			total = total.Add(decimal.NewFromInt(*s.SizeBytes))
		}
	}
	return &inventory.Totals{TotalSizeBytes: &total}
}
