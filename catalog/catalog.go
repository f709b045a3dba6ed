// Package catalog holds the table of provider adapters: for every (provider, domain) pair
// the engine query to run and how its columns map onto the unified row.
package catalog

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/decode"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// Unified field names.
const (
	FieldName         = "name"
	FieldLocation     = "location"
	FieldClass        = "class"
	FieldCreatedAt    = "created_at"
	FieldSizeBytes    = "size_bytes"
	FieldObjectCount  = "object_count"
	FieldInstanceType = "instance_type"
	FieldState        = "state"
	FieldCPUCount     = "cpu_count"
	FieldLaunchedAt   = "launched_at"
	FieldService      = "service"
	FieldCost         = "cost"
	FieldCurrency     = "currency"
)

// DefaultCurrency is used when a billing row carries no currency.
const DefaultCurrency = "USD"

// BillingKey declares the column billing rows are grouped by. Derive, when set, maps the
// raw column value to the grouping key (e.g. a resource id to its resource type).
type BillingKey struct {
	Column string
	Derive func(string) string
}

// Adapter is one (provider, domain) entry.
type Adapter struct {
	Provider inventory.Provider
	Domain   inventory.Domain
	Query    string
	Fields   decode.FieldMap
	Key      *BillingKey
}

// Build returns the engine query for this adapter.
func (a Adapter) Build() inventory.Query {
	return inventory.Query{Domain: a.Domain, Provider: a.Provider, Text: a.Query}
}

// Rows converts decoded records into unified rows tagged with the adapter's provider.
func (a Adapter) Rows(records []decode.Record) []inventory.Row {
	switch a.Domain {
	case inventory.Storage:
		return lo.Map(records, func(r decode.Record, _ int) inventory.Row { return a.storageRow(r) })
	case inventory.Compute:
		return lo.Map(records, func(r decode.Record, _ int) inventory.Row { return a.computeRow(r) })
	case inventory.Billing:
		return lo.Map(records, func(r decode.Record, _ int) inventory.Row { return a.billingRow(r) })
	}
	return nil
}

func (a Adapter) storageRow(r decode.Record) inventory.StorageRow {
	return inventory.StorageRow{
		Provider:    a.Provider,
		Name:        lo.FromPtr(r.String(FieldName)),
		Location:    r.String(FieldLocation),
		Class:       r.String(FieldClass),
		CreatedAt:   r.Time(FieldCreatedAt),
		SizeBytes:   r.Int(FieldSizeBytes),
		ObjectCount: r.Int(FieldObjectCount),
	}
}

func (a Adapter) computeRow(r decode.Record) inventory.ComputeRow {
	return inventory.ComputeRow{
		Provider:     a.Provider,
		Name:         lo.FromPtr(r.String(FieldName)),
		InstanceType: r.String(FieldInstanceType),
		State:        r.String(FieldState),
		Location:     r.String(FieldLocation),
		CPUCount:     r.Int(FieldCPUCount),
		LaunchedAt:   r.Time(FieldLaunchedAt),
	}
}

func (a Adapter) billingRow(r decode.Record) inventory.BillingRow {
	service := lo.FromPtr(r.String(FieldService))
	if a.Key != nil && a.Key.Derive != nil {
		service = a.Key.Derive(service)
	}
	currency := DefaultCurrency
	if c := r.String(FieldCurrency); c != nil && strings.TrimSpace(*c) != "" {
		currency = strings.ToUpper(strings.TrimSpace(*c))
	}
	return inventory.BillingRow{
		Provider: a.Provider,
		Service:  service,
		Cost:     r.Decimal(FieldCost),
		Currency: currency,
	}
}

type entryKey struct {
	provider inventory.Provider
	domain   inventory.Domain
}

// Catalog is the immutable adapter table. Safe for concurrent use.
type Catalog struct {
	entries map[entryKey]Adapter
}

// New builds the catalog from the built-in adapters, replacing query text where overrides
// has an entry keyed "<provider>.<domain>" (e.g. "aws.billing").
func New(overrides map[string]string) (*Catalog, error) {
	c := &Catalog{entries: make(map[entryKey]Adapter, len(builtin))}
	for _, a := range builtin {
		c.entries[entryKey{a.Provider, a.Domain}] = a
	}
	for k, text := range overrides {
		p, d, err := parseOverrideKey(k)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("catalog: empty query override for %s", k)
		}
		ek := entryKey{p, d}
		a := c.entries[ek]
		a.Query = text
		c.entries[ek] = a
	}
	return c, nil
}

// Default is the catalog with no overrides.
func Default() *Catalog {
	c, _ := New(nil)
	return c
}

// Lookup returns the adapter for a provider and domain.
func (c *Catalog) Lookup(p inventory.Provider, d inventory.Domain) (Adapter, bool) {
	a, ok := c.entries[entryKey{p, d}]
	return a, ok
}

// Adapters returns every adapter for a domain in provider order.
func (c *Catalog) Adapters(d inventory.Domain) []Adapter {
	return lo.FilterMap(inventory.Providers, func(p inventory.Provider, _ int) (Adapter, bool) {
		return c.Lookup(p, d)
	})
}

func parseOverrideKey(k string) (inventory.Provider, inventory.Domain, error) {
	provider, domain, ok := strings.Cut(k, ".")
	if !ok {
		return "", "", fmt.Errorf("catalog: override key %q must be <provider>.<domain>", k)
	}
	p, err := inventory.ParseProvider(provider)
	if err != nil {
		return "", "", fmt.Errorf("catalog: override %q: %w", k, err)
	}
	d, err := inventory.ParseDomain(domain)
	if err != nil {
		return "", "", fmt.Errorf("catalog: override %q: %w", k, err)
	}
	return p, d, nil
}

// ResourceType extracts "<Namespace>/<type>[/<child type>...]" from an ARM resource id such
// as /subscriptions/s/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm1.
// Ids without a providers segment map to "other".
func ResourceType(id string) string {
	parts := strings.Split(strings.Trim(id, "/"), "/")
	idx := lo.LastIndexOf(lo.Map(parts, func(s string, _ int) string { return strings.ToLower(s) }), "providers")
	if idx < 0 || idx+2 >= len(parts) {
		return "other"
	}
	rest := parts[idx+1:]
	segs := []string{rest[0]}
	for i := 1; i < len(rest); i += 2 {
		segs = append(segs, rest[i])
	}
	return strings.Join(segs, "/")
}

func storageFields(name, location, class, created, size, objects string) decode.FieldMap {
	return optional(decode.FieldMap{
		{Name: FieldName, Column: name, Type: decode.String, Required: true},
		{Name: FieldLocation, Column: location, Type: decode.String},
		{Name: FieldClass, Column: class, Type: decode.String},
		{Name: FieldCreatedAt, Column: created, Type: decode.Timestamp},
		{Name: FieldSizeBytes, Column: size, Type: decode.Int},
		{Name: FieldObjectCount, Column: objects, Type: decode.Int},
	})
}

func computeFields(name, instanceType, state, location, cpus, launched string) decode.FieldMap {
	return optional(decode.FieldMap{
		{Name: FieldName, Column: name, Type: decode.String, Required: true},
		{Name: FieldInstanceType, Column: instanceType, Type: decode.String},
		{Name: FieldState, Column: state, Type: decode.String},
		{Name: FieldLocation, Column: location, Type: decode.String},
		{Name: FieldCPUCount, Column: cpus, Type: decode.Int},
		{Name: FieldLaunchedAt, Column: launched, Type: decode.Timestamp},
	})
}

func billingFields(key BillingKey, cost, currency string) decode.FieldMap {
	return decode.FieldMap{
		{Name: FieldService, Column: key.Column, Type: decode.String, Required: true},
		{Name: FieldCost, Column: cost, Type: decode.Decimal},
		{Name: FieldCurrency, Column: currency, Type: decode.String},
	}
}

// optional drops fields whose provider has no source column.
func optional(m decode.FieldMap) decode.FieldMap {
	return lo.Filter(m, func(f decode.Field, _ int) bool { return f.Column != "" })
}
