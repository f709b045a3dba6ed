package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies one of the supported cloud vendors.
type Provider string

const (
	AWS   Provider = "aws"
	Azure Provider = "azure"
	GCP   Provider = "gcp"
)

// AllProviders is the scope keyword that fans a request out to every provider.
const AllProviders = "all"

// Providers lists every supported provider in ascending name order.
var Providers = []Provider{AWS, Azure, GCP}

// Domain is a resource category with its own unified schema.
type Domain string

const (
	Storage Domain = "storage"
	Compute Domain = "compute"
	Billing Domain = "billing"
)

// Domains lists every supported domain.
var Domains = []Domain{Storage, Compute, Billing}

var (
	ErrUnknownDomain   = errors.New("unknown domain")
	ErrUnknownProvider = errors.New("unknown provider")
)

// ParseProvider maps a path segment (case-insensitive) to a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// ParseScope resolves a provider scope: a single provider, or every provider for "all".
func ParseScope(s string) ([]Provider, error) {
	if strings.EqualFold(strings.TrimSpace(s), AllProviders) {
		return append([]Provider(nil), Providers...), nil
	}
	p, err := ParseProvider(s)
	if err != nil {
		return nil, err
	}
	return []Provider{p}, nil
}

// ParseDomain maps a path segment (case-insensitive) to a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
}

// Query is a single engine request. It is built by the catalog and never mutated.
type Query struct {
	Domain   Domain
	Provider Provider
	Text     string
}

// RawRow is one row of engine output keyed by column name. Values are whatever the JSON
// decoder produced: string, float64, bool, nil, or nested maps/slices.
type RawRow map[string]any

// RawTable is an ordered sequence of raw rows.
type RawTable []RawRow
