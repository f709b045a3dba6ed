package query

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/aggregate"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/catalog"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/config"
	ccsv "github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/csv"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/steampipe"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// ErrAllFailed is returned when every selected provider failed.
var ErrAllFailed = errors.New("every provider query failed")

// Run executes one aggregate from the command line.
//
// Usage:
//
//	console query -domain storage [-provider all] [-format json|csv] [-out file]
//
// JSON output is the full result envelope. CSV output holds the rows only.
func Run(args []string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	domain := fs.String("domain", "", "storage, compute or billing")
	provider := fs.String("provider", inventory.AllProviders, "aws, azure, gcp or all")
	format := fs.String("format", "json", "output format: json or csv")
	out := fs.String("out", "", "output file (default stdout)")
	timeout := fs.Duration("timeout", cfg.Engine.Timeout, "per-query engine timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := inventory.ParseDomain(*domain)
	if err != nil {
		return err
	}
	providers, err := inventory.ParseScope(*provider)
	if err != nil {
		return err
	}
	if *format != "json" && *format != "csv" {
		return fmt.Errorf("unsupported format %q", *format)
	}

	cat, err := catalog.New(cfg.Queries)
	if err != nil {
		return err
	}
	exec := steampipe.NewExecutor(steampipe.Options{
		Binary:           cfg.Engine.Binary,
		Timeout:          *timeout,
		SearchPathPrefix: cfg.Engine.SearchPathPrefix,
		InstallDir:       cfg.Engine.InstallDir,
	})

	slog.Info("query.start", "domain", d, "providers", providers, "format", *format)
	res, err := Execute(context.Background(), aggregate.New(cat, exec, nil), d, providers)
	if err != nil {
		return err
	}

	if *format == "csv" && *out != "" {
		if err := ccsv.WriteFile(*out, d, res.Rows); err != nil {
			return err
		}
		slog.Info("query.written", "path", *out, "rows", len(res.Rows))
		return nil
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return Render(w, *format, res)
}

// Execute aggregates and reports provider failures. It fails only when nothing succeeded.
func Execute(ctx context.Context, agg *aggregate.Aggregator, d inventory.Domain, providers []inventory.Provider) (inventory.AggregateResult, error) {
	res, err := agg.Aggregate(ctx, d, providers)
	if err != nil {
		return res, err
	}
	for _, f := range res.Failures {
		slog.Error("query.provider.error", "provider", f.Provider, "kind", f.Kind, "error", f.Message)
	}
	if len(res.Failures) == len(providers) {
		return res, fmt.Errorf("%w: %s", ErrAllFailed, res.Failures[0].Error())
	}
	return res, nil
}

// Render writes res in the given format.
func Render(w io.Writer, format string, res inventory.AggregateResult) error {
	if format == "csv" {
		return ccsv.Write(w, res.Domain, res.Rows)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
