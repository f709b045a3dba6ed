package discover

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/azure"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/config"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/gcp"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/steampipe"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/account"
)

// ErrNoAccounts means discovery found nothing to connect to; the existing config is kept.
var ErrNoAccounts = errors.New("no accounts found")

type subscriptionLister interface {
	ListSubscriptions(ctx context.Context) ([]account.Account, error)
}

type projectLister interface {
	ListProjects(ctx context.Context) ([]account.Account, error)
}

// Run discovers Azure subscriptions and GCP projects and writes one engine connection per
// account plus an aggregator connection (azure_all, gcp_all).
//
// Usage:
//
//	console discover [-azure] [-gcp] [-dir ~/.steampipe/config] [-restart] [-dry-run]
//
// With neither -azure nor -gcp both providers are discovered. Azure uses AZURE_TENANT_ID,
// AZURE_CLIENT_ID and AZURE_CLIENT_SECRET; GCP uses Application Default Credentials.
func Run(args []string) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	azureScope := fs.Bool("azure", false, "discover Azure subscriptions")
	gcpScope := fs.Bool("gcp", false, "discover GCP projects")
	dir := fs.String("dir", "", "engine config directory (default <install dir>/config)")
	restart := fs.Bool("restart", false, "restart the engine service after writing configs")
	dryRun := fs.Bool("dry-run", false, "print the generated configs instead of writing them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*azureScope && !*gcpScope {
		*azureScope = true
		*gcpScope = true
	}

	exec := steampipe.NewExecutor(steampipe.Options{
		Binary:     cfg.Engine.Binary,
		Timeout:    cfg.Engine.Timeout,
		InstallDir: cfg.Engine.InstallDir,
	})
	if *dir == "" {
		install, err := exec.InstallDir()
		if err != nil {
			return err
		}
		*dir = filepath.Join(install, "config")
	}

	ctx := context.Background()
	slog.Info("discover.start", "azure", *azureScope, "gcp", *gcpScope, "dir", *dir)

	var configs []steampipe.ConnectionConfig
	if *azureScope {
		creds := azure.Credentials{
			TenantID:     cfg.Discovery.Azure.TenantID,
			ClientID:     os.Getenv("AZURE_CLIENT_ID"),
			ClientSecret: os.Getenv("AZURE_CLIENT_SECRET"),
		}
		if creds.Valid() {
			c, err := discoverAzure(ctx, azure.NewClient(ctx, creds), cfg.Discovery.Azure.Exclude, time.Now())
			if errors.Is(err, ErrNoAccounts) {
				slog.Warn("discover.azure.no_data", "reason", "no enabled subscriptions found")
			} else if err != nil {
				slog.Warn("discover.azure.error", "error", err)
				fmt.Fprintf(os.Stderr, "Warning: failed to discover Azure subscriptions: %v\n", err)
			} else {
				configs = append(configs, c)
			}
		} else {
			slog.Info("discover.azure.skip", "reason", "missing environment variables")
		}
	}
	if *gcpScope {
		client, err := gcp.NewClient(ctx)
		if err != nil {
			slog.Info("discover.gcp.skip", "reason", err.Error())
		} else {
			c, err := discoverGCP(ctx, client, cfg.Discovery.GCP.Exclude, time.Now())
			if errors.Is(err, ErrNoAccounts) {
				slog.Warn("discover.gcp.no_data", "reason", "no active projects found")
			} else if err != nil {
				slog.Warn("discover.gcp.error", "error", err)
				fmt.Fprintf(os.Stderr, "Warning: failed to discover GCP projects: %v\n", err)
			} else {
				configs = append(configs, c)
			}
		}
	}

	if len(configs) == 0 {
		slog.Warn("discover.no_data")
		return fmt.Errorf("no accounts discovered - check credentials")
	}

	for _, c := range configs {
		if *dryRun {
			fmt.Print(string(c.Render()))
			continue
		}
		path, err := c.Write(*dir)
		if err != nil {
			slog.Error("discover.write.error", "plugin", c.Plugin, "error", err)
			return err
		}
		slog.Info("discover.write.done", "plugin", c.Plugin, "connections", len(c.Connections), "path", path)
	}

	if *restart && !*dryRun {
		if err := exec.Restart(ctx); err != nil {
			return err
		}
	}
	slog.Info("discover.done", "configs", len(configs))
	return nil
}

func discoverAzure(ctx context.Context, l subscriptionLister, exclude []string, now time.Time) (steampipe.ConnectionConfig, error) {
	subs, err := l.ListSubscriptions(ctx)
	if err != nil {
		return steampipe.ConnectionConfig{}, err
	}
	for _, s := range subs {
		slog.Info("discover.azure.subscription", "id", s.ID, "name", s.Name)
	}
	subs = filter(subs, exclude)
	if len(subs) == 0 {
		return steampipe.ConnectionConfig{}, fmt.Errorf("azure: %w", ErrNoAccounts)
	}
	return AzureConfig(subs, now), nil
}

func discoverGCP(ctx context.Context, l projectLister, exclude []string, now time.Time) (steampipe.ConnectionConfig, error) {
	projects, err := l.ListProjects(ctx)
	if err != nil {
		return steampipe.ConnectionConfig{}, err
	}
	for _, p := range projects {
		slog.Info("discover.gcp.project", "id", p.ID, "name", p.Name)
	}
	projects = filter(projects, exclude)
	if len(projects) == 0 {
		return steampipe.ConnectionConfig{}, fmt.Errorf("gcp: %w", ErrNoAccounts)
	}
	return GCPConfig(projects, now), nil
}

// AzureConfig builds azure.spc: connection azure_<name>_<first 8 id chars> per subscription.
func AzureConfig(subs []account.Account, now time.Time) steampipe.ConnectionConfig {
	conns := lo.Map(subs, func(s account.Account, _ int) steampipe.Connection {
		return steampipe.Connection{
			Name:   fmt.Sprintf("azure_%s_%s", steampipe.SanitizeName(s.Name), steampipe.SanitizeName(lo.Substring(s.ID, 0, 8))),
			Plugin: "azure",
			Attrs:  map[string]string{"subscription_id": s.ID},
		}
	})
	return steampipe.ConnectionConfig{
		Plugin:      "azure",
		Connections: lo.UniqBy(conns, func(c steampipe.Connection) string { return c.Name }),
		Aggregator:  "azure_all",
		GeneratedAt: now,
	}
}

// GCPConfig builds gcp.spc: connection gcp_<project id> per project.
func GCPConfig(projects []account.Account, now time.Time) steampipe.ConnectionConfig {
	conns := lo.Map(projects, func(p account.Account, _ int) steampipe.Connection {
		return steampipe.Connection{
			Name:   "gcp_" + steampipe.SanitizeName(p.ID),
			Plugin: "gcp",
			Attrs:  map[string]string{"project": p.ID},
		}
	})
	return steampipe.ConnectionConfig{
		Plugin:      "gcp",
		Connections: lo.UniqBy(conns, func(c steampipe.Connection) string { return c.Name }),
		Aggregator:  "gcp_all",
		GeneratedAt: now,
	}
}

func filter(accounts []account.Account, exclude []string) []account.Account {
	return lo.Reject(accounts, func(a account.Account, _ int) bool { return lo.Contains(exclude, a.ID) })
}
