package steampipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Version runs `steampipe --version` and returns its trimmed output.
func (e *Executor) Version(ctx context.Context) (string, error) {
	out, err := e.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StartService starts the background steampipe database service.
func (e *Executor) StartService(ctx context.Context) error {
	_, err := e.run(ctx, "service", "start")
	return err
}

// StopService stops the background service. A service that is not running is not an error.
func (e *Executor) StopService(ctx context.Context) error {
	if _, err := e.run(ctx, "service", "stop"); err != nil {
		slog.Warn("steampipe.service.stop.error", "error", err)
	}
	return nil
}

// ClearCache removes the service's internal *.db cache files so that newly written
// connection configs are picked up from scratch.
func (e *Executor) ClearCache() (int, error) {
	dir, err := e.internalDir()
	if err != nil {
		return 0, err
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.db"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", f, err)
		}
		removed++
	}
	return removed, nil
}

// Restart stops the service, clears its cache and starts it again.
func (e *Executor) Restart(ctx context.Context) error {
	slog.Info("steampipe.service.restart.start")
	_ = e.StopService(ctx)
	n, err := e.ClearCache()
	if err != nil {
		return err
	}
	slog.Info("steampipe.service.cache.cleared", "files", n)
	if err := e.StartService(ctx); err != nil {
		return fmt.Errorf("failed to start steampipe service: %w", err)
	}
	slog.Info("steampipe.service.restart.done")
	return nil
}

// InstallDir returns the configured install dir, or ~/.steampipe.
func (e *Executor) InstallDir() (string, error) {
	if e.opts.InstallDir != "" {
		return e.opts.InstallDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".steampipe"), nil
}

func (e *Executor) internalDir() (string, error) {
	dir, err := e.InstallDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "internal"), nil
}

func (e *Executor) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()
	out, err := e.prepare(ctx, args...).CombinedOutput()
	if errors.Is(err, exec.ErrWaitDelay) && ctx.Err() == nil {
		err = nil
	}
	if err != nil {
		return string(out), fmt.Errorf("steampipe %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
