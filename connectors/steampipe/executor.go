// Package steampipe runs the Steampipe CLI as the external query engine.
// Every query is a fresh child process; nothing is pooled or shared between calls.
package steampipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

const (
	DefaultBinary  = "steampipe"
	DefaultTimeout = 60 * time.Second

	// pipeGrace bounds how long output pipes may stay open after the engine exits or is
	// killed, e.g. while a detached plugin still holds them.
	pipeGrace = 2 * time.Second
)

// Options configures the executor.
type Options struct {
	// Binary is the steampipe executable (name on PATH or absolute path).
	Binary string
	// Timeout bounds each invocation. Zero means DefaultTimeout.
	Timeout time.Duration
	// SearchPathPrefix is passed as --search-path-prefix, e.g. "azure_all,gcp_all".
	SearchPathPrefix string
	// InstallDir is passed as --install-dir when set.
	InstallDir string
}

// Executor runs queries through the steampipe CLI.
type Executor struct {
	opts Options
	// command builds the child process; swapped in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewExecutor creates an Executor, filling defaults for unset options.
func NewExecutor(opts Options) *Executor {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Executor{opts: opts, command: exec.CommandContext}
}

// Timeout returns the per-invocation budget.
func (e *Executor) Timeout() time.Duration { return e.opts.Timeout }

func (e *Executor) args(q inventory.Query) []string {
	args := []string{"query", q.Text, "--output", "json"}
	if e.opts.SearchPathPrefix != "" {
		args = append(args, "--search-path-prefix", e.opts.SearchPathPrefix)
	}
	if e.opts.InstallDir != "" {
		args = append(args, "--install-dir", e.opts.InstallDir)
	}
	return args
}

// Execute runs q and returns its rows. Any failure is a *inventory.QueryFailure:
// invocation when the process cannot start, timeout when the budget or ctx expires,
// engine for a non-zero exit (stderr verbatim) and decode for an unparseable payload.
func (e *Executor) Execute(ctx context.Context, q inventory.Query) (inventory.RawTable, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	cmd := e.prepare(ctx, e.args(q)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	slog.Debug("steampipe.query.done", "provider", q.Provider, "domain", q.Domain, "duration", time.Since(start), "bytes", stdout.Len())

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, inventory.NewFailure(q, inventory.FailureTimeout, fmt.Sprintf("query exceeded %s", e.opts.Timeout))
		}
		return nil, inventory.NewFailure(q, inventory.FailureTimeout, "query canceled: "+ctxErr.Error())
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		slog.Warn("steampipe.query.pipes.held", "provider", q.Provider, "domain", q.Domain, "grace", pipeGrace)
		err = nil
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := stderr.String()
			if strings.TrimSpace(msg) == "" {
				msg = exitErr.Error()
			}
			return nil, inventory.NewFailure(q, inventory.FailureEngine, msg)
		}
		return nil, inventory.NewFailure(q, inventory.FailureInvocation, err.Error())
	}

	table, err := ParseRows(stdout.Bytes())
	if err != nil {
		return nil, inventory.NewFailure(q, inventory.FailureDecode, err.Error())
	}
	return table, nil
}

// prepare builds the engine command. Cancellation kills the whole process group and the
// pipes are abandoned pipeGrace after exit or kill.
func (e *Executor) prepare(ctx context.Context, args ...string) *exec.Cmd {
	cmd := e.command(ctx, e.opts.Binary, args...)
	isolate(cmd)
	cmd.WaitDelay = pipeGrace
	return cmd
}

// ParseRows accepts either a bare JSON array of row objects or an object with a "rows"
// array, and normalizes both to a RawTable. Numbers are kept as json.Number so large
// integers survive intact.
func ParseRows(payload []byte) (inventory.RawTable, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, errors.New("empty engine output")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode engine output: %w", err)
	}

	var items []any
	switch v := data.(type) {
	case []any:
		items = v
	case map[string]any:
		rows, ok := v["rows"]
		if !ok {
			return nil, errors.New(`engine output object has no "rows" field`)
		}
		if rows == nil {
			return inventory.RawTable{}, nil
		}
		items, ok = rows.([]any)
		if !ok {
			return nil, fmt.Errorf(`engine output "rows" is %T, not an array`, rows)
		}
	default:
		return nil, fmt.Errorf("engine output is %T, not rows", data)
	}

	table := make(inventory.RawTable, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("engine row %d is %T, not an object", i, item)
		}
		table = append(table, inventory.RawRow(obj))
	}
	return table, nil
}
