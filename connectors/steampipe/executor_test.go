package steampipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

var storageQuery = inventory.Query{Domain: inventory.Storage, Provider: inventory.AWS, Text: "select name from aws_s3_bucket"}

// fakeCommand re-executes the test binary as a stand-in for the steampipe CLI.
func fakeCommand(scenario string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "HELPER_SCENARIO="+scenario)
		return cmd
	}
}

func newFakeExecutor(scenario string, opts Options) *Executor {
	e := NewExecutor(opts)
	e.command = fakeCommand(scenario)
	return e
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+2:]
			break
		}
	}
	switch os.Getenv("HELPER_SCENARIO") {
	case "bare":
		fmt.Fprint(os.Stdout, `[{"name":"b1","size":5368709120,"region":null}]`)
	case "envelope":
		fmt.Fprint(os.Stdout, `{"columns":[{"name":"name"}],"rows":[{"name":"b1"},{"name":"b2"}]}`)
	case "empty-envelope":
		fmt.Fprint(os.Stdout, `{"rows":null}`)
	case "engine-error":
		fmt.Fprint(os.Stderr, `Error: relation "aws_s3_bucket" does not exist`)
		os.Exit(1)
	case "silent-error":
		os.Exit(3)
	case "garbage":
		fmt.Fprint(os.Stdout, "Warning: plugin update available\n")
	case "sleep":
		time.Sleep(30 * time.Second)
	case "spawn-and-wait", "spawn-and-exit":
		// a plugin-like child that inherits stdout and outlives any sane budget
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", "plugin")
		child.Env = append(os.Environ(), "HELPER_SCENARIO=sleep")
		child.Stdout = os.Stdout
		if err := child.Start(); err != nil {
			os.Exit(2)
		}
		if os.Getenv("HELPER_SCENARIO") == "spawn-and-wait" {
			_ = child.Wait()
		}
		fmt.Fprint(os.Stdout, `[{"name":"b1"}]`)
	case "echo-args":
		rows := make([]map[string]string, 0, len(args))
		for _, a := range args {
			rows = append(rows, map[string]string{"arg": a})
		}
		_ = json.NewEncoder(os.Stdout).Encode(rows)
	case "version":
		fmt.Fprintln(os.Stdout, "Steampipe v0.23.2")
	}
	os.Exit(0)
}

func TestExecute_BareArray(t *testing.T) {
	e := newFakeExecutor("bare", Options{})
	table, err := e.Execute(context.Background(), storageQuery)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "b1", table[0]["name"])
	assert.Equal(t, json.Number("5368709120"), table[0]["size"])
	v, present := table[0]["region"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestExecute_RowsEnvelope(t *testing.T) {
	e := newFakeExecutor("envelope", Options{})
	table, err := e.Execute(context.Background(), storageQuery)
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "b2", table[1]["name"])

	e = newFakeExecutor("empty-envelope", Options{})
	table, err = e.Execute(context.Background(), storageQuery)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		scenario string
		opts     Options
		kind     inventory.FailureKind
		message  string
	}{
		{scenario: "engine-error", kind: inventory.FailureEngine, message: `Error: relation "aws_s3_bucket" does not exist`},
		{scenario: "silent-error", kind: inventory.FailureEngine, message: "exit status 3"},
		{scenario: "garbage", kind: inventory.FailureDecode},
		{scenario: "sleep", opts: Options{Timeout: 200 * time.Millisecond}, kind: inventory.FailureTimeout, message: "query exceeded 200ms"},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			e := newFakeExecutor(tt.scenario, tt.opts)
			table, err := e.Execute(context.Background(), storageQuery)
			assert.Nil(t, table)

			var qf *inventory.QueryFailure
			require.True(t, errors.As(err, &qf), "got %v", err)
			assert.Equal(t, tt.kind, qf.Kind)
			assert.Equal(t, inventory.AWS, qf.Provider)
			assert.Equal(t, inventory.Storage, qf.Domain)
			if tt.message != "" {
				assert.Equal(t, tt.message, qf.Message)
			}
		})
	}
}

func TestExecute_CallerCancelKillsQuery(t *testing.T) {
	e := newFakeExecutor("sleep", Options{Timeout: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := e.Execute(ctx, storageQuery)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, errors.Is(err, &inventory.QueryFailure{Kind: inventory.FailureTimeout}))
}

func TestExecute_TimeoutKillsSpawnedChildren(t *testing.T) {
	e := newFakeExecutor("spawn-and-wait", Options{Timeout: 300 * time.Millisecond})

	start := time.Now()
	_, err := e.Execute(context.Background(), storageQuery)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.True(t, errors.Is(err, &inventory.QueryFailure{Kind: inventory.FailureTimeout}), "got %v", err)
}

func TestExecute_DetachedChildHoldingStdout(t *testing.T) {
	e := newFakeExecutor("spawn-and-exit", Options{Timeout: time.Minute})

	start := time.Now()
	table, err := e.Execute(context.Background(), storageQuery)
	assert.Less(t, time.Since(start), 10*time.Second)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, "b1", table[0]["name"])
}

func TestExecute_MissingBinaryIsInvocationFailure(t *testing.T) {
	e := NewExecutor(Options{Binary: filepath.Join(t.TempDir(), "steampipe")})
	_, err := e.Execute(context.Background(), storageQuery)
	assert.True(t, errors.Is(err, &inventory.QueryFailure{Kind: inventory.FailureInvocation}), "got %v", err)
}

func TestExecute_PassesEngineFlags(t *testing.T) {
	e := newFakeExecutor("echo-args", Options{SearchPathPrefix: "azure_all", InstallDir: "/opt/sp"})
	table, err := e.Execute(context.Background(), storageQuery)
	require.NoError(t, err)

	var got []any
	for _, row := range table {
		got = append(got, row["arg"])
	}
	assert.Equal(t, []any{"query", storageQuery.Text, "--output", "json", "--search-path-prefix", "azure_all", "--install-dir", "/opt/sp"}, got)
}

func TestVersion(t *testing.T) {
	e := newFakeExecutor("version", Options{})
	v, err := e.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Steampipe v0.23.2", v)
}

func TestParseRows(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		rows    int
		wantErr bool
	}{
		{name: "bare array", payload: `[{"a":1},{"a":2}]`, rows: 2},
		{name: "envelope", payload: `{"rows":[{"a":1}]}`, rows: 1},
		{name: "empty array", payload: `[]`, rows: 0},
		{name: "empty output", payload: "  \n", wantErr: true},
		{name: "object without rows", payload: `{"data":[]}`, wantErr: true},
		{name: "rows not array", payload: `{"rows":"x"}`, wantErr: true},
		{name: "row not object", payload: `[1,2]`, wantErr: true},
		{name: "scalar", payload: `42`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ParseRows([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, table, tt.rows)
		})
	}
}

func TestClearCache(t *testing.T) {
	dir := t.TempDir()
	internal := filepath.Join(dir, "internal")
	require.NoError(t, os.MkdirAll(internal, 0o755))
	for _, name := range []string{"a.db", "b.db", "keep.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(internal, name), []byte("x"), 0o644))
	}

	e := NewExecutor(Options{InstallDir: dir})
	n, err := e.ClearCache()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, filepath.Join(internal, "keep.json"))
	assert.NoFileExists(t, filepath.Join(internal, "a.db"))
}
