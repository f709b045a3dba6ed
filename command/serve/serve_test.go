package serve

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/aggregate"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/catalog"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/connectors/steampipe"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// fakeEngine answers queries from canned engine stdout, or fails with a QueryFailure kind.
type fakeEngine struct {
	payloads map[inventory.Provider]string
	failures map[inventory.Provider]inventory.FailureKind
	version  string
}

func (f *fakeEngine) Execute(_ context.Context, q inventory.Query) (inventory.RawTable, error) {
	if kind, ok := f.failures[q.Provider]; ok {
		return nil, inventory.NewFailure(q, kind, "boom from "+string(q.Provider))
	}
	payload, ok := f.payloads[q.Provider]
	if !ok {
		payload = "[]"
	}
	return steampipe.ParseRows([]byte(payload))
}

func (f *fakeEngine) Version(context.Context) (string, error) {
	if f.version == "" {
		return "", errors.New("exec: \"steampipe\": executable file not found in $PATH")
	}
	return f.version, nil
}

func newTestServer(t *testing.T, engine *fakeEngine) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	agg := aggregate.New(catalog.Default(), engine, aggregate.NewMetrics(reg))
	srv := httptest.NewServer(NewServer(agg, engine, reg, []string{"http://localhost:3000"}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	return resp, sb.String()
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	resp, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestStorageAll_SingleBucket(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{payloads: map[inventory.Provider]string{
		inventory.AWS: `[{"name":"b1","region":"us-east-1","creation_date":"2024-01-01","size":5368709120,"objects":10}]`,
	}})

	resp, body := get(t, srv, "/storage/all")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"provider":"aws","name":"b1","location":"us-east-1","created_at":"2024-01-01","size_bytes":5368709120,"object_count":10}]`, body)
	assert.Empty(t, resp.Header.Get(FailuresHeader))
}

func TestStorageAll_NumericStrings(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{payloads: map[inventory.Provider]string{
		inventory.AWS: `[{"name":"b1","region":"us-east-1","creation_date":"2024-01-01","size":"5368709120","objects":"10"}]`,
	}})

	resp, body := get(t, srv, "/storage/all")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"provider":"aws","name":"b1","location":"us-east-1","created_at":"2024-01-01","size_bytes":5368709120,"object_count":10}]`, body)
}

func TestStorageAll_PartialFailure(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{
		payloads: map[inventory.Provider]string{
			inventory.AWS: `{"rows":[{"name":"b1","region":"us-east-1","size":10}]}`,
			inventory.GCP: `[{"name":"g1","location":"US","storage_class":"STANDARD"}]`,
		},
		failures: map[inventory.Provider]inventory.FailureKind{inventory.Azure: inventory.FailureTimeout},
	})

	resp, body := get(t, srv, "/storage/all")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "azure:timeout", resp.Header.Get(FailuresHeader))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "b1", rows[0]["name"])
	assert.Equal(t, "g1", rows[1]["name"])
	assert.Equal(t, "STANDARD", rows[1]["class"])
	assert.Nil(t, rows[1]["size_bytes"])
}

func TestSingleProviderFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{
		failures: map[inventory.Provider]inventory.FailureKind{inventory.AWS: inventory.FailureEngine},
	})

	resp, body := get(t, srv, "/compute/aws")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.JSONEq(t, `{"error":"boom from aws","provider":"aws","kind":"engine"}`, body)
}

func TestBadRequest(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	for _, path := range []string{"/network/aws", "/storage/oracle", "/STORAGE/all-of-them"} {
		resp, body := get(t, srv, path)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Contains(t, body, `"error"`, path)
	}
}

func TestBillingAll(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{
		payloads: map[inventory.Provider]string{
			inventory.AWS:   `[{"service":"Amazon S3","cost":12.345,"currency":"USD"}]`,
			inventory.Azure: `[{"instance_id":"/subscriptions/s/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm1","cost":"40.531","currency":"usd"}]`,
		},
		failures: map[inventory.Provider]inventory.FailureKind{inventory.GCP: inventory.FailureDecode},
	})

	resp, body := get(t, srv, "/billing/all")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		TotalCost json.Number      `json:"total_cost"`
		Currency  string           `json:"currency"`
		Services  []map[string]any `json:"services"`
		Failures  []map[string]any `json:"failures"`
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&got))

	assert.Equal(t, json.Number("52.88"), got.TotalCost)
	assert.Equal(t, "USD", got.Currency)
	require.Len(t, got.Services, 2)
	assert.Equal(t, "azure", got.Services[0]["provider"])
	assert.Equal(t, "Microsoft.Compute/virtualMachines", got.Services[0]["service"])
	assert.Equal(t, "aws", got.Services[1]["provider"])
	require.Len(t, got.Failures, 1)
	assert.Equal(t, "gcp", got.Failures[0]["provider"])
	assert.Equal(t, "decode", got.Failures[0]["kind"])
}

func TestBillingAll_EveryProviderFails(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{failures: map[inventory.Provider]inventory.FailureKind{
		inventory.AWS:   inventory.FailureInvocation,
		inventory.Azure: inventory.FailureInvocation,
		inventory.GCP:   inventory.FailureInvocation,
	}})

	resp, body := get(t, srv, "/billing/all")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.EqualValues(t, 0, got["total_cost"])
	assert.Equal(t, "USD", got["currency"])
	assert.Empty(t, got["services"])
	assert.Len(t, got["failures"], 3)
}

func TestDetailEnvelope(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{payloads: map[inventory.Provider]string{
		inventory.GCP: `[{"name":"vm-1","machine_type_name":"e2-small","status":"RUNNING","zone":"us-central1-a"},{"status":"RUNNING"}]`,
	}})

	resp, body := get(t, srv, "/compute/gcp?detail=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Domain       string           `json:"domain"`
		Rows         []map[string]any `json:"rows"`
		Failures     []map[string]any `json:"failures"`
		DecodeErrors []map[string]any `json:"decode_errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, "compute", got.Domain)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "vm-1", got.Rows[0]["name"])
	assert.Empty(t, got.Failures)
	require.Len(t, got.DecodeErrors, 1)
	assert.Equal(t, "gcp", got.DecodeErrors[0]["provider"])
	assert.Equal(t, "name", got.DecodeErrors[0]["field"])
}

func TestEngineHealth(t *testing.T) {
	up := newTestServer(t, &fakeEngine{version: "Steampipe v0.24.2"})
	resp, body := get(t, up, "/healthz/engine")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","version":"Steampipe v0.24.2"}`, body)

	down := newTestServer(t, &fakeEngine{})
	resp, _ = get(t, down, "/healthz/engine")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	get(t, srv, "/storage/aws")

	resp, body := get(t, srv, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `inventory_engine_queries_total{domain="storage",outcome="ok",provider="aws"} 1`)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, &fakeEngine{})
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/storage/aws", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
