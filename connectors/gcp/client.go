package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/account"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

const (
	DefaultBaseURL = "https://cloudresourcemanager.googleapis.com"
	readOnlyScope  = "https://www.googleapis.com/auth/cloud-platform.read-only"
)

// Client handles Cloud Resource Manager requests
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client authenticated with Application Default Credentials.
func NewClient(ctx context.Context) (*Client, error) {
	ts, err := google.DefaultTokenSource(ctx, readOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	hc := oauth2.NewClient(ctx, ts)
	hc.Timeout = 30 * time.Second
	return NewClientWithHTTP(hc, DefaultBaseURL), nil
}

// NewClientWithHTTP uses hc as is; it must add its own credentials.
func NewClientWithHTTP(hc *http.Client, baseURL string) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: hc}
}

type projectList struct {
	Projects []struct {
		ProjectID      string `json:"projectId"`
		Name           string `json:"name"`
		LifecycleState string `json:"lifecycleState"`
	} `json:"projects"`
	NextPageToken string `json:"nextPageToken"`
}

// ListProjects returns every active project the credentials can see.
func (c *Client) ListProjects(ctx context.Context) ([]account.Account, error) {
	var accounts []account.Account
	token := ""
	for {
		q := url.Values{"filter": {"lifecycleState:ACTIVE"}}
		if token != "" {
			q.Set("pageToken", token)
		}
		var page projectList
		if err := c.get(ctx, c.baseURL+"/v1/projects?"+q.Encode(), &page); err != nil {
			return nil, err
		}
		for _, p := range page.Projects {
			if p.LifecycleState != "" && p.LifecycleState != "ACTIVE" {
				continue
			}
			accounts = append(accounts, account.Account{Provider: inventory.GCP, ID: p.ProjectID, Name: p.Name})
		}
		if page.NextPageToken == "" {
			return accounts, nil
		}
		token = page.NextPageToken
	}
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API request failed: %d %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
