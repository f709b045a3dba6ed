package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/account"
	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

const (
	DefaultLoginURL      = "https://login.microsoftonline.com"
	DefaultManagementURL = "https://management.azure.com"
	subscriptionsAPI     = "2022-12-01"
)

// Credentials is a service principal allowed to list subscriptions.
type Credentials struct {
	TenantID     string
	ClientID     string
	ClientSecret string
}

// Valid reports whether every field is set.
func (c Credentials) Valid() bool {
	return c.TenantID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Client handles Azure Resource Manager requests
type Client struct {
	managementURL string
	httpClient    *http.Client
}

// Option customizes a Client.
type Option func(*options)

type options struct {
	loginURL      string
	managementURL string
}

// WithEndpoints points the client at other login and management hosts.
func WithEndpoints(loginURL, managementURL string) Option {
	return func(o *options) {
		o.loginURL = strings.TrimRight(loginURL, "/")
		o.managementURL = strings.TrimRight(managementURL, "/")
	}
}

// NewClient creates a client that authenticates with the client credentials grant. Tokens
// are fetched lazily and refreshed on expiry.
func NewClient(ctx context.Context, creds Credentials, opts ...Option) *Client {
	o := options{loginURL: DefaultLoginURL, managementURL: DefaultManagementURL}
	for _, opt := range opts {
		opt(&o)
	}
	cc := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", o.loginURL, creds.TenantID),
		Scopes:       []string{DefaultManagementURL + "/.default"},
	}
	base := &http.Client{Timeout: 30 * time.Second}
	hc := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	hc.Timeout = 30 * time.Second
	return &Client{managementURL: o.managementURL, httpClient: hc}
}

type subscriptionList struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		DisplayName    string `json:"displayName"`
		State          string `json:"state"`
	} `json:"value"`
	NextLink string `json:"nextLink"`
}

// ListSubscriptions returns every enabled subscription visible to the principal.
func (c *Client) ListSubscriptions(ctx context.Context) ([]account.Account, error) {
	url := fmt.Sprintf("%s/subscriptions?api-version=%s", c.managementURL, subscriptionsAPI)
	var accounts []account.Account
	for url != "" {
		var page subscriptionList
		if err := c.get(ctx, url, &page); err != nil {
			return nil, err
		}
		for _, s := range page.Value {
			if !strings.EqualFold(s.State, "Enabled") {
				continue
			}
			accounts = append(accounts, account.Account{Provider: inventory.Azure, ID: s.SubscriptionID, Name: s.DisplayName})
		}
		url = page.NextLink
	}
	return accounts, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to list subscriptions: %w", err)
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
