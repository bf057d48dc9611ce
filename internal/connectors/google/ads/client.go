// Package ads talks to the Google Ads REST API: streamed GAQL reports and
// batch mutate jobs.
package ads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/custodia-labs/adreports/internal/connectors/google"
	"github.com/custodia-labs/adreports/internal/core/domain"
)

// Defaults for the REST endpoint.
const (
	DefaultBaseURL    = "https://googleads.googleapis.com/"
	DefaultAPIVersion = "v21"
)

// Client sends authenticated Google Ads REST requests. The HTTP client
// must add OAuth credentials; the developer token and login customer
// headers are added here.
type Client struct {
	http            *http.Client
	baseURL         string
	version         string
	developerToken  string
	loginCustomerID string
	limiter         *google.RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithAPIVersion sets the API version path element, e.g. "v21".
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.version = v
		}
	}
}

// WithLoginCustomerID sets the manager account requests are made through.
func WithLoginCustomerID(id string) Option {
	return func(c *Client) { c.loginCustomerID = NormalizeCustomerID(id) }
}

// NewClient creates a Client.
func NewClient(httpClient *http.Client, developerToken string, opts ...Option) *Client {
	c := &Client{
		http:           httpClient,
		baseURL:        DefaultBaseURL,
		version:        DefaultAPIVersion,
		developerToken: developerToken,
		limiter:        google.NewRateLimiter(google.ServiceAds),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// url returns the absolute URL of a path below the versioned root.
func (c *Client) url(path string) string {
	return c.baseURL + c.version + "/" + strings.TrimPrefix(path, "/")
}

// do sends a request and decodes the JSON response. A nil body sends GET.
func (c *Client) do(ctx context.Context, rawURL string, body any) (domain.Value, error) {
	resp, err := c.send(ctx, rawURL, body)
	if err != nil {
		return domain.Null(), err
	}
	defer resp.Body.Close()
	return domain.DecodeJSONStream(resp.Body)
}

func (c *Client) send(ctx context.Context, rawURL string, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	method := http.MethodGet
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		method = http.MethodPost
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("developer-token", c.developerToken)
	if c.loginCustomerID != "" {
		req.Header.Set("login-customer-id", c.loginCustomerID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		retry, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		c.limiter.RecordRateLimitError(retry)
	}
	if err := google.CheckResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}
