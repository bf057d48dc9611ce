// Package facebook reads ad account reports from the Facebook Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	fb "github.com/huandu/facebook/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.ReportSource = (*Client)(nil)

// DefaultAPIVersion is the Graph API version used when none is configured.
const DefaultAPIVersion = "v21.0"

// ParamEdge selects the account edge to read. Defaults to "insights".
// Every other query parameter is passed through, e.g. level or date_preset.
const ParamEdge = "edge"

// Client is a Graph API report source. The query's CustomerID is the ad
// account ID, with or without the "act_" prefix.
type Client struct {
	session *fb.Session
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAPIVersion sets the Graph API version, e.g. "v21.0".
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		if v != "" {
			c.session.Version = v
		}
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.session.HttpClient = hc }
}

// NewClient creates a Client authenticated by a long-lived access token.
func NewClient(token string, opts ...Option) *Client {
	session := &fb.Session{Version: DefaultAPIVersion}
	session.SetAccessToken(token)

	c := &Client{
		session: session,
		// Stay well under the ads management tier rate.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns the source type identifier.
func (c *Client) Type() domain.SourceType {
	return domain.SourceFacebook
}

// Fetch sends every entry of every page of the requested edge.
func (c *Client) Fetch(ctx context.Context, query domain.ReportQuery) (<-chan domain.Value, <-chan error) {
	records := make(chan domain.Value)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(records)
		if err := c.fetch(ctx, query, records); err != nil {
			errs <- err
		}
	}()

	return records, errs
}

func (c *Client) fetch(ctx context.Context, query domain.ReportQuery, out chan<- domain.Value) error {
	account := query.CustomerID
	if account == "" {
		return fmt.Errorf("ad account: %w", domain.ErrInvalidInput)
	}
	if !strings.HasPrefix(account, "act_") {
		account = "act_" + account
	}

	params := fb.Params{}
	for k, v := range query.Params {
		if k != ParamEdge {
			params[k] = v
		}
	}
	if len(query.Fields) > 0 {
		params["fields"] = strings.Join(query.Fields, ",")
	}
	edge := query.Param(ParamEdge, "insights")
	path := "/" + account + "/" + edge
	session := c.session.WithContext(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	res, err := session.Get(path, params)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", account, edge, wrapError(err))
	}
	paging, err := res.Paging(session)
	if err != nil {
		return fmt.Errorf("read %s/%s: %w", account, edge, err)
	}

	for {
		for _, entry := range paging.Data() {
			v, err := decodeResult(entry)
			if err != nil {
				return err
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		noMore, err := paging.Next()
		if err != nil {
			return fmt.Errorf("read %s/%s: %w", account, edge, wrapError(err))
		}
		if noMore {
			return nil
		}
	}
}

func decodeResult(r fb.Result) (domain.Value, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return domain.Null(), fmt.Errorf("encode entry: %w", err)
	}
	return domain.DecodeJSON(raw)
}

// APIError is a Graph API error response.
type APIError struct {
	Code      int
	Subcode   int
	Type      string
	Message   string
	FBTraceID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("facebook: %s (code %d)", e.Message, e.Code)
}

// Unwrap maps throttling, token and permission codes to domain errors.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case 4, 17, 32, 613, 80004:
		return domain.ErrRateLimited
	case 190:
		return domain.ErrAuthInvalid
	case 10, 200:
		return domain.ErrPermissionDenied
	case 803:
		return domain.ErrNotFound
	}
	return nil
}

func wrapError(err error) error {
	var fbErr *fb.Error
	if !errors.As(err, &fbErr) {
		return err
	}
	return &APIError{
		Code:      fbErr.Code,
		Subcode:   fbErr.ErrorSubcode,
		Type:      fbErr.Type,
		Message:   fbErr.Message,
		FBTraceID: fbErr.TraceID,
	}
}
