// Package slack posts report notifications through the Slack Web API.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	slackapi "github.com/slack-go/slack"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

var _ driven.Notifier = (*Client)(nil)

// APIError is a failed Web API call.
type APIError struct {
	Status  int
	Method  string
	Message string
	err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack %s: %s", e.Method, e.Message)
}

// Unwrap maps Slack error codes to domain errors.
func (e *APIError) Unwrap() []error {
	errs := []error{e.err}
	switch {
	case e.Status == http.StatusTooManyRequests || e.Message == "ratelimited":
		errs = append(errs, domain.ErrRateLimited)
	case e.Message == "invalid_auth" || e.Message == "not_authed" || e.Message == "token_revoked":
		errs = append(errs, domain.ErrAuthInvalid)
	case strings.HasSuffix(e.Message, "_not_found"):
		errs = append(errs, domain.ErrNotFound)
	}
	return errs
}

func wrapError(method string, err error) error {
	if err == nil {
		return nil
	}
	apiErr := &APIError{Method: method, Message: err.Error(), err: err}

	var slackErr slackapi.SlackErrorResponse
	var statusErr slackapi.StatusCodeError
	var rateErr *slackapi.RateLimitedError
	switch {
	case errors.As(err, &slackErr):
		apiErr.Message = slackErr.Err
	case errors.As(err, &statusErr):
		apiErr.Status = statusErr.Code
	case errors.As(err, &rateErr):
		apiErr.Status = http.StatusTooManyRequests
	default:
		return fmt.Errorf("slack %s: %w", method, err)
	}
	return apiErr
}

// Client calls the Slack Web API with a bot token.
type Client struct {
	api     *slackapi.Client
	limiter *rate.Limiter
}

type clientConfig struct {
	apiURL string
	http   *http.Client
}

// Option configures a Client.
type Option func(*clientConfig)

// WithAPIURL overrides the Web API root.
func WithAPIURL(u string) Option {
	return func(c *clientConfig) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.apiURL = u
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.http = hc }
}

// NewClient creates a Client.
func NewClient(token string, opts ...Option) *Client {
	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	var apiOpts []slackapi.Option
	if cfg.apiURL != "" {
		apiOpts = append(apiOpts, slackapi.OptionAPIURL(cfg.apiURL))
	}
	if cfg.http != nil {
		apiOpts = append(apiOpts, slackapi.OptionHTTPClient(cfg.http))
	}

	return &Client{
		api: slackapi.New(token, apiOpts...),
		// Tier 2 methods allow about 20 calls a minute.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// UserID returns the ID of the workspace member with email.
func (c *Client) UserID(ctx context.Context, email string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("slack user %s: %w", email, wrapError("users.lookupByEmail", err))
	}
	return user.ID, nil
}

// ChannelID returns the ID of the named channel. types lists conversation
// types such as "public_channel" and "private_channel". Private channels
// are only listed once the app has been added to them.
func (c *Client) ChannelID(ctx context.Context, name string, types ...string) (string, error) {
	name = strings.TrimPrefix(name, "#")
	params := &slackapi.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           200,
		Types:           types,
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		channels, next, err := c.api.GetConversationsContext(ctx, params)
		if err != nil {
			return "", wrapError("conversations.list", err)
		}
		for _, ch := range channels {
			if ch.Name == name {
				return ch.ID, nil
			}
		}
		if next == "" {
			return "", fmt.Errorf("slack channel %s: %w", name, domain.ErrNotFound)
		}
		params.Cursor = next
	}
}

// PostMessage sends text and attachments to a channel or user ID.
func (c *Client) PostMessage(ctx context.Context, channelID, text string, attachments []slackapi.Attachment) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if len(attachments) > 0 {
		opts = append(opts, slackapi.MsgOptionAttachments(attachments...))
	}
	_, _, err := c.api.PostMessageContext(ctx, channelID, opts...)
	return wrapError("chat.postMessage", err)
}

// Notify resolves n.Channel and posts the notification. Emails resolve
// to a direct message, names to a channel, anything else is used as an ID.
func (c *Client) Notify(ctx context.Context, n domain.Notification) error {
	target, err := c.resolve(ctx, n.Channel)
	if err != nil {
		return err
	}

	var attachments []slackapi.Attachment
	if len(n.Fields) > 0 || n.Color != "" {
		a := slackapi.Attachment{Color: n.Color}
		for _, f := range n.Fields {
			a.Fields = append(a.Fields, slackapi.AttachmentField{Title: f.Title, Value: f.Value, Short: f.Short})
		}
		attachments = append(attachments, a)
	}
	return c.PostMessage(ctx, target, n.Text, attachments)
}

func (c *Client) resolve(ctx context.Context, channel string) (string, error) {
	switch {
	case strings.Contains(channel, "@"):
		return c.UserID(ctx, channel)
	case strings.HasPrefix(channel, "#") || strings.ToLower(channel) == channel:
		return c.ChannelID(ctx, channel, "public_channel", "private_channel")
	default:
		return channel, nil
	}
}
