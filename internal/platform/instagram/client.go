// Package instagram is a minimal Instagram Graph API client built around the
// business discovery query, which returns a public business or creator
// account's recent media given only its username.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the versioned Graph API root.
const DefaultBaseURL = "https://graph.facebook.com/v17.0"

// graphTimeLayout is how the Graph API formats timestamps, e.g.
// "2024-05-01T09:00:00+0000".
const graphTimeLayout = "2006-01-02T15:04:05-0700"

var (
	// ErrMissingCredentials means no IG user id or access token is configured.
	ErrMissingCredentials = errors.New("instagram: user id or access token not configured")
	// ErrNoBusinessDiscovery means the response lacked the business_discovery object.
	ErrNoBusinessDiscovery = errors.New("instagram: business discovery returned no account")
)

// APIError is the Graph API error object.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram: graph error %d (%s): %s", e.Code, e.Type, e.Message)
}

// Media is one post returned by business discovery.
type Media struct {
	ID        string `json:"id"`
	Caption   string `json:"caption"`
	Timestamp string `json:"timestamp"`
	LikeCount *int64 `json:"like_count"`
}

// Account is the discovered account with its recent media.
type Account struct {
	ID    string
	Media []Media
}

type discoveryResponse struct {
	BusinessDiscovery *struct {
		ID    string `json:"id"`
		Media struct {
			Data []Media `json:"data"`
		} `json:"media"`
	} `json:"business_discovery"`
	Error *APIError `json:"error"`
}

// Options configures a Client.
type Options struct {
	BaseURL string
	// UserID is the IG business user id the query is issued on behalf of.
	UserID  string
	Tokens  oauth2.TokenSource
	Timeout time.Duration
}

// Client queries the Graph API.
type Client struct {
	http   *resty.Client
	userID string
	tokens oauth2.TokenSource
	logger *slog.Logger
}

// New creates a Client.
func New(opts Options, logger *slog.Logger) *Client {
	return &Client{
		http:   newRestyClient(opts.BaseURL, opts.Timeout),
		userID: opts.UserID,
		tokens: opts.Tokens,
		logger: logger,
	}
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// BusinessDiscovery looks up username and returns its recent media.
//
// A nil error means the account exists and is discoverable. The Graph API
// reports unknown or personal accounts as an error object, which comes back
// as *APIError.
func (c *Client) BusinessDiscovery(ctx context.Context, username string) (*Account, error) {
	if c.userID == "" || c.tokens == nil {
		return nil, ErrMissingCredentials
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("instagram: obtaining access token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrMissingCredentials
	}

	var out discoveryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"fields":       fmt.Sprintf("business_discovery.username(%s){media{caption,timestamp,like_count}}", username),
			"access_token": tok.AccessToken,
		}).
		SetResult(&out).
		SetError(&out).
		Get("/" + c.userID)
	if err != nil {
		return nil, fmt.Errorf("instagram: business discovery for %s: %w", username, err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if resp.IsError() {
		return nil, &APIError{Code: resp.StatusCode(), Message: resp.Status()}
	}
	if out.BusinessDiscovery == nil {
		return nil, ErrNoBusinessDiscovery
	}

	return &Account{
		ID:    out.BusinessDiscovery.ID,
		Media: out.BusinessDiscovery.Media.Data,
	}, nil
}

// ParseTimestamp parses a Graph API timestamp. RFC 3339 is accepted as well.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(graphTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("instagram: unrecognized timestamp %q", s)
	}
	return t.UTC(), nil
}
