package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// TokenConfig holds the credentials for obtaining a Graph API access token.
type TokenConfig struct {
	BaseURL string
	Timeout time.Duration

	// LongAccessToken is the configured long-lived token, used as-is when no
	// exchange is possible and as the fallback when an exchange fails.
	LongAccessToken string

	// AppID, AppSecret and UserAccessToken enable exchanging a short-lived
	// user token for a fresh long-lived one.
	AppID           string
	AppSecret       string
	UserAccessToken string
}

// NewTokenSource returns the token source the Client should use.
//
// With app credentials and a user token, the first Token() call exchanges the
// user token for a long-lived token (grant_type=fb_exchange_token), and the
// result is reused until it expires. If the exchange fails, the configured
// long-lived token is returned instead and no further exchange is attempted.
// The exchanged token lives only in memory.
//
// Without app credentials it is a static source over LongAccessToken.
func NewTokenSource(cfg TokenConfig, logger *slog.Logger) oauth2.TokenSource {
	static := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.LongAccessToken})
	if cfg.AppID == "" || cfg.AppSecret == "" || cfg.UserAccessToken == "" {
		return static
	}

	exchange := &exchangeSource{
		http:      newRestyClient(cfg.BaseURL, cfg.Timeout),
		appID:     cfg.AppID,
		appSecret: cfg.AppSecret,
		userToken: cfg.UserAccessToken,
	}
	return &fallbackSource{
		primary:  oauth2.ReuseTokenSource(nil, exchange),
		fallback: static,
		logger:   logger,
	}
}

type exchangeResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	Error       *APIError `json:"error"`
}

// exchangeSource trades a short-lived user token for a long-lived one.
type exchangeSource struct {
	http      *resty.Client
	appID     string
	appSecret string
	userToken string
}

func (s *exchangeSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource has no context; the resty timeout bounds the call.
	var out exchangeResponse
	resp, err := s.http.R().
		SetContext(context.Background()).
		SetQueryParams(map[string]string{
			"grant_type":        "fb_exchange_token",
			"client_id":         s.appID,
			"client_secret":     s.appSecret,
			"fb_exchange_token": s.userToken,
		}).
		SetResult(&out).
		SetError(&out).
		Get("/oauth/access_token")
	if err != nil {
		return nil, fmt.Errorf("instagram: exchanging token: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	if resp.IsError() || out.AccessToken == "" {
		return nil, fmt.Errorf("instagram: token exchange returned %s", resp.Status())
	}

	tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: out.TokenType}
	if out.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// fallbackSource serves the primary token until the primary fails once, then
// serves the fallback for the rest of the process.
type fallbackSource struct {
	primary  oauth2.TokenSource
	fallback oauth2.TokenSource
	logger   *slog.Logger

	mu     sync.Mutex
	failed bool
}

func (s *fallbackSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.failed {
		tok, err := s.primary.Token()
		if err == nil {
			return tok, nil
		}
		s.failed = true
		s.logger.Warn("instagram token exchange failed, using configured long-lived token",
			slog.String("error", err.Error()),
		)
	}
	return s.fallback.Token()
}
