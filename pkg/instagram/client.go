package instagram

import (
	"context"
	"encoding/json"
	"strings"

	"igfollow/pkg/config"
	errs "igfollow/pkg/errors"
	"igfollow/pkg/logger"
	"igfollow/pkg/retry"
)

// Credentials is the session header bundle sent with every request
type Credentials struct {
	SessionID string
	CSRFToken string
	// Cookies is an extra cookie string appended after sessionid and csrftoken
	Cookies   string
	UserAgent string
	AppID     string
}

// CredentialsFromConfig copies the session fields of cfg
func CredentialsFromConfig(cfg config.InstagramConfig) Credentials {
	return Credentials{
		SessionID: cfg.SessionID,
		CSRFToken: cfg.CSRFToken,
		Cookies:   cfg.Cookies,
		UserAgent: cfg.UserAgent,
		AppID:     cfg.AppID,
	}
}

// CookieHeader builds the Cookie header value
func (c Credentials) CookieHeader() string {
	var parts []string
	if c.SessionID != "" && !strings.Contains(c.Cookies, "sessionid=") {
		parts = append(parts, "sessionid="+c.SessionID)
	}
	if c.CSRFToken != "" && !strings.Contains(c.Cookies, "csrftoken=") {
		parts = append(parts, "csrftoken="+c.CSRFToken)
	}
	if extra := strings.Trim(strings.TrimSpace(c.Cookies), "; "); extra != "" {
		parts = append(parts, extra)
	}
	return strings.Join(parts, "; ")
}

// Headers returns a fresh header map for one request
func (c Credentials) Headers() map[string]string {
	appID := c.AppID
	if appID == "" {
		appID = config.DefaultAppID
	}
	userAgent := c.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	h := map[string]string{
		"x-ig-app-id": appID,
		"user-agent":  userAgent,
	}
	if c.CSRFToken != "" {
		h["x-csrftoken"] = c.CSRFToken
	}
	if cookie := c.CookieHeader(); cookie != "" {
		h["cookie"] = cookie
	}
	return h
}

// Client talks to the Instagram web API
type Client struct {
	transport  Transport
	creds      Credentials
	baseURL    string
	apiBaseURL string
	pageSize   int
	retry      retry.Config
	logger     logger.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points every endpoint at base, typically a test server
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.baseURL = base
		c.apiBaseURL = base
	}
}

// WithPageSize sets the count parameter of list requests
func WithPageSize(n int) ClientOption {
	return func(c *Client) { c.pageSize = n }
}

// WithRetry enables retrying of transient failures
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retry = cfg }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client. The credentials are copied and never modified.
func NewClient(transport Transport, creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		transport:  transport,
		creds:      creds,
		baseURL:    BaseURL,
		apiBaseURL: APIBaseURL,
		pageSize:   DefaultPageSize,
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credentials returns a copy of the session bundle
func (c *Client) Credentials() Credentials {
	return c.creds
}

// get sends one request, mapping non-2xx statuses through onStatus. When
// retries are enabled the whole exchange is retried on transient failures.
func (c *Client) get(ctx context.Context, url string, onStatus func(status int, text string) *errs.Error) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		resp, err := c.transport.Get(ctx, url, c.creds.Headers())
		if err != nil {
			return nil, err
		}
		if !resp.OK() {
			return nil, onStatus(resp.StatusCode, resp.StatusText)
		}
		return resp.Body, nil
	})
}

// FetchProfile looks up a profile by username. It returns nil without error
// when the response carries no user.
func (c *Client) FetchProfile(ctx context.Context, username string) (*ProfileUser, error) {
	log := c.logger.WithField("username", username)
	log.Info("fetching profile id")

	body, err := c.get(ctx, ProfileURL(c.apiBaseURL, username), errs.LookupFailed)
	if err != nil {
		log.WithError(err).Error("profile lookup failed")
		return nil, err
	}

	var resp ProfileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.WithError(err).Error("failed to parse profile response")
		return nil, errs.Wrap(errs.KindParsing, "failed to parse profile response", err)
	}

	return resp.Data.User, nil
}

// ResolveUserID resolves a username to its numeric account id. An empty id
// with a nil error means the lookup succeeded but returned no user.
func (c *Client) ResolveUserID(ctx context.Context, username string) (string, error) {
	user, err := c.FetchProfile(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		c.logger.WarnWithFields("profile lookup returned no user", map[string]interface{}{
			"username": username,
		})
		return "", nil
	}

	c.logger.InfoWithFields("profile id resolved", map[string]interface{}{
		"username":  username,
		"user_id":   user.ID,
		"following": user.EdgeFollow.Count,
		"followers": user.EdgeFollowedBy.Count,
	})
	return user.ID, nil
}

// FetchPage fetches one page of the given follow list. An empty cursor
// requests the first page.
func (c *Client) FetchPage(ctx context.Context, kind EdgeKind, userID, cursor string) (*FollowingPage, error) {
	url := EdgeListURL(c.baseURL, kind, userID, cursor, c.pageSize)
	log := c.logger.WithFields(map[string]interface{}{
		"kind":    string(kind),
		"user_id": userID,
		"cursor":  cursor,
	})
	log.Debug("fetching page")

	body, err := c.get(ctx, url, func(status int, text string) *errs.Error {
		e := errs.FetchFailed(status, text)
		if kind == KindFollowers {
			e.Message = "failed to fetch followers"
		}
		return e
	})
	if err != nil {
		log.WithError(err).Error("page fetch failed")
		return nil, err
	}

	var page FollowingPage
	if err := json.Unmarshal(body, &page); err != nil {
		log.WithError(err).Error("failed to parse page")
		return nil, errs.Wrap(errs.KindParsing, "failed to parse "+string(kind)+" page", err)
	}

	log.DebugWithFields("page fetched", map[string]interface{}{
		"users":    len(page.Users),
		"has_more": page.HasMore,
		"next":     page.NextCursor(),
	})
	return &page, nil
}

// FetchFollowingPage fetches one page of accounts userID follows
func (c *Client) FetchFollowingPage(ctx context.Context, userID, cursor string) (*FollowingPage, error) {
	return c.FetchPage(ctx, KindFollowing, userID, cursor)
}

// FetchFollowersPage fetches one page of accounts following userID
func (c *Client) FetchFollowersPage(ctx context.Context, userID, cursor string) (*FollowingPage, error) {
	return c.FetchPage(ctx, KindFollowers, userID, cursor)
}
