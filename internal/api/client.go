// Package api is the REST client for the organization-scoped WhatsApp
// endpoints of the booking platform backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const waPath = "/organizations/{orgId}/wa"

// ErrMissingOrg is returned when a call is made without an organization id.
var ErrMissingOrg = errors.New("organization id is required")

// Client talks to the backend. Failed calls are never retried.
type Client struct {
	baseURL string
	resty   *resty.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.resty.SetTimeout(d)
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.resty = newResty(resty.NewWithClient(hc), c.baseURL, c.resty.Token)
	}
}

// NewClient creates a client for baseURL authenticated with token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	c := &Client{
		baseURL: baseURL,
		resty:   newResty(resty.New(), baseURL, token),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newResty(r *resty.Client, baseURL, token string) *resty.Client {
	r.SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "wactl")
	if token != "" {
		r.SetAuthToken(token)
	}
	return r
}

func (c *Client) request(ctx context.Context, orgID string) (*resty.Request, error) {
	if orgID == "" {
		return nil, ErrMissingOrg
	}
	return c.resty.R().
		SetContext(ctx).
		SetPathParam("orgId", orgID).
		SetError(&errorBody{}), nil
}

// check turns a resty response into an error for anything but 2xx.
func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.logger.Debug("api request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	c.logger.Debug("api response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("took", resp.Time()))

	if !resp.IsError() {
		return nil
	}
	body, _ := resp.Error().(*errorBody)
	msg := body.text()
	if msg == "" && len(resp.Body()) > 0 && len(resp.Body()) <= 200 {
		msg = strings.TrimSpace(resp.String())
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// Status fetches the current session status. A missing session is
// reported as a Status with Found false, not as an error.
func (c *Client) Status(ctx context.Context, orgID string) (*Status, error) {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return nil, err
	}
	resp, err := req.Get(waPath + "/status")
	if err := c.check(resp, err, "status"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Status{Found: false}, nil
		}
		return nil, err
	}
	return NormalizeStatus(resp.Body())
}

// Connect starts a session and returns where to open the realtime channel.
func (c *Client) Connect(ctx context.Context, orgID string, in ConnectRequest) (*ConnectResponse, error) {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out ConnectResponse
	resp, err := req.SetBody(in).SetResult(&out).Post(waPath + "/connect")
	if err := c.check(resp, err, "connect"); err != nil {
		return nil, err
	}
	if out.WS.Token == "" {
		return nil, fmt.Errorf("connect: response has no realtime token")
	}
	return &out, nil
}

// Restart asks the backend to restart the session.
func (c *Client) Restart(ctx context.Context, orgID, clientID string) error {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return err
	}
	resp, err := req.SetBody(SessionRequest{ClientID: clientID}).Post(waPath + "/restart")
	return c.check(resp, err, "restart")
}

// Logout ends the session on the backend.
func (c *Client) Logout(ctx context.Context, orgID, clientID string) error {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return err
	}
	resp, err := req.SetBody(SessionRequest{ClientID: clientID}).Post(waPath + "/logout")
	return c.check(resp, err, "logout")
}

// Send delivers a test message through the session.
func (c *Client) Send(ctx context.Context, orgID string, in SendRequest) (*SendResponse, error) {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out SendResponse
	resp, err := req.SetBody(in).SetResult(&out).Post(waPath + "/send")
	if err := c.check(resp, err, "send"); err != nil {
		return nil, err
	}
	return &out, nil
}

// DevScan completes pairing on the dev server as if the phone had scanned
// the QR. Real backends answer 404.
func (c *Client) DevScan(ctx context.Context, orgID string) error {
	req, err := c.request(ctx, orgID)
	if err != nil {
		return err
	}
	resp, err := req.Post(waPath + "/dev/scan")
	return c.check(resp, err, "dev scan")
}

// RealtimeURL resolves the channel url from a connect response against the
// base URL. Relative and empty urls are served by the backend host itself.
func (c *Client) RealtimeURL(raw string) (string, error) {
	return ResolveRealtimeURL(c.baseURL, raw)
}

// ResolveRealtimeURL resolves raw against baseURL and maps http(s) to ws(s).
func ResolveRealtimeURL(baseURL, raw string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	if raw == "" {
		raw = "/ws"
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	u := base.ResolveReference(ref)

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	return u.String(), nil
}
