// Package telemetry pushes parsed records to the remote telemetry cloud
// and orchestrates batched synchronization.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chaintrace/internal/platform/config"
	dErrors "chaintrace/pkg/domain-errors"
	"chaintrace/pkg/platform/circuit"
)

// tokenSkew renews the access token this long before its exp claim.
const tokenSkew = 30 * time.Second

// Client talks to the telemetry cloud API. It authenticates with client
// credentials, renews its token before expiry, and trips a circuit
// breaker when the publish path fails repeatedly.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	breaker      *circuit.Breaker
	logger       *slog.Logger
	now          func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client, for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientClock overrides the wall clock, for tests.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient constructs a telemetry Client.
func NewClient(cfg config.Telemetry, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		breaker:      circuit.New("telemetry", circuit.WithFailureThreshold(5)),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges client credentials for an access token. The
// token's lifetime comes from its JWT exp claim when present, falling
// back to expires_in.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "telemetry authentication failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return dErrors.Newf(dErrors.CodeUnauthorized,
			"telemetry authentication rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode token response")
	}
	if tr.AccessToken == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "telemetry token response missing access_token")
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.expiresAt = c.tokenExpiry(tr)
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "telemetry token refreshed", "expires_at", c.expiresAt)
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// claim only schedules our own renewal.
func (c *Client) tokenExpiry(tr tokenResponse) time.Time {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tr.AccessToken, jwt.MapClaims{})
	if err == nil {
		if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if tr.ExpiresIn > 0 {
		return c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return c.now().Add(time.Hour)
}

// ensureToken re-authenticates when the cached token is missing or about
// to expire.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	fresh := token != "" && c.now().Add(tokenSkew).Before(c.expiresAt)
	c.mu.Unlock()
	if fresh {
		return token, nil
	}

	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// Publish pushes one property value for a thing. An open circuit fails
// fast with CodeUnavailable instead of hitting the endpoint.
func (c *Client) Publish(ctx context.Context, thingID, property string, payload any) error {
	if c.breaker.IsOpen() {
		return dErrors.New(dErrors.CodeUnavailable, "telemetry circuit open")
	}

	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"value": payload})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode telemetry payload")
	}

	endpoint := fmt.Sprintf("%s/v2/things/%s/properties/%s/publish",
		c.baseURL, url.PathEscape(thingID), url.PathEscape(property))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(ctx)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "telemetry publish failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		c.recordSuccess(ctx)
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		// Force re-auth on the next call; do not trip the breaker for a
		// credential problem.
		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()
		return dErrors.New(dErrors.CodeUnauthorized, "telemetry rejected token")
	default:
		c.recordFailure(ctx)
		return dErrors.Newf(dErrors.CodeUnavailable, "telemetry publish failed: status %d", resp.StatusCode)
	}
}

// GetStatus fetches the remote state of a thing.
func (c *Client) GetStatus(ctx context.Context, thingID string) (map[string]any, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v2/things/%s", c.baseURL, url.PathEscape(thingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "telemetry status failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeUnavailable, "telemetry status failed: status %d", resp.StatusCode)
	}
	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to decode status response")
	}
	return status, nil
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "telemetry circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "telemetry circuit closed", "breaker", c.breaker.Name())
	}
}
