package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	// The token endpoint does not report an expiry; Marzban tokens are
	// observed to live 24 hours. Refresh 5 minutes early to stay clear of
	// the edge.
	tokenValidity     = 24 * time.Hour
	tokenRefreshSlack = 5 * time.Minute
)

// TokenInfo is a cached bearer token. A token with no known expiry is
// treated as never expiring.
type TokenInfo struct {
	AccessToken string
	ExpiresAt   *time.Time
}

func (t TokenInfo) Expired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-tokenRefreshSlack))
}

// RetryPolicy makes the retry behavior data instead of scattered control
// flow: how many attempts, and how long to wait after attempt n.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
	}
}

type ClientConfig struct {
	BaseURL     string
	Username    string
	Password    string
	AccessToken string
	Timeout     time.Duration
	Retry       RetryPolicy
}

// Client talks to a Marzban panel. It caches the bearer token and
// re-authenticates transparently when the cached token ages out.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	retry    RetryPolicy

	mu    sync.Mutex
	token *TokenInfo
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy(3)
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: cfg.Timeout},
		retry:    cfg.Retry,
	}
	if cfg.AccessToken != "" {
		c.token = &TokenInfo{AccessToken: cfg.AccessToken}
	}
	return c
}

// Token returns the cached token, if any.
func (c *Client) Token() *TokenInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return nil
	}
	t := *c.token
	return &t
}

// Authenticate performs the form-encoded password grant and replaces the
// cached token on success.
func (c *Client) Authenticate(ctx context.Context) (*TokenInfo, error) {
	if c.username == "" || c.password == "" {
		return nil, newError(KindAuth, "username and password required for authentication")
	}

	form := url.Values{
		"username":   {c.username},
		"password":   {c.password},
		"grant_type": {"password"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/admin/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, newError(KindConnection, "failed to build auth request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(KindConnection, "connection error during auth: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, newError(KindAuth, "invalid credentials")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, newError(KindConnection, "auth failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, newError(KindConnection, "failed to decode auth response: %v", err)
	}

	expires := time.Now().UTC().Add(tokenValidity)
	token := &TokenInfo{AccessToken: payload.AccessToken, ExpiresAt: &expires}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	t := *token
	return &t, nil
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != nil && !token.Expired(time.Now()) {
		return nil
	}
	_, err := c.Authenticate(ctx)
	return err
}

// request issues one authenticated call with the configured retry policy.
// Connection errors and 5xx responses back off and retry; 404 fails
// immediately; the first 401 triggers exactly one re-authentication and one
// repeat of the call.
func (c *Client) request(ctx context.Context, method, endpoint string, body, out interface{}) error {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}

	err := c.doWithRetry(ctx, method, endpoint, body, out)
	if !IsAuth(err) {
		return err
	}

	// A 401 on a fresh-looking token means it was revoked server-side.
	// Re-authenticate and repeat the call once, without a new retry budget.
	if _, authErr := c.Authenticate(ctx); authErr != nil {
		return authErr
	}
	return c.doOnce(ctx, method, endpoint, body, out)
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.retry.Backoff(attempt-1)); err != nil {
				return newError(KindConnection, "retry cancelled: %v", err)
			}
		}

		err := c.doOnce(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}

		switch KindOf(err) {
		case KindAuth, KindNotFound:
			return err
		default:
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = newError(KindConnection, "max retries exceeded")
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return newError(KindGeneric, "failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return newError(KindConnection, "failed to build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != nil {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return newError(KindConnection, "request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return newError(KindAuth, "authentication failed")
	case resp.StatusCode == http.StatusNotFound:
		return newError(KindNotFound, "resource not found: %s", endpoint)
	case resp.StatusCode >= 500:
		data, _ := io.ReadAll(resp.Body)
		return newError(KindServer, "server error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	case resp.StatusCode >= 400:
		data, _ := io.ReadAll(resp.Body)
		return newError(KindGeneric, "unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindConnection, "failed to read response: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(KindGeneric, "failed to decode response: %v", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ==================== API surface ====================

type AdminInfo struct {
	Username string `json:"username"`
	IsSudo   bool   `json:"is_sudo"`
}

type NodeSettings struct {
	MinNodeVersion string `json:"min_node_version"`
	Certificate    string `json:"certificate"`
}

type Node struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Port             int     `json:"port"`
	APIPort          int     `json:"api_port"`
	Status           string  `json:"status"`
	XrayVersion      string  `json:"xray_version,omitempty"`
	UsageCoefficient float64 `json:"usage_coefficient"`
	Message          string  `json:"message,omitempty"`
}

type NodeCreate struct {
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	Port             int     `json:"port"`
	APIPort          int     `json:"api_port"`
	UsageCoefficient float64 `json:"usage_coefficient"`
	AddAsNewHost     bool    `json:"add_as_new_host"`
}

type NodeUsage struct {
	NodeID   *int   `json:"node_id"`
	NodeName string `json:"node_name"`
	Uplink   int64  `json:"uplink"`
	Downlink int64  `json:"downlink"`
}

type SystemStats struct {
	Version              string `json:"version"`
	MemTotal             int64  `json:"mem_total"`
	MemUsed              int64  `json:"mem_used"`
	TotalUser            int    `json:"total_user"`
	UsersActive          int    `json:"users_active"`
	IncomingBandwidth    int64  `json:"incoming_bandwidth"`
	OutgoingBandwidth    int64  `json:"outgoing_bandwidth"`
	IncomingBandwidthSpd int64  `json:"incoming_bandwidth_speed"`
	OutgoingBandwidthSpd int64  `json:"outgoing_bandwidth_speed"`
}

// ConnectionStatus is the non-raising result of TestConnection.
type ConnectionStatus struct {
	Connected     bool   `json:"connected"`
	AdminUsername string `json:"admin_username,omitempty"`
	IsSudo        bool   `json:"is_sudo,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (c *Client) GetCurrentAdmin(ctx context.Context) (*AdminInfo, error) {
	var admin AdminInfo
	if err := c.request(ctx, http.MethodGet, "/api/admin", nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// TestConnection wraps authenticate + identity fetch and reports a
// structured result instead of an error.
func (c *Client) TestConnection(ctx context.Context) ConnectionStatus {
	admin, err := c.GetCurrentAdmin(ctx)
	if err != nil {
		status := ConnectionStatus{Error: err.Error()}
		if IsAuth(err) {
			status.Error = "invalid credentials"
		}
		return status
	}
	return ConnectionStatus{Connected: true, AdminUsername: admin.Username, IsSudo: admin.IsSudo}
}

func (c *Client) GetNodeSettings(ctx context.Context) (*NodeSettings, error) {
	var settings NodeSettings
	if err := c.request(ctx, http.MethodGet, "/api/node/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (c *Client) GetNodes(ctx context.Context) ([]Node, error) {
	var nodes []Node
	if err := c.request(ctx, http.MethodGet, "/api/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) GetNode(ctx context.Context, id int) (*Node, error) {
	var node Node
	if err := c.request(ctx, http.MethodGet, fmt.Sprintf("/api/node/%d", id), nil, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) CreateNode(ctx context.Context, create NodeCreate) (*Node, error) {
	if create.UsageCoefficient == 0 {
		create.UsageCoefficient = 1.0
	}
	var node Node
	if err := c.request(ctx, http.MethodPost, "/api/node", create, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) UpdateNode(ctx context.Context, id int, fields map[string]interface{}) (*Node, error) {
	var node Node
	if err := c.request(ctx, http.MethodPut, fmt.Sprintf("/api/node/%d", id), fields, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (c *Client) DeleteNode(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodDelete, fmt.Sprintf("/api/node/%d", id), nil, nil)
}

func (c *Client) ReconnectNode(ctx context.Context, id int) error {
	return c.request(ctx, http.MethodPost, fmt.Sprintf("/api/node/%d/reconnect", id), nil, nil)
}

func (c *Client) GetNodesUsage(ctx context.Context) ([]NodeUsage, error) {
	var wrapper struct {
		Usages []NodeUsage `json:"usages"`
	}
	if err := c.request(ctx, http.MethodGet, "/api/nodes/usage", nil, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Usages, nil
}

func (c *Client) GetCoreConfig(ctx context.Context) (map[string]interface{}, error) {
	var cfg map[string]interface{}
	if err := c.request(ctx, http.MethodGet, "/api/core/config", nil, &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Client) UpdateCoreConfig(ctx context.Context, cfg map[string]interface{}) (map[string]interface{}, error) {
	var updated map[string]interface{}
	if err := c.request(ctx, http.MethodPut, "/api/core/config", cfg, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) RestartCore(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, "/api/core/restart", nil, nil)
}

func (c *Client) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	var stats SystemStats
	if err := c.request(ctx, http.MethodGet, "/api/system", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
