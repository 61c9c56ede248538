package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Option configures the Client.
type Option func(*Client)

// Client provides typed access to the Eco-Hero HTTP + WebSocket API.
type Client struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	headers    http.Header
}

// NewClient constructs a new SDK client targeting the given baseURL (e.g., http://localhost:8080/api).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("baseURL is required")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:    baseURL,
		wsURL:      deriveWSURL(baseURL),
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithAuthToken adds an Authorization: Bearer token header to all requests (HTTP + WS).
func WithAuthToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithAPIKey adds an X-API-Key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if strings.TrimSpace(key) != "" {
			c.headers.Set("X-API-Key", key)
		}
	}
}

// WithHeader sets an arbitrary header applied to HTTP and WS calls.
func WithHeader(k, v string) Option {
	return func(c *Client) {
		if k != "" {
			c.headers.Set(k, v)
		}
	}
}

// Login checks a PIN and returns the user without it.
func (c *Client) Login(ctx context.Context, userID, pin string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrEmptyUserID
	}
	var u User
	body := map[string]string{"user_id": userID, "pin": pin}
	err := c.do(ctx, http.MethodPost, "/login", nil, body, &u)
	return u, err
}

// RecordUsage logs sheets of the given usage type (e.g. "Digital") for a user.
func (c *Client) RecordUsage(ctx context.Context, userID, usageType string, sheets int64) (Receipt, error) {
	if strings.TrimSpace(userID) == "" {
		return Receipt{}, ErrEmptyUserID
	}
	q := url.Values{}
	q.Set("type", usageType)
	q.Set("sheets", strconv.FormatInt(sheets, 10))
	var r Receipt
	err := c.do(ctx, http.MethodPost, userPath(userID, "logs"), q, nil, &r)
	return r, err
}

// Dashboard fetches the personal view. An empty period uses the server default.
func (c *Client) Dashboard(ctx context.Context, userID, period string) (Dashboard, error) {
	if strings.TrimSpace(userID) == "" {
		return Dashboard{}, ErrEmptyUserID
	}
	var d Dashboard
	err := c.do(ctx, http.MethodGet, userPath(userID, "dashboard"), periodQuery(period), nil, &d)
	return d, err
}

// History lists a user's log entries, newest first.
func (c *Client) History(ctx context.Context, userID string, hq HistoryQuery) ([]LogEntry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	q := url.Values{}
	for k, v := range map[string]string{"type": hq.Type, "from": hq.From, "to": hq.To} {
		if v != "" {
			q.Set(k, v)
		}
	}
	var logs []LogEntry
	err := c.do(ctx, http.MethodGet, userPath(userID, "history"), q, nil, &logs)
	return logs, err
}

// Timeline fetches the user's tree timeline, newest first.
func (c *Client) Timeline(ctx context.Context, userID string) ([]TimelineStep, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrEmptyUserID
	}
	var steps []TimelineStep
	err := c.do(ctx, http.MethodGet, userPath(userID, "timeline"), nil, nil, &steps)
	return steps, err
}

// Department fetches a department's team view.
func (c *Client) Department(ctx context.Context, departmentID, period string) (DepartmentView, error) {
	var v DepartmentView
	err := c.do(ctx, http.MethodGet, "/departments/"+url.PathEscape(departmentID), periodQuery(period), nil, &v)
	return v, err
}

// Leaderboards fetches department boards and the top individuals. Zero limit
// uses the server default.
func (c *Client) Leaderboards(ctx context.Context, period string, limit int) (LeaderboardView, error) {
	q := periodQuery(period)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var v LeaderboardView
	err := c.do(ctx, http.MethodGet, "/leaderboards", q, nil, &v)
	return v, err
}

// AllTime fetches the cumulative points board.
func (c *Client) AllTime(ctx context.Context, limit int) ([]AllTimeEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []AllTimeEntry
	err := c.do(ctx, http.MethodGet, "/leaderboards/all-time", q, nil, &out)
	return out, err
}

// Roster lists departments and users.
func (c *Client) Roster(ctx context.Context) (Roster, error) {
	var r Roster
	err := c.do(ctx, http.MethodGet, "/roster", nil, nil, &r)
	return r, err
}

// Tip returns today's tip.
func (c *Client) Tip(ctx context.Context) (string, error) {
	var body struct {
		Tip string `json:"tip"`
	}
	err := c.do(ctx, http.MethodGet, "/tips/today", nil, nil, &body)
	return body.Tip, err
}

// Integrity reports users whose cached totals drifted from their logs.
func (c *Client) Integrity(ctx context.Context) (Integrity, error) {
	var out Integrity
	err := c.do(ctx, http.MethodGet, "/integrity", nil, nil, &out)
	return out, err
}

// Health probes /healthz and returns status + storage check.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	var hs HealthStatus
	err := c.do(ctx, http.MethodGet, "/healthz", nil, nil, &hs)
	return hs, err
}

// EventFilter narrows a subscription. Empty fields match everything.
type EventFilter struct {
	UserID       string
	DepartmentID string
	Types        []core.EventType
}

// SubscribeEvents connects to the WebSocket stream and emits core.Event values.
// The returned channel closes when ctx is done or the connection drops.
func (c *Client) SubscribeEvents(ctx context.Context, f EventFilter) (<-chan core.Event, error) {
	if c.wsURL == "" {
		return nil, errors.New("wsURL is not set; ensure baseURL is http/https")
	}
	target, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, err
	}
	q := target.Query()
	if f.UserID != "" {
		q.Set("user", f.UserID)
	}
	if f.DepartmentID != "" {
		q.Set("department", f.DepartmentID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		q.Set("types", strings.Join(types, ","))
	}
	target.RawQuery = q.Encode()

	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, target.String(), c.headers)
	if err != nil {
		return nil, err
	}

	out := make(chan core.Event, 32)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	go func() {
		defer close(out)
		defer stop()
		defer conn.Close()
		for {
			var evt core.Event
			if err := conn.ReadJSON(&evt); err != nil {
				return
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			default:
				// drop if consumer is slow
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	c.applyHeaders(req)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeJSON(resp, out)
}

func (c *Client) applyHeaders(r *http.Request) {
	for k, vals := range c.headers {
		for _, v := range vals {
			r.Header.Add(k, v)
		}
	}
}

func userPath(userID, leaf string) string {
	return "/users/" + url.PathEscape(userID) + "/" + leaf
}

func periodQuery(period string) url.Values {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	return q
}

func deriveWSURL(httpBase string) string {
	u, err := url.Parse(httpBase)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		// leave as-is for custom schemes
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}
