package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "github.com/anuphat-bit/Eco-Hero/adapters/websocket"
	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/engine"
	"github.com/anuphat-bit/Eco-Hero/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// Logger receives request failures. Defaults to slog.Default().
	Logger *slog.Logger
}

const dateLayout = "2006-01-02"

type api struct {
	svc    *engine.Service
	logger *slog.Logger
}

// NewMux builds an http.Handler exposing the Eco-Hero REST API and WebSocket stream.
// Routes:
//   - POST {prefix}/login                          {"user_id":"u1","pin":"1234"}
//   - POST {prefix}/users/{id}/logs?type=Digital&sheets=15
//   - GET  {prefix}/users/{id}/dashboard?period=month
//   - GET  {prefix}/users/{id}/history?type=&from=YYYY-MM-DD&to=YYYY-MM-DD
//   - GET  {prefix}/users/{id}/timeline
//   - GET  {prefix}/departments/{id}?period=
//   - GET  {prefix}/leaderboards?period=&limit=
//   - GET  {prefix}/leaderboards/all-time?limit=
//   - GET  {prefix}/roster
//   - GET  {prefix}/tips/today
//   - GET  {prefix}/integrity
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws?user=&department=&types=
func NewMux(svc *engine.Service, hub *realtime.Hub, opts Options) http.Handler {
	a := &api{svc: svc, logger: opts.Logger}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	mux := http.NewServeMux()
	route := func(method, path string, h http.HandlerFunc) {
		mux.HandleFunc(method+" "+withPrefix(opts.PathPrefix, path), h)
	}

	route(http.MethodGet, "/healthz", a.healthCheck)
	route(http.MethodPost, "/login", a.login)
	route(http.MethodPost, "/users/{id}/logs", a.recordUsage)
	route(http.MethodGet, "/users/{id}/dashboard", a.dashboard)
	route(http.MethodGet, "/users/{id}/history", a.history)
	route(http.MethodGet, "/users/{id}/timeline", a.timeline)
	route(http.MethodGet, "/departments/{id}", a.department)
	route(http.MethodGet, "/leaderboards", a.leaderboards)
	route(http.MethodGet, "/leaderboards/all-time", a.allTime)
	route(http.MethodGet, "/roster", a.roster)
	route(http.MethodGet, "/tips/today", a.tip)
	route(http.MethodGet, "/integrity", a.integrity)

	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub, a.logger))
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	// Preflight requests are answered before auth and rate limiting.
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	return handler
}

// Handlers

type loginRequest struct {
	UserID core.UserID `json:"user_id"`
	PIN    string      `json:"pin"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be JSON with user_id and pin", nil)
		return
	}
	user, err := a.svc.Authenticate(r.Context(), req.UserID, req.PIN)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *api) recordUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := core.ParseUsageType(q.Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_type", err.Error(), map[string]any{"allowed": core.UsageTypes})
		return
	}
	sheets, err := strconv.ParseInt(q.Get("sheets"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_sheets", "sheets must be an integer", nil)
		return
	}
	receipt, err := a.svc.RecordUsage(r.Context(), core.UserID(r.PathValue("id")), typ, sheets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	p, ok := periodParam(w, r)
	if !ok {
		return
	}
	d, err := a.svc.Dashboard(r.Context(), core.UserID(r.PathValue("id")), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *api) history(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f engine.HistoryFilter
	if s := q.Get("type"); s != "" {
		typ, err := core.ParseUsageType(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_type", err.Error(), nil)
			return
		}
		f.Type = typ
	}
	for _, d := range []struct {
		name string
		dst  *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		s := q.Get(d.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_"+d.name, d.name+" must be YYYY-MM-DD", nil)
			return
		}
		*d.dst = t
	}
	logs, err := a.svc.History(r.Context(), core.UserID(r.PathValue("id")), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *api) timeline(w http.ResponseWriter, r *http.Request) {
	steps, err := a.svc.Timeline(r.Context(), core.UserID(r.PathValue("id")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (a *api) department(w http.ResponseWriter, r *http.Request) {
	p, ok := periodParam(w, r)
	if !ok {
		return
	}
	view, err := a.svc.DepartmentStats(r.Context(), core.DepartmentID(r.PathValue("id")), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) leaderboards(w http.ResponseWriter, r *http.Request) {
	p, ok := periodParam(w, r)
	if !ok {
		return
	}
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	view, err := a.svc.Leaderboards(r.Context(), p, limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *api) allTime(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	board, err := a.svc.AllTime(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (a *api) roster(w http.ResponseWriter, r *http.Request) {
	depts, users, err := a.svc.Roster(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": depts, "users": users})
}

func (a *api) tip(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"tip": a.svc.Tip()})
}

func (a *api) integrity(w http.ResponseWriter, r *http.Request) {
	issues, err := a.svc.VerifyIntegrity(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": len(issues) == 0, "issues": issues})
}

// healthCheck verifies the store answers a roster read.
func (a *api) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{"storage": "ok"},
	}
	code := http.StatusOK
	if _, _, err := a.svc.Roster(r.Context()); err != nil {
		code = http.StatusServiceUnavailable
		status["status"] = "unhealthy"
		status["checks"] = map[string]any{"storage": "failed"}
	}
	writeJSON(w, code, status)
}

// fail maps service errors onto HTTP statuses.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	default:
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

// Helpers

func periodParam(w http.ResponseWriter, r *http.Request) (analytics.Period, bool) {
	s := r.URL.Query().Get("period")
	if s == "" {
		return "", true
	}
	p, err := analytics.ParsePeriod(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_period", err.Error(), map[string]any{"allowed": []analytics.Period{analytics.PeriodWeek, analytics.PeriodMonth, analytics.PeriodYear}})
		return "", false
	}
	return p, true
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer", nil)
		return 0, false
	}
	return n, true
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSON(w, status, apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-API-Key")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	now   func() time.Time
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		now:   time.Now,
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
