package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/config"
	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestSetupLoggingAttributes(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := config.DefaultConfig()
	cfg.Logging.Attributes = map[string]string{"service": "eco-hero"}
	var buf bytes.Buffer
	logger := setupLogging(cfg, &buf)
	logger.Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "eco-hero", line["service"])
	assert.Equal(t, "hello", line["msg"])
}

func TestSetupStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := config.DefaultConfig()
		s, cleanup, err := setupStorage(ctx, cfg)
		require.NoError(t, err)
		defer cleanup()
		assert.NotNil(t, s)
	})

	t.Run("file", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Adapter = "file"
		cfg.Storage.File.Path = filepath.Join(t.TempDir(), "eco.json")
		s, cleanup, err := setupStorage(ctx, cfg)
		require.NoError(t, err)
		defer cleanup()
		assert.NotNil(t, s)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.DefaultConfig()
		cfg.Storage.Adapter = "redis"
		cfg.Storage.Redis.Addr = mr.Addr()
		s, cleanup, err := setupStorage(ctx, cfg)
		require.NoError(t, err)
		defer cleanup()
		users, err := s.Users(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Storage.Adapter = "tape"
		_, _, err := setupStorage(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestProvideServiceSeedsAndWiresHooks(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	store, cleanupStore, err := setupStorage(ctx, cfg)
	require.NoError(t, err)
	defer cleanupStore()

	reg := prometheus.NewRegistry()
	activity := analytics.NewActivityMetrics()
	svc, cleanup, err := provideService(ctx, cfg, logger, store, provideHub(), reg, activity, provideWebhooks(cfg, logger))
	require.NoError(t, err)
	defer cleanup()

	_, users, err := svc.Roster(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 27)

	_, err = svc.RecordUsage(ctx, "u1", core.Digital, 5)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "ecohero_logs_total")
	assert.Equal(t, int64(10), activity.PointsByDay(time.Now().UTC().Format("2006-01-02")))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	hook := analytics.NewPrometheusHook(reg)
	activity := analytics.NewActivityMetrics()
	entry := core.LogEntry{ID: "l1", UserID: "u1", DepartmentID: "d1", Type: core.Reuse, Sheets: 2, EcoPoints: 2, CreatedAt: time.Now().UTC()}
	ev := core.NewLogRecorded(entry, 2)
	hook.OnEvent(ev)
	activity.OnEvent(ev)

	h := metricsHandler("/metrics", reg, activity)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ecohero_logs_total"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestProvideMetricsServerDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Nil(t, provideMetricsServer(cfg, prometheus.NewRegistry(), analytics.NewActivityMetrics()))

	cfg.Metrics.Enabled = true
	ms := provideMetricsServer(cfg, prometheus.NewRegistry(), analytics.NewActivityMetrics())
	require.NotNil(t, ms)
	assert.Equal(t, ":9090", ms.Addr)
}
