package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/anuphat-bit/Eco-Hero/adapters/jsonfile"
	mem "github.com/anuphat-bit/Eco-Hero/adapters/memory"
	redisAdapter "github.com/anuphat-bit/Eco-Hero/adapters/redis"
	sqlxAdapter "github.com/anuphat-bit/Eco-Hero/adapters/sqlx"
	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/api/httpapi"
	"github.com/anuphat-bit/Eco-Hero/config"
	"github.com/anuphat-bit/Eco-Hero/ecohero"
	"github.com/anuphat-bit/Eco-Hero/engine"
	"github.com/anuphat-bit/Eco-Hero/integrations/webhook"
	"github.com/anuphat-bit/Eco-Hero/realtime"
	"github.com/anuphat-bit/Eco-Hero/seed"
)

// App aggregates the assembled server components.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Hub      *realtime.Hub
	Service  *engine.Service
	Activity *analytics.ActivityMetrics
	Handler  http.Handler
	Server   *http.Server
	// Metrics is nil when metrics are disabled.
	Metrics *MetricsServer
}

// MetricsServer exposes Prometheus series and the in-process activity
// snapshot on a separate listener.
type MetricsServer struct {
	*http.Server
}

func provideConfig(ctx context.Context) (*config.Config, error) {
	if path := os.Getenv("ECOHERO_CONFIG_FILE"); path != "" {
		return config.LoadFromFile(path)
	}
	if name := os.Getenv("ECOHERO_PROFILE"); name != "" {
		return config.LoadProfile(name)
	}
	return config.Load()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return setupLogging(cfg, logOutput(cfg.Logging.Output))
}

func provideHub() *realtime.Hub {
	return realtime.NewHub()
}

func provideRegistry(cfg *config.Config) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if cfg.Metrics.CollectSystem {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

func provideActivity() *analytics.ActivityMetrics {
	return analytics.NewActivityMetrics()
}

func provideWebhooks(cfg *config.Config, logger *slog.Logger) *webhook.Sink {
	return webhook.New(cfg.Webhooks.URLs,
		webhook.WithTimeout(cfg.Webhooks.Timeout),
		webhook.WithLogger(logger),
	)
}

func provideStore(ctx context.Context, cfg *config.Config) (engine.Store, func(), error) {
	return setupStorage(ctx, cfg)
}

func provideService(ctx context.Context, cfg *config.Config, logger *slog.Logger, store engine.Store, hub *realtime.Hub,
	reg *prometheus.Registry, activity *analytics.ActivityMetrics, sink *webhook.Sink) (*engine.Service, func(), error) {
	roster, err := seed.Load(cfg.Storage.SeedPath)
	if err != nil {
		return nil, nil, err
	}
	period, err := analytics.ParsePeriod(cfg.Engine.DefaultPeriod)
	if err != nil {
		return nil, nil, err
	}
	loc, err := cfg.Engine.Location()
	if err != nil {
		return nil, nil, fmt.Errorf("engine time zone: %w", err)
	}
	mode := engine.DispatchSync
	if cfg.Engine.AsyncEvents {
		mode = engine.DispatchAsync
	}

	svc, err := ecohero.New(ctx,
		ecohero.WithStore(store),
		ecohero.WithRealtime(hub),
		ecohero.WithDispatchMode(mode),
		ecohero.WithRoster(roster),
		ecohero.WithHooks(analytics.NewPrometheusHook(reg), activity, sink),
		ecohero.WithServiceOptions(
			engine.WithLogger(logger),
			engine.WithDefaultPeriod(period),
			engine.WithTopIndividuals(cfg.Engine.TopIndividuals),
			engine.WithLocation(loc),
		),
	)
	if err != nil {
		return nil, nil, err
	}
	if issues, err := svc.VerifyIntegrity(ctx); err != nil {
		logger.Error("integrity check failed", "error", err)
	} else if len(issues) > 0 {
		logger.Warn("stored point totals disagree with logs", "users", len(issues))
	}
	return svc, svc.Close, nil
}

func provideHandler(svc *engine.Service, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger) http.Handler {
	return httpapi.NewMux(svc, hub, httpapi.Options{
		PathPrefix:       cfg.Server.PathPrefix,
		AllowCORSOrigin:  cfg.Server.CORSOrigin,
		APIKeys:          cfg.Security.APIKeys,
		RateLimitEnabled: cfg.Security.EnableRateLimit,
		RateLimitRPM:     cfg.Security.RateLimit.RequestsPerMinute,
		RateLimitBurst:   cfg.Security.RateLimit.BurstSize,
		Logger:           logger,
	})
}

func provideServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func provideMetricsServer(cfg *config.Config, reg *prometheus.Registry, activity *analytics.ActivityMetrics) *MetricsServer {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return &MetricsServer{Server: &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           metricsHandler(cfg.Metrics.Path, reg, activity),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}}
}

// metricsHandler serves the registry at path and today's activity snapshot
// at /activity.
func metricsHandler(path string, reg *prometheus.Registry, activity *analytics.ActivityMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/activity", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(activity.Snapshot(time.Now(), 10))
	})
	return mux
}

// setupLogging configures the logger based on configuration.
func setupLogging(cfg *config.Config, out io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		handler = slog.NewJSONHandler(out, opts)
	}

	if len(cfg.Logging.Attributes) > 0 {
		handler = handler.WithAttrs(convertAttributes(cfg.Logging.Attributes))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func logOutput(name string) io.Writer {
	if name == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// convertAttributes converts map[string]string to []slog.Attr.
func convertAttributes(attrs map[string]string) []slog.Attr {
	result := make([]slog.Attr, 0, len(attrs))
	for k, v := range attrs {
		result = append(result, slog.String(k, v))
	}
	return result
}

// setupStorage creates the storage adapter named by the configuration and a
// cleanup func that releases it.
func setupStorage(ctx context.Context, cfg *config.Config) (engine.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage.Adapter {
	case "memory":
		return mem.New(), noop, nil
	case "file":
		s, err := jsonfile.New(cfg.Storage.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	case "redis":
		s, err := redisAdapter.New(cfg.Storage.Redis)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "sql":
		s, err := sqlxAdapter.New(ctx, cfg.Storage.SQL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage adapter: %s", cfg.Storage.Adapter)
	}
}
