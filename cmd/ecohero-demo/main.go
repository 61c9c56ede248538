package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anuphat-bit/Eco-Hero/api/httpapi"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/ecohero"
	"github.com/anuphat-bit/Eco-Hero/engine"
	"github.com/anuphat-bit/Eco-Hero/realtime"
)

// demoUsage is replayed at startup so the boards have something to show.
var demoUsage = []struct {
	user   core.UserID
	typ    core.UsageType
	sheets int64
}{
	{"u1", core.Digital, 40},
	{"u3", core.DoubleSided, 24},
	{"u3", core.Reuse, 10},
	{"u8", core.SingleSided, 30},
	{"u12", core.Copy, 12},
	{"u12", core.Digital, 25},
	{"u20", core.Envelope, 5},
	{"u25", core.DoubleSided, 60},
}

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger := slog.New(textHandler)
	slog.SetDefault(logger)

	ctx := context.Background()
	hub := realtime.NewHub()
	svc, err := ecohero.New(ctx,
		ecohero.WithRealtime(hub),
		ecohero.WithServiceOptions(engine.WithLogger(logger)),
	)
	if err != nil {
		slog.Error("demo setup failed", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	svc.Subscribe(core.EventBadgeUnlocked, func(_ context.Context, e core.Event) {
		slog.Info("badge unlocked", "user_id", e.UserID, "badge", e.Badge)
	})
	svc.Subscribe(core.EventTreeWilting, func(_ context.Context, e core.Event) {
		slog.Info("tree wilting", "user_id", e.UserID, "delta", e.Delta, "total", e.Total)
	})

	for _, u := range demoUsage {
		if _, err := svc.RecordUsage(ctx, u.user, u.typ, u.sheets); err != nil {
			slog.Warn("demo usage skipped", "user_id", u.user, "error", err)
		}
	}

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           httpapi.NewMux(svc, hub, httpapi.Options{PathPrefix: "/api", AllowCORSOrigin: "*", Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Info("starting demo server on :8080", "tip", svc.Tip())

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}
