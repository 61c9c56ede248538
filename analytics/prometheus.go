package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anuphat-bit/Eco-Hero/core"
)

const namespace = "ecohero"

// PrometheusHook exports domain events as Prometheus series. Register it on
// the event bus through a BridgeHook.
type PrometheusHook struct {
	LogsTotal      *prometheus.CounterVec
	SheetsTotal    *prometheus.CounterVec
	PaperUsedTotal *prometheus.CounterVec
	EcoPointsTotal *prometheus.CounterVec
	BadgesTotal    *prometheus.CounterVec
	GrowthTotal    *prometheus.CounterVec
	WiltingTotal   prometheus.Counter
	UserPoints     *prometheus.GaugeVec
}

// NewPrometheusHook registers the series on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewPrometheusHook(reg prometheus.Registerer) *PrometheusHook {
	f := promauto.With(reg)
	return &PrometheusHook{
		LogsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_total",
			Help:      "Total number of usage logs recorded, by usage type and department.",
		}, []string{"type", "department"}),
		SheetsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheets_reported_total",
			Help:      "Reported sheet count, by usage type.",
		}, []string{"type"}),
		PaperUsedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "paper_used_sheets_total",
			Help:      "Physical sheets consumed, by department.",
		}, []string{"department"}),
		EcoPointsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "eco_points_total",
			Help:      "Absolute eco-points awarded, split into reward and penalty.",
		}, []string{"kind"}),
		BadgesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badge_transitions_total",
			Help:      "Badge unlock and lock transitions, by badge and direction.",
		}, []string{"badge", "direction"}),
		GrowthTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "growth_changes_total",
			Help:      "Tree growth tier changes, by new tier.",
		}, []string{"tier"}),
		WiltingTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tree_wilting_total",
			Help:      "Logs that left a tree with a lower, negative point total.",
		}),
		UserPoints: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "user_points",
			Help:      "Current cumulative eco-points per user.",
		}, []string{"user"}),
	}
}

func (p *PrometheusHook) OnEvent(e core.Event) {
	switch e.Type {
	case core.EventLogRecorded:
		if e.Log != nil {
			p.LogsTotal.WithLabelValues(string(e.Log.Type), string(e.Log.DepartmentID)).Inc()
			p.SheetsTotal.WithLabelValues(string(e.Log.Type)).Add(float64(e.Log.Sheets))
			p.PaperUsedTotal.WithLabelValues(string(e.Log.DepartmentID)).Add(float64(e.Log.PaperUsed))
		}
		if e.Delta >= 0 {
			p.EcoPointsTotal.WithLabelValues("reward").Add(float64(e.Delta))
		} else {
			p.EcoPointsTotal.WithLabelValues("penalty").Add(float64(-e.Delta))
		}
		p.UserPoints.WithLabelValues(string(e.UserID)).Set(float64(e.Total))
	case core.EventBadgeUnlocked:
		p.BadgesTotal.WithLabelValues(string(e.Badge), "unlocked").Inc()
	case core.EventBadgeLocked:
		p.BadgesTotal.WithLabelValues(string(e.Badge), "locked").Inc()
	case core.EventGrowthChanged:
		p.GrowthTotal.WithLabelValues(e.Level.String()).Inc()
	case core.EventTreeWilting:
		p.WiltingTotal.Inc()
	}
}
