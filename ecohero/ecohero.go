// Package ecohero assembles a ready-to-use scoring service from a store,
// an event bus, rules, and optional realtime and analytics sinks.
package ecohero

import (
	"context"
	"fmt"

	mem "github.com/anuphat-bit/Eco-Hero/adapters/memory"
	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/engine"
	"github.com/anuphat-bit/Eco-Hero/realtime"
	"github.com/anuphat-bit/Eco-Hero/seed"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	store       engine.Store
	mode        engine.DispatchMode
	rules       engine.RuleEngine
	hub         *realtime.Hub
	hooks       []analytics.Hook
	roster      *seed.Roster
	serviceOpts []engine.Option
}

// WithStore sets the persistence adapter.
func WithStore(s engine.Store) Option { return func(c *config) { c.store = s } }

// WithRuleEngine sets the rule engine.
func WithRuleEngine(r engine.RuleEngine) Option { return func(c *config) { c.rules = r } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithHooks forwards every event to the given analytics hooks.
func WithHooks(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// WithRoster seeds the store with r when it holds no users.
func WithRoster(r seed.Roster) Option { return func(c *config) { c.roster = &r } }

// WithServiceOptions passes options through to engine.NewService.
func WithServiceOptions(opts ...engine.Option) Option {
	return func(c *config) { c.serviceOpts = append(c.serviceOpts, opts...) }
}

// New builds a configured Service. If not provided, defaults are used:
//   - store: in-memory
//   - rules: DefaultRuleEngine
//   - dispatch: async
//   - roster: the built-in seed roster
func New(ctx context.Context, opts ...Option) (*engine.Service, error) {
	cfg := &config{mode: engine.DispatchAsync, rules: engine.DefaultRuleEngine()}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.store == nil {
		cfg.store = mem.New()
	}
	if cfg.roster == nil {
		r, err := seed.Default()
		if err != nil {
			return nil, fmt.Errorf("load default roster: %w", err)
		}
		cfg.roster = &r
	}

	bus := engine.NewEventBus(cfg.mode)
	svc := engine.NewService(cfg.store, bus, cfg.rules, cfg.serviceOpts...)
	if cfg.hub != nil {
		bus.SubscribeAll(cfg.hub.Broadcast)
	}
	if len(cfg.hooks) > 0 {
		bridge := analytics.NewBridge(cfg.hooks...)
		bus.SubscribeAll(func(_ context.Context, e core.Event) { bridge.OnEvent(e) })
	}
	if _, err := svc.EnsureRoster(ctx, cfg.roster.Departments, cfg.roster.Users); err != nil {
		bus.Close()
		return nil, fmt.Errorf("ensure roster: %w", err)
	}
	return svc, nil
}
