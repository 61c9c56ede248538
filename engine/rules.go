package engine

import (
	"context"

	"github.com/anuphat-bit/Eco-Hero/badges"
	"github.com/anuphat-bit/Eco-Hero/core"
)

// UserState is a snapshot of everything the rules look at for one user.
type UserState struct {
	User     core.User
	Lifetime core.Totals
	Badges   map[core.BadgeID]struct{}
}

// Rule determines whether a state transition should emit derived events.
type Rule interface {
	Evaluate(ctx context.Context, before, after UserState, trigger core.Event) []core.Event
}

// GrowthRule emits growth_changed when the tree moves to another tier.
type GrowthRule struct{}

func (GrowthRule) Evaluate(_ context.Context, before, after UserState, trigger core.Event) []core.Event {
	if trigger.Type != core.EventLogRecorded {
		return nil
	}
	prev, next := core.LevelFor(before.User.TotalPoints), core.LevelFor(after.User.TotalPoints)
	if prev == next {
		return nil
	}
	return []core.Event{stamp(core.NewGrowthChanged(after.User.ID, prev, next, after.User.TotalPoints), after, trigger)}
}

// WiltingRule emits tree_wilting when a log drops the total below zero.
type WiltingRule struct{}

func (WiltingRule) Evaluate(_ context.Context, before, after UserState, trigger core.Event) []core.Event {
	if trigger.Type != core.EventLogRecorded || !core.IsWilting(before.User.TotalPoints, after.User.TotalPoints) {
		return nil
	}
	delta := after.User.TotalPoints - before.User.TotalPoints
	return []core.Event{stamp(core.NewTreeWilting(after.User.ID, delta, after.User.TotalPoints), after, trigger)}
}

// BadgeRule emits badge_unlocked and badge_locked for every badge whose
// earned state differs between before and after.
type BadgeRule struct{}

func (BadgeRule) Evaluate(_ context.Context, before, after UserState, trigger core.Event) []core.Event {
	unlocked, locked := badges.Diff(before.Badges, after.Badges)
	out := make([]core.Event, 0, len(unlocked)+len(locked))
	for _, b := range unlocked {
		out = append(out, stamp(core.NewBadgeUnlocked(after.User.ID, b), after, trigger))
	}
	for _, b := range locked {
		out = append(out, stamp(core.NewBadgeLocked(after.User.ID, b), after, trigger))
	}
	return out
}

// stamp gives a derived event the trigger's time and the user's department.
func stamp(ev core.Event, after UserState, trigger core.Event) core.Event {
	ev.Time = trigger.Time
	ev.DepartmentID = after.User.DepartmentID
	return ev
}

type simpleRuleEngine struct{ rules []Rule }

// NewRuleEngine combines rules, evaluated in order.
func NewRuleEngine(rules ...Rule) RuleEngine { return &simpleRuleEngine{rules: rules} }

// DefaultRuleEngine evaluates growth, wilting and badge transitions.
func DefaultRuleEngine() RuleEngine {
	return NewRuleEngine(GrowthRule{}, WiltingRule{}, BadgeRule{})
}

func (s *simpleRuleEngine) Evaluate(ctx context.Context, before, after UserState, trigger core.Event) []core.Event {
	var out []core.Event
	for _, r := range s.rules {
		out = append(out, r.Evaluate(ctx, before, after, trigger)...)
	}
	return out
}
