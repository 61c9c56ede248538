package engine

import (
	"context"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Store abstracts persistence of the roster and the append-only usage log.
// Implementations must make AppendLog atomic: the entry is written and the
// user's TotalPoints advanced together, or neither happens.
type Store interface {
	// SeedRoster upserts departments and users. Existing users keep their
	// stored TotalPoints.
	SeedRoster(ctx context.Context, departments []core.Department, users []core.User) error
	Departments(ctx context.Context) ([]core.Department, error)
	Users(ctx context.Context) ([]core.User, error)
	// User returns core.ErrNotFound when id is unknown.
	User(ctx context.Context, id core.UserID) (core.User, error)
	// Logs returns every committed entry in commit order.
	Logs(ctx context.Context) ([]core.LogEntry, error)
	// AppendLog commits entry and returns the user's new point total.
	AppendLog(ctx context.Context, entry core.LogEntry) (newTotal int64, err error)
}

// RuleEngine evaluates rules and emits derived events.
type RuleEngine interface {
	Evaluate(ctx context.Context, before, after UserState, trigger core.Event) []core.Event
}
