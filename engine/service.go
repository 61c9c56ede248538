package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anuphat-bit/Eco-Hero/analytics"
	"github.com/anuphat-bit/Eco-Hero/badges"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/leaderboard"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the UUID log id generator.
func WithIDGenerator(fn func() core.LogID) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithDefaultPeriod sets the period used when a caller passes none.
func WithDefaultPeriod(p analytics.Period) Option {
	return func(s *Service) {
		if p != "" {
			s.period = p
		}
	}
}

// WithTopIndividuals sets the default size of the individual board.
func WithTopIndividuals(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithLocation sets the time zone calendar periods and history dates use.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLiveBoard shares an existing all-time board.
func WithLiveBoard(b *leaderboard.SkipList) Option {
	return func(s *Service) {
		if b != nil {
			s.live = b
		}
	}
}

// Service wires storage, the event bus and rules to the scoring engine.
// Reads recompute every view from a fresh store snapshot.
type Service struct {
	store  Store
	bus    *EventBus
	rules  RuleEngine
	logger *slog.Logger
	now    func() time.Time
	newID  func() core.LogID
	period analytics.Period
	topN   int
	loc    *time.Location
	live   *leaderboard.SkipList

	// serialises RecordUsage so before/after states line up with commits
	mu sync.Mutex
}

func NewService(store Store, bus *EventBus, rules RuleEngine, opts ...Option) *Service {
	if store == nil || bus == nil || rules == nil {
		panic("NewService requires non-nil store, bus, and rules")
	}
	s := &Service{
		store:  store,
		bus:    bus,
		rules:  rules,
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() core.LogID { return core.LogID(uuid.NewString()) },
		period: analytics.PeriodMonth,
		topN:   leaderboard.DefaultTopIndividuals,
		loc:    time.UTC,
		live:   leaderboard.NewSkipList(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

// SubscribeAll registers handler for every event type.
func (s *Service) SubscribeAll(handler func(context.Context, core.Event)) func() {
	return s.bus.SubscribeAll(handler)
}

func (s *Service) Close() { s.bus.Close() }

// DefaultPeriod returns the period used when callers pass none.
func (s *Service) DefaultPeriod() analytics.Period { return s.period }

func (s *Service) clock() time.Time { return s.now().In(s.loc) }

func (s *Service) periodOr(p analytics.Period) analytics.Period {
	if p == "" {
		return s.period
	}
	return p
}

// EnsureRoster seeds the store with departments and users when it holds no
// users yet, then loads the live board. It reports whether seeding happened.
func (s *Service) EnsureRoster(ctx context.Context, departments []core.Department, users []core.User) (bool, error) {
	existing, err := s.store.Users(ctx)
	if err != nil {
		return false, fmt.Errorf("load users: %w", err)
	}
	seeded := false
	if len(existing) == 0 {
		if err := core.ValidateRoster(departments, users); err != nil {
			return false, err
		}
		if err := s.store.SeedRoster(ctx, departments, users); err != nil {
			return false, fmt.Errorf("seed roster: %w", err)
		}
		seeded = true
		s.logger.Info("roster seeded", "departments", len(departments), "users", len(users))
		if existing, err = s.store.Users(ctx); err != nil {
			return seeded, fmt.Errorf("load users: %w", err)
		}
	}
	s.live.Reset(existing)
	return seeded, nil
}

// Roster returns departments and users with PINs removed.
func (s *Service) Roster(ctx context.Context) ([]core.Department, []core.User, error) {
	depts, err := s.store.Departments(ctx)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, err
	}
	public := make([]core.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return depts, public, nil
}

// Authenticate checks a user's PIN. Unknown users and wrong PINs both return
// core.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, userID core.UserID, pin string) (core.User, error) {
	id, err := core.NormalizeUserID(userID)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.store.User(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrUnauthorized
	}
	if err != nil {
		return core.User{}, err
	}
	if !u.CheckPIN(pin) {
		s.logger.Warn("login rejected", "user_id", id)
		return core.User{}, core.ErrUnauthorized
	}
	return u.Public(), nil
}

// RecordUsage scores a usage report, commits it and publishes the resulting
// events. Nothing is published and no derived state changes if the store
// rejects the append.
func (s *Service) RecordUsage(ctx context.Context, userID core.UserID, typ core.UsageType, sheets int64) (Receipt, error) {
	id, err := core.NormalizeUserID(userID)
	if err != nil {
		return Receipt{}, err
	}
	if _, err := core.Score(typ, sheets); err != nil {
		s.logger.Warn("usage rejected", "user_id", id, "type", typ, "sheets", sheets, "error", err)
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.store.User(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return Receipt{}, err
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return Receipt{}, err
	}

	now := s.clock()
	before := s.stateOf(user, users, logs, now)
	entry, err := core.NewLogEntry(s.newID(), user, typ, sheets, now)
	if err != nil {
		return Receipt{}, err
	}
	total, err := s.store.AppendLog(ctx, entry)
	if err != nil {
		s.logger.Error("append log failed", "user_id", id, "log_id", entry.ID, "error", err)
		return Receipt{}, fmt.Errorf("append log: %w", err)
	}

	user.TotalPoints = total
	after := s.stateOf(user, users, append(logs, entry), now)
	recorded := core.NewLogRecorded(entry, total)
	events := append([]core.Event{recorded}, s.rules.Evaluate(ctx, before, after, recorded)...)

	s.live.Update(user.ID, total)
	for _, ev := range events {
		s.bus.Publish(ctx, ev)
	}
	level := core.LevelFor(total)
	s.logger.Info("usage recorded",
		"user_id", id, "log_id", entry.ID, "type", typ, "sheets", sheets,
		"paper_used", entry.PaperUsed, "eco_points", entry.EcoPoints, "total", total)
	return Receipt{Entry: entry, Total: total, Level: level, Tier: level.String(), Events: events}, nil
}

// personal holds a user's derived numbers for one period.
type personal struct {
	lifetime, current, previous core.Totals
	deptAverage                 float64
	input                       badges.Input
}

func (s *Service) personalStats(user core.User, users []core.User, logs []core.LogEntry, p analytics.Period, now time.Time) personal {
	mine := analytics.UserLogs(logs, user.ID)
	cur, prev := analytics.Split(mine, p, now)
	deptCur := analytics.Filter(analytics.DepartmentLogs(logs, user.DepartmentID), analytics.CurrentWindow(p, now))
	heads := analytics.Headcounts(users)

	out := personal{
		lifetime:    core.Sum(mine),
		current:     core.Sum(cur),
		previous:    core.Sum(prev),
		deptAverage: analytics.AveragePerUser(core.Sum(deptCur).PaperUsed, heads[user.DepartmentID]),
	}
	out.input = badges.Input{Lifetime: out.lifetime, Current: out.current, Period: p, DepartmentAverage: out.deptAverage}
	return out
}

func (s *Service) stateOf(user core.User, users []core.User, logs []core.LogEntry, now time.Time) UserState {
	ps := s.personalStats(user, users, logs, s.period, now)
	earned := badges.Earned(ps.input)
	// Yearly badges are judged on the calendar year whatever the default period.
	if s.period != analytics.PeriodYear {
		yearly := s.personalStats(user, users, logs, analytics.PeriodYear, now)
		if _, ok := badges.Earned(yearly.input)[badges.PaperlessYear]; ok {
			earned[badges.PaperlessYear] = struct{}{}
		}
	}
	return UserState{User: user, Lifetime: ps.lifetime, Badges: earned}
}

// Dashboard builds the personal view of userID for period p.
func (s *Service) Dashboard(ctx context.Context, userID core.UserID, p analytics.Period) (Dashboard, error) {
	p = s.periodOr(p)
	user, err := s.store.User(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	depts, users, logs, err := s.snapshot(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	now := s.clock()
	ps := s.personalStats(user, users, logs, p, now)

	d := Dashboard{
		User:              user.Public(),
		Department:        core.Department{ID: user.DepartmentID, Name: string(user.DepartmentID)},
		Period:            p,
		Window:            analytics.CurrentWindow(p, now),
		Current:           ps.current,
		Previous:          ps.previous,
		Lifetime:          ps.lifetime,
		TotalPoints:       ps.lifetime.EcoPoints,
		Breakdown:         ps.lifetime.Breakdown(),
		PaperSaved:        ps.lifetime.PaperSaved(),
		TreesSaved:        core.TreesEquivalent(ps.lifetime.PaperSaved()),
		TreesUsed:         core.TreesEquivalent(ps.current.PaperUsed),
		DepartmentAverage: ps.deptAverage,
		Badges:            badges.Evaluate(ps.input),
		Tip:               core.TipOfTheDay(now),
	}
	for _, dep := range depts {
		if dep.ID == user.DepartmentID {
			d.Department = dep
		}
	}
	d.Level = core.LevelFor(d.TotalPoints)
	d.Tier = d.Level.String()
	if pct, ok := ps.input.Comparison(); ok {
		d.Comparison = &pct
	}
	return d, nil
}

// Leaderboards builds every department board and the top individuals for
// period p. limit <= 0 uses the configured individual board size.
func (s *Service) Leaderboards(ctx context.Context, p analytics.Period, limit int) (LeaderboardView, error) {
	p = s.periodOr(p)
	if limit <= 0 {
		limit = s.topN
	}
	depts, users, logs, err := s.snapshot(ctx)
	if err != nil {
		return LeaderboardView{}, err
	}
	now := s.clock()
	cur, prev := analytics.Split(logs, p, now)
	return LeaderboardView{
		Period:      p,
		Current:     analytics.CurrentWindow(p, now),
		Previous:    analytics.PreviousWindow(p, now),
		Departments: leaderboard.BuildDepartmentBoards(depts, users, cur, prev),
		Individuals: leaderboard.TopIndividuals(users, depts, cur, limit),
	}, nil
}

// AllTime returns the live board of cumulative points.
func (s *Service) AllTime(ctx context.Context, limit int) ([]AllTimeEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[core.UserID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	top := s.live.TopN(limit)
	out := make([]AllTimeEntry, 0, len(top))
	for i, e := range top {
		out = append(out, AllTimeEntry{Rank: i + 1, UserID: e.User, Name: names[e.User], Points: e.Score, Tier: core.LevelFor(e.Score).String()})
	}
	return out, nil
}

// History returns userID's entries matching f, newest first.
func (s *Service) History(ctx context.Context, userID core.UserID, f HistoryFilter) ([]core.LogEntry, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown usage type %q", core.ErrInvalidInput, f.Type)
	}
	from, to := s.date(f.From), s.date(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, fmt.Errorf("%w: from is after to", core.ErrInvalidInput)
	}
	if _, err := s.store.User(ctx, userID); err != nil {
		return nil, err
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.LogEntry, 0)
	for _, l := range analytics.UserLogs(logs, userID) {
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		day := s.day(l.CreatedAt)
		if !from.IsZero() && day.Before(from) {
			continue
		}
		if !to.IsZero() && day.After(to) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// day truncates t to midnight of its calendar date in the service location.
func (s *Service) day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// date keeps t's calendar fields and places them at midnight in the service
// location.
func (s *Service) date(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Timeline replays userID's history and returns the steps newest first.
func (s *Service) Timeline(ctx context.Context, userID core.UserID) ([]core.TimelineStep, error) {
	if _, err := s.store.User(ctx, userID); err != nil {
		return nil, err
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, err
	}
	steps := core.Timeline(analytics.UserLogs(logs, userID))
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps, nil
}

// DepartmentStats builds the team view of deptID for period p.
func (s *Service) DepartmentStats(ctx context.Context, deptID core.DepartmentID, p analytics.Period) (DepartmentView, error) {
	p = s.periodOr(p)
	depts, users, logs, err := s.snapshot(ctx)
	if err != nil {
		return DepartmentView{}, err
	}
	var dept *core.Department
	for i := range depts {
		if depts[i].ID == deptID {
			dept = &depts[i]
		}
	}
	if dept == nil {
		return DepartmentView{}, fmt.Errorf("department %s: %w", deptID, core.ErrNotFound)
	}

	now := s.clock()
	cur, prev := analytics.Split(logs, p, now)
	curAgg, prevAgg := analytics.Fold(cur), analytics.Fold(prev)
	summary := analytics.DepartmentSummaries([]core.Department{*dept}, users, curAgg)[0]

	view := DepartmentView{
		Summary:  summary,
		Period:   p,
		Previous: prevAgg.Department(deptID),
		Ranks:    make(map[leaderboard.Metric]int, len(leaderboard.Metrics)),
		Members:  make([]MemberStat, 0, summary.Headcount),
	}
	if pct, ok := leaderboard.Improvement(view.Previous.PaperUsed, summary.Totals.PaperUsed); ok {
		view.Improvement = &pct
	}
	for _, r := range leaderboard.BuildDepartmentBoards(depts, users, cur, prev) {
		if st, ok := r.Find(deptID); ok {
			view.Ranks[r.Metric] = st.Rank
		}
	}
	for _, u := range users {
		if u.DepartmentID == deptID {
			view.Members = append(view.Members, MemberStat{User: u.Public(), Current: curAgg.User(u.ID)})
		}
	}
	sort.SliceStable(view.Members, func(i, j int) bool { return view.Members[i].User.ID < view.Members[j].User.ID })
	return view, nil
}

// VerifyIntegrity compares every user's cached TotalPoints with the sum of
// that user's logged eco-points.
func (s *Service) VerifyIntegrity(ctx context.Context) ([]IntegrityIssue, error) {
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, err
	}
	agg := analytics.Fold(logs)
	issues := make([]IntegrityIssue, 0)
	for _, u := range users {
		t := agg.User(u.ID)
		if t.EcoPoints != u.TotalPoints {
			issues = append(issues, IntegrityIssue{UserID: u.ID, Cached: u.TotalPoints, FromLogs: t.EcoPoints, LogsCount: t.Logs})
		}
	}
	if len(issues) > 0 {
		s.logger.Warn("point totals out of sync", "users", len(issues))
	}
	return issues, nil
}

// Tip returns today's paper-saving tip.
func (s *Service) Tip() string { return core.TipOfTheDay(s.clock()) }

func (s *Service) snapshot(ctx context.Context) ([]core.Department, []core.User, []core.LogEntry, error) {
	depts, err := s.store.Departments(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	users, err := s.store.Users(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	logs, err := s.store.Logs(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return depts, users, logs, nil
}
