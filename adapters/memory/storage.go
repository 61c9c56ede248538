package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Store is a concurrent in-memory Store implementation.
type Store struct {
	mu        sync.RWMutex
	depts     []core.Department
	users     map[core.UserID]core.User
	userOrder []core.UserID
	logs      []core.LogEntry
	logIDs    map[core.LogID]struct{}
}

func New() *Store {
	return &Store{
		users:  map[core.UserID]core.User{},
		logIDs: map[core.LogID]struct{}{},
	}
}

func (s *Store) SeedRoster(_ context.Context, departments []core.Department, users []core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range departments {
		replaced := false
		for i := range s.depts {
			if s.depts[i].ID == d.ID {
				s.depts[i] = d
				replaced = true
			}
		}
		if !replaced {
			s.depts = append(s.depts, d)
		}
	}
	for _, u := range users {
		if old, ok := s.users[u.ID]; ok {
			u.TotalPoints = old.TotalPoints
		} else {
			u.TotalPoints = 0
			s.userOrder = append(s.userOrder, u.ID)
		}
		s.users[u.ID] = u
	}
	return nil
}

func (s *Store) Departments(_ context.Context) ([]core.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Department, len(s.depts))
	copy(out, s.depts)
	return out, nil
}

func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) User(_ context.Context, id core.UserID) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) Logs(_ context.Context) ([]core.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.LogEntry, len(s.logs))
	copy(out, s.logs)
	return out, nil
}

func (s *Store) AppendLog(_ context.Context, entry core.LogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[entry.UserID]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", entry.UserID, core.ErrNotFound)
	}
	if _, dup := s.logIDs[entry.ID]; dup {
		return 0, fmt.Errorf("%w: duplicate log id %s", core.ErrInvalidInput, entry.ID)
	}
	next, err := core.AddSafe(u.TotalPoints, entry.EcoPoints)
	if err != nil {
		return 0, err
	}
	u.TotalPoints = next
	s.users[u.ID] = u
	s.logs = append(s.logs, entry)
	s.logIDs[entry.ID] = struct{}{}
	return next, nil
}
