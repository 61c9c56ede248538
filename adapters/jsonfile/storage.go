package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// Store persists the roster and the usage log to a single JSON file.
// Suitable for demos and small deployments.
type Store struct {
	path string
	mu   sync.Mutex
	// in-memory cache for speed
	data document
}

type document struct {
	Departments []core.Department `json:"departments"`
	Users       []core.User       `json:"users"`
	Logs        []core.LogEntry   `json:"logs"`
}

func New(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	s.data = doc
	return nil
}

func (s *Store) persist() error {
	tmp := s.path + ".tmp"
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) userIndex(id core.UserID) int {
	for i := range s.data.Users {
		if s.data.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) SeedRoster(_ context.Context, departments []core.Department, users []core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := document{
		Departments: append([]core.Department(nil), s.data.Departments...),
		Users:       append([]core.User(nil), s.data.Users...),
		Logs:        s.data.Logs,
	}
	for _, d := range departments {
		replaced := false
		for i := range s.data.Departments {
			if s.data.Departments[i].ID == d.ID {
				s.data.Departments[i] = d
				replaced = true
			}
		}
		if !replaced {
			s.data.Departments = append(s.data.Departments, d)
		}
	}
	for _, u := range users {
		if i := s.userIndex(u.ID); i >= 0 {
			u.TotalPoints = s.data.Users[i].TotalPoints
			s.data.Users[i] = u
			continue
		}
		u.TotalPoints = 0
		s.data.Users = append(s.data.Users, u)
	}
	if err := s.persist(); err != nil {
		s.data = prev
		return err
	}
	return nil
}

func (s *Store) Departments(_ context.Context) ([]core.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Department(nil), s.data.Departments...), nil
}

func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.User(nil), s.data.Users...), nil
}

func (s *Store) User(_ context.Context, id core.UserID) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.userIndex(id); i >= 0 {
		return s.data.Users[i], nil
	}
	return core.User{}, fmt.Errorf("user %s: %w", id, core.ErrNotFound)
}

func (s *Store) Logs(_ context.Context) ([]core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LogEntry(nil), s.data.Logs...), nil
}

// AppendLog writes the entry and the new total in one file replace. On a
// failed write the cache is rolled back so memory never runs ahead of disk.
func (s *Store) AppendLog(_ context.Context, entry core.LogEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.userIndex(entry.UserID)
	if i < 0 {
		return 0, fmt.Errorf("user %s: %w", entry.UserID, core.ErrNotFound)
	}
	for _, l := range s.data.Logs {
		if l.ID == entry.ID {
			return 0, fmt.Errorf("%w: duplicate log id %s", core.ErrInvalidInput, entry.ID)
		}
	}
	old := s.data.Users[i].TotalPoints
	next, err := core.AddSafe(old, entry.EcoPoints)
	if err != nil {
		return 0, err
	}
	n := len(s.data.Logs)
	s.data.Users[i].TotalPoints = next
	s.data.Logs = append(s.data.Logs, entry)
	if err := s.persist(); err != nil {
		s.data.Users[i].TotalPoints = old
		s.data.Logs = s.data.Logs[:n]
		return 0, err
	}
	return next, nil
}
