package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SeedRoster(ctx, []core.Department{{ID: "d1", Name: "Admin"}}, []core.User{{ID: "u1", Name: "Ann", DepartmentID: "d1", PIN: "1234"}}); err != nil {
		t.Fatal(err)
	}
	e, _ := core.NewLogEntry("l1", core.User{ID: "u1", DepartmentID: "d1"}, core.Digital, 5, time.Now())
	total, err := s.AppendLog(ctx, e)
	if err != nil || total != 10 {
		t.Fatalf("got %v %v", total, err)
	}
	if _, err := s.AppendLog(ctx, e); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
	ghost := e
	ghost.ID, ghost.UserID = "l2", "nobody"
	if _, err := s.AppendLog(ctx, ghost); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// reseeding keeps the accumulated total
	if err := s.SeedRoster(ctx, nil, []core.User{{ID: "u1", Name: "Ann B", DepartmentID: "d1", PIN: "1234"}}); err != nil {
		t.Fatal(err)
	}
	u, err := s.User(ctx, "u1")
	if err != nil || u.TotalPoints != 10 || u.Name != "Ann B" {
		t.Fatalf("got %+v %v", u, err)
	}
	logs, _ := s.Logs(ctx)
	if len(logs) != 1 {
		t.Fatalf("want 1 log got %d", len(logs))
	}
	logs[0].EcoPoints = 999
	again, _ := s.Logs(ctx)
	if again[0].EcoPoints != 10 {
		t.Fatal("Logs must return a copy")
	}
	if _, err := s.User(ctx, "zz"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSeedRosterStartsNewUsersAtZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.SeedRoster(ctx, nil, []core.User{{ID: "u9", Name: "Zed", DepartmentID: "d1", TotalPoints: 500}}); err != nil {
		t.Fatal(err)
	}
	u, err := s.User(ctx, "u9")
	if err != nil || u.TotalPoints != 0 {
		t.Fatalf("got %+v %v", u, err)
	}
}
