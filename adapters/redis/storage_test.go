package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func seededStore(t *testing.T) (*Store, *redis.Client, func()) {
	t.Helper()
	client, cleanup := newTestClient(t)
	store := NewWithClient(client, "test")
	err := store.SeedRoster(context.Background(),
		[]core.Department{{ID: "d1", Name: "Finance"}, {ID: "d2", Name: "Library"}},
		[]core.User{
			{ID: "u1", Name: "Ann", DepartmentID: "d1", PIN: "1234"},
			{ID: "u2", Name: "Bob", DepartmentID: "d2", PIN: "4321"},
		})
	require.NoError(t, err)
	return store, client, cleanup
}

func entry(t *testing.T, id core.LogID, user core.User, typ core.UsageType, sheets int64) core.LogEntry {
	t.Helper()
	e, err := core.NewLogEntry(id, user, typ, sheets, time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func TestStore_SeedRoster(t *testing.T) {
	store, _, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	depts, err := store.Departments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Department{{ID: "d1", Name: "Finance"}, {ID: "d2", Name: "Library"}}, depts)

	users, err := store.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, core.UserID("u1"), users[0].ID)
	assert.Equal(t, "1234", users[0].PIN)
	assert.Equal(t, int64(0), users[0].TotalPoints)

	// Re-seeding updates rows in place without duplicating the order list.
	err = store.SeedRoster(ctx, []core.Department{{ID: "d1", Name: "Accounts"}}, nil)
	require.NoError(t, err)
	depts, err = store.Departments(ctx)
	require.NoError(t, err)
	require.Len(t, depts, 2)
	assert.Equal(t, "Accounts", depts[0].Name)
}

func TestStore_EmptyReads(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()
	store := NewWithClient(client, "")
	ctx := context.Background()

	depts, err := store.Departments(ctx)
	require.NoError(t, err)
	assert.Empty(t, depts)
	users, err := store.Users(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)

	_, err = store.User(ctx, "nobody")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_AppendLog(t *testing.T) {
	store, client, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	u1, err := store.User(ctx, "u1")
	require.NoError(t, err)

	total, err := store.AppendLog(ctx, entry(t, "l1", u1, core.Digital, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)

	total, err = store.AppendLog(ctx, entry(t, "l2", u1, core.SingleSided, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(-10), total)

	u1, err = store.User(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(-10), u1.TotalPoints)

	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, core.LogID("l1"), logs[0].ID)
	assert.Equal(t, core.DepartmentID("d1"), logs[0].DepartmentID)
	assert.True(t, logs[0].CreatedAt.Equal(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)))

	raw, err := client.HGet(ctx, "test:points", "u1").Result()
	require.NoError(t, err)
	assert.Equal(t, "-10", raw)
}

func TestStore_AppendLogRejects(t *testing.T) {
	store, _, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	ghost := core.User{ID: "ghost", DepartmentID: "d1"}
	_, err := store.AppendLog(ctx, entry(t, "l1", ghost, core.Reuse, 1))
	assert.ErrorIs(t, err, core.ErrNotFound)

	u2, err := store.User(ctx, "u2")
	require.NoError(t, err)
	_, err = store.AppendLog(ctx, entry(t, "dup", u2, core.Reuse, 4))
	require.NoError(t, err)
	_, err = store.AppendLog(ctx, entry(t, "dup", u2, core.Reuse, 4))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	// Rejected appends leave both the log and the total untouched.
	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	u2, err = store.User(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(4), u2.TotalPoints)
}

func TestStore_AppendLogOverflow(t *testing.T) {
	store, client, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, store.key("points"), "u1", "9007199254740990").Err())
	u1, err := store.User(ctx, "u1")
	require.NoError(t, err)
	_, err = store.AppendLog(ctx, entry(t, "big", u1, core.Digital, 5))
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestStore_SeedKeepsPoints(t *testing.T) {
	store, _, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	u1, err := store.User(ctx, "u1")
	require.NoError(t, err)
	_, err = store.AppendLog(ctx, entry(t, "l1", u1, core.Digital, 5))
	require.NoError(t, err)

	err = store.SeedRoster(ctx, nil, []core.User{{ID: "u1", Name: "Ann B", DepartmentID: "d1", PIN: "1234"}})
	require.NoError(t, err)
	u1, err = store.User(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u1.Name)
	assert.Equal(t, int64(10), u1.TotalPoints)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store, _, cleanup := seededStore(t)
	defer cleanup()
	ctx := context.Background()

	u1, err := store.User(ctx, "u1")
	require.NoError(t, err)

	entries := make([]core.LogEntry, 20)
	for i := range entries {
		entries[i] = entry(t, core.LogID(fmt.Sprintf("log-%d", i)), u1, core.Reuse, 1)
	}

	var wg sync.WaitGroup
	for _, e := range entries {
		wg.Add(1)
		go func(e core.LogEntry) {
			defer wg.Done()
			_, err := store.AppendLog(ctx, e)
			assert.NoError(t, err)
		}(e)
	}
	wg.Wait()

	u1, err = store.User(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), u1.TotalPoints)
	logs, err := store.Logs(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 20)
}
