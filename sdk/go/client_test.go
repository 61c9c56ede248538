package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mem "github.com/anuphat-bit/Eco-Hero/adapters/memory"
	"github.com/anuphat-bit/Eco-Hero/api/httpapi"
	"github.com/anuphat-bit/Eco-Hero/core"
	"github.com/anuphat-bit/Eco-Hero/engine"
	"github.com/anuphat-bit/Eco-Hero/realtime"
)

type testServer struct {
	*httptest.Server
	hub *realtime.Hub
}

// newTestServer runs the real HTTP API over an in-memory service.
func newTestServer(t *testing.T, opts httpapi.Options) *testServer {
	t.Helper()
	hub := realtime.NewHub()
	bus := engine.NewEventBus(engine.DispatchSync)
	bus.SubscribeAll(hub.Broadcast)
	svc := engine.NewService(mem.New(), bus, engine.DefaultRuleEngine())
	_, err := svc.EnsureRoster(context.Background(),
		[]core.Department{{ID: "d1", Name: "Finance"}},
		[]core.User{
			{ID: "alice", Name: "Alice", DepartmentID: "d1", PIN: "1234"},
			{ID: "bob", Name: "Bob", DepartmentID: "d1", PIN: "5678"},
		})
	require.NoError(t, err)

	opts.PathPrefix = "/api"
	srv := httptest.NewServer(httpapi.NewMux(svc, hub, opts))
	t.Cleanup(func() {
		srv.Close()
		svc.Close()
	})
	return &testServer{Server: srv, hub: hub}
}

func TestClient_EndToEnd(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{APIKeys: []string{"k1"}})
	client, err := NewClient(srv.URL+"/api/", WithAPIKey("k1"))
	require.NoError(t, err)
	ctx := context.Background()

	user, err := client.Login(ctx, "alice", "1234")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	receipt, err := client.RecordUsage(ctx, "alice", "Digital", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(20), receipt.Total)
	assert.Equal(t, "Healthy", receipt.Tier)

	_, err = client.RecordUsage(ctx, "bob", "Copy", 5)
	require.NoError(t, err)

	dash, err := client.Dashboard(ctx, "alice", "month")
	require.NoError(t, err)
	assert.Equal(t, int64(20), dash.TotalPoints)
	assert.Equal(t, int64(10), dash.PaperSaved)

	history, err := client.History(ctx, "alice", HistoryQuery{Type: "digital"})
	require.NoError(t, err)
	require.Len(t, history, 1)

	steps, err := client.Timeline(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, steps, 1)

	dept, err := client.Department(ctx, "d1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, dept.Summary.Headcount)

	boards, err := client.Leaderboards(ctx, "week", 1)
	require.NoError(t, err)
	require.Len(t, boards.Individuals, 1)
	assert.Equal(t, core.UserID("alice"), boards.Individuals[0].UserID)

	all, err := client.AllTime(ctx, 5)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(-10), all[1].Points)

	roster, err := client.Roster(ctx)
	require.NoError(t, err)
	assert.Len(t, roster.Users, 2)

	tip, err := client.Tip(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tip)

	integrity, err := client.Integrity(ctx)
	require.NoError(t, err)
	assert.True(t, integrity.OK)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestClient_Errors(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Login(ctx, "alice", "9999")
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	_, err = client.RecordUsage(ctx, "alice", "Digital", 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	_, err = client.Dashboard(ctx, "nobody", "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = client.Timeline(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyUserID)

	_, err = NewClient("")
	assert.Error(t, err)
}

func TestClient_SubscribeEvents(t *testing.T) {
	srv := newTestServer(t, httpapi.Options{})
	client, err := NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	events, err := client.SubscribeEvents(ctx, EventFilter{UserID: "alice", Types: []core.EventType{core.EventLogRecorded}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err = client.RecordUsage(ctx, "bob", "Reuse", 1)
	require.NoError(t, err)
	_, err = client.RecordUsage(ctx, "alice", "Reuse", 3)
	require.NoError(t, err)

	select {
	case evt := <-events:
		assert.Equal(t, core.EventLogRecorded, evt.Type)
		assert.Equal(t, core.UserID("alice"), evt.UserID)
		assert.Equal(t, int64(3), evt.Total)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel closes after cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestDeriveWSURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/api/ws", deriveWSURL("http://localhost:8080/api"))
	assert.Equal(t, "wss://eco.example.com/ws", deriveWSURL("https://eco.example.com"))
}
