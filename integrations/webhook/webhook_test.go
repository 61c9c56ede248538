package webhook

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func TestSink_OnEventPostsToEndpoints(t *testing.T) {
	var (
		mu     sync.Mutex
		hits   int
		got    core.Event
		header string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		hits++
		header = r.Header.Get("X-EcoHero-Event")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = r.Body.Close()
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, srv.URL})
	sink.OnEvent(core.NewBadgeUnlocked("u1", "first_log"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, hits)
	assert.Equal(t, "badge_unlocked", header)
	assert.Equal(t, core.UserID("u1"), got.UserID)
	assert.Equal(t, int64(2), sink.Delivered())
	assert.Zero(t, sink.Failed())
}

func TestSink_CountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL, "http://127.0.0.1:0/unreachable"})
	sink.OnEvent(core.NewBadgeUnlocked("u1", "first_log"))
	assert.Equal(t, int64(2), sink.Failed())
	assert.Zero(t, sink.Delivered())
}

func TestSink_EventTypeFilter(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	sink := New([]string{srv.URL}, WithEventTypes(core.EventTreeWilting))
	sink.OnEvent(core.NewBadgeUnlocked("u1", "first_log"))
	sink.OnEvent(core.NewTreeWilting("u1", -10, -4))
	require.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestSink_NoEndpoints(t *testing.T) {
	sink := New(nil)
	sink.OnEvent(core.NewBadgeUnlocked("u1", "first_log"))
	assert.Zero(t, sink.Delivered()+sink.Failed())
}
