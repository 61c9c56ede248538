package engine

import (
	"context"
	"testing"
	"time"

	"github.com/anuphat-bit/Eco-Hero/core"
)

func recorded() core.Event {
	return core.NewLogRecorded(core.LogEntry{ID: "l1", UserID: "u", Type: core.Digital, Sheets: 1, EcoPoints: 2, CreatedAt: time.Now()}, 2)
}

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventLogRecorded, func(ctx context.Context, e core.Event) { count++ })
	bus.Subscribe(core.EventBadgeUnlocked, func(ctx context.Context, e core.Event) { t.Fatal("wrong type delivered") })
	bus.Publish(context.Background(), recorded())
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventLogRecorded, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), recorded())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusSubscribeAllAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var seen []core.EventType
	unsub := bus.SubscribeAll(func(ctx context.Context, e core.Event) { seen = append(seen, e.Type) })
	bus.Publish(context.Background(), recorded())
	bus.Publish(context.Background(), core.NewBadgeUnlocked("u", "first_log"))
	unsub()
	bus.Publish(context.Background(), recorded())
	if len(seen) != 2 || seen[1] != core.EventBadgeUnlocked {
		t.Fatalf("unexpected events %v", seen)
	}
	if bus.Dropped() != 0 {
		t.Fatalf("sync bus should never drop")
	}
}
