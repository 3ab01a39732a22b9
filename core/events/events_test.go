package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// testLogger returns a disabled logger for tests
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNewEvent(t *testing.T) {
	e := NewEvent("nhan_su", ActionDeleted, nil, 3, 4)
	if e.Name != "nhan_su.deleted" || e.Module != "nhan_su" || e.Action != "deleted" {
		t.Errorf("NewEvent() = %+v", e)
	}
	if len(e.IDs) != 2 || e.IDs[1] != 4 {
		t.Errorf("IDs = %v", e.IDs)
	}
}

func TestPublishMatching(t *testing.T) {
	tests := []struct {
		name      string
		subscribe string
		publish   string
		want      bool
	}{
		{"exact", "nhan_su.created", "nhan_su.created", true},
		{"exact other action", "nhan_su.created", "nhan_su.updated", false},
		{"module wildcard", "nhan_su.*", "nhan_su.deleted", true},
		{"module wildcard other module", "nhan_su.*", "phong_ban.deleted", false},
		{"global", "*", "phong_ban.updated", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewBus(testLogger())
			called := false
			bus.Subscribe(tt.subscribe, func(ctx context.Context, e Event) error {
				called = true
				return nil
			})
			bus.Publish(context.Background(), Event{Name: tt.publish})

			if called != tt.want {
				t.Errorf("handler called = %v, want %v", called, tt.want)
			}
			if got := bus.HasSubscribers(tt.publish); got != tt.want {
				t.Errorf("HasSubscribers(%q) = %v, want %v", tt.publish, got, tt.want)
			}
		})
	}
}

func TestPublishOrder(t *testing.T) {
	bus := NewBus(testLogger())
	var order []string
	record := func(name string) Handler {
		return func(context.Context, Event) error {
			order = append(order, name)
			return nil
		}
	}
	bus.Subscribe("*", record("global"))
	bus.Subscribe("nhan_su.*", record("module"))
	bus.Subscribe("nhan_su.created", record("exact-1"))
	bus.Subscribe("nhan_su.created", record("exact-2"))

	bus.Publish(context.Background(), NewEvent("nhan_su", ActionCreated, nil, 1))

	want := []string{"exact-1", "exact-2", "module", "global"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	var a, b int32
	unsubA := bus.Subscribe("*", func(context.Context, Event) error {
		atomic.AddInt32(&a, 1)
		return nil
	})
	bus.Subscribe("*", func(context.Context, Event) error {
		atomic.AddInt32(&b, 1)
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "x.created"})
	unsubA()
	unsubA() // idempotent
	bus.Publish(context.Background(), Event{Name: "x.created"})

	if atomic.LoadInt32(&a) != 1 || atomic.LoadInt32(&b) != 2 {
		t.Errorf("calls a=%d b=%d, want 1 and 2", a, b)
	}
}

func TestUnsubscribeLastRemovesKey(t *testing.T) {
	bus := NewBus(testLogger())
	unsub := bus.Subscribe("nhan_su.*", func(context.Context, Event) error { return nil })
	unsub()
	if bus.HasSubscribers("nhan_su.created") {
		t.Error("subscriber still registered")
	}
	if len(bus.handlers) != 0 {
		t.Errorf("handlers = %v, want empty", bus.handlers)
	}
}

func TestPublishHandlerError(t *testing.T) {
	bus := NewBus(testLogger())
	second := false
	bus.Subscribe("*", func(context.Context, Event) error { return errors.New("boom") })
	bus.Subscribe("*", func(context.Context, Event) error {
		second = true
		return nil
	})

	bus.Publish(context.Background(), Event{Name: "a.b"})
	if !second {
		t.Error("error in first handler stopped delivery")
	}
}

func TestPublishHandlerMaySubscribe(t *testing.T) {
	bus := NewBus(testLogger())
	bus.Subscribe("*", func(context.Context, Event) error {
		// Must not deadlock.
		bus.Subscribe("late.*", func(context.Context, Event) error { return nil })
		return nil
	})
	bus.Publish(context.Background(), Event{Name: "a.b"})
	if !bus.HasSubscribers("late.created") {
		t.Error("subscription from handler lost")
	}
}

func TestPublishAsync(t *testing.T) {
	bus := NewBus(testLogger())
	var wg sync.WaitGroup
	wg.Add(1)
	bus.Subscribe("*", func(ctx context.Context, e Event) error {
		defer wg.Done()
		if ctx.Err() != nil {
			t.Error("async handler got a cancelled context")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.PublishAsync(ctx, Event{Name: "a.b"})
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async handler not called")
	}
}
