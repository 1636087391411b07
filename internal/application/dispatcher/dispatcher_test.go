package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/workdeck/spending/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) HasError(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.errors {
		if e == msg {
			return true
		}
	}
	return false
}

func newEvent(t event.Type) *event.Event {
	return event.NewEvent(t, "exp-1", "user-1", nil)
}

func TestSubscribe(t *testing.T) {
	t.Run("returns working unsubscribe func", func(t *testing.T) {
		d := NewDispatcher()
		var calls int32
		unsubscribe := d.Subscribe(event.TypeRequestCreated, func(ctx context.Context, evt *event.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})

		if err := d.Dispatch(context.Background(), newEvent(event.TypeRequestCreated)); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}
		unsubscribe()
		if err := d.Dispatch(context.Background(), newEvent(event.TypeRequestCreated)); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Errorf("handler called %d times, want 1", got)
		}
	})

	t.Run("unsubscribe removes only its own handler", func(t *testing.T) {
		d := NewDispatcher()
		var first, second int32
		unsubscribe := d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			atomic.AddInt32(&first, 1)
			return nil
		})
		d.Subscribe(event.TypeStatusChanged, func(ctx context.Context, evt *event.Event) error {
			atomic.AddInt32(&second, 1)
			return nil
		})

		unsubscribe()
		unsubscribe()
		_ = d.Dispatch(context.Background(), newEvent(event.TypeStatusChanged))

		if atomic.LoadInt32(&first) != 0 || atomic.LoadInt32(&second) != 1 {
			t.Errorf("calls = %d/%d, want 0/1", first, second)
		}
	})

	t.Run("wildcard receives every type", func(t *testing.T) {
		d := NewDispatcher()
		var seen []event.Type
		d.Subscribe(AllEvents, func(ctx context.Context, evt *event.Event) error {
			seen = append(seen, evt.Type)
			return nil
		})

		_ = d.Dispatch(context.Background(), newEvent(event.TypeRequestCreated))
		_ = d.Dispatch(context.Background(), newEvent(event.TypeSupplierAdded))

		if len(seen) != 2 || seen[0] != event.TypeRequestCreated || seen[1] != event.TypeSupplierAdded {
			t.Errorf("wildcard saw %v", seen)
		}
	})
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order, specific before wildcard", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		d.Subscribe(AllEvents, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "all")
			return nil
		})
		d.Subscribe(event.TypeLineItemAdded, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.Subscribe(event.TypeLineItemAdded, func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), newEvent(event.TypeLineItemAdded)); err != nil {
			t.Fatalf("Dispatch() error = %v", err)
		}

		want := []string{"first", "second", "all"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})

	t.Run("failing handler does not stop the rest", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		boom := errors.New("boom")
		var laterCalled bool

		d.Subscribe(event.TypeRequestUpdated, func(ctx context.Context, evt *event.Event) error {
			return boom
		})
		d.Subscribe(event.TypeRequestUpdated, func(ctx context.Context, evt *event.Event) error {
			laterCalled = true
			return nil
		})

		err := d.Dispatch(context.Background(), newEvent(event.TypeRequestUpdated))
		if !errors.Is(err, boom) {
			t.Errorf("Dispatch() error = %v, want wrapped %v", err, boom)
		}
		if !laterCalled {
			t.Error("second handler should still run")
		}
		if !logger.HasError("Handler error") {
			t.Error("expected handler error to be logged")
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeRequestDeleted, func(ctx context.Context, evt *event.Event) error {
			panic("view crashed")
		})

		err := d.Dispatch(context.Background(), newEvent(event.TypeRequestDeleted))
		if err == nil {
			t.Fatal("expected error from panicking handler")
		}
		if !logger.HasError("Handler panic recovered") {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("returns ErrClosed when closed", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if err := d.Dispatch(context.Background(), newEvent(event.TypeRequestCreated)); !errors.Is(err, ErrClosed) {
			t.Errorf("Dispatch() error = %v, want %v", err, ErrClosed)
		}
	})
}

func TestClose_DoubleClose(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("second Close() should fail")
	}
}

func TestConcurrency(t *testing.T) {
	d := NewDispatcher()
	var calls int64
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeRequestUpdated, func(ctx context.Context, evt *event.Event) error {
				atomic.AddInt64(&calls, 1)
				return nil
			})
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Dispatch(context.Background(), newEvent(event.TypeRequestUpdated))
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&calls); got != 200 {
		t.Errorf("calls = %d, want 200", got)
	}
}
