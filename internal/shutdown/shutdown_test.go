package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockShutdownable struct {
	closeCalled atomic.Bool
	closeErr    error
	closeDelay  time.Duration
}

func (m *mockShutdownable) Close() error {
	if m.closeDelay > 0 {
		time.Sleep(m.closeDelay)
	}
	m.closeCalled.Store(true)
	return m.closeErr
}

func newTestCoordinator() *Coordinator {
	return New(5*time.Second, zerolog.Nop())
}

func TestShutdown_RunsEverything(t *testing.T) {
	c := newTestCoordinator()
	comp := &mockShutdownable{}
	hookCalled := false

	c.Register("sessions", comp, PrioritySessions)
	c.RegisterHook("http", func(ctx context.Context) error {
		hookCalled = true
		return nil
	}, PriorityHTTPServer)

	require.NoError(t, c.Shutdown())
	assert.True(t, comp.closeCalled.Load())
	assert.True(t, hookCalled)
}

func TestShutdown_Once(t *testing.T) {
	c := newTestCoordinator()
	calls := 0
	c.RegisterHook("hook", func(ctx context.Context) error {
		calls++
		return nil
	}, PriorityStream)

	c.Shutdown()
	c.Shutdown()
	c.Shutdown()

	assert.Equal(t, 1, calls)
}

func TestShutdown_PriorityOrder(t *testing.T) {
	c := newTestCoordinator()
	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	c.RegisterHook("storage", record("storage"), PriorityStorage)
	c.RegisterHook("http", record("http"), PriorityHTTPServer)
	c.RegisterHook("sessions-a", record("sessions-a"), PrioritySessions)
	c.RegisterHook("sessions-b", record("sessions-b"), PrioritySessions)
	c.RegisterHook("stream", record("stream"), PriorityStream)

	require.NoError(t, c.Shutdown())
	assert.Equal(t, []string{"http", "stream", "sessions-a", "sessions-b", "storage"}, order)
}

func TestShutdown_FirstErrorWins(t *testing.T) {
	c := newTestCoordinator()
	first := errors.New("first")
	later := &mockShutdownable{closeErr: errors.New("second")}

	c.Register("failing", &mockShutdownable{closeErr: first}, PriorityHTTPServer)
	c.Register("later", later, PriorityStorage)

	err := c.Shutdown()
	assert.ErrorIs(t, err, first)
	assert.True(t, later.closeCalled.Load(), "a failing step does not stop later ones")
}

func TestShutdown_Timeout(t *testing.T) {
	c := New(50*time.Millisecond, zerolog.Nop())
	slow := &mockShutdownable{closeDelay: 300 * time.Millisecond}
	skipped := &mockShutdownable{}

	c.Register("slow", slow, PriorityHTTPServer)
	c.Register("skipped", skipped, PriorityStorage)

	start := time.Now()
	err := c.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.False(t, skipped.closeCalled.Load())
}

func TestTriggerShutdown_Concurrent(t *testing.T) {
	c := newTestCoordinator()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.TriggerShutdown()
		}()
	}
	wg.Wait()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done should be closed after TriggerShutdown")
	}

	comp := &mockShutdownable{}
	c.Register("late", comp, PriorityHTTPServer)
	require.NoError(t, c.Shutdown())
	assert.True(t, comp.closeCalled.Load())
}

func TestWaitForSignal_Trigger(t *testing.T) {
	c := newTestCoordinator()

	done := make(chan struct{})
	go func() {
		c.WaitForSignal()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	c.TriggerShutdown()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForSignal did not return after TriggerShutdown")
	}
}
