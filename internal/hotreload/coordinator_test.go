package hotreload

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockReloadable is a mock implementation of the Reloadable interface for testing.
type mockReloadable struct {
	name        string
	reloadCount atomic.Int32
	reloadFunc  func(ctx context.Context) error
}

func (m *mockReloadable) Reload(ctx context.Context) error {
	m.reloadCount.Add(1)
	if m.reloadFunc != nil {
		return m.reloadFunc(ctx)
	}
	return nil
}

func (m *mockReloadable) Name() string {
	return m.name
}

func (m *mockReloadable) GetReloadCount() int32 {
	return m.reloadCount.Load()
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func newTestCoordinator(t *testing.T, b *Broadcaster) (*Coordinator, *Watcher) {
	t.Helper()
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher() failed: %v", err)
	}
	c := NewCoordinator(w, b)
	t.Cleanup(c.Stop)
	return c, w
}

func TestNewCoordinator(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	if c.IsRunning() {
		t.Error("Coordinator should not be running initially")
	}
	if c.DebounceTime() != 500*time.Millisecond {
		t.Errorf("Expected default debounce of 500ms, got %v", c.DebounceTime())
	}
}

func TestCoordinator_RegisterUnregister(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)

	reloadable1 := &mockReloadable{name: "comp1"}

	if err := c.Register(reloadable1); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if _, ok := c.reloadables["comp1"]; !ok {
		t.Fatal("Component 'comp1' not found after registration")
	}

	if err := c.Register(reloadable1); err == nil {
		t.Fatal("Expected error on duplicate registration, but got nil")
	}

	c.Unregister("comp1")
	if _, ok := c.reloadables["comp1"]; ok {
		t.Fatal("Component 'comp1' found after unregistration")
	}
}

func TestCoordinator_StartStop(t *testing.T) {
	c, w := newTestCoordinator(t, nil)

	if w.IsWatching() {
		t.Fatal("Watcher should not be running before coordinator Start()")
	}

	if err := c.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if !c.IsRunning() || !w.IsWatching() {
		t.Fatal("Coordinator and watcher should be running after Start()")
	}

	if err := c.Start(); err == nil {
		t.Fatal("Expected error when starting a running coordinator, but got nil")
	}

	c.Stop()
	if c.IsRunning() || w.IsWatching() {
		t.Fatal("Coordinator and watcher should be stopped after Stop()")
	}

	if err := c.Start(); err == nil {
		t.Fatal("Expected error when restarting a stopped coordinator")
	}
}

func TestCoordinator_Debouncing(t *testing.T) {
	c, w := newTestCoordinator(t, nil)
	c.SetDebounceTime(50 * time.Millisecond)

	reloadable := &mockReloadable{name: "test"}
	if err := c.Register(reloadable); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	// A burst of events within the debounce window
	w.events <- Event{Path: "index.html.tmpl"}
	w.events <- Event{Path: "index.html.tmpl"}
	w.events <- Event{Path: "index.html.tmpl"}

	if !waitFor(t, time.Second, func() bool { return reloadable.GetReloadCount() == 1 }) {
		t.Fatalf("Expected reload count to be 1, got %d", reloadable.GetReloadCount())
	}

	// Nothing else queued, so the count must stay put
	time.Sleep(100 * time.Millisecond)
	if count := reloadable.GetReloadCount(); count != 1 {
		t.Fatalf("Expected a single reload for one burst, got %d", count)
	}

	w.events <- Event{Path: "index.html.tmpl"}
	if !waitFor(t, time.Second, func() bool { return reloadable.GetReloadCount() == 2 }) {
		t.Fatalf("Expected reload count to be 2, got %d", reloadable.GetReloadCount())
	}
}

func TestCoordinator_Trigger(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)

	reloadable := &mockReloadable{name: "test"}
	if err := c.Register(reloadable); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	c.Trigger()

	if !waitFor(t, time.Second, func() bool { return reloadable.GetReloadCount() == 1 }) {
		t.Fatalf("Expected reload after Trigger(), got %d", reloadable.GetReloadCount())
	}
}

func TestCoordinator_TriggerReload(t *testing.T) {
	b := NewBroadcaster()
	c, _ := newTestCoordinator(t, b)

	var failures atomic.Int32
	if err := b.AddListener("count", func(ctx context.Context, r Result) error {
		if r.Err != nil {
			failures.Add(1)
		}
		return nil
	}); err != nil {
		t.Fatalf("AddListener failed: %v", err)
	}

	reloadable1 := &mockReloadable{name: "comp1"}
	reloadable2 := &mockReloadable{name: "comp2", reloadFunc: func(ctx context.Context) error {
		return errors.New("reload failed")
	}}
	if err := c.Register(reloadable1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := c.Register(reloadable2); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	results := c.triggerReload([]Event{{Path: "test.file"}})

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if reloadable1.GetReloadCount() != 1 || reloadable2.GetReloadCount() != 1 {
		t.Errorf("Expected each component to reload once, got %d and %d",
			reloadable1.GetReloadCount(), reloadable2.GetReloadCount())
	}
	for _, r := range results {
		switch r.Name {
		case "comp1":
			if r.Err != nil {
				t.Errorf("comp1 should succeed, got %v", r.Err)
			}
		case "comp2":
			if r.Err == nil {
				t.Error("comp2 should report its error")
			}
		}
		if len(r.Events) != 1 || r.Events[0].Path != "test.file" {
			t.Errorf("Result %s should carry the triggering events, got %v", r.Name, r.Events)
		}
	}
	if failures.Load() != 1 {
		t.Errorf("Expected listener to see 1 failure, got %d", failures.Load())
	}
}

func TestCoordinator_TriggerReloadWithoutComponents(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	if results := c.triggerReload([]Event{{Path: "x"}}); results != nil {
		t.Fatalf("Expected no results, got %v", results)
	}
}

func TestCoordinator_ContextCancellation(t *testing.T) {
	c, w := newTestCoordinator(t, nil)
	c.SetDebounceTime(10 * time.Millisecond)

	started := make(chan struct{})
	var ctxCancelled atomic.Bool
	reloadable := &mockReloadable{
		name: "long-reload",
		reloadFunc: func(ctx context.Context) error {
			close(started)
			select {
			case <-ctx.Done():
				ctxCancelled.Store(true)
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	}
	if err := c.Register(reloadable); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	w.events <- Event{Path: "index.html.tmpl"}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("Reload did not start")
	}

	c.Stop()

	if !ctxCancelled.Load() {
		t.Error("Expected context to be canceled during reload, but it wasn't")
	}
}
