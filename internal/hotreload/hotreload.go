// Package hotreload watches files on disk and reloads the components built
// from them.
package hotreload

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Manager ties a watcher, a coordinator and a result broadcaster together
type Manager struct {
	watcher     *Watcher
	coordinator *Coordinator
	broadcaster *Broadcaster
	mu          sync.Mutex
	started     bool
}

// NewManager creates a new hot reload manager
func NewManager(debounce time.Duration) (*Manager, error) {
	watcher, err := NewWatcher()
	if err != nil {
		return nil, err
	}

	broadcaster := NewBroadcaster()
	coordinator := NewCoordinator(watcher, broadcaster)
	if debounce > 0 {
		coordinator.SetDebounceTime(debounce)
	}

	return &Manager{
		watcher:     watcher,
		coordinator: coordinator,
		broadcaster: broadcaster,
	}, nil
}

// AddWatch adds a file to watch
func (m *Manager) AddWatch(path string) error {
	return m.watcher.Add(path)
}

// RemoveWatch removes a file from watch
func (m *Manager) RemoveWatch(path string) error {
	return m.watcher.Remove(path)
}

// RegisterReloadable registers a reloadable component
func (m *Manager) RegisterReloadable(reloadable Reloadable) error {
	return m.coordinator.Register(reloadable)
}

// AddListener adds a reload result listener
func (m *Manager) AddListener(name string, listener Listener) error {
	return m.broadcaster.AddListener(name, listener)
}

// RemoveListener removes a reload result listener
func (m *Manager) RemoveListener(name string) {
	m.broadcaster.RemoveListener(name)
}

// Start starts the hot reload system
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if err := m.coordinator.Start(); err != nil {
		return err
	}

	m.started = true
	slog.Info("Hot reload system started", "paths", m.watcher.Paths())
	return nil
}

// Stop stops the hot reload system and releases the watcher
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.coordinator.Stop()
	m.broadcaster.Close()
	if m.started {
		m.started = false
		slog.Info("Hot reload system stopped")
	}
}

// Trigger reloads every registered component now
func (m *Manager) Trigger() {
	m.coordinator.Trigger()
}

// SetDebounceTime sets the debounce time for reload events
func (m *Manager) SetDebounceTime(d time.Duration) {
	m.coordinator.SetDebounceTime(d)
}

// IsRunning returns whether the hot reload system is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Shutdown gracefully shuts down the hot reload system
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
