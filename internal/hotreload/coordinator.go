package hotreload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reloadable represents a component that can rebuild itself from its files
type Reloadable interface {
	Reload(ctx context.Context) error
	Name() string
}

// Result describes the outcome of reloading one component
type Result struct {
	Name   string
	Events []Event
	Err    error
}

// Coordinator debounces watcher events and reloads every registered
// component once per burst of changes
type Coordinator struct {
	watcher      *Watcher
	broadcaster  *Broadcaster
	reloadables  map[string]Reloadable
	trigger      chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	debounceTime time.Duration
	wg           sync.WaitGroup
	isRunning    bool
}

// NewCoordinator creates a new reload coordinator. Results are published on
// broadcaster, which may be nil.
func NewCoordinator(watcher *Watcher, broadcaster *Broadcaster) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		watcher:      watcher,
		broadcaster:  broadcaster,
		reloadables:  make(map[string]Reloadable),
		trigger:      make(chan struct{}, 1),
		ctx:          ctx,
		cancel:       cancel,
		debounceTime: 500 * time.Millisecond,
	}
}

// Register adds a reloadable component to the coordinator
func (c *Coordinator) Register(reloadable Reloadable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := reloadable.Name()
	if _, exists := c.reloadables[name]; exists {
		return fmt.Errorf("reloadable %s already registered", name)
	}

	c.reloadables[name] = reloadable
	slog.Info("Registered reloadable component", "name", name)
	return nil
}

// Unregister removes a reloadable component from the coordinator
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.reloadables, name)
	slog.Info("Unregistered reloadable component", "name", name)
}

// Start begins the hot reload coordination
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return fmt.Errorf("coordinator has been stopped")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.watcher.Start()

	c.wg.Add(1)
	go c.coordinateReloads()

	slog.Info("Hot reload coordinator started")
	return nil
}

// Stop stops the coordination and the underlying watcher
func (c *Coordinator) Stop() {
	c.mu.Lock()
	wasRunning := c.isRunning
	c.isRunning = false
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	c.watcher.Stop()

	if wasRunning {
		slog.Info("Hot reload coordinator stopped")
	}
}

// Trigger requests a reload without a file change, for example on SIGHUP.
// Requests made while one is pending are merged.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// coordinateReloads collects events until none arrive for the debounce period
func (c *Coordinator) coordinateReloads() {
	defer c.wg.Done()

	var (
		debounceTimer *time.Timer
		debounce      <-chan time.Time
		events        []Event
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case event, ok := <-c.watcher.Events():
			if !ok {
				return
			}
			events = append(events, event)

			wait := c.DebounceTime()
			if debounceTimer == nil {
				debounceTimer = time.NewTimer(wait)
			} else {
				debounceTimer.Reset(wait)
			}
			debounce = debounceTimer.C

		case <-debounce:
			c.triggerReload(events)
			events = nil
			debounceTimer = nil
			debounce = nil

		case <-c.trigger:
			c.triggerReload(nil)
		}
	}
}

// triggerReload reloads all registered components concurrently
func (c *Coordinator) triggerReload(events []Event) []Result {
	c.mu.RLock()
	reloadables := make([]Reloadable, 0, len(c.reloadables))
	for _, r := range c.reloadables {
		reloadables = append(reloadables, r)
	}
	c.mu.RUnlock()

	if len(reloadables) == 0 {
		return nil
	}

	slog.Info("Triggering hot reload", "events", len(events))
	for _, event := range events {
		slog.Debug("Reload triggered by", "path", event.Path, "operation", event.Op.String())
	}

	results := make([]Result, len(reloadables))
	var wg sync.WaitGroup
	for i, reloadable := range reloadables {
		wg.Add(1)
		go func(i int, r Reloadable) {
			defer wg.Done()
			results[i] = Result{Name: r.Name(), Events: events}
			if err := r.Reload(c.ctx); err != nil {
				results[i].Err = fmt.Errorf("failed to reload %s: %w", r.Name(), err)
				return
			}
			slog.Info("Successfully reloaded component", "name", r.Name())
		}(i, reloadable)
	}
	wg.Wait()

	var reloadErrors []error
	for _, res := range results {
		if res.Err != nil {
			reloadErrors = append(reloadErrors, res.Err)
		}
	}
	if err := errors.Join(reloadErrors...); err != nil {
		slog.Error("Hot reload completed with errors", "errors", len(reloadErrors), "error", err)
	} else {
		slog.Info("Hot reload completed successfully")
	}

	if c.broadcaster != nil {
		for _, res := range results {
			if err := c.broadcaster.Broadcast(c.ctx, res); err != nil {
				slog.Error("Failed to publish reload result", "name", res.Name, "error", err)
			}
		}
	}

	return results
}

// SetDebounceTime sets the debounce time for reload events
func (c *Coordinator) SetDebounceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounceTime = d
}

// DebounceTime returns the current debounce time
func (c *Coordinator) DebounceTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debounceTime
}

// IsRunning returns whether the coordinator is currently running
func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
