// Package daemon wires the placement engine to a window-system backend and
// runs it until cancelled.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/1broseidon/persistwin/internal/config"
	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/hook"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/store"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/1broseidon/persistwin/internal/window"
)

// LevelSetter changes the log level of a running logger.
type LevelSetter interface {
	SetLevel(level string) error
}

// Options configures a Daemon.
type Options struct {
	Logger *slog.Logger
	// Levels receives log level changes from config reloads. Optional.
	Levels LevelSetter
	// ConfigPath is watched for changes while Run is active. Empty disables
	// reloading.
	ConfigPath string
}

// Daemon owns the store, the engine and the backend loop.
type Daemon struct {
	cfg      *config.Config
	backend  platform.Loop
	logger   *slog.Logger
	levels   LevelSetter
	cfgPath  string
	store    *store.Store
	topology *topology.Service
	windows  *window.Resolver
	engine   *engine.Engine

	// mu serializes engine use between the loop thread and other callers
	// such as the MCP server.
	mu sync.Mutex

	// Loop-thread state, touched only by the notification handlers. A
	// blocking SetWindowPlacement can dispatch notifications back into the
	// handlers while mu is held by the same thread.
	dispatching    bool
	pendingDisplay platform.DisplayChangeReason
}

// New opens the placement store and builds the engine. The engine has no
// active topology until Start or Run.
func New(cfg *config.Config, backend platform.Loop, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	topo := topology.NewService(backend, st, topology.Options{SortMonitors: cfg.Topology.SortMonitors})
	windows := window.NewResolver(backend)
	windows.SetIgnore(ignoreFromConfig(cfg))
	eng := engine.New(&engine.Context{}, topo, st, windows, backend, engine.Options{
		Async:  cfg.Restore.Async,
		Logger: logger,
	})

	return &Daemon{
		cfg:      cfg,
		backend:  backend,
		logger:   logger,
		levels:   opts.Levels,
		cfgPath:  opts.ConfigPath,
		store:    st,
		topology: topo,
		windows:  windows,
		engine:   eng,
	}, nil
}

// Store returns the placement store.
func (d *Daemon) Store() *store.Store {
	return d.store
}

// Topology returns the topology service.
func (d *Daemon) Topology() *topology.Service {
	return d.topology
}

// Do runs fn with exclusive use of the engine.
func (d *Daemon) Do(fn func(e *engine.Engine) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.engine)
}

// CurrentTopology fingerprints and interns the live layout without making it
// active.
func (d *Daemon) CurrentTopology() (topology.Observation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.topology.Observe()
}

// Start activates the live topology and captures every window.
func (d *Daemon) Start() (topology.Observation, engine.BatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine.Start()
}

// Restore activates the live topology and restores every window.
func (d *Daemon) Restore() (topology.Observation, engine.BatchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obs, err := d.engine.SwitchTopology()
	if err != nil {
		return topology.Observation{}, engine.BatchResult{}, err
	}
	res, err := d.engine.RestoreAll()
	return obs, res, err
}

// Run captures the initial state, installs window hooks and pumps the
// backend's message loop on a dedicated OS thread until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.runLocked(ctx)
	}()

	select {
	case <-ctx.Done():
		d.backend.Stop()
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// runLocked owns one OS thread for its whole lifetime. Hooks deliver on the
// thread that installed them, and unregistration must happen there too.
func (d *Daemon) runLocked(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	obs, res, err := d.Start()
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	d.logger.Info("initial capture complete", "topology_id", obs.ID, "result", res)

	bridge := hook.NewBridge(d.backend)
	handles, err := bridge.RegisterRanges(platform.WindowEventRanges, d.handleWindowEvent)
	if err != nil {
		return err
	}
	defer func() {
		for _, h := range handles {
			if err := bridge.Unregister(h); err != nil {
				d.logger.Warn("failed to remove hook", "hook", h.String(), "error", err)
			}
		}
	}()

	if d.cfgPath != "" {
		w, err := config.Watch(d.cfgPath, config.DefaultReloadDebounce, d.ApplyConfig, func(err error) {
			d.logger.Warn("config reload failed", "path", d.cfgPath, "error", err)
		})
		if err != nil {
			d.logger.Warn("config watch disabled", "path", d.cfgPath, "error", err)
		} else {
			defer w.Close()
		}
	}

	if ctx.Err() != nil {
		return nil
	}
	d.logger.Info("persistwin running", "hooks", len(handles), "database", d.store.Path())
	return d.backend.Run(platform.LoopOptions{SessionChanges: d.cfg.Restore.OnSessionChange}, d.handleDisplayChange)
}

// handleWindowEvent drops notifications that arrive while another handler is
// running on the loop thread: they are side effects of the placements being
// applied.
func (d *Daemon) handleWindowEvent(event uint32, h platform.WindowHandle) {
	if d.dispatching {
		d.logger.Debug("dropped re-entrant window event", "event", fmt.Sprintf("0x%04x", event), "window", h)
		return
	}
	d.dispatching = true
	defer func() { d.dispatching = false }()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.engine.HandleWindowEvent(event, h)
}

// handleDisplayChange defers a display change that arrives during another
// handler and runs it once the current pass has finished.
func (d *Daemon) handleDisplayChange(reason platform.DisplayChangeReason) {
	if d.dispatching {
		d.logger.Debug("deferred re-entrant display change", "reason", reason)
		d.pendingDisplay = reason
		return
	}
	d.dispatching = true
	defer func() { d.dispatching = false }()

	for reason != "" {
		d.displayChange(reason)
		reason, d.pendingDisplay = d.pendingDisplay, ""
	}
}

func (d *Daemon) displayChange(reason platform.DisplayChangeReason) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.engine.HandleDisplayChange(reason); err != nil {
		d.logger.Error("display change handling failed", "reason", reason, "error", err)
	}
}

// ApplyConfig applies the settings that can change while running: the log
// level and the ignore lists. Everything else takes effect on restart.
func (d *Daemon) ApplyConfig(cfg *config.Config) {
	if d.levels != nil {
		if err := d.levels.SetLevel(cfg.Log.Level); err != nil {
			d.logger.Warn("invalid log level", "level", cfg.Log.Level, "error", err)
		}
	}
	d.windows.SetIgnore(ignoreFromConfig(cfg))
	d.logger.Info("config reloaded",
		"log_level", cfg.Log.Level,
		"ignored_classes", len(cfg.Ignore.Classes),
		"ignored_executables", len(cfg.Ignore.Executables),
	)
}

// Close releases the store and the backend.
func (d *Daemon) Close() error {
	storeErr := d.store.Close()
	if err := d.backend.Close(); err != nil {
		return err
	}
	return storeErr
}

func ignoreFromConfig(cfg *config.Config) window.Ignore {
	return window.Ignore{
		Classes:     cfg.Ignore.Classes,
		Executables: cfg.Ignore.Executables,
	}
}
