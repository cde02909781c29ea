// Package engine captures window placements under the active topology and
// restores them when that topology reappears.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/1broseidon/persistwin/internal/window"
)

// TopologyService fingerprints the live monitor layout.
type TopologyService interface {
	Observe() (topology.Observation, error)
}

// Store persists placements per (topology, identity).
type Store interface {
	Upsert(topo topology.ID, id window.Identity, p platform.Placement) error
	Lookup(topo topology.ID, id window.Identity) (platform.Placement, bool, error)
}

// Windows answers eligibility and identity questions about live windows.
type Windows interface {
	List() ([]platform.WindowHandle, error)
	CaptureEligible(h platform.WindowHandle) bool
	RestoreEligible(h platform.WindowHandle) bool
	Resolve(h platform.WindowHandle) (window.Identity, error)
	Placement(h platform.WindowHandle) (platform.Placement, error)
	Ignored(id window.Identity) bool
}

// Applier applies a placement to a live window.
type Applier interface {
	SetPlacement(h platform.WindowHandle, p platform.Placement, async bool) error
}

// Options configures an Engine.
type Options struct {
	// Async marks every applied placement asynchronous.
	Async  bool
	Logger *slog.Logger
}

// BatchResult summarizes a capture or restore pass over every listed window.
type BatchResult struct {
	Total   int `json:"total"`
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// LogValue groups the counters in structured logs.
func (r BatchResult) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("total", r.Total),
		slog.Int("applied", r.Applied),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	)
}

type outcome int

const (
	skipped outcome = iota
	applied
)

// Engine orchestrates capture and restore. It is not safe for concurrent use:
// the daemon drives it from the single thread that receives notifications.
type Engine struct {
	ctx     *Context
	topo    TopologyService
	store   Store
	windows Windows
	apply   Applier
	async   bool
	logger  *slog.Logger
}

// New returns an Engine. ctx is typically empty until Start.
func New(ctx *Context, topo TopologyService, store Store, windows Windows, apply Applier, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ctx:     ctx,
		topo:    topo,
		store:   store,
		windows: windows,
		apply:   apply,
		async:   opts.Async,
		logger:  logger,
	}
}

// Context returns the engine's topology context.
func (e *Engine) Context() *Context {
	return e.ctx
}

// Start establishes the initial topology and captures every eligible window.
func (e *Engine) Start() (topology.Observation, BatchResult, error) {
	obs, err := e.SwitchTopology()
	if err != nil {
		return topology.Observation{}, BatchResult{}, err
	}
	res, err := e.CaptureAll()
	return obs, res, err
}

// SwitchTopology fingerprints the live layout and makes it active.
func (e *Engine) SwitchTopology() (topology.Observation, error) {
	obs, err := e.topo.Observe()
	if err != nil {
		return topology.Observation{}, fmt.Errorf("capture topology: %w", err)
	}
	e.ctx.Set(obs.ID)
	e.logger.Info("topology active",
		"topology_id", obs.ID,
		"fingerprint", obs.Fingerprint,
		"monitors", obs.Topology.String(),
	)
	return obs, nil
}

// HandleDisplayChange re-fingerprints the layout, switches to it and restores
// every window. The new topology is always active before any window moves.
func (e *Engine) HandleDisplayChange(reason platform.DisplayChangeReason) (BatchResult, error) {
	e.logger.Info("display configuration changed", "reason", reason)
	if _, err := e.SwitchTopology(); err != nil {
		return BatchResult{}, err
	}
	return e.RestoreAll()
}

// HandleWindowEvent captures the window a notification refers to. Failures
// are expected for short-lived windows and only logged at debug level.
func (e *Engine) HandleWindowEvent(event uint32, h platform.WindowHandle) {
	if err := e.CaptureWindow(h); err != nil {
		e.logger.Debug("capture failed", "event", fmt.Sprintf("0x%04x", event), "window", h, "error", err)
	}
}

// CaptureWindow stores the current placement of h under the active topology.
// Windows that are not visible top-level windows, or are ignored, are skipped
// without error.
func (e *Engine) CaptureWindow(h platform.WindowHandle) error {
	_, err := e.captureWindow(h)
	return err
}

func (e *Engine) captureWindow(h platform.WindowHandle) (outcome, error) {
	topo := e.ctx.Active()
	if !e.windows.CaptureEligible(h) {
		return skipped, nil
	}
	id, err := e.windows.Resolve(h)
	if err != nil {
		return skipped, err
	}
	if e.windows.Ignored(id) {
		return skipped, nil
	}
	p, err := e.windows.Placement(h)
	if err != nil {
		return skipped, err
	}
	if err := e.store.Upsert(topo, id, p); err != nil {
		return skipped, err
	}
	e.logger.Debug("captured", "window", h, "topology_id", topo, "exe", id.ExePath,
		"class", id.ClassName, "title", id.Title, "show", p.Show, "rect", p.NormalRect)
	return applied, nil
}

// CaptureAll captures every listed window. Only a failure to list windows
// fails the pass; per-window failures are logged and counted.
func (e *Engine) CaptureAll() (BatchResult, error) {
	return e.batch("capture", e.captureWindow)
}

// RestoreWindow applies the placement stored for h under the active topology.
// A window with no stored placement is left where it is.
func (e *Engine) RestoreWindow(h platform.WindowHandle) error {
	_, err := e.restoreWindow(h)
	return err
}

func (e *Engine) restoreWindow(h platform.WindowHandle) (outcome, error) {
	topo := e.ctx.Active()
	if !e.windows.RestoreEligible(h) {
		return skipped, nil
	}
	id, err := e.windows.Resolve(h)
	if err != nil {
		return skipped, err
	}
	if e.windows.Ignored(id) {
		return skipped, nil
	}
	p, found, err := e.store.Lookup(topo, id)
	if err != nil {
		return skipped, err
	}
	if !found {
		return skipped, nil
	}
	if err := e.applyPlacement(h, p); err != nil {
		return skipped, err
	}
	e.logger.Debug("restored", "window", h, "topology_id", topo, "exe", id.ExePath,
		"class", id.ClassName, "title", id.Title, "show", p.Show, "rect", p.NormalRect)
	return applied, nil
}

// applyPlacement sets p on h. A maximized placement applied directly is
// ignored by the window manager, so it is first applied as normal to move
// the window onto the right monitor and then applied as stored.
func (e *Engine) applyPlacement(h platform.WindowHandle, p platform.Placement) error {
	if p.Show == platform.ShowMaximized {
		normal := p
		normal.Show = platform.ShowNormal
		if err := e.apply.SetPlacement(h, normal, e.async); err != nil {
			return fmt.Errorf("apply normal placement to %s: %w", h, err)
		}
	}
	if err := e.apply.SetPlacement(h, p, e.async); err != nil {
		return fmt.Errorf("apply placement to %s: %w", h, err)
	}
	return nil
}

// RestoreAll restores every listed window with the same isolation as CaptureAll.
func (e *Engine) RestoreAll() (BatchResult, error) {
	return e.batch("restore", e.restoreWindow)
}

func (e *Engine) batch(op string, fn func(platform.WindowHandle) (outcome, error)) (BatchResult, error) {
	// Establishing the topology is a precondition, not a per-window concern.
	e.ctx.Active()

	handles, err := e.windows.List()
	if err != nil {
		return BatchResult{}, fmt.Errorf("%s: %w", op, err)
	}

	res := BatchResult{Total: len(handles)}
	for _, h := range handles {
		out, err := fn(h)
		switch {
		case err != nil:
			res.Failed++
			e.logger.Warn(op+" failed", "window", h, "error", err)
		case out == applied:
			res.Applied++
		default:
			res.Skipped++
		}
	}
	e.logger.Info(op+" pass complete", "topology_id", e.ctx.Active(), "result", res)
	return res, nil
}
