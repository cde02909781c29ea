// Package platformtest provides an in-memory platform backend for tests.
package platformtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/persistwin/internal/platform"
)

// Window is the fake state behind one handle.
type Window struct {
	Class     string
	Title     string
	PID       uint32
	Visible   bool
	TopLevel  bool
	Placement platform.Placement

	// Failure injection.
	ClassErr        error
	TitleErr        error
	PIDErr          error
	PlacementErr    error
	SetPlacementErr error
}

// SetPlacementCall records one SetPlacement invocation.
type SetPlacementCall struct {
	Handle    platform.WindowHandle
	Placement platform.Placement
	Async     bool
}

type notification struct {
	event  uint32
	window platform.WindowHandle
}

type hook struct {
	r     platform.EventRange
	tramp platform.Trampoline
}

// Backend is a fake platform.Loop. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	monitors    []platform.Monitor
	monitorsErr error
	order       []platform.WindowHandle
	windows     map[platform.WindowHandle]*Window
	images      map[uint32]string
	windowsErr  error
	calls       []SetPlacementCall

	onSetPlacement func(h platform.WindowHandle)

	hooks     map[platform.HookToken]hook
	nextToken platform.HookToken
	hookErr   error
	unhookErr error

	displayChanges chan platform.DisplayChangeReason
	notifications  chan notification
	started        chan struct{}
	startOnce      sync.Once
	stop           chan struct{}
	stopOnce       sync.Once
	lastOpts       platform.LoopOptions
	closed         bool
}

var _ platform.Loop = (*Backend)(nil)

// New returns an empty fake with no monitors and no windows.
func New() *Backend {
	return &Backend{
		windows:        make(map[platform.WindowHandle]*Window),
		images:         make(map[uint32]string),
		hooks:          make(map[platform.HookToken]hook),
		displayChanges: make(chan platform.DisplayChangeReason, 16),
		notifications:  make(chan notification, 64),
		started:        make(chan struct{}),
		stop:           make(chan struct{}),
	}
}

// SetMonitors replaces the attached monitors.
func (b *Backend) SetMonitors(monitors ...platform.Monitor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitors = append([]platform.Monitor(nil), monitors...)
}

// FailMonitors makes Monitors return err until called again with nil.
func (b *Backend) FailMonitors(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitorsErr = err
}

// FailWindows makes Windows return err until called again with nil.
func (b *Backend) FailWindows(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowsErr = err
}

// AddWindow registers w under h, keeping enumeration order.
func (b *Backend) AddWindow(h platform.WindowHandle, w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.windows[h]; !ok {
		b.order = append(b.order, h)
	}
	b.windows[h] = &w
}

// RemoveWindow drops h, as if the window was destroyed.
func (b *Backend) RemoveWindow(h platform.WindowHandle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.windows, h)
	for i, o := range b.order {
		if o == h {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Update mutates the window behind h under the fake's lock.
func (b *Backend) Update(h platform.WindowHandle, fn func(w *Window)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.windows[h]; ok {
		fn(w)
	}
}

// SetImage maps pid to an executable path.
func (b *Backend) SetImage(pid uint32, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.images[pid] = path
}

// Calls returns every SetPlacement call so far.
func (b *Backend) Calls() []SetPlacementCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]SetPlacementCall(nil), b.calls...)
}

// ResetCalls clears the SetPlacement log.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

func (b *Backend) Monitors() ([]platform.Monitor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.monitorsErr != nil {
		return nil, b.monitorsErr
	}
	return append([]platform.Monitor(nil), b.monitors...), nil
}

func (b *Backend) Windows() ([]platform.WindowHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.windowsErr != nil {
		return nil, b.windowsErr
	}
	return append([]platform.WindowHandle(nil), b.order...), nil
}

func (b *Backend) IsVisible(h platform.WindowHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	return ok && w.Visible
}

func (b *Backend) IsTopLevel(h platform.WindowHandle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	return ok && w.TopLevel
}

func (b *Backend) ClassName(h platform.WindowHandle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok {
		return "", errInvalidHandle(h)
	}
	if w.ClassErr != nil {
		return "", w.ClassErr
	}
	return w.Class, nil
}

func (b *Backend) Title(h platform.WindowHandle) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok {
		return "", errInvalidHandle(h)
	}
	if w.TitleErr != nil {
		return "", w.TitleErr
	}
	return w.Title, nil
}

func (b *Backend) ProcessID(h platform.WindowHandle) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok {
		return 0, errInvalidHandle(h)
	}
	if w.PIDErr != nil {
		return 0, w.PIDErr
	}
	return w.PID, nil
}

func (b *Backend) ProcessImagePath(pid uint32) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	path, ok := b.images[pid]
	if !ok {
		return "", fmt.Errorf("open process %d: access denied", pid)
	}
	return path, nil
}

func (b *Backend) Placement(h platform.WindowHandle) (platform.Placement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[h]
	if !ok {
		return platform.Placement{}, errInvalidHandle(h)
	}
	if w.PlacementErr != nil {
		return platform.Placement{}, w.PlacementErr
	}
	return w.Placement, nil
}

// SetPlacement records the call and, on success, stores p as the window's
// current placement.
func (b *Backend) SetPlacement(h platform.WindowHandle, p platform.Placement, async bool) error {
	err := b.setPlacement(h, p, async)
	b.mu.Lock()
	fn := b.onSetPlacement
	b.mu.Unlock()
	if fn != nil {
		fn(h)
	}
	return err
}

func (b *Backend) setPlacement(h platform.WindowHandle, p platform.Placement, async bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, SetPlacementCall{Handle: h, Placement: p, Async: async})
	w, ok := b.windows[h]
	if !ok {
		return errInvalidHandle(h)
	}
	if w.SetPlacementErr != nil {
		return w.SetPlacementErr
	}
	w.Placement = p
	return nil
}

// OnSetPlacement runs fn synchronously after every SetPlacement call, on the
// caller's goroutine, the way a blocking placement change can pump pending
// notifications into the caller.
func (b *Backend) OnSetPlacement(fn func(h platform.WindowHandle)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onSetPlacement = fn
}

// FailHooks makes SetHook return err until called again with nil.
func (b *Backend) FailHooks(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hookErr = err
}

// FailUnhook makes Unhook return err until called again with nil.
func (b *Backend) FailUnhook(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unhookErr = err
}

func (b *Backend) SetHook(r platform.EventRange, tramp platform.Trampoline) (platform.HookToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hookErr != nil {
		return 0, b.hookErr
	}
	b.nextToken++
	b.hooks[b.nextToken] = hook{r: r, tramp: tramp}
	return b.nextToken, nil
}

func (b *Backend) Unhook(token platform.HookToken) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unhookErr != nil {
		return b.unhookErr
	}
	if _, ok := b.hooks[token]; !ok {
		return fmt.Errorf("hook %d not installed", token)
	}
	delete(b.hooks, token)
	return nil
}

// Hooks returns the number of installed hooks.
func (b *Backend) Hooks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.hooks)
}

// Fire delivers event for h to every installed hook whose range contains it,
// synchronously on the calling goroutine.
func (b *Backend) Fire(event uint32, h platform.WindowHandle) int {
	b.mu.Lock()
	type target struct {
		token platform.HookToken
		tramp platform.Trampoline
	}
	var targets []target
	for token, hk := range b.hooks {
		if hk.r.Contains(event) {
			targets = append(targets, target{token: token, tramp: hk.tramp})
		}
	}
	b.mu.Unlock()

	for _, t := range targets {
		t.tramp(t.token, event, h)
	}
	return len(targets)
}

// FireToken delivers a notification carrying an explicit token, including
// tokens the fake never issued.
func (b *Backend) FireToken(token platform.HookToken, event uint32, h platform.WindowHandle) {
	b.mu.Lock()
	hk, ok := b.hooks[token]
	b.mu.Unlock()
	if ok {
		hk.tramp(token, event, h)
	}
}

// DisplayChange queues a display-change notification for a running loop.
func (b *Backend) DisplayChange(reason platform.DisplayChangeReason) {
	b.displayChanges <- reason
}

// Notify queues a window notification. A running loop delivers it through
// Fire on the loop's own thread, the way a real hook would.
func (b *Backend) Notify(event uint32, h platform.WindowHandle) {
	b.notifications <- notification{event: event, window: h}
}

// Started is closed once Run has begun pumping.
func (b *Backend) Started() <-chan struct{} {
	return b.started
}

// Run delivers queued display changes and notifications until Stop.
func (b *Backend) Run(opts platform.LoopOptions, onDisplayChange func(platform.DisplayChangeReason)) error {
	b.mu.Lock()
	b.lastOpts = opts
	b.mu.Unlock()
	b.startOnce.Do(func() { close(b.started) })
	for {
		select {
		case <-b.stop:
			return nil
		case reason := <-b.displayChanges:
			onDisplayChange(reason)
		case n := <-b.notifications:
			b.Fire(n.event, n.window)
		}
	}
}

// Options returns the LoopOptions passed to the most recent Run.
func (b *Backend) Options() platform.LoopOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastOpts
}

func (b *Backend) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// ErrInvalidHandle is returned for handles the fake does not know.
var ErrInvalidHandle = errors.New("invalid window handle")

func errInvalidHandle(h platform.WindowHandle) error {
	return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
}
