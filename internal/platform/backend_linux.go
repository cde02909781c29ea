//go:build linux

package platform

import (
	"fmt"
	"os"
	"sync"

	"github.com/1broseidon/persistwin/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
)

// LinuxBackend wraps an X11 connection behind the platform Loop interface.
// X11 has no out-of-process WinEvent hooks; structure and property
// notifications on managed clients are mapped onto the same event ids.
type LinuxBackend struct {
	conn *x11.Connection

	mu        sync.Mutex
	hooks     map[HookToken]linuxHook
	nextToken HookToken
	running   bool
	stopped   bool
}

type linuxHook struct {
	r     EventRange
	tramp Trampoline
}

var _ Loop = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{
		conn:  conn,
		hooks: make(map[HookToken]linuxHook),
	}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// NewSystemBackend returns the backend for the running OS.
func NewSystemBackend() (Loop, error) {
	return NewLinuxBackendFromDisplay()
}

func (b *LinuxBackend) Monitors() ([]Monitor, error) {
	xmonitors, err := b.conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	monitors := make([]Monitor, 0, len(xmonitors))
	for _, m := range xmonitors {
		work := b.conn.WorkArea(m)
		monitors = append(monitors, Monitor{
			Primary:  m.Primary,
			Rect:     rectFromXYWH(m.X, m.Y, m.Width, m.Height),
			WorkArea: rectFromXYWH(work.X, work.Y, work.Width, work.Height),
			Name:     m.Name,
		})
	}
	return monitors, nil
}

func (b *LinuxBackend) Windows() ([]WindowHandle, error) {
	clients, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}
	handles := make([]WindowHandle, len(clients))
	for i, c := range clients {
		handles[i] = WindowHandle(c)
	}
	return handles, nil
}

func (b *LinuxBackend) IsVisible(h WindowHandle) bool {
	return b.conn.IsShown(xproto.Window(h))
}

func (b *LinuxBackend) IsTopLevel(h WindowHandle) bool {
	return b.conn.IsClient(xproto.Window(h))
}

func (b *LinuxBackend) ClassName(h WindowHandle) (string, error) {
	return b.conn.WindowClass(xproto.Window(h))
}

func (b *LinuxBackend) Title(h WindowHandle) (string, error) {
	return b.conn.WindowTitle(xproto.Window(h)), nil
}

func (b *LinuxBackend) ProcessID(h WindowHandle) (uint32, error) {
	return b.conn.WindowPID(xproto.Window(h))
}

// ProcessImagePath resolves /proc/<pid>/exe.
func (b *LinuxBackend) ProcessImagePath(pid uint32) (string, error) {
	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", fmt.Errorf("failed to resolve image of pid %d: %w", pid, err)
	}
	return path, nil
}

// Placement reports the outer frame geometry. X11 keeps no restore rectangle
// for maximized clients, so NormalRect is the current geometry in every state.
func (b *LinuxBackend) Placement(h WindowHandle) (Placement, error) {
	win := xproto.Window(h)
	state, err := b.conn.WindowState(win)
	if err != nil {
		return Placement{}, err
	}
	geom, err := b.conn.OuterGeometry(win)
	if err != nil {
		return Placement{}, err
	}

	show := ShowNormal
	switch state {
	case x11.StateIconic:
		show = ShowMinimized
	case x11.StateMaximized:
		show = ShowMaximized
	}
	return Placement{
		Show:        show,
		MinPosition: Point{X: -1, Y: -1},
		MaxPosition: Point{X: -1, Y: -1},
		NormalRect:  rectFromXYWH(geom.X, geom.Y, geom.Width, geom.Height),
	}, nil
}

// SetPlacement sends the equivalent EWMH requests. Requests to the window
// manager are always asynchronous, so async is ignored.
func (b *LinuxBackend) SetPlacement(h WindowHandle, p Placement, async bool) error {
	win := xproto.Window(h)
	geom := x11.Geometry{
		X:      int(p.NormalRect.Left),
		Y:      int(p.NormalRect.Top),
		Width:  int(p.NormalRect.Width()),
		Height: int(p.NormalRect.Height()),
	}

	switch {
	case p.Show == ShowHide:
		return nil
	case p.Show.IsMinimized():
		if err := b.conn.MoveResizeOuter(win, geom); err != nil {
			return err
		}
		return b.conn.IconifyWindow(win)
	case p.Show == ShowMaximized:
		if state, err := b.conn.WindowState(win); err == nil && state == x11.StateIconic {
			if err := b.conn.ActivateWindow(win); err != nil {
				return err
			}
		}
		return b.conn.MaximizeWindow(win)
	default:
		if state, err := b.conn.WindowState(win); err == nil && state == x11.StateIconic {
			if err := b.conn.ActivateWindow(win); err != nil {
				return err
			}
		}
		return b.conn.MoveResizeOuter(win, geom)
	}
}

// SetHook registers tramp for notifications in r. Notifications are only
// delivered while Run is pumping events.
func (b *LinuxBackend) SetHook(r EventRange, tramp Trampoline) (HookToken, error) {
	if tramp == nil {
		return 0, fmt.Errorf("nil trampoline")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextToken++
	b.hooks[b.nextToken] = linuxHook{r: r, tramp: tramp}
	return b.nextToken, nil
}

func (b *LinuxBackend) Unhook(token HookToken) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.hooks[token]; !ok {
		return fmt.Errorf("hook %d not installed", token)
	}
	delete(b.hooks, token)
	return nil
}

// Run subscribes to RandR and client notifications and runs the X event loop
// on the calling goroutine until Stop. Session notifications have no X11
// equivalent and are ignored.
func (b *LinuxBackend) Run(opts LoopOptions, onDisplayChange func(DisplayChangeReason)) error {
	b.mu.Lock()
	if b.stopped {
		b.stopped = false
		b.mu.Unlock()
		return nil
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	err := b.conn.WatchEvents(x11.EventHandlers{
		Window: func(n x11.Notification, windowID xproto.Window) {
			b.deliver(eventForNotification(n), WindowHandle(windowID))
		},
		ScreenChange: func() {
			onDisplayChange(ReasonDisplayChange)
		},
	})
	if err != nil {
		return err
	}

	b.conn.EventLoop()
	return nil
}

func (b *LinuxBackend) deliver(event uint32, h WindowHandle) {
	b.mu.Lock()
	targets := make(map[HookToken]Trampoline)
	for token, hook := range b.hooks {
		if hook.r.Contains(event) {
			targets[token] = hook.tramp
		}
	}
	b.mu.Unlock()

	for token, tramp := range targets {
		tramp(token, event, h)
	}
}

func (b *LinuxBackend) Stop() {
	b.mu.Lock()
	running := b.running
	if !running {
		b.stopped = true
	}
	b.mu.Unlock()
	if running {
		b.conn.Quit()
	}
}

// Close disconnects from the X server.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

func eventForNotification(n x11.Notification) uint32 {
	switch n {
	case x11.NotifyTitle:
		return EventObjectNameChange
	case x11.NotifyIconified:
		return EventSystemMinimizeStart
	case x11.NotifyDeiconified:
		return EventSystemMinimizeEnd
	default:
		return EventSystemMoveSizeEnd
	}
}

func rectFromXYWH(x, y, width, height int) Rect {
	return Rect{
		Left:   int32(x),
		Top:    int32(y),
		Right:  int32(x + width),
		Bottom: int32(y + height),
	}
}
