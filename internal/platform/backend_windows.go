//go:build windows

package platform

import (
	"fmt"
	"sync"

	"github.com/1broseidon/persistwin/internal/win32"
	"golang.org/x/sys/windows"
)

const messageWindowClass = "persistwin.notify"

// WindowsBackend talks to user32 directly. Hook and message-loop methods must
// be called from the thread that will run Run.
type WindowsBackend struct {
	mu      sync.Mutex
	window  *win32.MessageWindow
	stopped bool
}

var _ Loop = (*WindowsBackend)(nil)

// NewWindowsBackend returns a backend bound to the current desktop session.
func NewWindowsBackend() *WindowsBackend {
	return &WindowsBackend{}
}

// NewSystemBackend returns the backend for the running OS.
func NewSystemBackend() (Loop, error) {
	return NewWindowsBackend(), nil
}

func (b *WindowsBackend) Monitors() ([]Monitor, error) {
	handles, err := win32.EnumDisplayMonitors()
	if err != nil {
		return nil, fmt.Errorf("enumerate monitors: %w", err)
	}

	monitors := make([]Monitor, 0, len(handles))
	for _, h := range handles {
		info, err := win32.GetMonitorInfo(h)
		if err != nil {
			return nil, fmt.Errorf("query monitor info: %w", err)
		}
		monitors = append(monitors, Monitor{
			Primary:  info.DwFlags&win32.MONITORINFOF_PRIMARY != 0,
			Rect:     rectFromWin32(info.RcMonitor),
			WorkArea: rectFromWin32(info.RcWork),
			Name:     windows.UTF16ToString(info.SzDevice[:]),
		})
	}
	return monitors, nil
}

func (b *WindowsBackend) Windows() ([]WindowHandle, error) {
	hwnds, err := win32.EnumWindows()
	if err != nil {
		return nil, fmt.Errorf("enumerate windows: %w", err)
	}
	handles := make([]WindowHandle, len(hwnds))
	for i, hwnd := range hwnds {
		handles[i] = WindowHandle(hwnd)
	}
	return handles, nil
}

func (b *WindowsBackend) IsVisible(h WindowHandle) bool {
	return win32.IsWindowVisible(windows.HWND(h))
}

func (b *WindowsBackend) IsTopLevel(h WindowHandle) bool {
	return win32.IsTopLevel(windows.HWND(h))
}

func (b *WindowsBackend) ClassName(h WindowHandle) (string, error) {
	return win32.GetClassName(windows.HWND(h))
}

func (b *WindowsBackend) Title(h WindowHandle) (string, error) {
	return win32.GetWindowText(windows.HWND(h))
}

func (b *WindowsBackend) ProcessID(h WindowHandle) (uint32, error) {
	pid, _, err := win32.GetWindowThreadProcessId(windows.HWND(h))
	return pid, err
}

func (b *WindowsBackend) ProcessImagePath(pid uint32) (string, error) {
	return win32.ProcessImagePath(pid)
}

func (b *WindowsBackend) Placement(h WindowHandle) (Placement, error) {
	wp, err := win32.GetWindowPlacement(windows.HWND(h))
	if err != nil {
		return Placement{}, err
	}
	return Placement{
		Show:        ShowState(wp.ShowCmd),
		MinPosition: Point{X: wp.PtMinPosition.X, Y: wp.PtMinPosition.Y},
		MaxPosition: Point{X: wp.PtMaxPosition.X, Y: wp.PtMaxPosition.Y},
		NormalRect:  rectFromWin32(wp.RcNormalPosition),
	}, nil
}

func (b *WindowsBackend) SetPlacement(h WindowHandle, p Placement, async bool) error {
	wp := win32.WINDOWPLACEMENT{
		ShowCmd:       uint32(p.Show),
		PtMinPosition: win32.POINT{X: p.MinPosition.X, Y: p.MinPosition.Y},
		PtMaxPosition: win32.POINT{X: p.MaxPosition.X, Y: p.MaxPosition.Y},
		RcNormalPosition: windows.Rect{
			Left:   p.NormalRect.Left,
			Top:    p.NormalRect.Top,
			Right:  p.NormalRect.Right,
			Bottom: p.NormalRect.Bottom,
		},
	}
	if async {
		wp.Flags |= win32.WPF_ASYNCWINDOWPLACEMENT
	}
	return win32.SetWindowPlacement(windows.HWND(h), wp)
}

// SetHook installs a WinEvent hook. Every hook shares the one process-wide
// WINEVENTPROC, which forwards to tramp.
func (b *WindowsBackend) SetHook(r EventRange, tramp Trampoline) (HookToken, error) {
	win32.SetWinEventHandler(func(hook uintptr, event uint32, hwnd windows.HWND) {
		tramp(HookToken(hook), event, WindowHandle(hwnd))
	})
	hook, err := win32.SetWinEventHook(r.Min, r.Max)
	if err != nil {
		return 0, err
	}
	return HookToken(hook), nil
}

func (b *WindowsBackend) Unhook(token HookToken) error {
	return win32.UnhookWinEvent(uintptr(token))
}

// Run creates the hidden notification window on the calling thread and pumps
// messages until Stop.
func (b *WindowsBackend) Run(opts LoopOptions, onDisplayChange func(DisplayChangeReason)) error {
	w, err := win32.NewMessageWindow(messageWindowClass, func(msg uint32, wparam, _ uintptr) bool {
		switch msg {
		case win32.WM_DISPLAYCHANGE:
			onDisplayChange(ReasonDisplayChange)
			return true
		case win32.WM_WTSSESSION_CHANGE:
			if reason, ok := sessionReason(wparam); ok {
				onDisplayChange(reason)
			}
			return true
		}
		return false
	})
	if err != nil {
		return fmt.Errorf("create notification window: %w", err)
	}
	defer w.Destroy()

	if opts.SessionChanges {
		if err := w.RegisterSessionNotification(); err != nil {
			return fmt.Errorf("register session notifications: %w", err)
		}
	}

	b.mu.Lock()
	if b.stopped {
		b.stopped = false
		b.mu.Unlock()
		return nil
	}
	b.window = w
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.window = nil
		b.mu.Unlock()
	}()

	return w.Run()
}

func (b *WindowsBackend) Stop() {
	b.mu.Lock()
	w := b.window
	if w == nil {
		b.stopped = true
	}
	b.mu.Unlock()
	if w != nil {
		_ = w.Quit()
	}
}

func (b *WindowsBackend) Close() error {
	return nil
}

func sessionReason(wparam uintptr) (DisplayChangeReason, bool) {
	switch wparam {
	case win32.WTS_CONSOLE_CONNECT, win32.WTS_REMOTE_CONNECT:
		return ReasonSessionConnect, true
	case win32.WTS_SESSION_UNLOCK:
		return ReasonSessionUnlock, true
	}
	return "", false
}

func rectFromWin32(r windows.Rect) Rect {
	return Rect{Left: r.Left, Top: r.Top, Right: r.Right, Bottom: r.Bottom}
}
