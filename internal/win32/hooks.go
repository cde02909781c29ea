//go:build windows

package win32

import (
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// WinEventHandler receives every WinEvent delivered to hooks installed through
// SetWinEventHook.
type WinEventHandler func(hook uintptr, event uint32, hwnd windows.HWND)

var (
	winEventHandler atomic.Pointer[WinEventHandler]

	// winEventProc is the only WINEVENTPROC ever handed to the OS. Windows
	// calls it on the thread that installed the hook.
	winEventProc = windows.NewCallback(func(hook, event, hwnd, idObject, idChild, eventThread, eventTime uintptr) uintptr {
		if h := winEventHandler.Load(); h != nil {
			(*h)(hook, uint32(event), windows.HWND(hwnd))
		}
		return 0
	})
)

// SetWinEventHandler installs the process-wide receiver for WinEvents.
func SetWinEventHandler(h WinEventHandler) {
	winEventHandler.Store(&h)
}

// SetWinEventHook installs an out-of-context hook for the inclusive event range
// [min, max] that ignores events raised by this process.
func SetWinEventHook(min, max uint32) (uintptr, error) {
	r, _, e := procSetWinEventHook.Call(
		uintptr(min),
		uintptr(max),
		0,
		winEventProc,
		0,
		0,
		WINEVENT_OUTOFCONTEXT|WINEVENT_SKIPOWNPROCESS,
	)
	if r == 0 {
		return 0, callError("SetWinEventHook", e)
	}
	return r, nil
}

func UnhookWinEvent(hook uintptr) error {
	r, _, e := procUnhookWinEvent.Call(hook)
	if r == 0 {
		return callError("UnhookWinEvent", e)
	}
	return nil
}
