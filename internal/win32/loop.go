//go:build windows

package win32

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// MessageHandler receives window messages sent to a MessageWindow. Returning
// false falls through to DefWindowProc.
type MessageHandler func(msg uint32, wparam, lparam uintptr) bool

var (
	wndHandlersMu sync.Mutex
	wndHandlers   = map[windows.HWND]MessageHandler{}

	wndProc = windows.NewCallback(func(hwnd, msg, wparam, lparam uintptr) uintptr {
		wndHandlersMu.Lock()
		h := wndHandlers[windows.HWND(hwnd)]
		wndHandlersMu.Unlock()
		if h != nil && h(uint32(msg), wparam, lparam) {
			return 0
		}
		r, _, _ := procDefWindowProcW.Call(hwnd, msg, wparam, lparam)
		return r
	})
)

// MessageWindow is a hidden top-level window. Being top-level it receives the
// WM_DISPLAYCHANGE broadcast that message-only windows never see.
type MessageWindow struct {
	hwnd      windows.HWND
	className *uint16
	instance  windows.Handle
	threadID  uint32
	session   bool
}

// NewMessageWindow registers a window class and creates the hidden window on
// the calling thread. Messages for it are only pumped by Run on the same thread.
func NewMessageWindow(className string, handler MessageHandler) (*MessageWindow, error) {
	instance, err := moduleHandle()
	if err != nil {
		return nil, err
	}
	name, err := windows.UTF16PtrFromString(className)
	if err != nil {
		return nil, fmt.Errorf("invalid class name %q: %w", className, err)
	}

	wc := wndClassExW{
		LpfnWndProc:   wndProc,
		HInstance:     instance,
		LpszClassName: name,
	}
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	if r, _, e := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
		return nil, callError("RegisterClassExW", e)
	}

	r, _, e := procCreateWindowExW.Call(
		0,
		uintptr(unsafe.Pointer(name)),
		uintptr(unsafe.Pointer(name)),
		0,
		0, 0, 0, 0,
		0,
		0,
		uintptr(instance),
		0,
	)
	if r == 0 {
		procUnregisterClassW.Call(uintptr(unsafe.Pointer(name)), uintptr(instance))
		return nil, callError("CreateWindowExW", e)
	}
	hwnd := windows.HWND(r)

	wndHandlersMu.Lock()
	wndHandlers[hwnd] = handler
	wndHandlersMu.Unlock()

	return &MessageWindow{
		hwnd:      hwnd,
		className: name,
		instance:  instance,
		threadID:  windows.GetCurrentThreadId(),
	}, nil
}

// RegisterSessionNotification subscribes the window to WM_WTSSESSION_CHANGE.
func (w *MessageWindow) RegisterSessionNotification() error {
	r, _, e := procWTSRegisterSessionNotify.Call(uintptr(w.hwnd), NOTIFY_FOR_THIS_SESSION)
	if r == 0 {
		return callError("WTSRegisterSessionNotification", e)
	}
	w.session = true
	return nil
}

// Run pumps the calling thread's message queue until WM_QUIT.
func (w *MessageWindow) Run() error {
	var msg MSG
	for {
		r, _, e := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(r) {
		case -1:
			return callError("GetMessageW", e)
		case 0:
			return nil
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

// Quit posts WM_QUIT to the thread that created the window.
func (w *MessageWindow) Quit() error {
	r, _, e := procPostThreadMessageW.Call(uintptr(w.threadID), WM_QUIT, 0, 0)
	if r == 0 {
		return callError("PostThreadMessageW", e)
	}
	return nil
}

// Destroy unregisters session notifications and destroys the window and its class.
func (w *MessageWindow) Destroy() error {
	if w.session {
		procWTSUnRegisterSessionNotify.Call(uintptr(w.hwnd))
		w.session = false
	}

	wndHandlersMu.Lock()
	delete(wndHandlers, w.hwnd)
	wndHandlersMu.Unlock()

	if r, _, e := procDestroyWindow.Call(uintptr(w.hwnd)); r == 0 {
		return callError("DestroyWindow", e)
	}
	procUnregisterClassW.Call(uintptr(unsafe.Pointer(w.className)), uintptr(w.instance))
	return nil
}
