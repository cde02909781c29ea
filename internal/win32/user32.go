//go:build windows

// Package win32 wraps the handful of user32/kernel32/wtsapi32 entry points the
// placement agent needs. Functions here are thin: they translate between Go
// values and the Win32 ABI and surface GetLastError as an error.
package win32

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")
	wtsapi32 = windows.NewLazySystemDLL("wtsapi32.dll")

	procEnumWindows                = user32.NewProc("EnumWindows")
	procEnumDisplayMonitors        = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW            = user32.NewProc("GetMonitorInfoW")
	procGetAncestor                = user32.NewProc("GetAncestor")
	procIsWindowVisible            = user32.NewProc("IsWindowVisible")
	procGetClassNameW              = user32.NewProc("GetClassNameW")
	procGetWindowTextLengthW       = user32.NewProc("GetWindowTextLengthW")
	procGetWindowTextW             = user32.NewProc("GetWindowTextW")
	procGetWindowThreadProcessId   = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowPlacement         = user32.NewProc("GetWindowPlacement")
	procSetWindowPlacement         = user32.NewProc("SetWindowPlacement")
	procSetWinEventHook            = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent             = user32.NewProc("UnhookWinEvent")
	procRegisterClassExW           = user32.NewProc("RegisterClassExW")
	procUnregisterClassW           = user32.NewProc("UnregisterClassW")
	procCreateWindowExW            = user32.NewProc("CreateWindowExW")
	procDestroyWindow              = user32.NewProc("DestroyWindow")
	procDefWindowProcW             = user32.NewProc("DefWindowProcW")
	procGetMessageW                = user32.NewProc("GetMessageW")
	procTranslateMessage           = user32.NewProc("TranslateMessage")
	procDispatchMessageW           = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW         = user32.NewProc("PostThreadMessageW")
	procSetLastError               = kernel32.NewProc("SetLastError")
	procGetModuleHandleW           = kernel32.NewProc("GetModuleHandleW")
	procWTSRegisterSessionNotify   = wtsapi32.NewProc("WTSRegisterSessionNotification")
	procWTSUnRegisterSessionNotify = wtsapi32.NewProc("WTSUnRegisterSessionNotification")
)

// Window messages and flags.
const (
	WM_QUIT              = 0x0012
	WM_DISPLAYCHANGE     = 0x007E
	WM_WTSSESSION_CHANGE = 0x02B1

	WTS_CONSOLE_CONNECT = 0x1
	WTS_REMOTE_CONNECT  = 0x3
	WTS_SESSION_UNLOCK  = 0x8

	NOTIFY_FOR_THIS_SESSION = 0

	GA_ROOT = 2

	WINEVENT_OUTOFCONTEXT   = 0x0000
	WINEVENT_SKIPOWNPROCESS = 0x0002

	WPF_ASYNCWINDOWPLACEMENT = 0x0004

	MONITORINFOF_PRIMARY = 0x1
)

// POINT mirrors the Win32 POINT structure.
type POINT struct {
	X int32
	Y int32
}

// WINDOWPLACEMENT mirrors the Win32 WINDOWPLACEMENT structure.
type WINDOWPLACEMENT struct {
	Length           uint32
	Flags            uint32
	ShowCmd          uint32
	PtMinPosition    POINT
	PtMaxPosition    POINT
	RcNormalPosition windows.Rect
}

// MONITORINFOEXW mirrors the Win32 MONITORINFOEXW structure.
type MONITORINFOEXW struct {
	CbSize    uint32
	RcMonitor windows.Rect
	RcWork    windows.Rect
	DwFlags   uint32
	SzDevice  [32]uint16
}

// MSG mirrors the Win32 MSG structure.
type MSG struct {
	Hwnd     windows.HWND
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       POINT
	LPrivate uint32
}

type wndClassExW struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

// callError turns the errno captured by LazyProc.Call into an error. Calls
// that fail without setting a last error still report which function failed.
func callError(name string, e error) error {
	var errno windows.Errno
	if errors.As(e, &errno) && errno != windows.ERROR_SUCCESS {
		return fmt.Errorf("%s: %w", name, errno)
	}
	return fmt.Errorf("%s failed", name)
}

func setLastError(code uint32) {
	procSetLastError.Call(uintptr(code))
}

func moduleHandle() (windows.Handle, error) {
	r, _, e := procGetModuleHandleW.Call(0)
	if r == 0 {
		return 0, callError("GetModuleHandleW", e)
	}
	return windows.Handle(r), nil
}
