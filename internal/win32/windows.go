//go:build windows

package win32

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// EnumWindows collects every top-level window in enumeration order. The
// callback runs synchronously on the calling thread, so the shared result
// slice only needs to be guarded against concurrent enumerations.
var (
	enumWindowsMu     sync.Mutex
	enumWindowsResult []windows.HWND
	enumWindowsProc   = windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		enumWindowsResult = append(enumWindowsResult, windows.HWND(hwnd))
		return 1
	})
)

func EnumWindows() ([]windows.HWND, error) {
	enumWindowsMu.Lock()
	defer enumWindowsMu.Unlock()

	enumWindowsResult = nil
	r, _, e := procEnumWindows.Call(enumWindowsProc, 0)
	handles := enumWindowsResult
	enumWindowsResult = nil
	if r == 0 {
		return nil, callError("EnumWindows", e)
	}
	return handles, nil
}

func IsWindowVisible(hwnd windows.HWND) bool {
	r, _, _ := procIsWindowVisible.Call(uintptr(hwnd))
	return r != 0
}

// IsTopLevel reports whether the window's root ancestor is the window itself.
func IsTopLevel(hwnd windows.HWND) bool {
	r, _, _ := procGetAncestor.Call(uintptr(hwnd), GA_ROOT)
	return windows.HWND(r) == hwnd
}

func GetClassName(hwnd windows.HWND) (string, error) {
	buf := make([]uint16, 256)
	r, _, e := procGetClassNameW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r == 0 {
		return "", callError("GetClassNameW", e)
	}
	return windows.UTF16ToString(buf[:r]), nil
}

// GetWindowText returns the window title. A window whose title is present but
// empty yields "" with no error.
func GetWindowText(hwnd windows.HWND) (string, error) {
	setLastError(0)
	n, _, e := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if int32(n) <= 0 {
		var errno windows.Errno
		if e == nil || (asErrno(e, &errno) && errno == windows.ERROR_SUCCESS) {
			return "", nil
		}
		return "", callError("GetWindowTextLengthW", e)
	}

	buf := make([]uint16, int(n)+1)
	r, _, e := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if int32(r) <= 0 {
		return "", callError("GetWindowTextW", e)
	}
	return windows.UTF16ToString(buf[:r]), nil
}

// GetWindowThreadProcessId returns the owning process and thread ids.
func GetWindowThreadProcessId(hwnd windows.HWND) (pid uint32, tid uint32, err error) {
	r, _, e := procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	if r == 0 {
		return 0, 0, callError("GetWindowThreadProcessId", e)
	}
	return pid, uint32(r), nil
}

func GetWindowPlacement(hwnd windows.HWND) (WINDOWPLACEMENT, error) {
	var wp WINDOWPLACEMENT
	wp.Length = uint32(unsafe.Sizeof(wp))
	r, _, e := procGetWindowPlacement.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&wp)))
	if r == 0 {
		return WINDOWPLACEMENT{}, callError("GetWindowPlacement", e)
	}
	return wp, nil
}

func SetWindowPlacement(hwnd windows.HWND, wp WINDOWPLACEMENT) error {
	wp.Length = uint32(unsafe.Sizeof(wp))
	r, _, e := procSetWindowPlacement.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&wp)))
	if r == 0 {
		return callError("SetWindowPlacement", e)
	}
	return nil
}

func asErrno(e error, target *windows.Errno) bool {
	errno, ok := e.(windows.Errno)
	if ok {
		*target = errno
	}
	return ok
}
