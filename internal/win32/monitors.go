//go:build windows

package win32

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	enumMonitorsMu     sync.Mutex
	enumMonitorsResult []windows.Handle
	enumMonitorsProc   = windows.NewCallback(func(hmonitor, _, _, _ uintptr) uintptr {
		enumMonitorsResult = append(enumMonitorsResult, windows.Handle(hmonitor))
		return 1
	})
)

// EnumDisplayMonitors returns every monitor handle intersecting the virtual screen.
func EnumDisplayMonitors() ([]windows.Handle, error) {
	enumMonitorsMu.Lock()
	defer enumMonitorsMu.Unlock()

	enumMonitorsResult = nil
	r, _, e := procEnumDisplayMonitors.Call(0, 0, enumMonitorsProc, 0)
	monitors := enumMonitorsResult
	enumMonitorsResult = nil
	if r == 0 {
		return nil, callError("EnumDisplayMonitors", e)
	}
	return monitors, nil
}

// GetMonitorInfo returns the monitor's virtual-screen rect, work area, flags and device name.
func GetMonitorInfo(hmonitor windows.Handle) (MONITORINFOEXW, error) {
	var info MONITORINFOEXW
	info.CbSize = uint32(unsafe.Sizeof(info))
	r, _, e := procGetMonitorInfoW.Call(uintptr(hmonitor), uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return MONITORINFOEXW{}, callError("GetMonitorInfoW", e)
	}
	return info, nil
}
