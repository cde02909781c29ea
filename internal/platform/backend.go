package platform

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned by backends on platforms without a window system binding.
var ErrUnsupported = errors.New("platform: window system not supported on this OS")

// WindowHandle is a platform-neutral top-level window handle (HWND on Windows, X11 window id).
type WindowHandle uintptr

func (h WindowHandle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// Rect is a rectangle in virtual-screen coordinates.
type Rect struct {
	Left   int32 `cbor:"l" json:"left"`
	Top    int32 `cbor:"t" json:"top"`
	Right  int32 `cbor:"r" json:"right"`
	Bottom int32 `cbor:"b" json:"bottom"`
}

// Width returns the absolute horizontal extent.
func (r Rect) Width() int32 {
	return abs32(r.Right - r.Left)
}

// Height returns the absolute vertical extent.
func (r Rect) Height() int32 {
	return abs32(r.Bottom - r.Top)
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Point is used for the minimized and maximized positions of a placement.
type Point struct {
	X int32 `cbor:"x" json:"x"`
	Y int32 `cbor:"y" json:"y"`
}

// Monitor describes one physical or virtual display.
type Monitor struct {
	Primary  bool
	Rect     Rect
	WorkArea Rect
	Name     string
}

// ShowState is the show command of a placement. The numeric values are the
// Win32 SW_* codes so stored placements apply unchanged on that platform.
type ShowState uint32

const (
	ShowHide          ShowState = 0
	ShowNormal        ShowState = 1
	ShowMinimized     ShowState = 2
	ShowMaximized     ShowState = 3
	ShowNoActivate    ShowState = 4
	ShowShow          ShowState = 5
	ShowMinimize      ShowState = 6
	ShowMinNoActive   ShowState = 7
	ShowNA            ShowState = 8
	ShowRestore       ShowState = 9
	ShowDefault       ShowState = 10
	ShowForceMinimize ShowState = 11
)

func (s ShowState) String() string {
	switch s {
	case ShowHide:
		return "hide"
	case ShowNormal:
		return "normal"
	case ShowMinimized:
		return "minimized"
	case ShowMaximized:
		return "maximized"
	case ShowNoActivate:
		return "noactivate"
	case ShowShow:
		return "show"
	case ShowMinimize:
		return "minimize"
	case ShowMinNoActive:
		return "minnoactive"
	case ShowNA:
		return "showna"
	case ShowRestore:
		return "restore"
	case ShowDefault:
		return "default"
	case ShowForceMinimize:
		return "forceminimize"
	default:
		return fmt.Sprintf("show(%d)", uint32(s))
	}
}

// IsMinimized reports whether the state leaves the window iconified.
func (s ShowState) IsMinimized() bool {
	switch s {
	case ShowMinimized, ShowMinimize, ShowMinNoActive, ShowForceMinimize:
		return true
	}
	return false
}

// Placement is a window's show state plus its normal, minimized and maximized geometry.
type Placement struct {
	Show        ShowState `cbor:"show" json:"show"`
	MinPosition Point     `cbor:"min" json:"min_position"`
	MaxPosition Point     `cbor:"max" json:"max_position"`
	NormalRect  Rect      `cbor:"rect" json:"normal_rect"`
}

// Backend abstracts the window-system queries and mutations the placement
// engine needs. Every call is synchronous and acquires any OS handles it needs
// for the duration of the call only.
type Backend interface {
	// Monitors enumerates attached monitors in OS enumeration order.
	Monitors() ([]Monitor, error)
	// Windows lists the top-level windows known to the window manager.
	Windows() ([]WindowHandle, error)
	IsVisible(h WindowHandle) bool
	// IsTopLevel reports whether the window's root ancestor is the window itself.
	IsTopLevel(h WindowHandle) bool
	ClassName(h WindowHandle) (string, error)
	// Title returns the window text; an empty title is not an error.
	Title(h WindowHandle) (string, error)
	// ProcessID resolves the process owning the window.
	ProcessID(h WindowHandle) (uint32, error)
	// ProcessImagePath opens the process with query-only rights and returns its full image path.
	ProcessImagePath(pid uint32) (string, error)
	Placement(h WindowHandle) (Placement, error)
	// SetPlacement applies p. When async is set the request is posted without
	// waiting for the owning thread, where the window system supports it.
	SetPlacement(h WindowHandle, p Placement, async bool) error
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
