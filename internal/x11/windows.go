package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowState is the presentation state of a managed client.
type WindowState int

const (
	StateNormal WindowState = iota
	StateIconic
	StateMaximized
)

// _NET_WM_STATE client message actions.
const (
	netWmStateRemove = 0
	netWmStateAdd    = 1
)

// Geometry is a window's outer (frame) rectangle in root coordinates.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ClientList returns the managed top-level clients from _NET_CLIENT_LIST.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	return clients, nil
}

// IsClient reports whether windowID is a managed top-level client.
func (c *Connection) IsClient(windowID xproto.Window) bool {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return false
	}
	for _, client := range clients {
		if client == windowID {
			return true
		}
	}
	return false
}

// IsShown reports whether the client is mapped or iconified. Withdrawn windows
// are not shown. Iconic clients count as shown because they still own a
// placement the user expects back.
func (c *Connection) IsShown(windowID xproto.Window) bool {
	if state, err := icccm.WmStateGet(c.XUtil, windowID); err == nil {
		return state.State != icccm.StateWithdrawn
	}
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// WindowClass returns the WM_CLASS class part.
func (c *Connection) WindowClass(windowID xproto.Window) (string, error) {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return "", fmt.Errorf("failed to get WM_CLASS: %w", err)
	}
	return strings.TrimSpace(wmClass.Class), nil
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME. A window with
// neither property has an empty title.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && title != "" {
		return title
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return title
	}
	return ""
}

// WindowPID returns _NET_WM_PID.
func (c *Connection) WindowPID(windowID xproto.Window) (uint32, error) {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0, fmt.Errorf("failed to get _NET_WM_PID: %w", err)
	}
	return uint32(pid), nil
}

// WindowState derives the presentation state from _NET_WM_STATE.
func (c *Connection) WindowState(windowID xproto.Window) (WindowState, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		// Clients that never had a state set are plain normal windows.
		states = nil
	}

	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_HIDDEN":
			return StateIconic, nil
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			hasMaxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			hasMaxV = true
		}
	}
	if hasMaxH && hasMaxV {
		return StateMaximized, nil
	}
	return StateNormal, nil
}

// OuterGeometry returns the client rectangle grown by its frame extents.
func (c *Connection) OuterGeometry(windowID xproto.Window) (Geometry, error) {
	geom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to get geometry: %w", err)
	}

	translate, err := xproto.TranslateCoordinates(
		c.XUtil.Conn(),
		windowID,
		c.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	left, right, top, bottom, _ := c.GetFrameExtents(windowID)
	return Geometry{
		X:      int(translate.DstX) - left,
		Y:      int(translate.DstY) - top,
		Width:  int(geom.Width) + left + right,
		Height: int(geom.Height) + top + bottom,
	}, nil
}

// MoveResizeOuter places the window so its frame occupies g.
func (c *Connection) MoveResizeOuter(windowID xproto.Window, g Geometry) error {
	left, right, top, bottom, _ := c.GetFrameExtents(windowID)
	width := g.Width - left - right
	height := g.Height - top - bottom
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return c.MoveResizeWindow(windowID, g.X, g.Y, width, height)
}

// MoveResizeWindow moves and resizes a window, leaving any maximized state
// first since window managers ignore geometry requests for maximized clients.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Some clients reject state changes; the move is still worth trying.
	_ = c.unmaximizeWindow(windowID)

	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// MaximizeWindow adds both maximized states.
func (c *Connection) MaximizeWindow(windowID xproto.Window) error {
	if err := ewmh.WmStateReq(c.XUtil, windowID, netWmStateAdd, "_NET_WM_STATE_MAXIMIZED_HORZ"); err != nil {
		return fmt.Errorf("failed to maximize horizontally: %w", err)
	}
	if err := ewmh.WmStateReq(c.XUtil, windowID, netWmStateAdd, "_NET_WM_STATE_MAXIMIZED_VERT"); err != nil {
		return fmt.Errorf("failed to maximize vertically: %w", err)
	}
	return nil
}

// IconifyWindow minimizes a window via WM_CHANGE_STATE.
func (c *Connection) IconifyWindow(windowID xproto.Window) error {
	reply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len("WM_CHANGE_STATE")), "WM_CHANGE_STATE").Reply()
	if err != nil {
		return err
	}

	const iconicState = 3
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   reply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	// Get current window states
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	// Check if window is maximized
	hasMaxH := false
	hasMaxV := false

	for _, state := range states {
		if state == "_NET_WM_STATE_MAXIMIZED_HORZ" {
			hasMaxH = true
		}
		if state == "_NET_WM_STATE_MAXIMIZED_VERT" {
			hasMaxV = true
		}
	}

	// Remove maximized states if present
	if hasMaxH {
		ewmh.WmStateReq(c.XUtil, windowID, netWmStateRemove, "_NET_WM_STATE_MAXIMIZED_HORZ")
	}
	if hasMaxV {
		ewmh.WmStateReq(c.XUtil, windowID, netWmStateRemove, "_NET_WM_STATE_MAXIMIZED_VERT")
	}

	return nil
}

// GetFrameExtents returns the window decoration sizes (if available)
func (c *Connection) GetFrameExtents(windowID xproto.Window) (left, right, top, bottom int, err error) {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		// No frame extents available, return zeros
		return 0, 0, 0, 0, nil
	}

	return int(extents.Left), int(extents.Right), int(extents.Top), int(extents.Bottom), nil
}

// Listen subscribes to structure and property changes on a client.
func (c *Connection) Listen(windowID xproto.Window) error {
	return xwindow.New(c.XUtil, windowID).Listen(
		xproto.EventMaskStructureNotify,
		xproto.EventMaskPropertyChange,
	)
}
