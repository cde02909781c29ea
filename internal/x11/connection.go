package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

const wakeAtom = "_PERSISTWIN_WAKE"

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server and initializes RandR
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// RandR must be initialized before its events can be decoded.
	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit makes a running EventLoop return. The loop only re-checks its quit flag
// after an event, so a client message is sent to the root window to wake it.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)

	atom, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(wakeAtom)), wakeAtom).Reply()
	if err != nil {
		return
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: c.Root,
		Type:   atom.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, 0, 0, 0, 0}),
	}
	xproto.SendEvent(c.XUtil.Conn(), false, c.Root, xproto.EventMaskPropertyChange, string(ev.Bytes()))
	c.XUtil.Sync()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
