package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Notification is a client change observed on the event loop.
type Notification int

const (
	NotifyGeometry Notification = iota
	NotifyTitle
	NotifyIconified
	NotifyDeiconified
)

// EventHandlers receive notifications from WatchEvents. Both run on the
// goroutine executing EventLoop.
type EventHandlers struct {
	Window       func(n Notification, windowID xproto.Window)
	ScreenChange func()
}

// WatchEvents subscribes to RandR screen changes and to structure/property
// changes on every managed client, including clients that appear later.
func (c *Connection) WatchEvents(h EventHandlers) error {
	if err := c.SelectScreenChange(); err != nil {
		return fmt.Errorf("failed to select screen change events: %w", err)
	}
	if err := xwindow.New(c.XUtil, c.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}

	watched := make(map[xproto.Window]bool)
	watchClients := func() {
		clients, err := c.ClientList()
		if err != nil {
			return
		}
		for _, client := range clients {
			if watched[client] {
				continue
			}
			if err := c.Listen(client); err == nil {
				watched[client] = true
			}
		}
	}
	watchClients()

	xevent.HookFun(func(xu *xgbutil.XUtil, event interface{}) bool {
		switch ev := event.(type) {
		case randr.ScreenChangeNotifyEvent:
			if h.ScreenChange != nil {
				h.ScreenChange()
			}
		case xproto.ConfigureNotifyEvent:
			if ev.Window != c.Root && h.Window != nil {
				h.Window(NotifyGeometry, ev.Window)
			}
		case xproto.DestroyNotifyEvent:
			delete(watched, ev.Window)
		case xproto.PropertyNotifyEvent:
			name, err := xprop.AtomName(xu, ev.Atom)
			if err != nil {
				return true
			}
			if ev.Window == c.Root {
				if name == "_NET_CLIENT_LIST" {
					watchClients()
				}
				return true
			}
			if h.Window == nil {
				return true
			}
			switch name {
			case "_NET_WM_NAME", "WM_NAME":
				h.Window(NotifyTitle, ev.Window)
			case "_NET_WM_STATE":
				state, err := c.WindowState(ev.Window)
				if err != nil {
					return true
				}
				if state == StateIconic {
					h.Window(NotifyIconified, ev.Window)
				} else {
					h.Window(NotifyDeiconified, ev.Window)
				}
			}
		}
		return true
	}).Connect(c.XUtil)

	return nil
}
