// Package hook routes OS window notifications to registered callbacks.
//
// The OS hands every notification to one stateless entry point carrying only
// the hook token it issued at registration. Dispatch is that entry point: it
// looks the token up in the registration table of the thread it runs on and
// calls whatever was registered there. Hooks deliver notifications on the
// thread that installed them, so a registration is only ever visible to, and
// removable from, its own thread.
package hook

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/persistwin/internal/platform"
)

var (
	// ErrWrongThread is returned when a handle is unregistered from a thread
	// other than the one that registered it.
	ErrWrongThread = errors.New("hook: handle belongs to another thread")
	// ErrUnknownHandle is returned for handles that are not registered.
	ErrUnknownHandle = errors.New("hook: unknown handle")
)

// Callback receives one notification.
type Callback func(event uint32, window platform.WindowHandle)

// Handle identifies one installed hook.
type Handle struct {
	token  platform.HookToken
	thread uint64
}

// Token returns the OS hook token.
func (h Handle) Token() platform.HookToken {
	return h.token
}

func (h Handle) String() string {
	return fmt.Sprintf("hook(0x%x@%d)", uintptr(h.token), h.thread)
}

// shared is one callback referenced by every token registered with it.
type shared struct {
	fn   Callback
	refs int
}

type registrations map[platform.HookToken]*shared

var (
	// tablesMu guards the outer map only. Each inner table is read and written
	// exclusively by the thread it is keyed by.
	tablesMu sync.Mutex
	tables   = make(map[uint64]registrations)
)

func threadTable(thread uint64, create bool) registrations {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	t, ok := tables[thread]
	if !ok && create {
		t = make(registrations)
		tables[thread] = t
	}
	return t
}

func dropThreadTable(thread uint64) {
	tablesMu.Lock()
	defer tablesMu.Unlock()
	if t, ok := tables[thread]; ok && len(t) == 0 {
		delete(tables, thread)
	}
}

// Dispatch is the trampoline handed to the OS for every hook. Notifications
// for tokens unknown on the calling thread are dropped.
func Dispatch(token platform.HookToken, event uint32, window platform.WindowHandle) {
	t := threadTable(currentThreadID(), false)
	if t == nil {
		return
	}
	s, ok := t[token]
	if !ok || s.fn == nil {
		return
	}
	s.fn(event, window)
}

// Bridge installs hooks through a platform Hooker. Callers must pin their
// goroutine to an OS thread (runtime.LockOSThread) for as long as the
// registrations live.
type Bridge struct {
	hooker platform.Hooker
}

// NewBridge returns a Bridge that installs hooks via hooker.
func NewBridge(hooker platform.Hooker) *Bridge {
	return &Bridge{hooker: hooker}
}

// Register installs one hook for the inclusive range [min, max].
func (b *Bridge) Register(min, max uint32, cb Callback) (Handle, error) {
	handles, err := b.RegisterRanges([]platform.EventRange{{Min: min, Max: max}}, cb)
	if err != nil {
		return Handle{}, err
	}
	return handles[0], nil
}

// RegisterRanges installs one hook per range, all sharing cb. Either every
// range is installed or none is.
func (b *Bridge) RegisterRanges(ranges []platform.EventRange, cb Callback) ([]Handle, error) {
	if cb == nil {
		return nil, errors.New("hook: nil callback")
	}
	if len(ranges) == 0 {
		return nil, errors.New("hook: no event ranges")
	}
	for _, r := range ranges {
		if r.Min > r.Max {
			return nil, fmt.Errorf("hook: invalid event range 0x%x..0x%x", r.Min, r.Max)
		}
	}

	thread := currentThreadID()
	s := &shared{fn: cb}
	handles := make([]Handle, 0, len(ranges))
	t := threadTable(thread, true)

	for _, r := range ranges {
		token, err := b.hooker.SetHook(r, Dispatch)
		if err != nil {
			for _, h := range handles {
				_ = b.hooker.Unhook(h.token)
				delete(t, h.token)
			}
			dropThreadTable(thread)
			return nil, fmt.Errorf("hook: install range 0x%x..0x%x: %w", r.Min, r.Max, err)
		}
		s.refs++
		t[token] = s
		handles = append(handles, Handle{token: token, thread: thread})
	}
	return handles, nil
}

// Unregister removes the hook behind h. It must run on the registering thread.
func (b *Bridge) Unregister(h Handle) error {
	thread := currentThreadID()
	if h.thread != thread {
		return ErrWrongThread
	}
	t := threadTable(thread, false)
	s, ok := t[h.token]
	if !ok {
		return ErrUnknownHandle
	}
	if err := b.hooker.Unhook(h.token); err != nil {
		return fmt.Errorf("hook: remove %s: %w", h, err)
	}

	delete(t, h.token)
	s.refs--
	if s.refs == 0 {
		s.fn = nil
	}
	if len(t) == 0 {
		dropThreadTable(thread)
	}
	return nil
}
