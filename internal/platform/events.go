package platform

// Notification ids. These are the WinEvent constants; other backends map their
// native notifications onto the same ids so a single set of hook ranges works
// everywhere.
const (
	EventSystemMoveSizeStart uint32 = 0x000A
	EventSystemMoveSizeEnd   uint32 = 0x000B
	EventSystemMinimizeStart uint32 = 0x0016
	EventSystemMinimizeEnd   uint32 = 0x0017
	EventObjectNameChange    uint32 = 0x800C
)

// EventRange is an inclusive range of notification ids.
type EventRange struct {
	Min uint32
	Max uint32
}

// Contains reports whether event falls inside the inclusive range.
func (r EventRange) Contains(event uint32) bool {
	return event >= r.Min && event <= r.Max
}

// WindowEventRanges are the notifications that trigger a single-window capture:
// move/resize start through minimize end, plus title changes.
var WindowEventRanges = []EventRange{
	{Min: EventSystemMoveSizeStart, Max: EventSystemMinimizeEnd},
	{Min: EventObjectNameChange, Max: EventObjectNameChange},
}

// HookToken is the opaque value the OS hands back when a notification hook is
// installed. Notifications carry it so they can be routed back to a registration.
type HookToken uintptr

// Trampoline is the single entry point every hook notification is delivered to.
// It runs synchronously on the thread that installed the hook.
type Trampoline func(token HookToken, event uint32, window WindowHandle)

// Hooker installs and removes ranged notification hooks. Notifications are
// delivered out of context, skip the calling process, and arrive on the thread
// that installed the hook.
type Hooker interface {
	SetHook(r EventRange, tramp Trampoline) (HookToken, error)
	Unhook(token HookToken) error
}

// DisplayChangeReason says why the daemon should re-fingerprint the topology.
type DisplayChangeReason string

const (
	ReasonDisplayChange  DisplayChangeReason = "display_change"
	ReasonSessionConnect DisplayChangeReason = "session_connect"
	ReasonSessionUnlock  DisplayChangeReason = "session_unlock"
)

// LoopOptions configures a message loop.
type LoopOptions struct {
	// SessionChanges enables session reconnect/unlock notifications.
	SessionChanges bool
}

// Loop is a backend that can pump OS notifications on the calling thread.
type Loop interface {
	Backend
	Hooker
	// Run blocks on the calling thread, invoking onDisplayChange for every
	// display-configuration (and, when enabled, session) notification until Stop.
	Run(opts LoopOptions, onDisplayChange func(DisplayChangeReason)) error
	// Stop asks a running loop to return. Safe to call from any goroutine.
	Stop()
	Close() error
}
