package hook

import (
	"errors"
	"runtime"
	"testing"

	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	event  uint32
	window platform.WindowHandle
}

func lockThread(t *testing.T) {
	t.Helper()
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
}

func recorder() (*[]delivery, Callback) {
	var got []delivery
	return &got, func(event uint32, window platform.WindowHandle) {
		got = append(got, delivery{event: event, window: window})
	}
}

func TestRegisterDispatch(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	got, cb := recorder()

	h, err := b.Register(platform.EventSystemMoveSizeStart, platform.EventSystemMinimizeEnd, cb)
	require.NoError(t, err)
	t.Cleanup(func() { b.Unregister(h) })

	assert.Equal(t, 1, fake.Fire(platform.EventSystemMoveSizeEnd, 10))
	assert.Equal(t, 0, fake.Fire(platform.EventObjectNameChange, 11))

	require.Len(t, *got, 1)
	assert.Equal(t, delivery{event: platform.EventSystemMoveSizeEnd, window: 10}, (*got)[0])
}

func TestRegisterRangesSharesCallback(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	got, cb := recorder()

	handles, err := b.RegisterRanges(platform.WindowEventRanges, cb)
	require.NoError(t, err)
	require.Len(t, handles, 2)
	assert.NotEqual(t, handles[0].Token(), handles[1].Token())

	table := threadTable(currentThreadID(), false)
	s0 := table[handles[0].Token()]
	s1 := table[handles[1].Token()]
	require.NotNil(t, s0)
	assert.Same(t, s0, s1)
	assert.Equal(t, 2, s0.refs)

	fake.Fire(platform.EventSystemMinimizeStart, 1)
	fake.Fire(platform.EventObjectNameChange, 2)
	require.Len(t, *got, 2)

	// Dropping one range leaves the other delivering.
	require.NoError(t, b.Unregister(handles[0]))
	assert.Equal(t, 1, s0.refs)
	fake.Fire(platform.EventSystemMinimizeStart, 3)
	fake.Fire(platform.EventObjectNameChange, 4)
	require.Len(t, *got, 3)
	assert.Equal(t, platform.WindowHandle(4), (*got)[2].window)

	require.NoError(t, b.Unregister(handles[1]))
	assert.Equal(t, 0, s0.refs)
	assert.Nil(t, s0.fn)
	assert.Equal(t, 0, fake.Hooks())
}

func TestDispatchRoutesByToken(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	gotA, cbA := recorder()
	gotB, cbB := recorder()

	hA, err := b.Register(platform.EventSystemMoveSizeEnd, platform.EventSystemMoveSizeEnd, cbA)
	require.NoError(t, err)
	t.Cleanup(func() { b.Unregister(hA) })
	hB, err := b.Register(platform.EventSystemMoveSizeEnd, platform.EventSystemMoveSizeEnd, cbB)
	require.NoError(t, err)
	t.Cleanup(func() { b.Unregister(hB) })

	fake.FireToken(hB.Token(), platform.EventSystemMoveSizeEnd, 9)
	assert.Empty(t, *gotA)
	require.Len(t, *gotB, 1)
}

func TestDispatchUnknownTokenIsDropped(t *testing.T) {
	lockThread(t)
	assert.NotPanics(t, func() {
		Dispatch(platform.HookToken(0xdead), platform.EventSystemMoveSizeEnd, 1)
	})
}

func TestDispatchAfterUnregisterIsDropped(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	got, cb := recorder()

	h, err := b.Register(platform.EventSystemMoveSizeEnd, platform.EventSystemMoveSizeEnd, cb)
	require.NoError(t, err)
	require.NoError(t, b.Unregister(h))

	// A notification that raced with removal still carries the old token.
	Dispatch(h.Token(), platform.EventSystemMoveSizeEnd, 1)
	assert.Empty(t, *got)
}

func TestUnregisterTwice(t *testing.T) {
	lockThread(t)
	b := NewBridge(platformtest.New())
	h, err := b.Register(1, 2, func(uint32, platform.WindowHandle) {})
	require.NoError(t, err)

	require.NoError(t, b.Unregister(h))
	assert.ErrorIs(t, b.Unregister(h), ErrUnknownHandle)
}

func TestUnregisterFromAnotherThread(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "windows" {
		t.Skip("no per-thread identity on " + runtime.GOOS)
	}
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	got, cb := recorder()

	h, err := b.Register(platform.EventSystemMoveSizeEnd, platform.EventSystemMoveSizeEnd, cb)
	require.NoError(t, err)
	t.Cleanup(func() { b.Unregister(h) })

	errc := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		errc <- b.Unregister(h)
	}()
	assert.ErrorIs(t, <-errc, ErrWrongThread)
	assert.Equal(t, 1, fake.Hooks())

	// Notifications arriving on another thread do not see this thread's table.
	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		Dispatch(h.Token(), platform.EventSystemMoveSizeEnd, 1)
		close(done)
	}()
	<-done
	assert.Empty(t, *got)
}

func TestRegisterRangesRollsBack(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(&failNth{Backend: fake, n: 2})

	_, err := b.RegisterRanges(platform.WindowEventRanges, func(uint32, platform.WindowHandle) {})
	require.Error(t, err)
	assert.Equal(t, 0, fake.Hooks())
}

func TestRegisterValidation(t *testing.T) {
	lockThread(t)
	b := NewBridge(platformtest.New())

	_, err := b.Register(5, 4, func(uint32, platform.WindowHandle) {})
	assert.Error(t, err)
	_, err = b.Register(1, 2, nil)
	assert.Error(t, err)
	_, err = b.RegisterRanges(nil, func(uint32, platform.WindowHandle) {})
	assert.Error(t, err)
}

func TestUnregisterOSFailureKeepsRegistration(t *testing.T) {
	lockThread(t)
	fake := platformtest.New()
	b := NewBridge(fake)
	got, cb := recorder()

	h, err := b.Register(1, 1, cb)
	require.NoError(t, err)

	fake.FailUnhook(errors.New("UnhookWinEvent failed"))
	require.Error(t, b.Unregister(h))
	fake.Fire(1, 5)
	assert.Len(t, *got, 1)

	fake.FailUnhook(nil)
	require.NoError(t, b.Unregister(h))
}

// failNth fails the nth SetHook call.
type failNth struct {
	*platformtest.Backend
	n     int
	calls int
}

func (f *failNth) SetHook(r platform.EventRange, tramp platform.Trampoline) (platform.HookToken, error) {
	f.calls++
	if f.calls == f.n {
		return 0, errors.New("SetWinEventHook failed")
	}
	return f.Backend.SetHook(r, tramp)
}
