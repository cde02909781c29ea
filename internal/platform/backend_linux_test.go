//go:build linux

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/persistwin/internal/x11"
)

type delivery struct {
	token  HookToken
	event  uint32
	window WindowHandle
}

func TestEventForNotification(t *testing.T) {
	tests := []struct {
		n    x11.Notification
		want uint32
	}{
		{x11.NotifyGeometry, EventSystemMoveSizeEnd},
		{x11.NotifyTitle, EventObjectNameChange},
		{x11.NotifyIconified, EventSystemMinimizeStart},
		{x11.NotifyDeiconified, EventSystemMinimizeEnd},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, eventForNotification(tt.n), "notification %d", tt.n)
	}
}

func TestLinuxHooksDeliverByRange(t *testing.T) {
	b := NewLinuxBackend(nil)

	var got []delivery
	tramp := func(token HookToken, event uint32, h WindowHandle) {
		got = append(got, delivery{token, event, h})
	}

	tokens := make([]HookToken, 0, len(WindowEventRanges))
	for _, r := range WindowEventRanges {
		token, err := b.SetHook(r, tramp)
		require.NoError(t, err)
		tokens = append(tokens, token)
	}
	require.NotEqual(t, tokens[0], tokens[1])

	const h = WindowHandle(0x3a00007)
	notifications := []x11.Notification{x11.NotifyGeometry, x11.NotifyTitle, x11.NotifyIconified, x11.NotifyDeiconified}
	for _, n := range notifications {
		b.deliver(eventForNotification(n), h)
	}

	assert.Equal(t, []delivery{
		{tokens[0], EventSystemMoveSizeEnd, h},
		{tokens[1], EventObjectNameChange, h},
		{tokens[0], EventSystemMinimizeStart, h},
		{tokens[0], EventSystemMinimizeEnd, h},
	}, got)

	// Ids outside every installed range are not delivered.
	got = nil
	b.deliver(0x8000, h)
	assert.Empty(t, got)

	require.NoError(t, b.Unhook(tokens[0]))
	got = nil
	for _, n := range notifications {
		b.deliver(eventForNotification(n), h)
	}
	assert.Equal(t, []delivery{{tokens[1], EventObjectNameChange, h}}, got)

	require.NoError(t, b.Unhook(tokens[1]))
	got = nil
	for _, n := range notifications {
		b.deliver(eventForNotification(n), h)
	}
	assert.Empty(t, got)

	assert.Error(t, b.Unhook(tokens[1]))
}

func TestLinuxSetHookRejectsNilTrampoline(t *testing.T) {
	_, err := NewLinuxBackend(nil).SetHook(WindowEventRanges[0], nil)
	assert.Error(t, err)
}

func TestLinuxStopBeforeRunReturnsImmediately(t *testing.T) {
	b := NewLinuxBackend(nil)
	b.Stop()
	assert.NoError(t, b.Run(LoopOptions{}, func(DisplayChangeReason) {
		t.Fatalf("unexpected display change")
	}))
}
