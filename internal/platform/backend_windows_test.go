//go:build windows

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/1broseidon/persistwin/internal/win32"
)

func TestSessionReason(t *testing.T) {
	tests := []struct {
		name   string
		wparam uintptr
		want   DisplayChangeReason
		ok     bool
	}{
		{"console connect", win32.WTS_CONSOLE_CONNECT, ReasonSessionConnect, true},
		{"console disconnect", 0x2, "", false},
		{"remote connect", win32.WTS_REMOTE_CONNECT, ReasonSessionConnect, true},
		{"remote disconnect", 0x4, "", false},
		{"logon", 0x5, "", false},
		{"logoff", 0x6, "", false},
		{"lock", 0x7, "", false},
		{"unlock", win32.WTS_SESSION_UNLOCK, ReasonSessionUnlock, true},
		{"remote control", 0x9, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sessionReason(tt.wparam)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
