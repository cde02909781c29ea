//go:build !linux && !windows

package platform

// NewSystemBackend returns ErrUnsupported: only X11 and Win32 are bound.
func NewSystemBackend() (Loop, error) {
	return nil, ErrUnsupported
}
