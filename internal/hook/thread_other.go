//go:build !linux && !windows

package hook

// Without a thread id every registration shares one table. No backend
// delivers notifications on these platforms.
func currentThreadID() uint64 {
	return 0
}
