// Package window enumerates top-level windows and resolves their durable identity.
package window

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/1broseidon/persistwin/internal/platform"
)

// Identity re-associates a window across process restarts and handle changes.
type Identity struct {
	ExePath   string `json:"exe_path"`
	ClassName string `json:"class"`
	Title     string `json:"title"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%s [%s] %q", id.ExePath, id.ClassName, id.Title)
}

// Ignore lists windows that are never captured or restored.
type Ignore struct {
	// Classes are exact window class names.
	Classes []string
	// Executables are executable base names, compared case-insensitively.
	Executables []string
}

type ignoreSet struct {
	classes map[string]struct{}
	exes    map[string]struct{}
}

func newIgnoreSet(ig Ignore) *ignoreSet {
	set := &ignoreSet{
		classes: make(map[string]struct{}, len(ig.Classes)),
		exes:    make(map[string]struct{}, len(ig.Executables)),
	}
	for _, c := range ig.Classes {
		set.classes[c] = struct{}{}
	}
	for _, e := range ig.Executables {
		set.exes[strings.ToLower(e)] = struct{}{}
	}
	return set
}

// Resolver answers eligibility and identity questions about live windows.
// Every query goes to the backend; nothing is cached between calls.
type Resolver struct {
	backend platform.Backend
	ignore  atomic.Pointer[ignoreSet]
}

// NewResolver returns a Resolver over backend with an empty ignore list.
func NewResolver(backend platform.Backend) *Resolver {
	r := &Resolver{backend: backend}
	r.ignore.Store(newIgnoreSet(Ignore{}))
	return r
}

// SetIgnore replaces the ignore lists. Safe to call from any goroutine.
func (r *Resolver) SetIgnore(ig Ignore) {
	r.ignore.Store(newIgnoreSet(ig))
}

// List returns every top-level window the window manager knows about.
func (r *Resolver) List() ([]platform.WindowHandle, error) {
	handles, err := r.backend.Windows()
	if err != nil {
		return nil, fmt.Errorf("enumerate windows: %w", err)
	}
	return handles, nil
}

// CaptureEligible reports whether h is visible and its own root ancestor.
func (r *Resolver) CaptureEligible(h platform.WindowHandle) bool {
	return r.backend.IsVisible(h) && r.backend.IsTopLevel(h)
}

// RestoreEligible reports whether h is visible. Handles come from the live
// enumeration, so top-level-ness is not re-checked.
func (r *Resolver) RestoreEligible(h platform.WindowHandle) bool {
	return r.backend.IsVisible(h)
}

// Resolve derives the class, title and owning executable path of h.
func (r *Resolver) Resolve(h platform.WindowHandle) (Identity, error) {
	class, err := r.backend.ClassName(h)
	if err != nil {
		return Identity{}, fmt.Errorf("class name of %s: %w", h, err)
	}
	title, err := r.backend.Title(h)
	if err != nil {
		return Identity{}, fmt.Errorf("title of %s: %w", h, err)
	}
	pid, err := r.backend.ProcessID(h)
	if err != nil {
		return Identity{}, fmt.Errorf("owning process of %s: %w", h, err)
	}
	path, err := r.backend.ProcessImagePath(pid)
	if err != nil {
		return Identity{}, fmt.Errorf("image path of pid %d: %w", pid, err)
	}
	return Identity{ExePath: path, ClassName: class, Title: title}, nil
}

// Placement reads the current placement of h.
func (r *Resolver) Placement(h platform.WindowHandle) (platform.Placement, error) {
	p, err := r.backend.Placement(h)
	if err != nil {
		return platform.Placement{}, fmt.Errorf("placement of %s: %w", h, err)
	}
	return p, nil
}

// Ignored reports whether id matches the ignore lists.
func (r *Resolver) Ignored(id Identity) bool {
	set := r.ignore.Load()
	if _, ok := set.classes[id.ClassName]; ok {
		return true
	}
	if len(set.exes) == 0 {
		return false
	}
	_, ok := set.exes[strings.ToLower(ExeBase(id.ExePath))]
	return ok
}

// ExeBase returns the final element of an executable path, accepting both
// slash and backslash separators.
func ExeBase(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
