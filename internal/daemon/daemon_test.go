package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/persistwin/internal/config"
	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/platform/platformtest"
	"github.com/1broseidon/persistwin/internal/store"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	editor    platform.WindowHandle = 0x1001
	editorPID                       = 42
)

var (
	wide   = platform.Monitor{Primary: true, Rect: rect(0, 0, 1920, 1080)}
	narrow = platform.Monitor{Primary: true, Rect: rect(0, 0, 1280, 1024)}
)

func rect(l, t, r, b int32) platform.Rect {
	return platform.Rect{Left: l, Top: t, Right: r, Bottom: b}
}

func placedAt(r platform.Rect) platform.Placement {
	return platform.Placement{Show: platform.ShowNormal, NormalRect: r}
}

type levels struct {
	mu  sync.Mutex
	got []string
}

func (l *levels) SetLevel(level string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, level)
	return nil
}

func newDaemon(t *testing.T, backend *platformtest.Backend, opts Options) *Daemon {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database = store.MemoryPath
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d, err := New(cfg, backend, opts)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func newBackend() *platformtest.Backend {
	b := platformtest.New()
	b.SetMonitors(wide)
	b.AddWindow(editor, platformtest.Window{
		Class:     "Editor",
		Title:     "notes.txt",
		PID:       editorPID,
		Visible:   true,
		TopLevel:  true,
		Placement: placedAt(rect(100, 100, 740, 580)),
	})
	b.SetImage(editorPID, "/usr/bin/editor")
	return b
}

func run(t *testing.T, d *Daemon, backend *platformtest.Backend) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case <-backend.Started():
	case err := <-done:
		stop()
		t.Fatalf("Run returned before the loop started: %v", err)
	case <-time.After(5 * time.Second):
		stop()
		t.Fatal("timed out waiting for the loop to start")
	}

	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for Run to return")
			return nil
		}
	}
}

func storedRect(t *testing.T, d *Daemon) []platform.Rect {
	t.Helper()
	recs, err := d.Store().Placements(0)
	require.NoError(t, err)
	out := make([]platform.Rect, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Placement.NormalRect)
	}
	return out
}

func TestRunCapturesInstallsHooksAndStops(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})

	stop := run(t, d, backend)
	assert.Equal(t, len(platform.WindowEventRanges), backend.Hooks())
	assert.True(t, backend.Options().SessionChanges)
	assert.Equal(t, []platform.Rect{rect(100, 100, 740, 580)}, storedRect(t, d))

	require.NoError(t, stop())
	assert.Zero(t, backend.Hooks(), "hooks must be removed when Run returns")
}

func TestWindowNotificationCapturesOnLoopThread(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})
	stop := run(t, d, backend)
	defer stop()

	moved := rect(300, 200, 940, 680)
	backend.Update(editor, func(w *platformtest.Window) { w.Placement = placedAt(moved) })
	backend.Notify(platform.EventSystemMoveSizeEnd, editor)

	require.Eventually(t, func() bool {
		got := storedRect(t, d)
		return len(got) == 1 && got[0] == moved
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDisplayChangeRoundTrip(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})
	stop := run(t, d, backend)
	defer stop()

	// Disconnect: the narrow layout is new, so nothing is restored.
	backend.SetMonitors(narrow)
	backend.DisplayChange(platform.ReasonDisplayChange)
	require.Eventually(t, func() bool {
		topos, err := d.Store().Topologies()
		return err == nil && len(topos) == 2
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, backend.Calls())

	// The window manager shoves the window around under the narrow layout.
	backend.Update(editor, func(w *platformtest.Window) { w.Placement = placedAt(rect(0, 0, 640, 480)) })

	// Reconnect: the original placement comes back.
	backend.SetMonitors(wide)
	backend.DisplayChange(platform.ReasonSessionConnect)
	require.Eventually(t, func() bool { return len(backend.Calls()) == 1 }, 5*time.Second, 10*time.Millisecond)

	call := backend.Calls()[0]
	assert.Equal(t, editor, call.Handle)
	assert.Equal(t, rect(100, 100, 740, 580), call.Placement.NormalRect)
	assert.True(t, call.Async)

	var active topology.ID
	require.NoError(t, d.Do(func(e *engine.Engine) error {
		active = e.Context().Active()
		return nil
	}))
	topos, err := d.Store().Topologies()
	require.NoError(t, err)
	assert.Equal(t, topos[0].ID, active, "reconnecting must reuse the original topology")
}

func TestReentrantNotificationsDuringRestore(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})
	_, _, err := d.Start()
	require.NoError(t, err)

	backend.SetMonitors(narrow)
	d.handleDisplayChange(platform.ReasonDisplayChange)
	backend.Update(editor, func(w *platformtest.Window) { w.Placement = placedAt(rect(0, 0, 640, 480)) })
	backend.SetMonitors(wide)

	applied := 0
	backend.OnSetPlacement(func(h platform.WindowHandle) {
		applied++
		if applied == 1 {
			d.handleWindowEvent(platform.EventSystemMinimizeEnd, h)
			d.handleDisplayChange(platform.ReasonDisplayChange)
		}
	})

	done := make(chan struct{})
	go func() {
		d.handleDisplayChange(platform.ReasonSessionConnect)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notification delivered during a restore pass deadlocked the loop")
	}

	// The nested display change runs as a second pass once the first is done.
	assert.Equal(t, 2, applied)
	calls := backend.Calls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, rect(100, 100, 740, 580), c.Placement.NormalRect)
	}
	assert.False(t, d.dispatching)
	assert.Empty(t, d.pendingDisplay)
}

func TestRunStartFailure(t *testing.T) {
	backend := newBackend()
	backend.FailMonitors(errors.New("no display"))
	d := newDaemon(t, backend, Options{})

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
	assert.Zero(t, backend.Hooks())
}

func TestRunHookFailure(t *testing.T) {
	backend := newBackend()
	backend.FailHooks(errors.New("access denied"))
	d := newDaemon(t, backend, Options{})

	err := d.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestRunCancelledBeforeLoop(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Zero(t, backend.Hooks())
}

func TestRestoreOneShot(t *testing.T) {
	backend := newBackend()
	d := newDaemon(t, backend, Options{})

	_, res, err := d.Start()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	backend.Update(editor, func(w *platformtest.Window) { w.Placement = placedAt(rect(0, 0, 10, 10)) })
	obs, res, err := d.Restore()
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.NotEmpty(t, obs.Fingerprint)
	require.Len(t, backend.Calls(), 1)
	assert.Equal(t, rect(100, 100, 740, 580), backend.Calls()[0].Placement.NormalRect)
}

func TestApplyConfigUpdatesLevelAndIgnoreLists(t *testing.T) {
	backend := newBackend()
	lv := &levels{}
	d := newDaemon(t, backend, Options{Levels: lv})

	cfg := config.DefaultConfig()
	cfg.Log.Level = "debug"
	cfg.Ignore.Executables = []string{"EDITOR"}
	d.ApplyConfig(cfg)

	assert.Equal(t, []string{"debug"}, lv.got)

	_, res, err := d.Start()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, storedRect(t, d))
}

func TestConfigFileReloadIsApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0644))

	backend := newBackend()
	lv := &levels{}
	d := newDaemon(t, backend, Options{Levels: lv, ConfigPath: path})
	stop := run(t, d, backend)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0644))
	require.Eventually(t, func() bool {
		lv.mu.Lock()
		defer lv.mu.Unlock()
		return len(lv.got) > 0 && lv.got[len(lv.got)-1] == "warn"
	}, 5*time.Second, 20*time.Millisecond)
}
