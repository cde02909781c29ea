package topology

import (
	"errors"
	"testing"

	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/platform/platformtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memInterner struct {
	ids  map[string]ID
	next ID
	err  error
}

func newMemInterner() *memInterner {
	return &memInterner{ids: make(map[string]ID)}
}

func (m *memInterner) Intern(canonical []byte) (ID, error) {
	if m.err != nil {
		return 0, m.err
	}
	if id, ok := m.ids[string(canonical)]; ok {
		return id, nil
	}
	m.next++
	m.ids[string(canonical)] = m.next
	return m.next, nil
}

func monitor(l, t, r, b int32) platform.Monitor {
	rect := platform.Rect{Left: l, Top: t, Right: r, Bottom: b}
	return platform.Monitor{Rect: rect, WorkArea: rect}
}

func TestFromMonitorsKeepsEnumerationOrder(t *testing.T) {
	topo := FromMonitors([]platform.Monitor{
		monitor(1920, 0, 3840, 1080),
		monitor(0, 0, 1920, 1080),
	}, false)

	require.Len(t, topo.Monitors, 2)
	assert.Equal(t, int32(1920), topo.Monitors[0].Left)
	assert.Equal(t, int32(0), topo.Monitors[1].Left)
}

func TestFromMonitorsSorted(t *testing.T) {
	a := FromMonitors([]platform.Monitor{monitor(1920, 0, 3840, 1080), monitor(0, 0, 1920, 1080)}, true)
	b := FromMonitors([]platform.Monitor{monitor(0, 0, 1920, 1080), monitor(1920, 0, 3840, 1080)}, true)
	assert.True(t, a.Equal(b))
}

func TestWorkAreaAndNameAreNotIdentity(t *testing.T) {
	m1 := monitor(0, 0, 1920, 1080)
	m2 := m1
	m2.WorkArea = platform.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1040}
	m2.Name = `\\.\DISPLAY2`
	m2.Primary = true

	a, err := FromMonitors([]platform.Monitor{m1}, false).Canonical()
	require.NoError(t, err)
	b, err := FromMonitors([]platform.Monitor{m2}, false).Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalIsDeterministic(t *testing.T) {
	topo := Topology{Monitors: []platform.Rect{{Left: 0, Top: 0, Right: 1920, Bottom: 1080}}}
	a, err := topo.Canonical()
	require.NoError(t, err)
	b, err := Topology{Monitors: append([]platform.Rect(nil), topo.Monitors...)}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	decoded, err := Decode(a)
	require.NoError(t, err)
	assert.True(t, topo.Equal(decoded))
}

func TestCanonicalEmptyEqualsNil(t *testing.T) {
	a, err := Topology{}.Canonical()
	require.NoError(t, err)
	b, err := Topology{Monitors: []platform.Rect{}}.Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestOrderMattersWithoutSorting(t *testing.T) {
	a := FromMonitors([]platform.Monitor{monitor(0, 0, 1920, 1080), monitor(1920, 0, 3840, 1080)}, false)
	b := FromMonitors([]platform.Monitor{monitor(1920, 0, 3840, 1080), monitor(0, 0, 1920, 1080)}, false)
	assert.False(t, a.Equal(b))

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestFingerprintShape(t *testing.T) {
	fp := Fingerprint([]byte("anything"))
	assert.Len(t, fp, fingerprintLen*2)
	assert.Equal(t, fp, Fingerprint([]byte("anything")))
	assert.NotEqual(t, fp, Fingerprint([]byte("anything else")))
}

func TestCaptureIsIdempotent(t *testing.T) {
	backend := platformtest.New()
	backend.SetMonitors(monitor(0, 0, 1920, 1080), monitor(1920, 0, 3840, 1080))
	store := newMemInterner()
	svc := NewService(backend, store, Options{})

	first, err := svc.Capture()
	require.NoError(t, err)
	second, err := svc.Capture()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.ids, 1)
}

func TestCaptureDistinguishesLayouts(t *testing.T) {
	backend := platformtest.New()
	store := newMemInterner()
	svc := NewService(backend, store, Options{})

	backend.SetMonitors(monitor(0, 0, 1920, 1080))
	t0, err := svc.Capture()
	require.NoError(t, err)

	backend.SetMonitors(monitor(0, 0, 1280, 1024))
	t1, err := svc.Capture()
	require.NoError(t, err)

	backend.SetMonitors(monitor(0, 0, 1920, 1080))
	t2, err := svc.Capture()
	require.NoError(t, err)

	assert.NotEqual(t, t0, t1)
	assert.Equal(t, t0, t2)
}

func TestCaptureEnumerationFailureWritesNothing(t *testing.T) {
	backend := platformtest.New()
	backend.FailMonitors(errors.New("EnumDisplayMonitors failed"))
	store := newMemInterner()

	_, err := NewService(backend, store, Options{}).Capture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerate monitors")
	assert.Empty(t, store.ids)
}

func TestCaptureInternFailure(t *testing.T) {
	backend := platformtest.New()
	backend.SetMonitors(monitor(0, 0, 1920, 1080))
	store := newMemInterner()
	store.err = errors.New("disk full")

	_, err := NewService(backend, store, Options{}).Capture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intern topology")
}

func TestObserveReportsFingerprint(t *testing.T) {
	backend := platformtest.New()
	backend.SetMonitors(monitor(0, 0, 1920, 1080))
	obs, err := NewService(backend, newMemInterner(), Options{}).Observe()
	require.NoError(t, err)

	want, err := obs.Topology.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, want, obs.Fingerprint)
	assert.Len(t, obs.Monitors, 1)
	assert.Equal(t, "[(0,0,1920,1080)]", obs.Topology.String())
}
