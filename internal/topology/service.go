package topology

import (
	"fmt"

	"github.com/1broseidon/persistwin/internal/platform"
)

// MonitorSource enumerates attached monitors.
type MonitorSource interface {
	Monitors() ([]platform.Monitor, error)
}

// Interner stores a canonical topology encoding if absent and returns its ID.
type Interner interface {
	Intern(canonical []byte) (ID, error)
}

// Options tune fingerprinting.
type Options struct {
	// SortMonitors orders monitor rectangles by position before encoding.
	SortMonitors bool
}

// Observation is one fingerprinting of the live layout.
type Observation struct {
	ID          ID
	Topology    Topology
	Monitors    []platform.Monitor
	Fingerprint string
}

// Service fingerprints the live monitor layout and interns it.
type Service struct {
	monitors MonitorSource
	store    Interner
	opts     Options
}

// NewService returns a Service reading monitors from src and interning into store.
func NewService(src MonitorSource, store Interner, opts Options) *Service {
	return &Service{monitors: src, store: store, opts: opts}
}

// Snapshot builds the current Topology without touching the store.
func (s *Service) Snapshot() (Topology, []platform.Monitor, error) {
	monitors, err := s.monitors.Monitors()
	if err != nil {
		return Topology{}, nil, fmt.Errorf("enumerate monitors: %w", err)
	}
	return FromMonitors(monitors, s.opts.SortMonitors), monitors, nil
}

// Capture fingerprints the live layout and returns its ID. Enumeration
// failures are returned before anything is written.
func (s *Service) Capture() (ID, error) {
	obs, err := s.Observe()
	if err != nil {
		return 0, err
	}
	return obs.ID, nil
}

// Observe is Capture with the topology and fingerprint it was derived from.
func (s *Service) Observe() (Observation, error) {
	topo, monitors, err := s.Snapshot()
	if err != nil {
		return Observation{}, err
	}
	data, err := topo.Canonical()
	if err != nil {
		return Observation{}, fmt.Errorf("encode topology: %w", err)
	}
	id, err := s.store.Intern(data)
	if err != nil {
		return Observation{}, fmt.Errorf("intern topology: %w", err)
	}
	return Observation{
		ID:          id,
		Topology:    topo,
		Monitors:    monitors,
		Fingerprint: Fingerprint(data),
	}, nil
}
