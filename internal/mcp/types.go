package mcp

import "github.com/1broseidon/persistwin/internal/platform"

// CurrentTopologyInput is the input for the current_topology tool.
type CurrentTopologyInput struct{}

// MonitorInfo describes one attached monitor.
type MonitorInfo struct {
	Name     string        `json:"name,omitempty"`
	Primary  bool          `json:"primary"`
	Rect     platform.Rect `json:"rect"`
	WorkArea platform.Rect `json:"work_area"`
}

// CurrentTopologyOutput is the output for the current_topology tool.
type CurrentTopologyOutput struct {
	TopologyID  int64         `json:"topology_id"`
	Fingerprint string        `json:"fingerprint"`
	Monitors    []MonitorInfo `json:"monitors"`
}

// ListTopologiesInput is the input for the list_topologies tool.
type ListTopologiesInput struct{}

// TopologyInfo describes one stored topology.
type TopologyInfo struct {
	TopologyID  int64           `json:"topology_id"`
	Fingerprint string          `json:"fingerprint"`
	Monitors    []platform.Rect `json:"monitors"`
	Placements  int             `json:"placements"`
}

// ListTopologiesOutput is the output for the list_topologies tool.
type ListTopologiesOutput struct {
	Topologies []TopologyInfo `json:"topologies"`
}

// ListPlacementsInput is the input for the list_placements tool.
type ListPlacementsInput struct {
	TopologyID int64 `json:"topology_id,omitempty" jsonschema:"Only list placements stored under this topology id (default: all topologies)"`
}

// PlacementInfo describes one stored placement.
type PlacementInfo struct {
	TopologyID int64         `json:"topology_id"`
	ExePath    string        `json:"exe_path"`
	Class      string        `json:"class"`
	Title      string        `json:"title"`
	Show       string        `json:"show"`
	NormalRect platform.Rect `json:"normal_rect"`
	UpdatedAt  string        `json:"updated_at"`
}

// ListPlacementsOutput is the output for the list_placements tool.
type ListPlacementsOutput struct {
	Placements []PlacementInfo `json:"placements"`
}

// PassInput is the input for the capture_windows and restore_windows tools.
type PassInput struct{}

// PassOutput summarizes a capture or restore pass.
type PassOutput struct {
	TopologyID  int64  `json:"topology_id"`
	Fingerprint string `json:"fingerprint"`
	Total       int    `json:"total"`
	Applied     int    `json:"applied"`
	Skipped     int    `json:"skipped"`
	Failed      int    `json:"failed"`
}
