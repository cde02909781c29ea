package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/topology"
)

func (s *Server) handleCurrentTopology(_ context.Context, _ *mcpsdk.CallToolRequest, _ CurrentTopologyInput) (*mcpsdk.CallToolResult, CurrentTopologyOutput, error) {
	obs, err := s.agent.CurrentTopology()
	if err != nil {
		return nil, CurrentTopologyOutput{}, err
	}
	out := CurrentTopologyOutput{
		TopologyID:  int64(obs.ID),
		Fingerprint: obs.Fingerprint,
		Monitors:    make([]MonitorInfo, 0, len(obs.Monitors)),
	}
	for _, m := range obs.Monitors {
		out.Monitors = append(out.Monitors, monitorInfo(m))
	}
	return nil, out, nil
}

func (s *Server) handleListTopologies(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListTopologiesInput) (*mcpsdk.CallToolResult, ListTopologiesOutput, error) {
	records, err := s.records.Topologies()
	if err != nil {
		return nil, ListTopologiesOutput{}, fmt.Errorf("list topologies: %w", err)
	}
	out := ListTopologiesOutput{Topologies: make([]TopologyInfo, 0, len(records))}
	for _, r := range records {
		monitors := r.Topology.Monitors
		if monitors == nil {
			monitors = []platform.Rect{}
		}
		out.Topologies = append(out.Topologies, TopologyInfo{
			TopologyID:  int64(r.ID),
			Fingerprint: r.Fingerprint,
			Monitors:    monitors,
			Placements:  r.Placements,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListPlacements(_ context.Context, _ *mcpsdk.CallToolRequest, args ListPlacementsInput) (*mcpsdk.CallToolResult, ListPlacementsOutput, error) {
	if args.TopologyID < 0 {
		return nil, ListPlacementsOutput{}, fmt.Errorf("topology_id must be positive, got %d", args.TopologyID)
	}
	records, err := s.records.Placements(topology.ID(args.TopologyID))
	if err != nil {
		return nil, ListPlacementsOutput{}, fmt.Errorf("list placements: %w", err)
	}
	out := ListPlacementsOutput{Placements: make([]PlacementInfo, 0, len(records))}
	for _, r := range records {
		out.Placements = append(out.Placements, PlacementInfo{
			TopologyID: int64(r.TopologyID),
			ExePath:    r.Identity.ExePath,
			Class:      r.Identity.ClassName,
			Title:      r.Identity.Title,
			Show:       r.Placement.Show.String(),
			NormalRect: r.Placement.NormalRect,
			UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleCaptureWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ PassInput) (*mcpsdk.CallToolResult, PassOutput, error) {
	obs, res, err := s.agent.Start()
	if err != nil {
		return nil, PassOutput{}, fmt.Errorf("capture windows: %w", err)
	}
	s.logger.Info("mcp capture", "topology_id", obs.ID, "result", res)
	return nil, passOutput(obs, res), nil
}

func (s *Server) handleRestoreWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ PassInput) (*mcpsdk.CallToolResult, PassOutput, error) {
	obs, res, err := s.agent.Restore()
	if err != nil {
		return nil, PassOutput{}, fmt.Errorf("restore windows: %w", err)
	}
	s.logger.Info("mcp restore", "topology_id", obs.ID, "result", res)
	return nil, passOutput(obs, res), nil
}

func monitorInfo(m platform.Monitor) MonitorInfo {
	return MonitorInfo{
		Name:     m.Name,
		Primary:  m.Primary,
		Rect:     m.Rect,
		WorkArea: m.WorkArea,
	}
}

func passOutput(obs topology.Observation, res engine.BatchResult) PassOutput {
	return PassOutput{
		TopologyID:  int64(obs.ID),
		Fingerprint: obs.Fingerprint,
		Total:       res.Total,
		Applied:     res.Applied,
		Skipped:     res.Skipped,
		Failed:      res.Failed,
	}
}
