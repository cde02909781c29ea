package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/store"
	"github.com/1broseidon/persistwin/internal/topology"
)

const (
	ServerName    = "persistwin"
	ServerVersion = "0.1.0"
)

// Agent runs engine passes. Implementations serialize calls with any
// concurrently running notification loop.
type Agent interface {
	CurrentTopology() (topology.Observation, error)
	Start() (topology.Observation, engine.BatchResult, error)
	Restore() (topology.Observation, engine.BatchResult, error)
}

// Records reads the placement store.
type Records interface {
	Topologies() ([]store.TopologyRecord, error)
	Placements(topo topology.ID) ([]store.PlacementRecord, error)
}

// Server is the MCP server exposing placement state and passes.
type Server struct {
	mcpServer *mcpsdk.Server
	agent     Agent
	records   Records
	logger    *slog.Logger
}

// NewServer creates a new MCP server over agent and records.
func NewServer(agent Agent, records Records, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		agent:   agent,
		records: records,
		logger:  logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "current_topology",
		Description: "Fingerprint the currently attached monitors. Returns the topology id (interning the layout if it was never seen), its short fingerprint and every monitor with its work area.",
	}, s.handleCurrentTopology)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_topologies",
		Description: "List every monitor topology persistwin has seen, with decoded monitor rectangles and the number of window placements stored under each.",
	}, s.handleListTopologies)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_placements",
		Description: "List stored window placements keyed by executable path, window class and title. Pass topology_id to restrict to one topology.",
	}, s.handleListPlacements)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "capture_windows",
		Description: "Make the live monitor topology active and store the current placement of every visible top-level window under it.",
	}, s.handleCaptureWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "restore_windows",
		Description: "Make the live monitor topology active and move every window that has a stored placement for it back to that placement. Windows without a stored placement are left alone.",
	}, s.handleRestoreWindows)
}
