package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/1broseidon/persistwin/internal/store"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/1broseidon/persistwin/internal/window"
)

var placementsTopology int64

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show the live monitor topology",
	Long:  `Fingerprint the attached monitors and print the topology id, interning the layout if it is new.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(false)
		if err != nil {
			return err
		}
		defer s.Close()

		obs, err := s.daemon.CurrentTopology()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, topologyJSON{
				ID:          obs.ID,
				Fingerprint: obs.Fingerprint,
				Monitors:    obs.Monitors,
			})
		}
		printObservation(out, obs)
		return nil
	},
}

var topologiesCmd = &cobra.Command{
	Use:   "topologies",
	Short: "List stored monitor topologies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Topologies()
		if err != nil {
			return err
		}
		return printTopologies(cmd, records)
	},
}

var placementsCmd = &cobra.Command{
	Use:   "placements",
	Short: "List stored window placements",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if placementsTopology < 0 {
			return fmt.Errorf("--topology must be positive, got %d", placementsTopology)
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		records, err := st.Placements(topology.ID(placementsTopology))
		if err != nil {
			return err
		}
		return printPlacements(cmd, records)
	},
}

func init() {
	for _, c := range []*cobra.Command{topologyCmd, topologiesCmd, placementsCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
		rootCmd.AddCommand(c)
	}
	placementsCmd.Flags().Int64Var(&placementsTopology, "topology", 0, "Only list placements for this topology id")
}

type topologyJSON struct {
	ID          topology.ID `json:"topology_id"`
	Fingerprint string      `json:"fingerprint"`
	Monitors    any         `json:"monitors"`
	Placements  *int        `json:"placements,omitempty"`
}

type placementJSON struct {
	TopologyID topology.ID `json:"topology_id"`
	window.Identity
	Show       string `json:"show"`
	NormalRect any    `json:"normal_rect"`
	UpdatedAt  string `json:"updated_at"`
}

func printTopologies(cmd *cobra.Command, records []store.TopologyRecord) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		list := make([]topologyJSON, 0, len(records))
		for _, r := range records {
			n := r.Placements
			list = append(list, topologyJSON{ID: r.ID, Fingerprint: r.Fingerprint, Monitors: r.Topology.Monitors, Placements: &n})
		}
		return writeJSON(out, list)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, render(out, dimStyle, "no topologies stored"))
		return nil
	}

	tw := newTable(out)
	printHeader(tw, "ID", "FINGERPRINT", "PLACEMENTS", "MONITORS")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", r.ID, r.Fingerprint, r.Placements, rects(r.Topology.Monitors))
	}
	return tw.Flush()
}

func printPlacements(cmd *cobra.Command, records []store.PlacementRecord) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		list := make([]placementJSON, 0, len(records))
		for _, r := range records {
			list = append(list, placementJSON{
				TopologyID: r.TopologyID,
				Identity:   r.Identity,
				Show:       r.Placement.Show.String(),
				NormalRect: r.Placement.NormalRect,
				UpdatedAt:  r.UpdatedAt.Format(time.RFC3339),
			})
		}
		return writeJSON(out, list)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, render(out, dimStyle, "no placements stored"))
		return nil
	}

	tw := newTable(out)
	printHeader(tw, "TOPOLOGY", "EXECUTABLE", "CLASS", "TITLE", "SHOW", "RECT", "UPDATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.TopologyID,
			window.ExeBase(r.Identity.ExePath),
			truncate(r.Identity.ClassName, 24),
			truncate(r.Identity.Title, 40),
			r.Placement.Show,
			r.Placement.NormalRect,
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return tw.Flush()
}
