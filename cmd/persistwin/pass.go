package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/persistwin/internal/engine"
	"github.com/1broseidon/persistwin/internal/topology"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture every window under the live topology once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPass(cmd, "captured", func(s *session) (topology.Observation, engine.BatchResult, error) {
			return s.daemon.Start()
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore every window for the live topology once",
	Long:  `Fingerprint the live topology and move every window with a stored placement for it back to that placement.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runPass(cmd, "restored", func(s *session) (topology.Observation, engine.BatchResult, error) {
			return s.daemon.Restore()
		})
	},
}

func init() {
	rootCmd.AddCommand(captureCmd, restoreCmd)
}

func runPass(cmd *cobra.Command, op string, fn func(*session) (topology.Observation, engine.BatchResult, error)) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	obs, res, err := fn(s)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), op, obs, res)
	return nil
}
