package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground until interrupted",
	Long: `Capture every window under the current monitor topology, then keep
capturing as windows move, resize, minimize or change title. When the display
configuration changes (or a session reconnects or unlocks) the new topology is
fingerprinted and windows are restored to their placements for it.

The config file is watched; log level and ignore lists apply without restart.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s.logger.Info("persistwin starting", "config", s.cfgPath, "database", s.daemon.Store().Path())
	if err := s.daemon.Run(ctx); err != nil {
		return err
	}
	s.logger.Info("persistwin stopped")
	return nil
}

// contextOrBackground covers commands invoked without Execute, which leaves
// the context unset.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
