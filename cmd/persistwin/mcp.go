package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/1broseidon/persistwin/internal/mcp"
)

var mcpWithAgent bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol server",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (stdio transport)",
	Long: `Start the MCP server on stdio. Designed to be invoked by MCP clients.

Example:
  claude mcp add persistwin -- persistwin mcp serve --agent`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(mcpWithAgent)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		agentErr := make(chan error, 1)
		if mcpWithAgent {
			go func() {
				err := s.daemon.Run(ctx)
				if err != nil {
					s.logger.Error("agent stopped", "error", err)
				}
				agentErr <- err
			}()
		} else {
			close(agentErr)
		}

		server := mcp.NewServer(s.daemon, s.daemon.Store(), s.logger.Logger)
		serveErr := server.Run(ctx)
		cancel()
		return errors.Join(serveErr, <-agentErr)
	},
}

func init() {
	mcpServeCmd.Flags().BoolVar(&mcpWithAgent, "agent", false, "Also run the agent loop while serving")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
