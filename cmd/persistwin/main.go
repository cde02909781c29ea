package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/1broseidon/persistwin/internal/config"
	"github.com/1broseidon/persistwin/internal/daemon"
	"github.com/1broseidon/persistwin/internal/logging"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/store"
)

var (
	configPath   string
	databasePath string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "persistwin",
	Short: "Keep window placements per monitor topology",
	Long: `persistwin remembers where every window was for each monitor layout it has
seen and puts windows back when that layout returns, for example after a
laptop is re-docked or a remote session reconnects.

Without a subcommand it runs the agent in the foreground.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAgent,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: <user config dir>/persistwin/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "database", "", "Placement database path, or :memory: (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.LoadResult, string, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return nil, "", err
		}
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	if databasePath != "" {
		res.Config.Database = databasePath
	}
	if logLevel != "" {
		res.Config.Log.Level = logLevel
		if err := res.Config.Validate(); err != nil {
			return nil, "", fmt.Errorf("--log-level: %w", err)
		}
	}
	return res, path, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Options{
		Level:     cfg.Log.Level,
		File:      cfg.Log.File,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		MaxFiles:  cfg.Log.MaxFiles,
	}, os.Stderr)
}

// session is everything a command needs to drive the engine.
type session struct {
	cfg     *config.Config
	cfgPath string
	logger  *logging.Logger
	daemon  *daemon.Daemon
}

func (s *session) Close() {
	if err := s.daemon.Close(); err != nil {
		s.logger.Warn("shutdown", "error", err)
	}
	s.logger.Close()
}

// openSession connects to the window system and opens the placement store.
// watch enables config reloading while the agent runs.
func openSession(watch bool) (*session, error) {
	res, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(res.Config)
	if err != nil {
		return nil, err
	}

	backend, err := platform.NewSystemBackend()
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("connect to window system: %w", err)
	}

	opts := daemon.Options{Logger: logger.Logger, Levels: logger}
	if watch {
		opts.ConfigPath = path
	}
	d, err := daemon.New(res.Config, backend, opts)
	if err != nil {
		backend.Close()
		logger.Close()
		return nil, err
	}
	return &session{cfg: res.Config, cfgPath: path, logger: logger, daemon: d}, nil
}

// openStore opens the placement database without touching the window system.
func openStore() (*store.Store, error) {
	res, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := res.Config.DatabasePath()
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}
