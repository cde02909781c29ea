package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/persistwin/internal/config"
)

var printDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultConfigPath(); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.DefaultConfig()
		if !printDefaults {
			res, _, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = res.Config
			if res.File == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "# no config file; showing defaults")
			}
		}
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, _, err := loadConfig(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
		return nil
	},
}

var configExplainCmd = &cobra.Command{
	Use:   "explain <yaml.path>",
	Short: "Show a setting's value and where it was set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, _, err := loadConfig()
		if err != nil {
			return err
		}
		key := args[0]
		value, err := lookupPath(res.Config, key)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s\n", key, value)
		if src, ok := res.Sources[key]; ok {
			fmt.Fprintf(out, "source: %s:%d:%d\n", src.File, src.Line, src.Column)
		} else {
			fmt.Fprintln(out, "source: default")
		}
		return nil
	},
}

func init() {
	configPrintCmd.Flags().BoolVar(&printDefaults, "defaults", false, "Print built-in defaults (no files)")
	configCmd.AddCommand(configPathCmd, configPrintCmd, configValidateCmd, configExplainCmd)
	rootCmd.AddCommand(configCmd)
}

// lookupPath renders the value at a dotted YAML path such as "log.level".
func lookupPath(cfg *config.Config, path string) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", err
	}
	var node any
	if err := yaml.Unmarshal(data, &node); err != nil {
		return "", err
	}
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", fmt.Errorf("unknown config key %q", path)
		}
		if node, ok = m[part]; !ok {
			return "", fmt.Errorf("unknown config key %q", path)
		}
	}
	if _, isMap := node.(map[string]any); isMap {
		out, err := yaml.Marshal(node)
		if err != nil {
			return "", err
		}
		return "\n" + strings.TrimRight(string(out), "\n"), nil
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
