// Package cli provides the scaledash command-line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"scale-dashboard/internal/config"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

type configKey struct{}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "scaledash",
		Short: "Scale job dashboard view models",
		Long: `scaledash turns Scale REST API payloads into display records.

It serves job details and a live node-health summary over HTTP, and can
render saved payloads from the command line.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
