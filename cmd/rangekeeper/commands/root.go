// Package commands implements CLI command handlers for rangekeeper.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangekeeper/pkg/config"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/observability"
	"github.com/Sumatoshi-tech/rangekeeper/pkg/version"
)

const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"

	meterName = "github.com/Sumatoshi-tech/rangekeeper/cmd/rangekeeper"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rangekeeper",
		Short: "Rangekeeper - conflict-free reservation of time ranges",
		Long: `Rangekeeper reserves half-open time ranges [start, end) and rejects any
range that overlaps one already reserved.

Commands:
  check     Reserve every range from one or more documents and report conflicts
  neighbors Show the reserved ranges around time points
  mcp       Serve a range ledger to AI agents over MCP`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "config file (default .rangekeeper.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolP(flagVerbose, "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP(flagQuiet, "q", false, "suppress output")

	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewNeighborsCommand())
	rootCmd.AddCommand(NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// session is the configuration and telemetry shared by one command run.
type session struct {
	cfg       *config.Config
	providers observability.Providers
}

// startSession loads configuration, applies --verbose and --quiet, and
// initializes observability with logs on the command's stderr.
func startSession(cmd *cobra.Command, mode observability.AppMode) (*session, error) {
	path, _ := cmd.Flags().GetString(flagConfig)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.Observability(mode, version.Version)
	obsCfg.LogOutput = cmd.ErrOrStderr()

	if mode == observability.ModeMCP {
		obsCfg.LogJSON = true
	}

	if verbose, _ := cmd.Flags().GetBool(flagVerbose); verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	if quiet, _ := cmd.Flags().GetBool(flagQuiet); quiet {
		obsCfg.LogLevel = slog.LevelError
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	return &session{cfg: cfg, providers: providers}, nil
}

func (s *session) close() {
	if err := s.providers.Shutdown(context.Background()); err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}
