// Package cli implements the redops command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybrty/redops/config"
	"github.com/cybrty/redops/internal/service"
	"github.com/cybrty/redops/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Database  string
	ScopeFile string
}

// NewRootCommand creates the root command for the redops CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "redops",
		Short: "redops - security assessment orchestrator",
		Long: `An orchestrator for automated security assessments.

It decides which checks to run next against a target, executes them
through a uniform tool layer (simulating tools whose binaries are not
installed), and records every decision and execution for later review.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite audit database (defaults to DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.ScopeFile, "scope", "", "path to YAML scope file (defaults to REDOPS_SCOPE_FILE)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewDecideCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// buildService loads configuration, opens the audit store and assembles
// the facade. The returned cleanup closes the store.
func buildService(ctx context.Context, opts *RootOptions) (*service.Service, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Database != "" {
		cfg.DatabaseURL = opts.Database
	}
	if opts.ScopeFile != "" {
		scope, err := config.LoadScopeFile(opts.ScopeFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load scope file: %w", err)
		}
		cfg.ScopeFile = opts.ScopeFile
		cfg.Scope = scope
	}

	st, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open audit store: %w", err)
	}

	svc, err := service.New(ctx, cfg, st)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}
	return svc, cfg, func() { st.Close() }, nil
}
