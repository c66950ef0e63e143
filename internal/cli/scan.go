package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cybrty/redops/domain"
)

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		scope       string
		concurrency int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "scan <target> [target...]",
		Short: "Run a full assessment against one or more targets",
		Long: `Run the full phase sequence against each target and print the
session summaries. Multiple targets run concurrently, each in its own
session.

Example:
  redops scan --db ./redops.db 203.0.113.10
  redops scan --concurrency 4 host-a.example.com host-b.example.com`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, _, cleanup, err := buildService(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(concurrency)

			var mu sync.Mutex
			summaries := make([]*domain.SessionSummary, 0, len(args))

			for _, target := range args {
				target := target
				g.Go(func() error {
					summary, err := svc.ExecuteFullPentest(gctx, target, scope, nil)
					if err != nil {
						return fmt.Errorf("assessment of %s failed: %w", target, err)
					}
					mu.Lock()
					summaries = append(summaries, summary)
					mu.Unlock()
					log.Printf("session %s finished for %s (%s)", summary.SessionID, target, summary.Status)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, summary := range summaries {
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					if err := enc.Encode(summary); err != nil {
						return err
					}
					continue
				}
				if summary.Report != "" {
					fmt.Fprintln(out, summary.Report)
				} else {
					fmt.Fprintf(out, "session %s target %s status %s tools %v findings %d\n",
						summary.SessionID, summary.Target, summary.Status, summary.ToolsRun, summary.FindingCount)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope-name", "external", "scope label recorded on the session")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "concurrent target sessions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print summaries as JSON")
	return cmd
}
