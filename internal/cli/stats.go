package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print audit log record counts and tool availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := buildService(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := svc.GetDatabaseStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read stats: %w", err)
			}
			tools := svc.ListTools()

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"store": stats,
					"tools": tools,
				})
			}

			collections := make([]string, 0, len(stats.Collections))
			for name := range stats.Collections {
				collections = append(collections, name)
			}
			sort.Strings(collections)
			for _, name := range collections {
				fmt.Fprintf(out, "%-20s %d\n", name, stats.Collections[name])
			}
			fmt.Fprintf(out, "%-20s %d\n", "total", stats.Total)

			fmt.Fprintln(out)
			for _, tool := range tools {
				mark := "missing"
				if tool.Installed {
					mark = "installed"
				}
				fmt.Fprintf(out, "%-15s %s\n", tool.Name, mark)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print stats as JSON")
	return cmd
}
