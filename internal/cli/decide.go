package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cybrty/redops/domain"
)

// NewDecideCommand creates the decide command.
func NewDecideCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		role   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "decide <target>",
		Short: "Recommend the next tool for a role without executing it",
		Long: `Ask the decision engine for the next recommended tool against a
target. The decision is persisted to the audit log like any other.

Example:
  redops decide --db ./redops.db --role "Reconnaissance Specialist" 203.0.113.10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, cleanup, err := buildService(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer cleanup()

			decision, err := svc.DecideNextTask(cmd.Context(), args[0], domain.AgentRole(role))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(decision)
			}
			fmt.Fprintf(out, "tool: %s\npriority: %s\ndegraded: %t\nreasoning: %s\n",
				decision.Tool, decision.Priority, decision.Degraded, decision.Reasoning)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(domain.RoleRecon), "agent role to decide for")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")
	return cmd
}
