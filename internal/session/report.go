package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cybrty/redops/domain"
)

// RenderReport renders the markdown assessment report for a session
// summary. Output is deterministic for a given summary: sections and
// entries are sorted, and no timestamps appear in the body.
func RenderReport(summary *domain.SessionSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Security Assessment Report\n\n")
	fmt.Fprintf(&b, "## Session\n\n")
	fmt.Fprintf(&b, "- Session: %s\n", summary.SessionID)
	fmt.Fprintf(&b, "- Target: %s\n", summary.Target)
	fmt.Fprintf(&b, "- Decisions taken: %d\n", summary.DecisionCount)
	fmt.Fprintf(&b, "- Commands executed: %d\n", summary.CommandCount)

	b.WriteString("\n## Tools Run\n\n")
	if len(summary.ToolsRun) == 0 {
		b.WriteString("No tools were executed.\n")
	} else {
		tools := append([]string(nil), summary.ToolsRun...)
		sort.Strings(tools)
		for _, tool := range tools {
			fmt.Fprintf(&b, "- %s\n", tool)
		}
	}

	b.WriteString("\n## Findings\n\n")
	if len(summary.Findings) == 0 {
		b.WriteString("No findings recorded.\n")
	} else {
		lines := make([]string, 0, len(summary.Findings))
		for _, f := range summary.Findings {
			lines = append(lines, fmt.Sprintf("- [%s] %s: %s (%s)", f.Kind, f.Target, f.Detail, f.Tool))
		}
		sort.Strings(lines)
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n## Vulnerabilities\n\n")
	if len(summary.Vulnerabilities) == 0 {
		b.WriteString("No vulnerabilities identified.\n")
	} else {
		lines := make([]string, 0, len(summary.Vulnerabilities))
		for _, v := range summary.Vulnerabilities {
			line := fmt.Sprintf("- %s: %s (%s)", v.Target, v.Description, v.Tool)
			if v.Severity != "" {
				line = fmt.Sprintf("- %s: %s [%s] (%s)", v.Target, v.Description, v.Severity, v.Tool)
			}
			lines = append(lines, line)
		}
		sort.Strings(lines)
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n## Assessment Notes\n\n")
	switch {
	case len(summary.Vulnerabilities) > 0:
		b.WriteString("Identified vulnerabilities require remediation and re-testing.\n")
	case len(summary.Findings) > 0:
		b.WriteString("Exposure was identified but no concrete vulnerabilities were confirmed.\n")
	default:
		b.WriteString("No exposure was identified during this assessment.\n")
	}

	return b.String()
}
