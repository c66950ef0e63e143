package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Nikto scans web servers for known vulnerabilities and misconfigurations.
type Nikto struct {
	base
}

// NewNikto creates the nikto adapter.
func NewNikto() *Nikto {
	return &Nikto{base{name: "nikto", binary: "nikto", timeout: 300 * time.Second}}
}

// Scan runs a nikto scan. A target without a scheme is treated as http.
func (n *Nikto) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	host := target
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	args := []string{"-host", host}
	if port := params.Int("port", 0); port > 0 {
		args = append(args, "-port", fmt.Sprintf("%d", clampInt(port, 1, 65535)))
	}
	if params.Bool("ssl") {
		args = append(args, "-ssl")
	}
	// Tuning 1-3 keeps the scan to interesting checks on quick runs.
	if params.Bool("quick") {
		args = append(args, "-Tuning", "123")
	}
	return n.runScan(ctx, target, args, n.effectiveTimeout(params), parseNiktoOutput)
}

// Simulate synthesizes a nikto result with the live metadata key set.
func (n *Nikto) Simulate(target string, params Params) *domain.ToolResult {
	result := n.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("nikto -host %s (simulated - nikto not installed)", target)
	vulns := []string{
		"Server leaks inodes via ETags",
		"The anti-clickjacking X-Frame-Options header is not present",
		"The X-Content-Type-Options header is not set",
	}
	result.Output = strings.Join(append([]string{
		"- Nikto v2.5.0",
		fmt.Sprintf("+ Target Host: %s", target),
		"+ Server: Apache/2.4.41 (Ubuntu)",
	}, prefixEach(vulns, "+ ")...), "\n")
	result.Metadata[domain.MetaKeyVulnerabilities] = vulns
	result.Metadata["server_info"] = "Apache/2.4.41 (Ubuntu)"
	result.Metadata["total_items"] = len(vulns)
	return result
}

func parseNiktoOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	serverInfo := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "+ Server:") {
			serverInfo = strings.TrimSpace(strings.TrimPrefix(line, "+ Server:"))
			continue
		}
		// Finding lines start with "+ " but skip the banner/target lines.
		if strings.HasPrefix(line, "+ ") &&
			!strings.HasPrefix(line, "+ Target") &&
			!strings.HasPrefix(line, "+ Start") &&
			!strings.HasPrefix(line, "+ End") {
			vulns = append(vulns, strings.TrimPrefix(line, "+ "))
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"server_info":                 serverInfo,
		"total_items":                 len(vulns),
	}, nil
}

func prefixEach(items []string, prefix string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = prefix + item
	}
	return out
}
