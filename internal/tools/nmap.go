package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Nmap performs network discovery and port scanning.
type Nmap struct {
	base
}

// NewNmap creates the nmap adapter.
func NewNmap() *Nmap {
	return &Nmap{base{name: "nmap", binary: "nmap", timeout: 600 * time.Second}}
}

// Scan runs an nmap scan against the target. scan_type selects the flag
// profile (basic, stealth, aggressive, udp, service); port ranges and
// top-port counts are clamped to keep scans bounded.
func (n *Nmap) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	args := n.buildArgs(target, params)
	return n.runScan(ctx, target, args, n.effectiveTimeout(params), parseNmapOutput)
}

func (n *Nmap) buildArgs(target string, params Params) []string {
	var args []string
	switch params.String("scan_type", "basic") {
	case "stealth":
		args = append(args, "-sS", "-T2", "-f")
	case "aggressive":
		args = append(args, "-A", "-T4")
	case "udp":
		topPorts := clampInt(params.Int("top_ports", 100), 10, 1000)
		args = append(args, "-sU", "-T4", "--top-ports", fmt.Sprintf("%d", topPorts))
	case "service":
		args = append(args, "-sV", "-sC", "-T4")
	default:
		args = append(args, "-sS", "-T4", "-p", params.String("ports", "1-1000"))
	}
	if params.Bool("os_detection") {
		args = append(args, "-O")
	}
	if script := params.String("script", ""); script != "" {
		args = append(args, "--script", script)
	}
	return append(args, target)
}

// Simulate synthesizes a scan result when nmap is not installed. Internal
// and lab-style targets get a typical web server response; anything else
// reads as fully filtered.
func (n *Nmap) Simulate(target string, params Params) *domain.ToolResult {
	result := n.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("nmap %s (simulated - nmap not installed)", target)

	openPorts := []string{}
	services := map[string]interface{}{}
	lines := []string{
		fmt.Sprintf("Nmap scan report for %s", target),
		"Host is up (0.045s latency).",
		"",
	}
	if looksInternal(target) {
		openPorts = []string{"22", "80", "443"}
		for port, svc := range map[string]string{"22": "ssh", "80": "http", "443": "https"} {
			services[port] = svc
		}
		for _, port := range openPorts {
			lines = append(lines, fmt.Sprintf("%s/tcp open  %s", port, services[port]))
		}
		lines = append(lines, "", "Nmap done: 1 IP address (1 host up) scanned in 2.15 seconds")
	} else {
		lines = append(lines,
			fmt.Sprintf("All 1000 scanned ports on %s are filtered", target),
			"",
			"Nmap done: 1 IP address (1 host up) scanned in 25.62 seconds")
	}

	result.Output = strings.Join(lines, "\n")
	result.Metadata[domain.MetaKeyOpenPorts] = openPorts
	result.Metadata[domain.MetaKeyServices] = services
	result.Metadata["os_info"] = ""
	return result
}

// parseNmapOutput extracts open ports, services and OS info from normal
// (non-XML) nmap output. Output that carries text but no nmap scan report
// at all (a shell error, a wrapper's noise) is a parse error; the raw
// output survives on the result either way.
func parseNmapOutput(output string) (map[string]interface{}, error) {
	openPorts := []string{}
	services := map[string]interface{}{}
	osInfo := ""
	recognized := strings.TrimSpace(output) == ""

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "Nmap") {
			recognized = true
		}
		if strings.Contains(line, "/tcp") && strings.Contains(line, "open") {
			recognized = true
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				port := strings.SplitN(fields[0], "/", 2)[0]
				openPorts = append(openPorts, port)
				services[port] = fields[2]
			}
		}
		if strings.HasPrefix(line, "OS:") {
			osInfo = strings.TrimSpace(strings.TrimPrefix(line, "OS:"))
		}
	}

	if !recognized {
		return nil, fmt.Errorf("no nmap scan report in output")
	}

	return map[string]interface{}{
		domain.MetaKeyOpenPorts: openPorts,
		domain.MetaKeyServices:  services,
		"os_info":               osInfo,
	}, nil
}

// looksInternal is a heuristic for simulation flavor only; the actual
// safety screen lives in the policy engine.
func looksInternal(target string) bool {
	return strings.HasPrefix(target, "10.") ||
		strings.HasPrefix(target, "192.168.") ||
		strings.HasPrefix(target, "127.") ||
		strings.Contains(target, "localhost") ||
		strings.Contains(target, ".lab") ||
		strings.Contains(target, ".local")
}
