package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// ZAP drives the OWASP ZAP baseline scanner.
type ZAP struct {
	base
}

// NewZAP creates the zap adapter.
func NewZAP() *ZAP {
	return &ZAP{base{name: "zap", binary: "zap-baseline.py", timeout: 300 * time.Second}}
}

// Scan runs a ZAP baseline scan against the target URL.
func (z *ZAP) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	url := target
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	args := []string{"-t", url, "-I"}
	// Spider depth is capped so baseline runs stay shallow.
	depth := clampInt(params.Int("depth", 1), 1, 3)
	args = append(args, "-m", fmt.Sprintf("%d", depth))
	return z.runScan(ctx, target, args, z.effectiveTimeout(params), parseZAPOutput)
}

// Simulate synthesizes a ZAP result with the live key set.
func (z *ZAP) Simulate(target string, params Params) *domain.ToolResult {
	result := z.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("zap-baseline.py -t %s (simulated - zap not installed)", target)
	vulns := []string{
		"WARN-NEW: Missing Anti-clickjacking Header",
		"WARN-NEW: Content Security Policy (CSP) Header Not Set",
	}
	result.Output = strings.Join(append(vulns, "FAIL-NEW: 0 WARN-NEW: 2 PASS: 50"), "\n")
	result.Metadata[domain.MetaKeyVulnerabilities] = vulns
	result.Metadata["warnings"] = len(vulns)
	result.Metadata["failures"] = 0
	return result
}

func parseZAPOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	failures := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "WARN-NEW:") || strings.HasPrefix(line, "FAIL-NEW:") {
			if strings.HasPrefix(line, "FAIL-NEW:") {
				failures++
			}
			vulns = append(vulns, line)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"warnings":                    len(vulns) - failures,
		"failures":                    failures,
	}, nil
}

// Burp drives Burp Suite's headless scanner. Burp rarely ships on scan
// hosts, so in practice this adapter mostly exercises the simulation path.
type Burp struct {
	base
}

// NewBurp creates the burp adapter.
func NewBurp() *Burp {
	return &Burp{base{name: "burp", binary: "burpsuite", timeout: 300 * time.Second}}
}

// Scan runs a headless Burp crawl-and-audit.
func (b *Burp) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	url := target
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	args := []string{"--unpause-spider-and-scanner", "--target", url}
	return b.runScan(ctx, target, args, b.effectiveTimeout(params), parseBurpOutput)
}

// Simulate synthesizes a Burp result with the live key set.
func (b *Burp) Simulate(target string, params Params) *domain.ToolResult {
	result := b.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("burpsuite --target %s (simulated - burp not installed)", target)
	vulns := []string{"Issue: Cross-site scripting (reflected)", "Issue: Cookie without HttpOnly flag set"}
	result.Output = strings.Join(vulns, "\n")
	result.Metadata[domain.MetaKeyVulnerabilities] = vulns
	result.Metadata["issue_count"] = len(vulns)
	return result
}

func parseBurpOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Issue:") {
			vulns = append(vulns, line)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"issue_count":                 len(vulns),
	}, nil
}
