package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Metasploit runs check-mode validation through msfconsole. Exploit modules
// are invoked with `check` only: the adapter validates exploitability, it
// does not pop shells.
type Metasploit struct {
	base
}

// NewMetasploit creates the metasploit adapter.
func NewMetasploit() *Metasploit {
	return &Metasploit{base{name: "metasploit", binary: "msfconsole", timeout: 300 * time.Second}}
}

// Scan runs the requested module in check mode against the target.
func (m *Metasploit) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	module := params.String("module", "auxiliary/scanner/smb/smb_version")
	script := fmt.Sprintf("use %s; set RHOSTS %s; check; exit", module, target)
	args := []string{"-q", "-x", script}
	return m.runScan(ctx, target, args, m.effectiveTimeout(params), parseMetasploitOutput)
}

// Simulate synthesizes a metasploit result with the live key set.
func (m *Metasploit) Simulate(target string, params Params) *domain.ToolResult {
	result := m.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("msfconsole -q -x 'use auxiliary/scanner/smb/smb_version; set RHOSTS %s; check' (simulated - metasploit not installed)", target)
	result.Output = fmt.Sprintf("Simulated metasploit check for %s\n[*] %s - The target is not exploitable.", target, target)
	result.Metadata[domain.MetaKeyVulnerabilities] = []string{}
	result.Metadata["modules_run"] = []string{"auxiliary/scanner/smb/smb_version"}
	result.Metadata["exploitable"] = false
	return result
}

func parseMetasploitOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	modules := []string{}
	exploitable := false
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "The target is vulnerable") || strings.Contains(line, "The target appears to be vulnerable") {
			exploitable = true
			vulns = append(vulns, line)
		}
		if strings.HasPrefix(line, "use ") {
			modules = append(modules, strings.TrimPrefix(line, "use "))
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"modules_run":                 modules,
		"exploitable":                 exploitable,
	}, nil
}
