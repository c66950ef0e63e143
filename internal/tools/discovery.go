package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Masscan performs high-rate port discovery. The packet rate is clamped
// hard: masscan at full speed is indistinguishable from a flood.
type Masscan struct {
	base
}

// NewMasscan creates the masscan adapter.
func NewMasscan() *Masscan {
	return &Masscan{base{name: "masscan", binary: "masscan", timeout: 300 * time.Second}}
}

// Scan sweeps the target's ports at a bounded rate.
func (m *Masscan) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	rate := clampInt(params.Int("rate", 100), 10, 1000)
	ports := params.String("ports", "1-1000")
	args := []string{target, "-p", ports, "--rate", fmt.Sprintf("%d", rate)}
	return m.runScan(ctx, target, args, m.effectiveTimeout(params), parseMasscanOutput)
}

// Simulate synthesizes a masscan result with the live key set.
func (m *Masscan) Simulate(target string, params Params) *domain.ToolResult {
	result := m.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("masscan %s -p 1-1000 --rate 100 (simulated - masscan not installed)", target)
	openPorts := []string{}
	hosts := []string{}
	if looksInternal(target) {
		openPorts = []string{"80", "443"}
		hosts = []string{target}
		result.Output = fmt.Sprintf("Discovered open port 80/tcp on %s\nDiscovered open port 443/tcp on %s", target, target)
	} else {
		result.Output = "Simulated masscan sweep: no responses"
	}
	result.Metadata[domain.MetaKeyOpenPorts] = openPorts
	result.Metadata[domain.MetaKeyHosts] = hosts
	return result
}

func parseMasscanOutput(output string) (map[string]interface{}, error) {
	openPorts := []string{}
	hostSet := map[string]bool{}
	hosts := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		// masscan prints: Discovered open port 80/tcp on 10.0.0.5
		if !strings.HasPrefix(line, "Discovered open port ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		port := strings.SplitN(fields[3], "/", 2)[0]
		host := fields[5]
		openPorts = append(openPorts, port)
		if !hostSet[host] {
			hostSet[host] = true
			hosts = append(hosts, host)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyOpenPorts: openPorts,
		domain.MetaKeyHosts:     hosts,
	}, nil
}

// Dirsearch brute-forces web paths.
type Dirsearch struct {
	base
}

// NewDirsearch creates the dirsearch adapter.
func NewDirsearch() *Dirsearch {
	return &Dirsearch{base{name: "dirsearch", binary: "dirsearch", timeout: 300 * time.Second}}
}

// Scan enumerates paths on the target. Threads and recursion depth are
// clamped to the adapter's ceilings.
func (d *Dirsearch) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	url := target
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	threads := clampInt(params.Int("threads", 5), 1, 10)
	args := []string{"-u", url, "-t", fmt.Sprintf("%d", threads), "--format", "plain"}
	if depth := params.Int("recursion_depth", 0); depth > 0 {
		args = append(args, "-r", "-R", fmt.Sprintf("%d", clampInt(depth, 1, 3)))
	}
	if ext := params.String("extensions", ""); ext != "" {
		args = append(args, "-e", ext)
	}
	return d.runScan(ctx, target, args, d.effectiveTimeout(params), parseDirsearchOutput)
}

// Simulate synthesizes a dirsearch result with the live key set.
func (d *Dirsearch) Simulate(target string, params Params) *domain.ToolResult {
	result := d.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("dirsearch -u %s (simulated - dirsearch not installed)", target)
	paths := []string{"/admin", "/login", "/robots.txt"}
	result.Output = "200   1KB  /admin\n200   2KB  /login\n200   64B  /robots.txt"
	result.Metadata[domain.MetaKeyPaths] = paths
	result.Metadata["hits"] = len(paths)
	return result
}

func parseDirsearchOutput(output string) (map[string]interface{}, error) {
	paths := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		// plain format: STATUS SIZE PATH
		if len(fields) >= 3 && strings.HasPrefix(fields[len(fields)-1], "/") {
			paths = append(paths, fields[len(fields)-1])
		}
	}
	return map[string]interface{}{
		domain.MetaKeyPaths: paths,
		"hits":              len(paths),
	}, nil
}

// Nuclei runs template-based vulnerability checks.
type Nuclei struct {
	base
}

// NewNuclei creates the nuclei adapter.
func NewNuclei() *Nuclei {
	return &Nuclei{base{name: "nuclei", binary: "nuclei", timeout: 600 * time.Second}}
}

// Scan runs nuclei against the target with bounded rate and concurrency.
func (n *Nuclei) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	url := target
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	rateLimit := clampInt(params.Int("rate_limit", 20), 1, 50)
	concurrency := clampInt(params.Int("concurrency", 5), 1, 10)
	args := []string{
		"-u", url,
		"-rl", fmt.Sprintf("%d", rateLimit),
		"-c", fmt.Sprintf("%d", concurrency),
		"-nc", "-silent",
	}
	if severity := params.String("severity", ""); severity != "" {
		args = append(args, "-severity", severity)
	}
	return n.runScan(ctx, target, args, n.effectiveTimeout(params), parseNucleiOutput)
}

// Simulate synthesizes a nuclei result with the live key set.
func (n *Nuclei) Simulate(target string, params Params) *domain.ToolResult {
	result := n.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("nuclei -u %s -silent (simulated - nuclei not installed)", target)
	vulns := []string{"[http-missing-security-headers] [info] " + target}
	result.Output = strings.Join(vulns, "\n")
	result.Metadata[domain.MetaKeyVulnerabilities] = vulns
	result.Metadata["matches"] = len(vulns)
	return result
}

func parseNucleiOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		// silent output prints one match per line: [template-id] [severity] target
		if strings.HasPrefix(line, "[") {
			vulns = append(vulns, line)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"matches":                     len(vulns),
	}, nil
}

// TheHarvester gathers hosts and emails from public sources.
type TheHarvester struct {
	base
}

// NewTheHarvester creates the theharvester adapter.
func NewTheHarvester() *TheHarvester {
	return &TheHarvester{base{name: "theharvester", binary: "theHarvester", timeout: 180 * time.Second}}
}

// Scan gathers OSINT for the target domain. The result limit is clamped.
func (t *TheHarvester) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	limit := clampInt(params.Int("limit", 100), 10, 500)
	source := params.String("source", "duckduckgo")
	args := []string{"-d", target, "-l", fmt.Sprintf("%d", limit), "-b", source}
	return t.runScan(ctx, target, args, t.effectiveTimeout(params), parseTheHarvesterOutput)
}

// Simulate synthesizes a harvester result with the live key set.
func (t *TheHarvester) Simulate(target string, params Params) *domain.ToolResult {
	result := t.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("theHarvester -d %s -b duckduckgo (simulated - theharvester not installed)", target)
	hosts := []string{"www." + target, "mail." + target}
	result.Output = "Hosts found:\n" + strings.Join(hosts, "\n")
	result.Metadata[domain.MetaKeyHosts] = hosts
	result.Metadata["emails"] = []string{}
	return result
}

func parseTheHarvesterOutput(output string) (map[string]interface{}, error) {
	hosts := []string{}
	emails := []string{}
	section := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Hosts found"):
			section = "hosts"
		case strings.HasPrefix(line, "Emails found"):
			section = "emails"
		case line == "" || strings.HasPrefix(line, "---"):
			// separators
		case section == "hosts":
			hosts = append(hosts, line)
		case section == "emails":
			emails = append(emails, line)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyHosts: hosts,
		"emails":            emails,
	}, nil
}
