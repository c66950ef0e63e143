package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Sqlmap tests for SQL injection.
type Sqlmap struct {
	base
}

// NewSqlmap creates the sqlmap adapter.
func NewSqlmap() *Sqlmap {
	return &Sqlmap{base{name: "sqlmap", binary: "sqlmap", timeout: 600 * time.Second}}
}

// Scan probes the target URL for injectable parameters. Risk, level and
// thread count are clamped to gentle ceilings regardless of caller input.
func (s *Sqlmap) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	url := target
	if !strings.Contains(url, "://") {
		url = "http://" + url
	}
	risk := clampInt(params.Int("risk", 1), 1, 2)
	level := clampInt(params.Int("level", 1), 1, 3)
	threads := clampInt(params.Int("threads", 1), 1, 4)
	args := []string{
		"-u", url,
		"--batch",
		"--risk", fmt.Sprintf("%d", risk),
		"--level", fmt.Sprintf("%d", level),
		"--threads", fmt.Sprintf("%d", threads),
	}
	if params.Bool("dbs") {
		args = append(args, "--dbs")
	}
	return s.runScan(ctx, target, args, s.effectiveTimeout(params), parseSqlmapOutput)
}

// Simulate synthesizes a sqlmap result with the live key set.
func (s *Sqlmap) Simulate(target string, params Params) *domain.ToolResult {
	result := s.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("sqlmap -u %s --batch (simulated - sqlmap not installed)", target)
	result.Output = fmt.Sprintf("Simulated sqlmap probe for %s\nall tested parameters do not appear to be injectable", target)
	result.Metadata[domain.MetaKeyVulnerabilities] = []string{}
	result.Metadata["injectable"] = false
	result.Metadata["dbms"] = ""
	return result
}

func parseSqlmapOutput(output string) (map[string]interface{}, error) {
	vulns := []string{}
	injectable := false
	dbms := ""
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "is vulnerable") || strings.Contains(line, "appears to be injectable") {
			injectable = true
			vulns = append(vulns, line)
		}
		if strings.Contains(line, "back-end DBMS:") {
			dbms = strings.TrimSpace(strings.SplitN(line, "back-end DBMS:", 2)[1])
		}
	}
	return map[string]interface{}{
		domain.MetaKeyVulnerabilities: vulns,
		"injectable":                  injectable,
		"dbms":                        dbms,
	}, nil
}
