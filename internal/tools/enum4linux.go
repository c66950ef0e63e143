package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Enum4linux enumerates SMB/NetBIOS shares, users and groups.
type Enum4linux struct {
	base
}

// NewEnum4linux creates the enum4linux adapter.
func NewEnum4linux() *Enum4linux {
	return &Enum4linux{base{name: "enum4linux", binary: "enum4linux", timeout: 120 * time.Second}}
}

// Scan enumerates the target. Without a specific aspect requested it runs
// the full -a enumeration.
func (e *Enum4linux) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	var args []string
	switch {
	case params.Bool("users"):
		args = []string{"-U"}
	case params.Bool("shares"):
		args = []string{"-S"}
	case params.Bool("groups"):
		args = []string{"-G"}
	default:
		args = []string{"-a"}
	}
	args = append(args, target)
	return e.runScan(ctx, target, args, e.effectiveTimeout(params), parseEnum4linuxOutput)
}

// Simulate synthesizes an enumeration result with the live key set.
func (e *Enum4linux) Simulate(target string, params Params) *domain.ToolResult {
	result := e.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("enum4linux -a %s (simulated - enum4linux not installed)", target)
	result.Output = fmt.Sprintf("Simulated enum4linux enumeration for %s\nSharename: IPC$ Type: IPC\nSharename: C$ Type: Disk", target)
	result.Metadata[domain.MetaKeyShares] = []string{"IPC$", "C$"}
	result.Metadata[domain.MetaKeyUsers] = []string{"Administrator", "Guest"}
	result.Metadata["groups"] = []string{"Administrators", "Users"}
	result.Metadata["os_info"] = ""
	return result
}

var enumUserPattern = regexp.MustCompile(`user:\[([^\]]+)\]`)

func parseEnum4linuxOutput(output string) (map[string]interface{}, error) {
	shares := []string{}
	users := []string{}
	groups := []string{}
	osInfo := ""

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Sharename:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				shares = append(shares, fields[1])
			}
		}
		if m := enumUserPattern.FindStringSubmatch(line); m != nil {
			users = append(users, m[1])
		}
		if strings.HasPrefix(line, "group:") {
			if start := strings.Index(line, "["); start >= 0 {
				if end := strings.Index(line[start:], "]"); end > 0 {
					groups = append(groups, line[start+1:start+end])
				}
			}
		}
		if strings.Contains(line, "OS=") {
			osInfo = strings.SplitN(strings.SplitN(line, "OS=", 2)[1], ",", 2)[0]
		}
	}

	return map[string]interface{}{
		domain.MetaKeyShares: shares,
		domain.MetaKeyUsers:  users,
		"groups":             groups,
		"os_info":            osInfo,
	}, nil
}
