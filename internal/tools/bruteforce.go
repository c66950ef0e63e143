package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Hydra brute-forces network service logins.
type Hydra struct {
	base
}

// NewHydra creates the hydra adapter.
func NewHydra() *Hydra {
	return &Hydra{base{name: "hydra", binary: "hydra", timeout: 600 * time.Second}}
}

// Scan attempts a credential audit against one service on the target.
// Thread count is clamped so a caller cannot turn this into a flood.
func (h *Hydra) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	service := params.String("service", "ssh")
	threads := clampInt(params.Int("threads", 4), 1, 16)
	userList := params.String("user_list", "/usr/share/wordlists/users.txt")
	passList := params.String("pass_list", "/usr/share/wordlists/rockyou.txt")
	args := []string{
		"-L", userList,
		"-P", passList,
		"-t", fmt.Sprintf("%d", threads),
		"-f",
		target, service,
	}
	return h.runScan(ctx, target, args, h.effectiveTimeout(params), parseHydraOutput)
}

// Simulate synthesizes a hydra result with the live key set.
func (h *Hydra) Simulate(target string, params Params) *domain.ToolResult {
	result := h.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("hydra %s ssh (simulated - hydra not installed)", target)
	result.Output = fmt.Sprintf("Simulated hydra audit for %s\n0 valid passwords found", target)
	result.Metadata[domain.MetaKeyCredentials] = []string{}
	result.Metadata["attempts"] = 0
	return result
}

func parseHydraOutput(output string) (map[string]interface{}, error) {
	creds := []string{}
	attempts := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		// hydra prints hits as: [22][ssh] host: X login: Y password: Z
		if strings.Contains(line, "login:") && strings.Contains(line, "password:") {
			creds = append(creds, line)
		}
		if strings.Contains(line, "attack finished") {
			attempts++
		}
	}
	return map[string]interface{}{
		domain.MetaKeyCredentials: creds,
		"attempts":                attempts,
	}, nil
}

// John cracks password hashes with John the Ripper.
type John struct {
	base
}

// NewJohn creates the john adapter.
func NewJohn() *John {
	return &John{base{name: "john", binary: "john", timeout: 600 * time.Second}}
}

// Scan runs john against a hash file given in params. The fork count is
// clamped to keep CPU usage bounded.
func (j *John) Scan(ctx context.Context, target string, params Params) *domain.ToolResult {
	hashFile := params.String("hash_file", target)
	forks := clampInt(params.Int("forks", 1), 1, 4)
	args := []string{
		"--wordlist=" + params.String("wordlist", "/usr/share/wordlists/rockyou.txt"),
		fmt.Sprintf("--fork=%d", forks),
		hashFile,
	}
	return j.runScan(ctx, target, args, j.effectiveTimeout(params), parseJohnOutput)
}

// Simulate synthesizes a john result with the live key set.
func (j *John) Simulate(target string, params Params) *domain.ToolResult {
	result := j.newResult(target, true)
	result.Success = true
	result.Command = fmt.Sprintf("john %s (simulated - john not installed)", target)
	result.Output = "Simulated john run\n0 password hashes cracked, 0 left"
	result.Metadata[domain.MetaKeyCredentials] = []string{}
	result.Metadata["cracked"] = 0
	return result
}

func parseJohnOutput(output string) (map[string]interface{}, error) {
	creds := []string{}
	cracked := 0
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "password hashes cracked") {
			fmt.Sscanf(line, "%d password hashes cracked", &cracked)
			continue
		}
		// Cracked entries print as: password (user)
		if strings.HasSuffix(line, ")") && strings.Contains(line, " (") && !strings.HasPrefix(line, "Loaded") {
			creds = append(creds, line)
		}
	}
	return map[string]interface{}{
		domain.MetaKeyCredentials: creds,
		"cracked":                 cracked,
	}, nil
}
