package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// runScan executes the adapter's command as a bounded subprocess and folds
// the outcome into a ToolResult. parse extracts structured metadata from
// the raw output; when it fails the raw output is kept and the result stays
// successful with partially empty metadata.
func (b base) runScan(ctx context.Context, target string, args []string, timeout time.Duration, parse func(output string) (map[string]interface{}, error)) *domain.ToolResult {
	result := b.newResult(target, false)
	result.Command = b.binary + " " + strings.Join(args, " ")

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, b.binary, args...)
	output, err := cmd.CombinedOutput()
	result.Output = strings.TrimSpace(string(output))

	if runCtx.Err() == context.DeadlineExceeded {
		result.Success = false
		result.ErrorKind = domain.ErrKindTimeout
		result.Error = fmt.Sprintf("command timed out after %s", timeout)
		return result
	}
	if err != nil {
		result.Success = false
		result.ErrorKind = domain.ErrKindExecution
		result.Error = err.Error()
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	result.Success = true
	if parse != nil {
		meta, parseErr := parse(result.Output)
		if parseErr != nil {
			// Raw output is preserved; structured metadata stays empty.
			result.ErrorKind = domain.ErrKindParse
			result.Error = fmt.Sprintf("output parse failed: %v", parseErr)
			return result
		}
		for k, v := range meta {
			result.Metadata[k] = v
		}
	}
	return result
}
