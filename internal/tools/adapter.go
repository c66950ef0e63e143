// Package tools implements the fixed set of security tool adapters.
//
// Every adapter exposes the same capability surface: report whether its
// binary is installed, run a scan as a bounded subprocess, and synthesize a
// schema-compatible simulated result when the binary is absent. Bespoke
// output parsers stay behind this interface; a parse failure degrades to
// raw-output preservation, never a failed execution.
package tools

import (
	"context"
	"os/exec"
	"strconv"
	"time"

	"github.com/cybrty/redops/domain"
)

// Adapter is the uniform capability interface for one security tool.
type Adapter interface {
	Name() string
	IsInstalled() bool
	Timeout() time.Duration
	Scan(ctx context.Context, target string, params Params) *domain.ToolResult
	// Simulate produces a synthetic result with the same metadata key set
	// a live run would have, flagged with simulation_mode=true.
	Simulate(target string, params Params) *domain.ToolResult
}

// Params carries caller-supplied tool options. Unsafe values are clamped by
// each adapter regardless of what the caller asks for.
type Params map[string]interface{}

// String returns a string param or the default.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// Int returns an integer param or the default. JSON decoding produces
// float64, so both forms are accepted.
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Bool returns a boolean param, defaulting to false.
func (p Params) Bool(key string) bool {
	v, ok := p[key].(bool)
	return ok && v
}

// clampInt bounds v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lookPath is swapped out in tests to control installation detection.
var lookPath = exec.LookPath

// base carries the identity shared by all adapters.
type base struct {
	name    string
	binary  string
	timeout time.Duration
}

func (b base) Name() string { return b.name }

func (b base) Timeout() time.Duration { return b.timeout }

func (b base) IsInstalled() bool {
	_, err := lookPath(b.binary)
	return err == nil
}

// effectiveTimeout applies a caller override in seconds, bounded above by
// the adapter's ceiling. There is no retry and no cancellation beyond this
// bound; the timeout is the only limit on a running tool.
func (b base) effectiveTimeout(params Params) time.Duration {
	if secs := params.Int("timeout", 0); secs > 0 {
		d := time.Duration(secs) * time.Second
		if d > b.timeout {
			return b.timeout
		}
		return d
	}
	return b.timeout
}

// newResult seeds a ToolResult for this adapter. Metadata always carries
// the simulation flag so live and simulated results share a key set.
func (b base) newResult(target string, simulated bool) *domain.ToolResult {
	return &domain.ToolResult{
		ToolName: b.name,
		Target:   target,
		Metadata: map[string]interface{}{
			domain.MetaKeySimulation: simulated,
		},
		StoredAt: time.Now().UTC(),
	}
}
