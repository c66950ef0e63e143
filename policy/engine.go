// Package policy implements the target safety screen as an OPA policy.
//
// The default policy only ever warns: a target inside the internal or
// loopback ranges produces an annotation on the execution, never a block.
// Operators who want an actual gate opt into the blocking policy via the
// scope configuration.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of screening one target.
type Decision struct {
	Action string // allow, warn, block
	Reason string
}

// Allowed reports whether execution may proceed.
func (d Decision) Allowed() bool {
	return d.Action != "block"
}

// Engine evaluates the target safety policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.target_safety.decision"),
		rego.Module("target_safety.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Screen evaluates the policy for a tool invocation against a target.
// denyTargets supplements the built-in internal ranges with operator-defined
// literals.
func (e *Engine) Screen(ctx context.Context, toolName, target string, denyTargets []string) (Decision, error) {
	if denyTargets == nil {
		denyTargets = []string{}
	}
	input := map[string]interface{}{
		"tool_name":    toolName,
		"target":       normalizeTarget(target),
		"deny_targets": denyTargets,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: "allow"}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{Action: "allow", Reason: "unexpected policy return type"}, nil
	}

	d := Decision{Action: "allow"}
	if action, ok := obj["action"].(string); ok && action != "" {
		d.Action = action
	}
	if reason, ok := obj["reason"].(string); ok {
		d.Reason = reason
	}
	return d, nil
}

// normalizeTarget strips a URL scheme and port so CIDR checks see a bare
// host.
func normalizeTarget(target string) string {
	t := strings.TrimSpace(strings.ToLower(target))
	if i := strings.Index(t, "://"); i >= 0 {
		t = t[i+3:]
	}
	if i := strings.IndexAny(t, "/?"); i >= 0 {
		t = t[:i]
	}
	// Keep IPv6 literals intact; only strip a port from host:port forms.
	if strings.Count(t, ":") == 1 {
		t = t[:strings.Index(t, ":")]
	}
	return t
}

// warnOnlyPolicy flags internal and loopback targets but lets execution
// proceed. Faithful to the source system's behavior.
const warnOnlyPolicy = `
package target_safety

import rego.v1

internal_ranges := [
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
]

sensitive if {
	some cidr in internal_ranges
	net.cidr_contains(cidr, input.target)
}

sensitive if input.target in {"localhost", "::1"}

sensitive if input.target in {t | some t in input.deny_targets}

default decision := {"action": "allow", "reason": ""}

decision := {"action": "%s", "reason": "target matches internal/loopback deny-list"} if sensitive
`

// DefaultPolicy is the warn-only safety policy.
var DefaultPolicy = fmt.Sprintf(warnOnlyPolicy, "warn")

// BlockingPolicy hard-blocks sensitive targets instead of warning.
var BlockingPolicy = fmt.Sprintf(warnOnlyPolicy, "block")

// PolicyFor selects the policy content for the configured mode.
func PolicyFor(hardBlock bool) string {
	if hardBlock {
		return BlockingPolicy
	}
	return DefaultPolicy
}
