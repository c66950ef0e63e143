// Package gateway provides the uniform tool execution contract.
//
// Every invocation, whatever its outcome, appends exactly one command
// execution and one tool result to the audit log. The target safety screen
// runs first; with the default policy it annotates sensitive targets and
// lets execution proceed. A missing binary routes to the adapter's
// simulated result provider instead of failing.
package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/tools"
	"github.com/cybrty/redops/policy"
	"github.com/cybrty/redops/store"
)

// Resolver resolves tool names to adapters. The registry satisfies this;
// it is resolved once at startup and never mutated.
type Resolver interface {
	Get(name string) (tools.Adapter, error)
}

// Request describes one tool invocation.
type Request struct {
	Tool      string
	Target    string
	Params    tools.Params
	SessionID string
	AgentRole domain.AgentRole
}

// Gateway executes tools through the fixed adapter set.
type Gateway struct {
	resolver    Resolver
	store       store.Store
	policy      *policy.Engine
	denyTargets []string
}

// New creates a gateway over the given adapter resolver, audit store and
// safety policy.
func New(resolver Resolver, st store.Store, policyEngine *policy.Engine, denyTargets []string) *Gateway {
	return &Gateway{
		resolver:    resolver,
		store:       st,
		policy:      policyEngine,
		denyTargets: denyTargets,
	}
}

// Execute runs one tool invocation end to end. An error return means the
// request itself was invalid (unknown tool); every tool-level failure is
// carried inside the returned ToolResult instead.
func (g *Gateway) Execute(ctx context.Context, req Request) (*domain.ToolResult, error) {
	adapter, err := g.resolver.Get(req.Tool)
	if err != nil {
		return nil, err
	}
	if req.Params == nil {
		req.Params = tools.Params{}
	}

	screen, err := g.policy.Screen(ctx, req.Tool, req.Target, g.denyTargets)
	if err != nil {
		// A broken policy engine must not stall assessments.
		log.Printf("WARN: safety screen failed for %s: %v", req.Target, err)
		screen = policy.Decision{Action: "allow"}
	}

	var result *domain.ToolResult
	switch {
	case !screen.Allowed():
		result = blockedResult(adapter.Name(), req.Target, screen.Reason)
	case !adapter.IsInstalled():
		// NotInstalled is not an error: the simulated provider produces a
		// result with the same metadata key shape as a live run.
		log.Printf("WARN: %s binary not installed, returning simulated result for %s", req.Tool, req.Target)
		result = adapter.Simulate(req.Target, req.Params)
	default:
		result = adapter.Scan(ctx, req.Target, req.Params)
	}

	if screen.Action == "warn" {
		log.Printf("WARN: target %s matches the deny-list (%s); execution proceeds", req.Target, screen.Reason)
		result.Metadata[domain.MetaKeySafetyWarning] = screen.Reason
	}

	result.ResultID = "res_" + uuid.New().String()[:8]
	result.SessionID = req.SessionID
	if result.StoredAt.IsZero() {
		result.StoredAt = time.Now().UTC()
	}

	g.record(ctx, req, result)
	return result, nil
}

// record appends the command execution and tool result pair. Store failure
// degrades to a warning: execution results are still returned to the
// caller, but the gap in the audit log is logged loudly.
func (g *Gateway) record(ctx context.Context, req Request, result *domain.ToolResult) {
	exec := &domain.CommandExecution{
		ExecutionID: "cmd_" + uuid.New().String()[:8],
		Command:     result.Command,
		Output:      result.Output,
		Success:     result.Success,
		AgentRole:   req.AgentRole,
		Tool:        result.ToolName,
		Target:      result.Target,
		SessionID:   req.SessionID,
		ExecutedAt:  result.StoredAt,
	}
	if err := g.store.AppendCommand(ctx, exec); err != nil {
		log.Printf("ERROR: failed to append command execution for %s: %v", result.ToolName, err)
	}
	if err := g.store.AppendToolResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to append tool result for %s: %v", result.ToolName, err)
	}
}

func blockedResult(tool, target, reason string) *domain.ToolResult {
	return &domain.ToolResult{
		ToolName:  tool,
		Target:    target,
		Success:   false,
		ErrorKind: domain.ErrKindSafetyWarning,
		Error:     fmt.Sprintf("execution blocked by safety policy: %s", reason),
		Command:   fmt.Sprintf("%s %s (blocked)", tool, target),
		Metadata: map[string]interface{}{
			domain.MetaKeySimulation: false,
		},
		StoredAt: time.Now().UTC(),
	}
}
