// Package engine decides the next assessment task for an agent role.
//
// Decisions consume the aggregated target state and, when one is
// configured, an AI advisor. The advisor is strictly best-effort: absence,
// timeout or an unusable answer all route to a deterministic phase-based
// ranking, and the resulting decision carries a degraded flag instead of
// an error. Every decision is persisted before it is returned.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/advisor"
	"github.com/cybrty/redops/internal/state"
	"github.com/cybrty/redops/store"
)

// targetStateName is the deterministic fallback's view of assessment
// progress, derived purely from completed tool counts per phase.
type targetStateName string

const (
	stateNeedsRecon        targetStateName = "NEEDS_RECON"
	stateNeedsVulnScan     targetStateName = "NEEDS_VULN_SCAN"
	stateNeedsExploitCheck targetStateName = "NEEDS_EXPLOIT_CHECK"
	stateSaturated         targetStateName = "SATURATED"
)

// saturatedTool is the recommendation when a role's tool list is exhausted.
const saturatedTool = "none"

// Engine is the task decision engine.
type Engine struct {
	aggregator     *state.Aggregator
	advisor        advisor.Advisor
	store          store.Store
	advisorTimeout time.Duration
}

// New creates a decision engine. The advisor may be an empty chain; it is
// consulted within advisorTimeout and any failure routes to the
// deterministic fallback.
func New(aggregator *state.Aggregator, adv advisor.Advisor, st store.Store, advisorTimeout time.Duration) *Engine {
	return &Engine{
		aggregator:     aggregator,
		advisor:        adv,
		store:          st,
		advisorTimeout: advisorTimeout,
	}
}

// DecideNextTask recommends the next tool for a role against a target. The
// returned decision is persisted first; a store append failure is logged
// and the decision still returned, so decision-making survives audit log
// outages. The only error return is an unknown agent role.
func (e *Engine) DecideNextTask(ctx context.Context, target string, role domain.AgentRole, sessionID string) (*domain.DecisionRecord, error) {
	tools, ok := roleTools[role]
	if !ok {
		return nil, fmt.Errorf("unknown agent role %q", role)
	}

	aggregate := e.aggregator.Aggregate(ctx, target, sessionID)
	untried := filterUntried(tools, aggregate)

	decision := &domain.DecisionRecord{
		DecisionID: "dec_" + uuid.New().String()[:8],
		SessionID:  sessionID,
		AgentRole:  role,
		Target:     target,
		CreatedAt:  time.Now().UTC(),
	}

	if ranked, err := e.consultAdvisor(ctx, target, role, untried, aggregate); err == nil {
		top := ranked[0]
		decision.Tool = top.Tool
		decision.Priority = top.Priority
		decision.Reasoning = top.Reasoning
	} else {
		e.applyFallback(decision, tools, untried, aggregate)
	}

	if err := e.store.AppendDecision(ctx, decision); err != nil {
		log.Printf("ERROR: failed to persist decision %s for %s: %v", decision.DecisionID, target, err)
	}
	return decision, nil
}

// consultAdvisor asks the advisor chain for a ranking within the
// configured timeout. Empty candidate lists skip the advisor entirely: a
// saturated role is a deterministic outcome.
func (e *Engine) consultAdvisor(ctx context.Context, target string, role domain.AgentRole, untried []string, aggregate *domain.TargetState) ([]advisor.Candidate, error) {
	if e.advisor == nil || len(untried) == 0 {
		return nil, advisor.ErrUnavailable
	}

	advisorCtx, cancel := context.WithTimeout(ctx, e.advisorTimeout)
	defer cancel()

	ranked, err := e.advisor.Advise(advisorCtx, advisor.Input{
		Target:         target,
		AgentRole:      role,
		Candidates:     untried,
		CompletedTools: aggregate.CompletedTools,
		FindingCount:   len(aggregate.Findings),
		VulnCount:      len(aggregate.Vulnerabilities),
	})
	if err != nil {
		log.Printf("WARN: advisor unavailable for %s, using deterministic fallback: %v", target, err)
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, advisor.ErrUnavailable
	}
	return ranked, nil
}

// applyFallback fills the decision deterministically. Priority is high for
// the first tool of the role list when untried, medium for later untried
// tools, low once the list is exhausted. Tie-break is list position: the
// earliest untried tool wins.
func (e *Engine) applyFallback(decision *domain.DecisionRecord, tools, untried []string, aggregate *domain.TargetState) {
	decision.Degraded = true
	phaseState := deriveState(aggregate)

	if len(untried) == 0 {
		decision.Tool = saturatedTool
		decision.Priority = domain.PriorityLow
		decision.Reasoning = fmt.Sprintf(
			"deterministic fallback: %s for %s has run every primary tool (%s); target state %s, no further actions",
			decision.AgentRole, decision.Target, strings.Join(tools, ", "), stateSaturated)
		return
	}

	chosen := untried[0]
	decision.Tool = chosen
	if chosen == tools[0] {
		decision.Priority = domain.PriorityHigh
	} else {
		decision.Priority = domain.PriorityMedium
	}
	decision.Reasoning = fmt.Sprintf(
		"deterministic fallback: target state %s; %s is the earliest untried primary tool for %s",
		phaseState, chosen, decision.AgentRole)
}

// deriveState classifies overall target progress from completed tool
// counts per phase, independent of the requesting role.
func deriveState(aggregate *domain.TargetState) targetStateName {
	phases := []struct {
		role  domain.AgentRole
		state targetStateName
	}{
		{domain.RoleRecon, stateNeedsRecon},
		{domain.RoleVulnAssess, stateNeedsVulnScan},
		{domain.RoleExploitation, stateNeedsExploitCheck},
	}
	for _, p := range phases {
		if completedCount(roleTools[p.role], aggregate) < len(roleTools[p.role]) {
			return p.state
		}
	}
	return stateSaturated
}

func completedCount(tools []string, aggregate *domain.TargetState) int {
	n := 0
	for _, tool := range tools {
		if aggregate.Completed(tool) {
			n++
		}
	}
	return n
}

func filterUntried(tools []string, aggregate *domain.TargetState) []string {
	untried := make([]string, 0, len(tools))
	for _, tool := range tools {
		if !aggregate.Completed(tool) {
			untried = append(untried, tool)
		}
	}
	return untried
}
