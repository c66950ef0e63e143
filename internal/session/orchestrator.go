// Package session drives the assessment phase state machine.
//
// A session walks RECON, VULN_ASSESSMENT, EXPLOITATION and REPORTING in
// order, asking the decision engine for the next tool and executing it
// through the gateway. Session status is monotonic: once completed or
// error, it never changes. Phase failure terminalizes the session with its
// partial results retained; nothing is rolled back.
package session

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/engine"
	"github.com/cybrty/redops/internal/gateway"
	"github.com/cybrty/redops/internal/tools"
	"github.com/cybrty/redops/store"
)

// Executor runs one tool invocation. The gateway satisfies this.
type Executor interface {
	Execute(ctx context.Context, req gateway.Request) (*domain.ToolResult, error)
}

// Decider recommends the next task for a role. The decision engine
// satisfies this.
type Decider interface {
	DecideNextTask(ctx context.Context, target string, role domain.AgentRole, sessionID string) (*domain.DecisionRecord, error)
}

// Orchestrator owns sessions for their lifetime. Completed sessions stay
// in memory for summary listing; the durable record is the audit log.
type Orchestrator struct {
	decider  Decider
	executor Executor
	store    store.Store

	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// New creates a session orchestrator.
func New(decider Decider, executor Executor, st store.Store) *Orchestrator {
	return &Orchestrator{
		decider:  decider,
		executor: executor,
		store:    st,
		sessions: make(map[string]*domain.Session),
	}
}

// ExecuteFull runs every phase against a target and returns the assembled
// session summary. A phase-level unhandled failure terminalizes the
// session as error; earlier phase results are retained.
func (o *Orchestrator) ExecuteFull(ctx context.Context, target, scope string, params tools.Params) (*domain.SessionSummary, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}

	session := &domain.Session{
		SessionID: "sess_" + uuid.New().String()[:8],
		Target:    target,
		Scope:     scope,
		Phases:    append([]domain.Phase(nil), domain.DefaultPhases...),
		Status:    domain.SessionStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	o.register(session)

	log.Printf("session %s started against %s", session.SessionID, target)

	for _, phase := range session.Phases {
		result := o.runPhase(ctx, session, phase, false, params)
		o.appendResult(session, result)
		if result.Error != "" {
			log.Printf("ERROR: session %s phase %s failed: %s", session.SessionID, phase, result.Error)
			o.terminalize(session, domain.SessionStatusError)
			return o.summarize(ctx, session)
		}
	}

	o.terminalize(session, domain.SessionStatusCompleted)
	log.Printf("session %s completed", session.SessionID)
	return o.summarize(ctx, session)
}

// ExecutePhase runs a single phase, outside or inside a session. With
// force set, a low-priority recommendation still executes instead of
// skipping the phase.
func (o *Orchestrator) ExecutePhase(ctx context.Context, target string, phase domain.Phase, sessionID string, force bool, params tools.Params) (*domain.PhaseResult, error) {
	if _, ok := engine.RoleForPhase(phase); !ok {
		return nil, fmt.Errorf("unknown phase %q", phase)
	}
	session := o.lookup(sessionID)
	if session == nil {
		// Ad hoc phase: results are audited under the given session id
		// (possibly empty) without session bookkeeping.
		session = &domain.Session{SessionID: sessionID, Target: target}
	}
	result := o.runPhase(ctx, session, phase, force, params)
	return result, nil
}

// runPhase executes one phase step: decide, then skip, report or execute.
func (o *Orchestrator) runPhase(ctx context.Context, session *domain.Session, phase domain.Phase, force bool, params tools.Params) *domain.PhaseResult {
	role, _ := engine.RoleForPhase(phase)
	result := &domain.PhaseResult{
		Phase:     phase,
		AgentRole: role,
		StartedAt: time.Now().UTC(),
	}
	defer func() { result.CompletedAt = time.Now().UTC() }()

	decision, err := o.decider.DecideNextTask(ctx, session.Target, role, session.SessionID)
	if err != nil {
		result.Error = fmt.Sprintf("decision failed: %v", err)
		return result
	}
	result.Decision = decision

	if decision.Priority == domain.PriorityLow && !force {
		result.Skipped = true
		result.SkipReason = decision.Reasoning
		log.Printf("session %s skipping phase %s: low priority", session.SessionID, phase)
		return result
	}

	if phase == domain.PhaseReporting {
		result.Result = o.runReporting(ctx, session, decision)
		return result
	}

	toolResult, err := o.executor.Execute(ctx, gateway.Request{
		Tool:      decision.Tool,
		Target:    session.Target,
		Params:    params,
		SessionID: session.SessionID,
		AgentRole: role,
	})
	if err != nil {
		result.Error = fmt.Sprintf("execution failed: %v", err)
		return result
	}
	result.Result = toolResult
	return result
}

// runReporting renders the markdown report from the audit log so far and
// records it like any other tool invocation.
func (o *Orchestrator) runReporting(ctx context.Context, session *domain.Session, decision *domain.DecisionRecord) *domain.ToolResult {
	summary, err := o.Summary(ctx, session.SessionID)
	if err != nil {
		summary = &domain.SessionSummary{SessionID: session.SessionID, Target: session.Target}
	}
	report := RenderReport(summary)

	now := time.Now().UTC()
	result := &domain.ToolResult{
		ResultID:  "res_" + uuid.New().String()[:8],
		ToolName:  decision.Tool,
		Target:    session.Target,
		Success:   true,
		Output:    report,
		Command:   fmt.Sprintf("%s %s (report)", decision.Tool, session.Target),
		SessionID: session.SessionID,
		StoredAt:  now,
		Metadata: map[string]interface{}{
			domain.MetaKeySimulation: false,
			"report_format":          "markdown",
		},
	}
	exec := &domain.CommandExecution{
		ExecutionID: "cmd_" + uuid.New().String()[:8],
		Command:     result.Command,
		Output:      report,
		Success:     true,
		AgentRole:   domain.RoleReporting,
		Tool:        decision.Tool,
		Target:      session.Target,
		SessionID:   session.SessionID,
		ExecutedAt:  now,
	}
	if err := o.store.AppendCommand(ctx, exec); err != nil {
		log.Printf("ERROR: failed to append report command: %v", err)
	}
	if err := o.store.AppendToolResult(ctx, result); err != nil {
		log.Printf("ERROR: failed to append report result: %v", err)
	}
	return result
}

// Summary assembles a read-only view of a session from the audit log.
func (o *Orchestrator) Summary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	decisions, err := o.store.QueryDecisions(ctx, domain.DecisionFilter{SessionID: sessionID}, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	commands, err := o.store.QueryCommands(ctx, domain.CommandFilter{SessionID: sessionID}, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	results, err := o.store.QueryToolResults(ctx, domain.ToolResultFilter{SessionID: sessionID}, 500)
	if err != nil {
		return nil, fmt.Errorf("failed to query tool results: %w", err)
	}

	summary := &domain.SessionSummary{
		SessionID:     sessionID,
		DecisionCount: len(decisions),
		CommandCount:  len(commands),
	}

	session := o.snapshot(sessionID)
	switch {
	case session != nil:
		summary.Target = session.Target
		summary.Status = session.Status
		summary.StartedAt = session.CreatedAt
		summary.CompletedAt = session.CompletedAt
	case len(decisions) == 0 && len(commands) == 0 && len(results) == 0:
		return nil, fmt.Errorf("session %s not found", sessionID)
	default:
		// Historic session known only from the audit log.
		summary.Status = domain.SessionStatusCompleted
	}

	seen := map[string]bool{}
	for i := len(results) - 1; i >= 0; i-- {
		r := &results[i]
		if summary.Target == "" {
			summary.Target = r.Target
		}
		if summary.StartedAt.IsZero() || r.StoredAt.Before(summary.StartedAt) {
			summary.StartedAt = r.StoredAt
		}
		if !seen[r.ToolName] {
			seen[r.ToolName] = true
			summary.ToolsRun = append(summary.ToolsRun, r.ToolName)
		}
		if !r.Success {
			continue
		}
		summary.Findings = append(summary.Findings, domain.ExtractFindings(r)...)
		summary.Vulnerabilities = append(summary.Vulnerabilities, domain.ExtractVulnerabilities(r)...)
	}
	summary.FindingCount = len(summary.Findings)
	return summary, nil
}

// RecentSessions lists the most recently created sessions, newest first.
func (o *Orchestrator) RecentSessions(limit int) []domain.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		sessions = append(sessions, *cloneSession(s))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions
}

// summarize builds the outward summary for a finished (or terminalized)
// session, attaching the rendered report when the reporting phase ran.
func (o *Orchestrator) summarize(ctx context.Context, session *domain.Session) (*domain.SessionSummary, error) {
	summary, err := o.Summary(ctx, session.SessionID)
	if err != nil {
		return nil, err
	}
	for i := range session.Results {
		r := &session.Results[i]
		if r.Phase == domain.PhaseReporting && r.Result != nil {
			summary.Report = r.Result.Output
		}
	}
	return summary, nil
}

func (o *Orchestrator) register(session *domain.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions[session.SessionID] = session
}

func (o *Orchestrator) lookup(sessionID string) *domain.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sessions[sessionID]
}

// appendResult records a finished phase on the session. Appends take the
// write lock so concurrent summary listings see a consistent slice.
func (o *Orchestrator) appendResult(session *domain.Session, result *domain.PhaseResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	session.Results = append(session.Results, *result)
}

// snapshot returns a copy of a registered session that is safe to read
// without the lock, or nil when the session is unknown.
func (o *Orchestrator) snapshot(sessionID string) *domain.Session {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return nil
	}
	return cloneSession(s)
}

// cloneSession copies a session including its phase-result slice. Callers
// must hold o.mu.
func cloneSession(s *domain.Session) *domain.Session {
	clone := *s
	clone.Results = append([]domain.PhaseResult(nil), s.Results...)
	return &clone
}

func (o *Orchestrator) terminalize(session *domain.Session, status domain.SessionStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	session.SetStatus(status)
	if session.CompletedAt == nil {
		now := time.Now().UTC()
		session.CompletedAt = &now
	}
}
