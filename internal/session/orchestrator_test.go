package session

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/advisor"
	"github.com/cybrty/redops/internal/engine"
	"github.com/cybrty/redops/internal/gateway"
	"github.com/cybrty/redops/internal/state"
	"github.com/cybrty/redops/internal/tools"
	"github.com/cybrty/redops/policy"
	"github.com/cybrty/redops/store"
)

// stubAdapter returns canned live results carrying one open port.
type stubAdapter struct{ name string }

func (s stubAdapter) Name() string           { return s.name }
func (s stubAdapter) IsInstalled() bool      { return true }
func (s stubAdapter) Timeout() time.Duration { return time.Second }

func (s stubAdapter) Scan(_ context.Context, target string, _ tools.Params) *domain.ToolResult {
	return &domain.ToolResult{
		ToolName: s.name,
		Target:   target,
		Success:  true,
		Output:   s.name + " scan of " + target,
		Command:  s.name + " " + target,
		Metadata: map[string]interface{}{
			domain.MetaKeySimulation: false,
			domain.MetaKeyOpenPorts:  []string{"80"},
		},
	}
}

func (s stubAdapter) Simulate(target string, _ tools.Params) *domain.ToolResult {
	r := s.Scan(context.Background(), target, nil)
	r.Metadata[domain.MetaKeySimulation] = true
	return r
}

type stubResolver map[string]tools.Adapter

func (r stubResolver) Get(name string) (tools.Adapter, error) {
	a, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return a, nil
}

// newTestOrchestrator wires a real engine, gateway and store around stub
// adapters for every tool the capability table can recommend.
func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	resolver := stubResolver{}
	for _, role := range engine.Roles() {
		for _, tool := range engine.RoleTools(role) {
			resolver[tool] = stubAdapter{name: tool}
		}
	}

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	aggregator := state.NewAggregator(st)
	eng := engine.New(aggregator, advisor.NewChain(), st, time.Second)
	gw := gateway.New(resolver, st, policyEngine, nil)
	return New(eng, gw, st), st
}

func TestExecuteFullRunsAllPhases(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	summary, err := orch.ExecuteFull(context.Background(), "203.0.113.60", "external", nil)
	if err != nil {
		t.Fatalf("ExecuteFull failed: %v", err)
	}
	if summary.Target != "203.0.113.60" {
		t.Fatalf("target = %q", summary.Target)
	}
	if summary.Status != domain.SessionStatusCompleted {
		t.Fatalf("status = %q, want completed", summary.Status)
	}
	// One tool per phase: nmap, sqlmap, metasploit, analysis.
	wantTools := map[string]bool{"nmap": true, "sqlmap": true, "metasploit": true, "analysis": true}
	if len(summary.ToolsRun) != len(wantTools) {
		t.Fatalf("tools run = %v", summary.ToolsRun)
	}
	for _, tool := range summary.ToolsRun {
		if !wantTools[tool] {
			t.Fatalf("unexpected tool %q in %v", tool, summary.ToolsRun)
		}
	}
	if summary.DecisionCount != 4 || summary.CommandCount != 4 {
		t.Fatalf("decisions/commands = %d/%d, want 4/4", summary.DecisionCount, summary.CommandCount)
	}
	if summary.Report == "" || !strings.Contains(summary.Report, "# Security Assessment Report") {
		t.Fatalf("expected rendered report, got %q", summary.Report)
	}
}

func TestExecuteFullRoundTripFindingCounts(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	summary, err := orch.ExecuteFull(context.Background(), "203.0.113.61", "external", nil)
	if err != nil {
		t.Fatalf("ExecuteFull failed: %v", err)
	}

	session := orch.lookup(summary.SessionID)
	if session == nil {
		t.Fatalf("session not registered")
	}
	perPhase := 0
	for i := range session.Results {
		perPhase += session.Results[i].FindingCount()
	}
	if summary.FindingCount != perPhase {
		t.Fatalf("summary findings = %d, per-phase sum = %d", summary.FindingCount, perPhase)
	}

	again, err := orch.Summary(context.Background(), summary.SessionID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if again.Target != summary.Target || again.FindingCount != summary.FindingCount {
		t.Fatalf("summary not stable: %+v vs %+v", again, summary)
	}
}

// cannedDecider returns scripted decisions, then errors.
type cannedDecider struct {
	decisions []*domain.DecisionRecord
	err       error
	calls     int
}

func (c *cannedDecider) DecideNextTask(_ context.Context, target string, role domain.AgentRole, sessionID string) (*domain.DecisionRecord, error) {
	defer func() { c.calls++ }()
	if c.calls < len(c.decisions) {
		d := *c.decisions[c.calls]
		d.Target = target
		d.AgentRole = role
		d.SessionID = sessionID
		return &d, nil
	}
	if c.err != nil {
		return nil, c.err
	}
	return &domain.DecisionRecord{Tool: "nmap", Priority: domain.PriorityHigh}, nil
}

type noopExecutor struct{ executed []string }

func (n *noopExecutor) Execute(_ context.Context, req gateway.Request) (*domain.ToolResult, error) {
	n.executed = append(n.executed, req.Tool)
	return &domain.ToolResult{
		ToolName: req.Tool,
		Target:   req.Target,
		Success:  true,
		Output:   "ok",
		Metadata: map[string]interface{}{domain.MetaKeySimulation: false},
	}, nil
}

func TestExecuteFullTerminalizesOnPhaseFailure(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	decider := &cannedDecider{
		decisions: []*domain.DecisionRecord{
			{DecisionID: "dec_1", Tool: "nmap", Priority: domain.PriorityHigh},
		},
		err: fmt.Errorf("unknown agent role"),
	}
	executor := &noopExecutor{}
	orch := New(decider, executor, st)

	summary, err := orch.ExecuteFull(context.Background(), "203.0.113.62", "external", nil)
	if err != nil {
		t.Fatalf("ExecuteFull failed: %v", err)
	}
	if summary.Status != domain.SessionStatusError {
		t.Fatalf("status = %q, want error", summary.Status)
	}

	// The first phase's result is retained, nothing rolled back.
	session := orch.lookup(summary.SessionID)
	if len(session.Results) != 2 {
		t.Fatalf("expected first phase result plus failed phase, got %d", len(session.Results))
	}
	if session.Results[0].Result == nil || session.Results[1].Error == "" {
		t.Fatalf("unexpected phase results: %+v", session.Results)
	}

	// Status is terminal: later transitions must not apply.
	orch.terminalize(session, domain.SessionStatusCompleted)
	if session.Status != domain.SessionStatusError {
		t.Fatalf("terminal status changed to %q", session.Status)
	}
}

func TestExecutePhaseSkipsOnLowPriorityUnlessForced(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	lowDecision := &domain.DecisionRecord{Tool: "nmap", Priority: domain.PriorityLow, Reasoning: "saturated"}
	decider := &cannedDecider{decisions: []*domain.DecisionRecord{lowDecision, lowDecision}}
	executor := &noopExecutor{}
	orch := New(decider, executor, st)

	result, err := orch.ExecutePhase(context.Background(), "203.0.113.63", domain.PhaseRecon, "", false, nil)
	if err != nil {
		t.Fatalf("ExecutePhase failed: %v", err)
	}
	if !result.Skipped || result.SkipReason == "" {
		t.Fatalf("expected skipped phase, got %+v", result)
	}
	if len(executor.executed) != 0 {
		t.Fatalf("skipped phase must not execute: %v", executor.executed)
	}

	forced, err := orch.ExecutePhase(context.Background(), "203.0.113.63", domain.PhaseRecon, "", true, nil)
	if err != nil {
		t.Fatalf("ExecutePhase failed: %v", err)
	}
	if forced.Skipped || forced.Result == nil {
		t.Fatalf("forced phase must execute, got %+v", forced)
	}
}

func TestExecutePhaseUnknownPhase(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	if _, err := orch.ExecutePhase(context.Background(), "t", domain.Phase("WARMUP"), "", false, nil); err == nil {
		t.Fatalf("expected error for unknown phase")
	}
}

func TestSummaryUnknownSession(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	if _, err := orch.Summary(context.Background(), "sess_missing"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestConcurrentSummariesDuringExecuteFull(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			target := fmt.Sprintf("203.0.113.%d", 70+i)
			if _, err := orch.ExecuteFull(context.Background(), target, "external", nil); err != nil {
				t.Errorf("ExecuteFull failed: %v", err)
				return
			}
		}
	}()

	// List and summarize sessions while phases are still appending results.
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		for _, s := range orch.RecentSessions(10) {
			if _, err := orch.Summary(context.Background(), s.SessionID); err != nil {
				t.Fatalf("Summary failed mid-run for %s: %v", s.SessionID, err)
			}
		}
	}

	recent := orch.RecentSessions(0)
	if len(recent) != 4 {
		t.Fatalf("expected 4 sessions, got %d", len(recent))
	}
	for _, s := range recent {
		if s.Status != domain.SessionStatusCompleted {
			t.Fatalf("session %s status = %q, want completed", s.SessionID, s.Status)
		}
	}
}

func TestRecentSessionsNewestFirst(t *testing.T) {
	orch, _ := newTestOrchestrator(t)

	for i := 0; i < 3; i++ {
		orch.register(&domain.Session{
			SessionID: fmt.Sprintf("sess_%d", i),
			CreatedAt: time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}

	recent := orch.RecentSessions(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(recent))
	}
	if recent[0].SessionID != "sess_2" || recent[1].SessionID != "sess_1" {
		t.Fatalf("wrong order: %s, %s", recent[0].SessionID, recent[1].SessionID)
	}
}
