package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/advisor"
	"github.com/cybrty/redops/internal/state"
	"github.com/cybrty/redops/store"
)

func newTestEngine(t *testing.T, adv advisor.Advisor) (*Engine, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(state.NewAggregator(st), adv, st, time.Second), st
}

func markCompleted(t *testing.T, st store.Store, target string, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		err := st.AppendToolResult(context.Background(), &domain.ToolResult{
			ResultID: "res_" + tool,
			ToolName: tool,
			Target:   target,
			Success:  true,
			Output:   "output",
			Metadata: map[string]interface{}{domain.MetaKeySimulation: false},
		})
		if err != nil {
			t.Fatalf("failed to seed result: %v", err)
		}
	}
}

func TestDecideEmptyHistoryRecommendsFirstReconTool(t *testing.T) {
	eng, st := newTestEngine(t, advisor.NewChain())

	decision, err := eng.DecideNextTask(context.Background(), "127.0.0.1", domain.RoleRecon, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Tool != "nmap" {
		t.Fatalf("tool = %q, want nmap", decision.Tool)
	}
	if decision.Priority != domain.PriorityHigh {
		t.Fatalf("priority = %q, want high", decision.Priority)
	}
	if !decision.Degraded {
		t.Fatalf("fallback decision must carry the degraded flag")
	}

	// Persisted before return.
	records, err := st.QueryDecisions(context.Background(), domain.DecisionFilter{Target: "127.0.0.1"}, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].DecisionID != decision.DecisionID {
		t.Fatalf("expected persisted decision, got %+v", records)
	}
}

func TestDecideSaturatedRole(t *testing.T) {
	eng, st := newTestEngine(t, advisor.NewChain())
	markCompleted(t, st, "203.0.113.50", "nmap", "nikto", "enum4linux")

	decision, err := eng.DecideNextTask(context.Background(), "203.0.113.50", domain.RoleRecon, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Priority != domain.PriorityLow {
		t.Fatalf("priority = %q, want low", decision.Priority)
	}
	if !strings.Contains(decision.Reasoning, "SATURATED") {
		t.Fatalf("reasoning should mention saturation: %q", decision.Reasoning)
	}
	if decision.Tool != saturatedTool {
		t.Fatalf("tool = %q, want %q", decision.Tool, saturatedTool)
	}
}

func TestDecideLaterUntriedToolIsMedium(t *testing.T) {
	eng, st := newTestEngine(t, advisor.NewChain())
	markCompleted(t, st, "203.0.113.51", "nmap")

	decision, err := eng.DecideNextTask(context.Background(), "203.0.113.51", domain.RoleRecon, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Tool != "nikto" {
		t.Fatalf("tool = %q, want nikto (earliest untried)", decision.Tool)
	}
	if decision.Priority != domain.PriorityMedium {
		t.Fatalf("priority = %q, want medium", decision.Priority)
	}
}

func TestDecideIsDeterministicWithoutAdvisor(t *testing.T) {
	eng, st := newTestEngine(t, advisor.NewChain())
	markCompleted(t, st, "203.0.113.52", "nmap")

	first, err := eng.DecideNextTask(context.Background(), "203.0.113.52", domain.RoleVulnAssess, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := eng.DecideNextTask(context.Background(), "203.0.113.52", domain.RoleVulnAssess, "")
		if err != nil {
			t.Fatalf("decide failed: %v", err)
		}
		if next.Tool != first.Tool || next.Priority != first.Priority || next.Reasoning != first.Reasoning {
			t.Fatalf("decision changed across calls: %+v vs %+v", first, next)
		}
	}
}

func TestDecideUsesAdvisorWhenAvailable(t *testing.T) {
	eng, _ := newTestEngine(t, advisor.NewChain(advisor.NewMockClient()))

	decision, err := eng.DecideNextTask(context.Background(), "203.0.113.53", domain.RoleRecon, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if decision.Degraded {
		t.Fatalf("advisor-backed decision must not be degraded")
	}
	if decision.Tool != "nmap" {
		t.Fatalf("tool = %q, want nmap", decision.Tool)
	}
	if decision.Reasoning == "" {
		t.Fatalf("advisor decisions carry reasoning")
	}
}

// slowAdvisor blocks until its context is cancelled.
type slowAdvisor struct{}

func (slowAdvisor) Advise(ctx context.Context, _ advisor.Input) ([]advisor.Candidate, error) {
	<-ctx.Done()
	return nil, advisor.ErrUnavailable
}

func TestDecideAdvisorTimeoutFallsBack(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()
	eng := New(state.NewAggregator(st), slowAdvisor{}, st, 20*time.Millisecond)

	start := time.Now()
	decision, err := eng.DecideNextTask(context.Background(), "203.0.113.54", domain.RoleRecon, "")
	if err != nil {
		t.Fatalf("decide failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("advisor timeout not enforced, took %v", elapsed)
	}
	if !decision.Degraded || decision.Tool != "nmap" {
		t.Fatalf("expected degraded fallback decision, got %+v", decision)
	}
}

func TestDecideUnknownRole(t *testing.T) {
	eng, st := newTestEngine(t, advisor.NewChain())

	if _, err := eng.DecideNextTask(context.Background(), "t", domain.AgentRole("Pastry Chef"), ""); err == nil {
		t.Fatalf("expected error for unknown role")
	}
	records, _ := st.QueryDecisions(context.Background(), domain.DecisionFilter{}, 10)
	if len(records) != 0 {
		t.Fatalf("invalid requests must not persist decisions")
	}
}

func TestRoleForPhase(t *testing.T) {
	role, ok := RoleForPhase(domain.PhaseVulnAssessment)
	if !ok || role != domain.RoleVulnAssess {
		t.Fatalf("RoleForPhase = %q, %v", role, ok)
	}
	if _, ok := RoleForPhase(domain.Phase("WARMUP")); ok {
		t.Fatalf("unknown phase must not resolve")
	}
}

func TestRoleToolsReturnsCopy(t *testing.T) {
	tools := RoleTools(domain.RoleRecon)
	if len(tools) != 3 || tools[0] != "nmap" {
		t.Fatalf("unexpected recon tools: %v", tools)
	}
	tools[0] = "mutated"
	if RoleTools(domain.RoleRecon)[0] != "nmap" {
		t.Fatalf("capability table must be immutable")
	}
}
