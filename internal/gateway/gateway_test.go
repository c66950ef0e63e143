package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/tools"
	"github.com/cybrty/redops/policy"
	"github.com/cybrty/redops/store"
)

// fakeAdapter lets tests drive every gateway path without real binaries.
type fakeAdapter struct {
	name      string
	installed bool
	scan      func(ctx context.Context, target string, params tools.Params) *domain.ToolResult
}

func (f *fakeAdapter) Name() string           { return f.name }
func (f *fakeAdapter) IsInstalled() bool      { return f.installed }
func (f *fakeAdapter) Timeout() time.Duration { return 10 * time.Second }

func (f *fakeAdapter) Scan(ctx context.Context, target string, params tools.Params) *domain.ToolResult {
	return f.scan(ctx, target, params)
}

func (f *fakeAdapter) Simulate(target string, params tools.Params) *domain.ToolResult {
	return &domain.ToolResult{
		ToolName: f.name,
		Target:   target,
		Success:  true,
		Output:   "simulated " + f.name + " run for " + target,
		Command:  f.name + " " + target + " (simulated)",
		Metadata: map[string]interface{}{
			domain.MetaKeySimulation: true,
			domain.MetaKeyOpenPorts:  []string{"80"},
		},
	}
}

type fakeResolver map[string]tools.Adapter

func (r fakeResolver) Get(name string) (tools.Adapter, error) {
	a, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return a, nil
}

func newTestGateway(t *testing.T, resolver Resolver, policyContent string) (*Gateway, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine, err := policy.NewEngine(context.Background(), policyContent)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	return New(resolver, st, engine, nil), st
}

func liveResult(name string) func(ctx context.Context, target string, params tools.Params) *domain.ToolResult {
	return func(_ context.Context, target string, _ tools.Params) *domain.ToolResult {
		return &domain.ToolResult{
			ToolName: name,
			Target:   target,
			Success:  true,
			Output:   "80/tcp open http",
			Command:  name + " " + target,
			Metadata: map[string]interface{}{
				domain.MetaKeySimulation: false,
				domain.MetaKeyOpenPorts:  []string{"80"},
			},
		}
	}
}

func TestExecuteRecordsCommandAndResult(t *testing.T) {
	ctx := context.Background()
	resolver := fakeResolver{"nmap": &fakeAdapter{name: "nmap", installed: true, scan: liveResult("nmap")}}
	gw, st := newTestGateway(t, resolver, policy.DefaultPolicy)

	result, err := gw.Execute(ctx, Request{
		Tool:      "nmap",
		Target:    "203.0.113.10",
		SessionID: "sess_1",
		AgentRole: domain.RoleRecon,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}

	commands, err := st.QueryCommands(ctx, domain.CommandFilter{SessionID: "sess_1"}, 10)
	if err != nil {
		t.Fatalf("QueryCommands failed: %v", err)
	}
	results, err := st.QueryToolResults(ctx, domain.ToolResultFilter{SessionID: "sess_1"}, 10)
	if err != nil {
		t.Fatalf("QueryToolResults failed: %v", err)
	}
	if len(commands) != 1 || len(results) != 1 {
		t.Fatalf("expected exactly one command and one result, got %d/%d", len(commands), len(results))
	}
	if commands[0].Tool != results[0].ToolName || commands[0].Target != results[0].Target {
		t.Fatalf("command/result pair mismatch")
	}
}

func TestExecuteSimulatesWhenNotInstalled(t *testing.T) {
	ctx := context.Background()
	resolver := fakeResolver{"nmap": &fakeAdapter{name: "nmap", installed: false}}
	gw, st := newTestGateway(t, resolver, policy.DefaultPolicy)

	result, err := gw.Execute(ctx, Request{Tool: "nmap", Target: "10.0.0.5"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("simulated run must report success")
	}
	if !result.Simulated() {
		t.Fatalf("expected simulation_mode=true: %+v", result.Metadata)
	}
	if result.Output == "" {
		t.Fatalf("expected non-empty simulated output")
	}
	if result.ErrorKind != domain.ErrKindNone {
		t.Fatalf("not-installed must not surface as an error, got %q", result.ErrorKind)
	}

	// The postcondition holds for simulated runs too.
	results, _ := st.QueryToolResults(ctx, domain.ToolResultFilter{Target: "10.0.0.5"}, 10)
	commands, _ := st.QueryCommands(ctx, domain.CommandFilter{Target: "10.0.0.5"}, 10)
	if len(results) != 1 || len(commands) != 1 {
		t.Fatalf("expected one command and one result, got %d/%d", len(commands), len(results))
	}
}

func TestExecuteWarnsButNeverBlocksByDefault(t *testing.T) {
	ctx := context.Background()
	resolver := fakeResolver{"nmap": &fakeAdapter{name: "nmap", installed: true, scan: liveResult("nmap")}}
	gw, _ := newTestGateway(t, resolver, policy.DefaultPolicy)

	result, err := gw.Execute(ctx, Request{Tool: "nmap", Target: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("warn-only policy must not block execution")
	}
	if _, ok := result.Metadata[domain.MetaKeySafetyWarning]; !ok {
		t.Fatalf("expected safety warning annotation: %+v", result.Metadata)
	}
}

func TestExecuteBlocksUnderHardBlockPolicy(t *testing.T) {
	ctx := context.Background()
	called := false
	resolver := fakeResolver{"nmap": &fakeAdapter{name: "nmap", installed: true,
		scan: func(ctx context.Context, target string, params tools.Params) *domain.ToolResult {
			called = true
			return liveResult("nmap")(ctx, target, params)
		}}}
	gw, st := newTestGateway(t, resolver, policy.BlockingPolicy)

	result, err := gw.Execute(ctx, Request{Tool: "nmap", Target: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if called {
		t.Fatalf("adapter must not run for a blocked target")
	}
	if result.Success || result.ErrorKind != domain.ErrKindSafetyWarning {
		t.Fatalf("expected blocked result, got %+v", result)
	}

	// Blocked executions are still audited.
	commands, _ := st.QueryCommands(ctx, domain.CommandFilter{Target: "127.0.0.1"}, 10)
	if len(commands) != 1 {
		t.Fatalf("expected blocked execution to be recorded, got %d", len(commands))
	}
	if commands[0].Success {
		t.Fatalf("blocked execution must be recorded as unsuccessful")
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	gw, st := newTestGateway(t, fakeResolver{}, policy.DefaultPolicy)

	if _, err := gw.Execute(context.Background(), Request{Tool: "ncat", Target: "t"}); err == nil {
		t.Fatalf("expected error for unknown tool")
	}
	stats, _ := st.Stats(context.Background())
	if stats.Total != 0 {
		t.Fatalf("invalid requests must not produce audit records")
	}
}

func TestExecuteRecordsFailures(t *testing.T) {
	ctx := context.Background()
	resolver := fakeResolver{"nmap": &fakeAdapter{name: "nmap", installed: true,
		scan: func(_ context.Context, target string, _ tools.Params) *domain.ToolResult {
			return &domain.ToolResult{
				ToolName:  "nmap",
				Target:    target,
				Success:   false,
				ErrorKind: domain.ErrKindTimeout,
				Error:     "command timed out after 1s",
				Command:   "nmap " + target,
				Metadata:  map[string]interface{}{domain.MetaKeySimulation: false},
			}
		}}}
	gw, st := newTestGateway(t, resolver, policy.DefaultPolicy)

	result, err := gw.Execute(ctx, Request{Tool: "nmap", Target: "203.0.113.9", SessionID: "sess_t"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success || result.ErrorKind != domain.ErrKindTimeout {
		t.Fatalf("expected timeout result, got %+v", result)
	}

	commands, _ := st.QueryCommands(ctx, domain.CommandFilter{SessionID: "sess_t"}, 10)
	if len(commands) != 1 || commands[0].Success {
		t.Fatalf("expected one unsuccessful command record, got %+v", commands)
	}
}
