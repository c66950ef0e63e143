// Package service wires the assessment components behind one facade
// consumed by the HTTP and CLI layers.
package service

import (
	"context"
	"fmt"

	"github.com/cybrty/redops/config"
	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/internal/advisor"
	"github.com/cybrty/redops/internal/engine"
	"github.com/cybrty/redops/internal/gateway"
	"github.com/cybrty/redops/internal/session"
	"github.com/cybrty/redops/internal/state"
	"github.com/cybrty/redops/internal/tools"
	"github.com/cybrty/redops/policy"
	"github.com/cybrty/redops/store"
)

// Service is the outward facade over the assessment core.
type Service struct {
	store        store.Store
	registry     *tools.Registry
	gateway      *gateway.Gateway
	engine       *engine.Engine
	orchestrator *session.Orchestrator
	config       *config.Config
}

// New assembles the full component stack for a configuration.
func New(ctx context.Context, cfg *config.Config, st store.Store) (*Service, error) {
	policyEngine, err := policy.NewEngine(ctx, policy.PolicyFor(cfg.Scope.HardBlock))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize safety policy: %w", err)
	}

	registry := tools.NewRegistry()
	gw := gateway.New(registry, st, policyEngine, cfg.Scope.DenyTargets)
	aggregator := state.NewAggregator(st)
	eng := engine.New(aggregator, advisor.NewFromConfig(cfg), st, cfg.AdvisorTimeout)
	orch := session.New(eng, gw, st)

	return &Service{
		store:        st,
		registry:     registry,
		gateway:      gw,
		engine:       eng,
		orchestrator: orch,
		config:       cfg,
	}, nil
}

// ExecuteFullPentest runs all phases against a target.
func (s *Service) ExecuteFullPentest(ctx context.Context, target, scope string, params tools.Params) (*domain.SessionSummary, error) {
	return s.orchestrator.ExecuteFull(ctx, target, scope, params)
}

// ExecuteSinglePhase runs one phase against a target.
func (s *Service) ExecuteSinglePhase(ctx context.Context, target string, phase domain.Phase, sessionID string, force bool, params tools.Params) (*domain.PhaseResult, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	return s.orchestrator.ExecutePhase(ctx, target, phase, sessionID, force, params)
}

// DecideNextTask recommends the next tool for a role without executing it.
func (s *Service) DecideNextTask(ctx context.Context, target string, role domain.AgentRole) (*domain.DecisionRecord, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	return s.engine.DecideNextTask(ctx, target, role, "")
}

// ExecuteTool runs one tool directly through the gateway.
func (s *Service) ExecuteTool(ctx context.Context, tool, target string, params tools.Params) (*domain.ToolResult, error) {
	if target == "" {
		return nil, fmt.Errorf("target is required")
	}
	return s.gateway.Execute(ctx, gateway.Request{Tool: tool, Target: target, Params: params})
}

// GetSessionSummary assembles the read-only summary for one session.
func (s *Service) GetSessionSummary(ctx context.Context, sessionID string) (*domain.SessionSummary, error) {
	return s.orchestrator.Summary(ctx, sessionID)
}

// GetRecentSessions lists recently created sessions, newest first.
func (s *Service) GetRecentSessions(limit int) []domain.Session {
	return s.orchestrator.RecentSessions(limit)
}

// GetAgentActions queries persisted decision records.
func (s *Service) GetAgentActions(ctx context.Context, filter domain.DecisionFilter, limit int) ([]domain.DecisionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.QueryDecisions(ctx, filter, limit)
}

// GetCommandExecutions queries persisted command executions.
func (s *Service) GetCommandExecutions(ctx context.Context, filter domain.CommandFilter, limit int) ([]domain.CommandExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.QueryCommands(ctx, filter, limit)
}

// GetToolResults queries persisted tool results.
func (s *Service) GetToolResults(ctx context.Context, filter domain.ToolResultFilter, limit int) ([]domain.ToolResult, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.QueryToolResults(ctx, filter, limit)
}

// GetDatabaseStats reports per-collection audit log counts.
func (s *Service) GetDatabaseStats(ctx context.Context) (*domain.StoreStats, error) {
	return s.store.Stats(ctx)
}

// ToolInfo describes one registered tool adapter for listings.
type ToolInfo struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	TimeoutS  int    `json:"timeout_seconds"`
}

// ListTools reports every registered adapter and its availability.
func (s *Service) ListTools() []ToolInfo {
	names := s.registry.Names()
	infos := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		adapter, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		infos = append(infos, ToolInfo{
			Name:      name,
			Installed: adapter.IsInstalled(),
			TimeoutS:  int(adapter.Timeout().Seconds()),
		})
	}
	return infos
}

// AgentInfo describes one agent role and its primary tools.
type AgentInfo struct {
	Role         domain.AgentRole `json:"role"`
	PrimaryTools []string         `json:"primary_tools"`
}

// ListAgents reports the static role capability table.
func (s *Service) ListAgents() []AgentInfo {
	roles := engine.Roles()
	infos := make([]AgentInfo, 0, len(roles))
	for _, role := range roles {
		infos = append(infos, AgentInfo{Role: role, PrimaryTools: engine.RoleTools(role)})
	}
	return infos
}
