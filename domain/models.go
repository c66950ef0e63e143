package domain

import (
	"time"
)

// Session represents one orchestrated assessment against a target. It is
// owned exclusively by the session orchestrator for its lifetime; persisted
// snapshots are read-only to every other component.
type Session struct {
	SessionID   string        `json:"session_id"`
	Target      string        `json:"target"`
	Scope       string        `json:"scope"`
	Phases      []Phase       `json:"phases"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Results     []PhaseResult `json:"results,omitempty"`
}

// SetStatus applies the monotonic status rule: a terminal session never
// transitions again.
func (s *Session) SetStatus(status SessionStatus) {
	if s.Status.Terminal() {
		return
	}
	s.Status = status
}

// DecisionRecord is an immutable record of one task recommendation.
// SessionID is empty for ad hoc decisions taken outside a session.
type DecisionRecord struct {
	DecisionID string    `json:"decision_id"`
	SessionID  string    `json:"session_id,omitempty"`
	AgentRole  AgentRole `json:"agent_role"`
	Target     string    `json:"target"`
	Tool       string    `json:"recommended_tool"`
	Priority   Priority  `json:"priority"`
	Reasoning  string    `json:"reasoning"`
	Degraded   bool      `json:"degraded,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

// CommandExecution records one attempted tool invocation, regardless of
// outcome. Exactly one exists per invocation.
type CommandExecution struct {
	ExecutionID string    `json:"execution_id"`
	Command     string    `json:"command"`
	Output      string    `json:"output"`
	Success     bool      `json:"success"`
	AgentRole   AgentRole `json:"agent_role,omitempty"`
	Tool        string    `json:"tool"`
	Target      string    `json:"target"`
	SessionID   string    `json:"session_id,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// ToolResult is the normalized outcome of one tool execution against one
// target. Simulated and live results share the same metadata key shape per
// tool, so downstream consumers treat them identically.
type ToolResult struct {
	ResultID  string                 `json:"result_id,omitempty"`
	ToolName  string                 `json:"tool_name"`
	Target    string                 `json:"target"`
	Success   bool                   `json:"success"`
	Output    string                 `json:"output"`
	Error     string                 `json:"error,omitempty"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Command   string                 `json:"command,omitempty"`
	ExitCode  int                    `json:"exit_code,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	StoredAt  time.Time              `json:"stored_at"`
}

// Simulated reports whether the result was synthesized because the tool
// binary was not installed.
func (r *ToolResult) Simulated() bool {
	if r.Metadata == nil {
		return false
	}
	v, ok := r.Metadata[MetaKeySimulation].(bool)
	return ok && v
}

// Finding is a single piece of information extracted from tool metadata.
// Findings are derived data: always recomputable from the audit log.
type Finding struct {
	Tool   string `json:"tool"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Vulnerability is a derived security weakness extracted from tool metadata.
type Vulnerability struct {
	Tool        string `json:"tool"`
	Target      string `json:"target"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
}

// TargetState is the aggregated progress snapshot for one target, produced
// by reading the audit log. Degraded is set when the store was unreachable
// and the aggregate is a conservative empty default.
type TargetState struct {
	Target          string          `json:"target"`
	SessionID       string          `json:"session_id,omitempty"`
	CompletedTools  []string        `json:"completed_tools"`
	Findings        []Finding       `json:"findings"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Degraded        bool            `json:"degraded,omitempty"`
}

// Completed reports whether the named tool has a recorded execution.
func (t *TargetState) Completed(tool string) bool {
	for _, c := range t.CompletedTools {
		if c == tool {
			return true
		}
	}
	return false
}

// PhaseResult is the outcome of one phase step inside a session.
type PhaseResult struct {
	Phase       Phase           `json:"phase"`
	AgentRole   AgentRole       `json:"agent_role"`
	Decision    *DecisionRecord `json:"decision,omitempty"`
	Result      *ToolResult     `json:"result,omitempty"`
	Skipped     bool            `json:"skipped,omitempty"`
	SkipReason  string          `json:"skip_reason,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// FindingCount returns the number of findings extracted from this phase's
// tool result.
func (p *PhaseResult) FindingCount() int {
	if p.Result == nil {
		return 0
	}
	return len(ExtractFindings(p.Result))
}

// SessionSummary is a read-only aggregation of one session, assembled from
// the audit log without requiring the session to be in memory.
type SessionSummary struct {
	SessionID       string          `json:"session_id"`
	Target          string          `json:"target"`
	Status          SessionStatus   `json:"status"`
	ToolsRun        []string        `json:"tools_run"`
	DecisionCount   int             `json:"decision_count"`
	CommandCount    int             `json:"command_count"`
	FindingCount    int             `json:"finding_count"`
	Findings        []Finding       `json:"findings,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Report          string          `json:"report,omitempty"`
}

// StoreStats reports per-collection record counts for the audit log.
type StoreStats struct {
	Collections map[string]int64 `json:"collections"`
	Total       int64            `json:"total_records"`
}

// DecisionFilter narrows audit queries over decision records.
type DecisionFilter struct {
	SessionID string
	AgentRole AgentRole
	Target    string
}

// CommandFilter narrows audit queries over command executions.
type CommandFilter struct {
	SessionID string
	Tool      string
	Target    string
}

// ToolResultFilter narrows audit queries over tool results.
type ToolResultFilter struct {
	SessionID string
	ToolName  string
	Target    string
}
