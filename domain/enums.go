// Package domain defines the core domain models for the assessment orchestrator.
package domain

// SessionStatus represents the lifecycle status of an assessment session.
// Transitions are monotonic: once a session reaches completed or error it
// never changes again.
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusError     SessionStatus = "error"
)

// Terminal reports whether the status permits no further transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusError
}

// Phase represents a named stage of an assessment session.
type Phase string

const (
	PhaseRecon          Phase = "RECON"
	PhaseVulnAssessment Phase = "VULN_ASSESSMENT"
	PhaseExploitation   Phase = "EXPLOITATION"
	PhaseReporting      Phase = "REPORTING"
)

// DefaultPhases is the ordered phase plan for a full assessment.
var DefaultPhases = []Phase{PhaseRecon, PhaseVulnAssessment, PhaseExploitation, PhaseReporting}

// Priority represents the urgency of a recommended task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// AgentRole identifies the specialist responsible for a phase.
type AgentRole string

const (
	RoleRecon        AgentRole = "Reconnaissance Specialist"
	RoleVulnAssess   AgentRole = "Vulnerability Assessment Expert"
	RoleExploitation AgentRole = "Exploitation Specialist"
	RoleReporting    AgentRole = "Security Report Analyst"
)

// ErrorKind classifies the outcome of a tool invocation. Recoverable
// conditions are carried inside the ToolResult, never raised across
// component boundaries.
type ErrorKind string

const (
	ErrKindNone          ErrorKind = ""
	ErrKindNotInstalled  ErrorKind = "not_installed"
	ErrKindSafetyWarning ErrorKind = "safety_warning"
	ErrKindTimeout       ErrorKind = "timeout_expired"
	ErrKindExecution     ErrorKind = "execution_error"
	ErrKindParse         ErrorKind = "parse_error"
)

// MetaKeySimulation is the metadata flag marking a synthetic result
// produced when a tool binary is not installed.
const MetaKeySimulation = "simulation_mode"

// MetaKeySafetyWarning carries the safety screen annotation for targets
// matching the deny-list. The screen warns, it does not block.
const MetaKeySafetyWarning = "safety_warning"
