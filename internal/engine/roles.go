package engine

import "github.com/cybrty/redops/domain"

// roleTools is the static capability table: the ordered primary tools for
// each agent role. Resolved at compile time, never mutated.
var roleTools = map[domain.AgentRole][]string{
	domain.RoleRecon:        {"nmap", "nikto", "enum4linux"},
	domain.RoleVulnAssess:   {"sqlmap", "zap", "burp", "nikto"},
	domain.RoleExploitation: {"metasploit", "hydra", "john"},
	domain.RoleReporting:    {"analysis", "reporting", "documentation"},
}

// phaseRoles maps each assessment phase to the role that drives it.
var phaseRoles = map[domain.Phase]domain.AgentRole{
	domain.PhaseRecon:          domain.RoleRecon,
	domain.PhaseVulnAssessment: domain.RoleVulnAssess,
	domain.PhaseExploitation:   domain.RoleExploitation,
	domain.PhaseReporting:      domain.RoleReporting,
}

// RoleTools returns the ordered primary tool list for a role, or nil for an
// unknown role.
func RoleTools(role domain.AgentRole) []string {
	tools := roleTools[role]
	out := make([]string, len(tools))
	copy(out, tools)
	return out
}

// RoleForPhase returns the agent role responsible for a phase.
func RoleForPhase(phase domain.Phase) (domain.AgentRole, bool) {
	role, ok := phaseRoles[phase]
	return role, ok
}

// Roles returns every known agent role in phase order.
func Roles() []domain.AgentRole {
	return []domain.AgentRole{
		domain.RoleRecon,
		domain.RoleVulnAssess,
		domain.RoleExploitation,
		domain.RoleReporting,
	}
}
