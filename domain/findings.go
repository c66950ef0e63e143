package domain

import "fmt"

// Metadata keys that tool adapters agree on. Each adapter emits the subset
// matching its capability; the extraction below only ever reads these keys,
// so simulated and live results degrade the same way.
const (
	MetaKeyOpenPorts       = "open_ports"
	MetaKeyServices        = "services"
	MetaKeyVulnerabilities = "vulnerabilities"
	MetaKeyShares          = "shares"
	MetaKeyUsers           = "users"
	MetaKeyCredentials     = "credentials"
	MetaKeyHosts           = "hosts"
	MetaKeyPaths           = "paths"
)

// ExtractFindings derives findings from a tool result's metadata. Findings
// are not authoritative: they are recomputed from the audit log on demand.
func ExtractFindings(r *ToolResult) []Finding {
	if r == nil || r.Metadata == nil {
		return nil
	}
	var findings []Finding
	add := func(kind, detail string) {
		findings = append(findings, Finding{
			Tool:   r.ToolName,
			Target: r.Target,
			Kind:   kind,
			Detail: detail,
		})
	}
	for _, port := range stringSlice(r.Metadata[MetaKeyOpenPorts]) {
		add("open_port", port)
	}
	for _, share := range stringSlice(r.Metadata[MetaKeyShares]) {
		add("share", share)
	}
	for _, user := range stringSlice(r.Metadata[MetaKeyUsers]) {
		add("user", user)
	}
	for _, cred := range stringSlice(r.Metadata[MetaKeyCredentials]) {
		add("credential", cred)
	}
	for _, host := range stringSlice(r.Metadata[MetaKeyHosts]) {
		add("host", host)
	}
	for _, path := range stringSlice(r.Metadata[MetaKeyPaths]) {
		add("path", path)
	}
	return findings
}

// ExtractVulnerabilities derives vulnerabilities from a tool result's
// metadata "vulnerabilities" list.
func ExtractVulnerabilities(r *ToolResult) []Vulnerability {
	if r == nil || r.Metadata == nil {
		return nil
	}
	var vulns []Vulnerability
	for _, desc := range stringSlice(r.Metadata[MetaKeyVulnerabilities]) {
		vulns = append(vulns, Vulnerability{
			Tool:        r.ToolName,
			Target:      r.Target,
			Description: desc,
		})
	}
	return vulns
}

// stringSlice coerces metadata values into a list of strings. Metadata
// round-trips through JSON in the store, so the same key may arrive as
// []string in memory or []interface{} after a query.
func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case map[string]interface{}:
				if name, ok := it["name"].(string); ok {
					out = append(out, name)
				} else if desc, ok := it["description"].(string); ok {
					out = append(out, desc)
				}
			default:
				out = append(out, fmt.Sprintf("%v", item))
			}
		}
		return out
	default:
		return nil
	}
}
