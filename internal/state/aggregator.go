// Package state derives target progress snapshots from the audit log.
package state

import (
	"context"
	"log"
	"sort"

	"github.com/cybrty/redops/domain"
	"github.com/cybrty/redops/store"
)

// queryLimit bounds how much history a single aggregation reads. The
// decision engine only needs recent activity against a target.
const queryLimit = 200

// Aggregator folds audit log records into per-target snapshots. It never
// returns an error: when the store is unreachable the snapshot degrades to
// a conservative empty state with Degraded set, which steers the decision
// engine back to reconnaissance.
type Aggregator struct {
	store store.Store
}

// NewAggregator creates an aggregator over the given audit store.
func NewAggregator(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Aggregate builds the current state for a target. A non-empty sessionID
// narrows the aggregation to records from that session.
func (a *Aggregator) Aggregate(ctx context.Context, target, sessionID string) *domain.TargetState {
	state := &domain.TargetState{
		Target:          target,
		SessionID:       sessionID,
		CompletedTools:  []string{},
		Findings:        []domain.Finding{},
		Vulnerabilities: []domain.Vulnerability{},
	}

	results, err := a.store.QueryToolResults(ctx, domain.ToolResultFilter{
		Target:    target,
		SessionID: sessionID,
	}, queryLimit)
	if err != nil {
		log.Printf("WARN: state aggregation degraded for %s: %v", target, err)
		state.Degraded = true
		return state
	}

	seen := map[string]bool{}
	for i := range results {
		r := &results[i]
		if !seen[r.ToolName] {
			seen[r.ToolName] = true
			state.CompletedTools = append(state.CompletedTools, r.ToolName)
		}
		if !r.Success {
			continue
		}
		state.Findings = append(state.Findings, domain.ExtractFindings(r)...)
		state.Vulnerabilities = append(state.Vulnerabilities, domain.ExtractVulnerabilities(r)...)
	}
	sort.Strings(state.CompletedTools)
	return state
}
