// Package advisor provides the optional AI task advisor.
//
// Advisors rank the candidate tools for a decision. They are best-effort:
// every implementation reports failure with ErrUnavailable and the decision
// engine falls back to its deterministic ranking. The package never blocks
// a decision on advisor availability.
package advisor

import (
	"context"
	"errors"

	"github.com/cybrty/redops/domain"
)

// ErrUnavailable reports that the advisor could not produce a ranking.
// The decision engine treats it as a signal to fall back, never an error.
var ErrUnavailable = errors.New("advisor unavailable")

// Input is the decision context handed to an advisor.
type Input struct {
	Target         string
	AgentRole      domain.AgentRole
	Candidates     []string
	CompletedTools []string
	FindingCount   int
	VulnCount      int
}

// Candidate is one ranked recommendation. Advisors return candidates in
// preference order; the engine takes the first.
type Candidate struct {
	Tool      string
	Priority  domain.Priority
	Reasoning string
}

// Advisor ranks candidate tools for a decision context.
type Advisor interface {
	// Advise returns ranked candidates, or ErrUnavailable when the advisor
	// is absent, timed out, or returned an unusable answer.
	Advise(ctx context.Context, input Input) ([]Candidate, error)
}

// Chain tries advisors in order until one responds. Exhausting the list
// yields ErrUnavailable.
type Chain struct {
	advisors []Advisor
}

// NewChain creates an ordered advisor chain.
func NewChain(advisors ...Advisor) *Chain {
	return &Chain{advisors: advisors}
}

// Ensure Chain implements Advisor.
var _ Advisor = (*Chain)(nil)

// Advise tries each advisor in turn, returning the first usable ranking.
func (c *Chain) Advise(ctx context.Context, input Input) ([]Candidate, error) {
	for _, a := range c.advisors {
		if err := ctx.Err(); err != nil {
			return nil, ErrUnavailable
		}
		candidates, err := a.Advise(ctx, input)
		if err != nil {
			continue
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, ErrUnavailable
}
