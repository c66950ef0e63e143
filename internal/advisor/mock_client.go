package advisor

import (
	"context"
	"fmt"

	"github.com/cybrty/redops/domain"
)

// MockClient is a deterministic advisor for testing and offline runs. It
// ranks candidates in their capability order, mirroring the deterministic
// fallback but exercised through the advisor path.
type MockClient struct{}

// NewMockClient creates a new mock advisor.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements Advisor.
var _ Advisor = (*MockClient)(nil)

// Advise ranks the candidates in the order they were given. The first
// candidate gets high priority, later ones medium.
func (m *MockClient) Advise(ctx context.Context, input Input) ([]Candidate, error) {
	if len(input.Candidates) == 0 {
		return nil, ErrUnavailable
	}
	candidates := make([]Candidate, 0, len(input.Candidates))
	for i, tool := range input.Candidates {
		candidates = append(candidates, Candidate{
			Tool:      tool,
			Priority:  priorityForRank(i),
			Reasoning: fmt.Sprintf("[MOCK] %s is the rank-%d candidate for %s against %s", tool, i+1, input.AgentRole, input.Target),
		})
	}
	return candidates, nil
}

func priorityForRank(i int) domain.Priority {
	if i == 0 {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}
