package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cybrty/redops/domain"
)

// Client is an Ollama-style HTTP advisor client. It asks a local model to
// rank the candidate tools and parses the JSON object in its reply.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates an advisor client against an Ollama-compatible endpoint.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Ensure Client implements Advisor.
var _ Advisor = (*Client)(nil)

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// advice is the JSON shape the model is asked to produce.
type advice struct {
	Tool      string `json:"tool"`
	Priority  string `json:"priority"`
	Reasoning string `json:"reasoning"`
}

// Advise asks the model to rank the candidates. Any transport, decode or
// validation failure collapses to ErrUnavailable.
func (c *Client) Advise(ctx context.Context, input Input) ([]Candidate, error) {
	if len(input.Candidates) == 0 {
		return nil, ErrUnavailable
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: buildPrompt(input),
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: advisor API error [%d]: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var gen generateResponse
	if err := json.Unmarshal(respBody, &gen); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal response: %v", ErrUnavailable, err)
	}

	return c.parseAdvice(gen.Response, input)
}

// parseAdvice extracts the ranked advice from the model's reply. Models
// wrap JSON in prose often enough that the parse scans for the first
// object literal.
func (c *Client) parseAdvice(reply string, input Input) ([]Candidate, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in advisor reply", ErrUnavailable)
	}

	var a advice
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil, fmt.Errorf("%w: malformed advisor reply: %v", ErrUnavailable, err)
	}

	if !contains(input.Candidates, a.Tool) {
		// A hallucinated tool name is unusable advice.
		return nil, fmt.Errorf("%w: advisor recommended unknown tool %q", ErrUnavailable, a.Tool)
	}

	priority := domain.Priority(a.Priority)
	switch priority {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
	default:
		priority = domain.PriorityMedium
	}
	reasoning := a.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("advisor recommends %s against %s", a.Tool, input.Target)
	}

	return []Candidate{{Tool: a.Tool, Priority: priority, Reasoning: reasoning}}, nil
}

func buildPrompt(input Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a security assessment planner acting as %s.\n", input.AgentRole)
	fmt.Fprintf(&b, "Target: %s\n", input.Target)
	fmt.Fprintf(&b, "Tools already run: %s\n", orNone(input.CompletedTools))
	fmt.Fprintf(&b, "Findings so far: %d, vulnerabilities: %d\n", input.FindingCount, input.VulnCount)
	fmt.Fprintf(&b, "Candidate tools, in capability order: %s\n", strings.Join(input.Candidates, ", "))
	b.WriteString(`Pick the single best next tool from the candidates. Respond with one JSON object: {"tool": "...", "priority": "high|medium|low", "reasoning": "..."}`)
	return b.String()
}

// extractJSON returns the first balanced top-level JSON object in s.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func orNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}
