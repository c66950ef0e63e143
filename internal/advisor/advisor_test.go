package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cybrty/redops/domain"
)

var testInput = Input{
	Target:         "203.0.113.10",
	AgentRole:      domain.RoleRecon,
	Candidates:     []string{"nmap", "nikto", "enum4linux"},
	CompletedTools: []string{},
}

func ollamaServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.Stream {
			t.Fatalf("advisor requests must be non-streaming")
		}
		json.NewEncoder(w).Encode(generateResponse{Response: reply, Done: true})
	}))
}

func TestClientAdviseParsesReply(t *testing.T) {
	server := ollamaServer(t, `{"tool": "nikto", "priority": "high", "reasoning": "web server detected"}`)
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second)
	candidates, err := client.Advise(context.Background(), testInput)
	if err != nil {
		t.Fatalf("advise failed: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.Tool != "nikto" || got.Priority != domain.PriorityHigh || got.Reasoning != "web server detected" {
		t.Fatalf("unexpected candidate: %+v", got)
	}
}

func TestClientAdviseExtractsWrappedJSON(t *testing.T) {
	reply := "Based on the open ports, here is my recommendation:\n" +
		`{"tool": "nmap", "priority": "medium", "reasoning": "baseline scan first"}` +
		"\nGood luck."
	server := ollamaServer(t, reply)
	defer server.Close()

	candidates, err := NewClient(server.URL, "test-model", time.Second).Advise(context.Background(), testInput)
	if err != nil {
		t.Fatalf("advise failed: %v", err)
	}
	if candidates[0].Tool != "nmap" || candidates[0].Priority != domain.PriorityMedium {
		t.Fatalf("unexpected candidate: %+v", candidates[0])
	}
}

func TestClientAdviseRejectsUnknownTool(t *testing.T) {
	server := ollamaServer(t, `{"tool": "wireshark", "priority": "high", "reasoning": "made up"}`)
	defer server.Close()

	_, err := NewClient(server.URL, "test-model", time.Second).Advise(context.Background(), testInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for hallucinated tool, got %v", err)
	}
}

func TestClientAdviseUnavailableOnErrors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		}},
		{"garbage reply", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(generateResponse{Response: "I cannot decide.", Done: true})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := NewClient(server.URL, "test-model", time.Second).Advise(context.Background(), testInput)
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
		})
	}
}

func TestClientAdviseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "test-model", 20*time.Millisecond).Advise(context.Background(), testInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
}

func TestMockClientIsDeterministic(t *testing.T) {
	mock := NewMockClient()
	first, err := mock.Advise(context.Background(), testInput)
	if err != nil {
		t.Fatalf("advise failed: %v", err)
	}
	second, _ := mock.Advise(context.Background(), testInput)

	if len(first) != len(testInput.Candidates) || len(first) != len(second) {
		t.Fatalf("expected stable full ranking, got %d/%d", len(first), len(second))
	}
	if first[0].Tool != "nmap" || first[0].Priority != domain.PriorityHigh {
		t.Fatalf("unexpected top candidate: %+v", first[0])
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ranking changed between calls: %+v vs %+v", first[i], second[i])
		}
	}
}

// failingAdvisor always reports unavailable.
type failingAdvisor struct{ calls *int }

func (f failingAdvisor) Advise(context.Context, Input) ([]Candidate, error) {
	*f.calls++
	return nil, fmt.Errorf("%w: connection refused", ErrUnavailable)
}

func TestChainFallsThroughToNextAdvisor(t *testing.T) {
	calls := 0
	chain := NewChain(failingAdvisor{&calls}, NewMockClient())

	candidates, err := chain.Advise(context.Background(), testInput)
	if err != nil {
		t.Fatalf("advise failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected failing advisor to be tried once, got %d", calls)
	}
	if candidates[0].Tool != "nmap" {
		t.Fatalf("unexpected candidate from chain: %+v", candidates[0])
	}
}

func TestChainExhaustedReportsUnavailable(t *testing.T) {
	calls := 0
	chain := NewChain(failingAdvisor{&calls}, failingAdvisor{&calls})

	_, err := chain.Advise(context.Background(), testInput)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both advisors tried, got %d", calls)
	}
}

func TestEmptyChainUnavailable(t *testing.T) {
	if _, err := NewChain().Advise(context.Background(), testInput); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from empty chain, got %v", err)
	}
}
