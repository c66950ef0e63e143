package advisor

import (
	"log"
	"os"

	"github.com/cybrty/redops/config"
)

const (
	// EnvRedopsMode is the environment variable name for mode selection.
	EnvRedopsMode = "REDOPS_MODE"
	// ModeMock indicates the mock advisor should be used.
	ModeMock = "MOCK"
)

// NewFromConfig assembles the advisor chain for a configuration. With
// REDOPS_MODE=MOCK the chain is just the mock advisor. With an advisor URL
// configured the HTTP client is tried first, mock never; an empty URL
// yields an empty chain, which always reports ErrUnavailable and leaves
// decisions to the deterministic fallback.
func NewFromConfig(cfg *config.Config) *Chain {
	if os.Getenv(EnvRedopsMode) == ModeMock {
		log.Println("REDOPS_MODE=MOCK detected, using mock advisor")
		return NewChain(NewMockClient())
	}
	if cfg.AdvisorURL == "" {
		return NewChain()
	}
	return NewChain(NewClient(cfg.AdvisorURL, cfg.AdvisorModel, cfg.AdvisorTimeout))
}
