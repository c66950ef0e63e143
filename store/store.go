// Package store defines the audit log interface and implementations.
//
// The audit log is append-only: decisions, command executions and tool
// results are written once and never updated. Every state query in the
// system is a read over these three collections.
package store

import (
	"context"
	"errors"

	"github.com/cybrty/redops/domain"
)

// ErrUnavailable reports that the audit store cannot be reached. It is
// fatal only for persistence-dependent calls; decision-making and tool
// execution proceed in degraded mode when appends fail.
var ErrUnavailable = errors.New("audit store unavailable")

// Store is the append-only audit log underlying all state queries.
type Store interface {
	// Append operations (one record per event, immutable once written)
	AppendDecision(ctx context.Context, rec *domain.DecisionRecord) error
	AppendCommand(ctx context.Context, exec *domain.CommandExecution) error
	AppendToolResult(ctx context.Context, result *domain.ToolResult) error

	// Query operations, ordered by timestamp descending (most recent first)
	QueryDecisions(ctx context.Context, filter domain.DecisionFilter, limit int) ([]domain.DecisionRecord, error)
	QueryCommands(ctx context.Context, filter domain.CommandFilter, limit int) ([]domain.CommandExecution, error)
	QueryToolResults(ctx context.Context, filter domain.ToolResultFilter, limit int) ([]domain.ToolResult, error)

	// Stats reports per-collection record counts.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// Lifecycle
	Close() error
}
