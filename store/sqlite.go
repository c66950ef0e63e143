package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cybrty/redops/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection keeps concurrent
	// appends from tripping over SQLITE_BUSY under the default driver.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			decision_id TEXT PRIMARY KEY,
			session_id TEXT,
			agent_role TEXT NOT NULL,
			target TEXT NOT NULL,
			tool TEXT NOT NULL,
			priority TEXT NOT NULL,
			reasoning TEXT,
			degraded INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_target ON decisions(target, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id)`,
		`CREATE TABLE IF NOT EXISTS command_executions (
			execution_id TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			output TEXT,
			success INTEGER NOT NULL,
			agent_role TEXT,
			tool TEXT NOT NULL,
			target TEXT NOT NULL,
			session_id TEXT,
			executed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_session ON command_executions(session_id)`,
		`CREATE TABLE IF NOT EXISTS tool_results (
			result_id TEXT PRIMARY KEY,
			tool_name TEXT NOT NULL,
			target TEXT NOT NULL,
			success INTEGER NOT NULL,
			output TEXT,
			error TEXT,
			error_kind TEXT,
			command TEXT,
			exit_code INTEGER NOT NULL DEFAULT 0,
			metadata TEXT,
			session_id TEXT,
			stored_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_target ON tool_results(target, stored_at)`,
		`CREATE INDEX IF NOT EXISTS idx_results_session ON tool_results(session_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendDecision persists a decision record.
func (s *SQLiteStore) AppendDecision(ctx context.Context, rec *domain.DecisionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (decision_id, session_id, agent_role, target, tool, priority, reasoning, degraded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.DecisionID, nullable(rec.SessionID), string(rec.AgentRole), rec.Target,
		rec.Tool, string(rec.Priority), rec.Reasoning, boolInt(rec.Degraded), rec.CreatedAt)
	return err
}

// AppendCommand persists a command execution record.
func (s *SQLiteStore) AppendCommand(ctx context.Context, exec *domain.CommandExecution) error {
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO command_executions (execution_id, command, output, success, agent_role, tool, target, session_id, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ExecutionID, exec.Command, exec.Output, boolInt(exec.Success),
		string(exec.AgentRole), exec.Tool, exec.Target, nullable(exec.SessionID), exec.ExecutedAt)
	return err
}

// AppendToolResult persists a tool result.
func (s *SQLiteStore) AppendToolResult(ctx context.Context, result *domain.ToolResult) error {
	if result.StoredAt.IsZero() {
		result.StoredAt = time.Now().UTC()
	}
	metadata, _ := json.Marshal(result.Metadata)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_results (result_id, tool_name, target, success, output, error, error_kind, command, exit_code, metadata, session_id, stored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ResultID, result.ToolName, result.Target, boolInt(result.Success),
		result.Output, result.Error, string(result.ErrorKind), result.Command,
		result.ExitCode, string(metadata), nullable(result.SessionID), result.StoredAt)
	return err
}

// QueryDecisions returns decision records matching the filter, most recent
// first.
func (s *SQLiteStore) QueryDecisions(ctx context.Context, filter domain.DecisionFilter, limit int) ([]domain.DecisionRecord, error) {
	query := `SELECT decision_id, session_id, agent_role, target, tool, priority, reasoning, degraded, created_at FROM decisions WHERE 1=1`
	var args []interface{}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.AgentRole != "" {
		query += ` AND agent_role = ?`
		args = append(args, string(filter.AgentRole))
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DecisionRecord
	for rows.Next() {
		var rec domain.DecisionRecord
		var sessionID sql.NullString
		var role string
		var priority string
		var degraded int
		if err := rows.Scan(&rec.DecisionID, &sessionID, &role, &rec.Target,
			&rec.Tool, &priority, &rec.Reasoning, &degraded, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.SessionID = sessionID.String
		rec.AgentRole = domain.AgentRole(role)
		rec.Priority = domain.Priority(priority)
		rec.Degraded = degraded != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// QueryCommands returns command executions matching the filter, most recent
// first.
func (s *SQLiteStore) QueryCommands(ctx context.Context, filter domain.CommandFilter, limit int) ([]domain.CommandExecution, error) {
	query := `SELECT execution_id, command, output, success, agent_role, tool, target, session_id, executed_at FROM command_executions WHERE 1=1`
	var args []interface{}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.Tool != "" {
		query += ` AND tool = ?`
		args = append(args, filter.Tool)
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY executed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []domain.CommandExecution
	for rows.Next() {
		var exec domain.CommandExecution
		var sessionID sql.NullString
		var role sql.NullString
		var success int
		if err := rows.Scan(&exec.ExecutionID, &exec.Command, &exec.Output, &success,
			&role, &exec.Tool, &exec.Target, &sessionID, &exec.ExecutedAt); err != nil {
			return nil, err
		}
		exec.Success = success != 0
		exec.AgentRole = domain.AgentRole(role.String)
		exec.SessionID = sessionID.String
		executions = append(executions, exec)
	}
	return executions, rows.Err()
}

// QueryToolResults returns tool results matching the filter, most recent
// first.
func (s *SQLiteStore) QueryToolResults(ctx context.Context, filter domain.ToolResultFilter, limit int) ([]domain.ToolResult, error) {
	query := `SELECT result_id, tool_name, target, success, output, error, error_kind, command, exit_code, metadata, session_id, stored_at FROM tool_results WHERE 1=1`
	var args []interface{}
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	if filter.ToolName != "" {
		query += ` AND tool_name = ?`
		args = append(args, filter.ToolName)
	}
	if filter.Target != "" {
		query += ` AND target = ?`
		args = append(args, filter.Target)
	}
	query += ` ORDER BY stored_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.ToolResult
	for rows.Next() {
		var r domain.ToolResult
		var sessionID sql.NullString
		var errorKind sql.NullString
		var metadata sql.NullString
		var success int
		if err := rows.Scan(&r.ResultID, &r.ToolName, &r.Target, &success, &r.Output,
			&r.Error, &errorKind, &r.Command, &r.ExitCode, &metadata, &sessionID, &r.StoredAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.ErrorKind = domain.ErrorKind(errorKind.String)
		r.SessionID = sessionID.String
		if metadata.Valid && metadata.String != "" && metadata.String != "null" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("corrupt metadata for result %s: %w", r.ResultID, err)
			}
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Stats reports per-collection record counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*domain.StoreStats, error) {
	stats := &domain.StoreStats{Collections: make(map[string]int64)}
	for _, table := range []string{"decisions", "command_executions", "tool_results"} {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats.Collections[table] = count
		stats.Total += count
	}
	return stats, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
