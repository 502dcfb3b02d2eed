package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dooriq/simserver/internal/domain"
	"github.com/dooriq/simserver/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS attempts (
		attempt_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		persona_json TEXT NOT NULL,
		state TEXT NOT NULL,
		turn_count INTEGER NOT NULL DEFAULT 0,
		messages_json TEXT NOT NULL,
		metrics_json TEXT NOT NULL,
		eval_json TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_updated ON attempts(updated_at) WHERE eval_json IS NULL;
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateAttempt inserts a new attempt record.
func (s *SQLiteStore) CreateAttempt(ctx context.Context, attempt *domain.Attempt) error {
	personaJSON, err := marshalPersona(attempt)
	if err != nil {
		return err
	}
	messagesJSON, metricsJSON, evalJSON, err := marshalMutable(attempt)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO attempts (
		attempt_id, user_id, persona_json, state, turn_count,
		messages_json, metrics_json, eval_json, version, started_at, ended_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	attempt.Version = 1
	_, err = s.db.ExecContext(ctx, query,
		attempt.ID, attempt.UserID, personaJSON, attempt.State.String(), attempt.TurnCount,
		messagesJSON, metricsJSON, evalJSON, attempt.Version,
		attempt.StartedAt.Unix(), nullableUnix(attempt.EndedAt), attempt.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// GetAttempt retrieves an attempt by ID.
func (s *SQLiteStore) GetAttempt(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	query := `
		SELECT attempt_id, user_id, persona_json, state, turn_count,
		       messages_json, metrics_json, eval_json, version, started_at, ended_at, updated_at
		FROM attempts WHERE attempt_id = ?`

	row := s.db.QueryRowContext(ctx, query, attemptID)

	var attempt domain.Attempt
	var personaJSON, messagesJSON, metricsJSON, stateName string
	var evalJSON sql.NullString
	var startedAt, updatedAt int64
	var endedAt sql.NullInt64

	err := row.Scan(
		&attempt.ID, &attempt.UserID, &personaJSON, &stateName, &attempt.TurnCount,
		&messagesJSON, &metricsJSON, &evalJSON, &attempt.Version,
		&startedAt, &endedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan attempt row: %w", err)
	}

	state, err := domain.ParseState(stateName)
	if err != nil {
		return nil, fmt.Errorf("parse stored state: %w", err)
	}
	attempt.State = state
	attempt.StartedAt = time.Unix(startedAt, 0)
	attempt.UpdatedAt = time.Unix(updatedAt, 0)
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		attempt.EndedAt = &t
	}

	if err := json.Unmarshal([]byte(personaJSON), &attempt.Persona); err != nil {
		return nil, fmt.Errorf("decode persona: %w", err)
	}
	if err := json.Unmarshal([]byte(messagesJSON), &attempt.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if err := json.Unmarshal([]byte(metricsJSON), &attempt.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if evalJSON.Valid {
		var eval domain.Evaluation
		if err := json.Unmarshal([]byte(evalJSON.String), &eval); err != nil {
			return nil, fmt.Errorf("decode evaluation: %w", err)
		}
		attempt.Eval = &eval
	}

	return &attempt, nil
}

// UpdateAttempt persists mutable attempt fields with an optimistic version
// check. Retries with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) UpdateAttempt(ctx context.Context, attempt *domain.Attempt, expectedVersion int64) error {
	// Persona is immutable after creation, so updates skip its column.
	messagesJSON, metricsJSON, evalJSON, err := marshalMutable(attempt)
	if err != nil {
		return err
	}

	query := `
	UPDATE attempts SET
		state = ?, turn_count = ?, messages_json = ?, metrics_json = ?,
		eval_json = ?, version = ?, ended_at = ?, updated_at = ?
	WHERE attempt_id = ? AND version = ?`

	newVersion := expectedVersion + 1
	args := []interface{}{
		attempt.State.String(), attempt.TurnCount, messagesJSON, metricsJSON,
		evalJSON, newVersion, nullableUnix(attempt.EndedAt), time.Now().Unix(),
		attempt.ID, expectedVersion,
	}

	result, err := shared.RetryOnBusy(ctx, func() (sql.Result, error) {
		return s.db.ExecContext(ctx, query, args...)
	})
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing row from a lost version race.
		var exists int
		if scanErr := s.db.QueryRowContext(ctx,
			`SELECT 1 FROM attempts WHERE attempt_id = ?`, attempt.ID).Scan(&exists); scanErr == sql.ErrNoRows {
			return ErrAttemptNotFound
		}
		return ErrVersionConflict
	}

	attempt.Version = newVersion
	return nil
}

// DeleteExpiredAttempts removes unfinished attempts idle longer than ttl.
func (s *SQLiteStore) DeleteExpiredAttempts(ctx context.Context, ttl time.Duration) (int64, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `DELETE FROM attempts WHERE eval_json IS NULL AND updated_at < ?`
	result, err := s.db.ExecContext(ctx, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete expired attempts: %w", err)
	}
	return result.RowsAffected()
}

// CountOpenAttempts returns the number of attempts not yet evaluated.
func (s *SQLiteStore) CountOpenAttempts(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE eval_json IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open attempts: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func marshalPersona(attempt *domain.Attempt) (string, error) {
	pb, err := json.Marshal(attempt.Persona)
	if err != nil {
		return "", fmt.Errorf("encode persona: %w", err)
	}
	return string(pb), nil
}

func marshalMutable(attempt *domain.Attempt) (messagesJSON, metricsJSON string, evalJSON interface{}, err error) {
	messages := attempt.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	mb, err := json.Marshal(messages)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode messages: %w", err)
	}
	lb, err := json.Marshal(attempt.Metrics)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode metrics: %w", err)
	}
	if attempt.Eval != nil {
		eb, evalErr := json.Marshal(attempt.Eval)
		if evalErr != nil {
			return "", "", nil, fmt.Errorf("encode evaluation: %w", evalErr)
		}
		evalJSON = string(eb)
	}
	return string(mb), string(lb), evalJSON, nil
}

func nullableUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
