package storage

import (
	"database/sql"
	"fmt"
	"time"

	// Pure Go SQLite driver (no CGO), registered under "sqlite".
	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SQLiteStore is the relational Store backend: an Exchanges table and a
// TokenUsage child table with a unique index/foreign key on exchange_id,
// matching spec section 6's persisted-state layout.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the SQLite database at dsn and
// bootstraps its schema. dsn is the storage.connection_string config value.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dsn, err)
	}

	// SQLite tolerates exactly one writer at a time; a single shared
	// connection avoids SQLITE_BUSY under the recorder's concurrent writes
	// without needing WAL-mode tuning knobs this spec doesn't ask for.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", dsn, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY)`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			request_headers TEXT NOT NULL,
			request_body TEXT,
			response_status INTEGER NOT NULL,
			response_headers TEXT NOT NULL,
			response_body TEXT,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_timestamp ON exchanges (timestamp)`,
		`CREATE TABLE IF NOT EXISTS token_usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			exchange_id INTEGER NOT NULL UNIQUE REFERENCES exchanges(id),
			timestamp INTEGER NOT NULL,
			model TEXT,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cache_read_tokens INTEGER NOT NULL DEFAULT 0,
			cache_creation_tokens INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		_, err = s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion)
	}
	return err
}

// Add inserts exchange and, if attached, its TokenUsage, inside a single
// transaction so either both rows appear or neither does.
func (s *SQLiteStore) Add(exchange *Exchange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrPersist, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO exchanges
			(timestamp, method, path, request_headers, request_body,
			 response_status, response_headers, response_body, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exchange.Timestamp.UTC().UnixNano(),
		exchange.Method,
		exchange.Path,
		exchange.RequestHeaders,
		nullableText(exchange.RequestBody, exchange.HasRequestBody),
		exchange.ResponseStatus,
		exchange.ResponseHeaders,
		nullableText(exchange.ResponseBody, exchange.HasResponseBody),
		exchange.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("%w: insert exchange: %v", ErrPersist, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: exchange id: %v", ErrPersist, err)
	}
	exchange.ID = id

	if exchange.TokenUsage != nil {
		tu := exchange.TokenUsage
		_, err = tx.Exec(
			`INSERT INTO token_usage
				(exchange_id, timestamp, model, input_tokens, output_tokens,
				 cache_read_tokens, cache_creation_tokens)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id,
			tu.Timestamp.UTC().UnixNano(),
			nullableText(tu.Model, tu.HasModel),
			tu.InputTokens,
			tu.OutputTokens,
			tu.CacheReadTokens,
			tu.CacheCreationTokens,
		)
		if err != nil {
			return fmt.Errorf("%w: insert token_usage: %v", ErrPersist, err)
		}
		tu.ExchangeID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersist, err)
	}
	return nil
}

// GetStatsProjections returns every Exchange whose timestamp satisfies
// from <= timestamp < to, projected for the aggregator. Ordering is
// unspecified; the aggregator reorders by time bucket.
//
// Timestamps are stored and compared as INTEGER nanosecond-since-epoch
// values, not formatted strings: a string column sorts lexically, and
// RFC3339Nano's variable-width fractional-seconds field (trailing zeros
// dropped) makes lexical order diverge from temporal order within the same
// whole second, which would corrupt the from<=ts<to bound below.
func (s *SQLiteStore) GetStatsProjections(from, to time.Time) ([]StatsProjection, error) {
	rows, err := s.db.Query(
		`SELECT e.timestamp, t.exchange_id IS NOT NULL,
		        COALESCE(t.input_tokens, 0), COALESCE(t.output_tokens, 0)
		 FROM exchanges e
		 LEFT JOIN token_usage t ON t.exchange_id = e.id
		 WHERE e.timestamp >= ? AND e.timestamp < ?`,
		from.UTC().UnixNano(),
		to.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query projections: %w", err)
	}
	defer rows.Close()

	var out []StatsProjection
	for rows.Next() {
		var (
			tsRaw               int64
			hasLLM              bool
			inputTok, outputTok int64
		)
		if err := rows.Scan(&tsRaw, &hasLLM, &inputTok, &outputTok); err != nil {
			return nil, fmt.Errorf("storage: scan projection: %w", err)
		}
		out = append(out, StatsProjection{
			Timestamp:    time.Unix(0, tsRaw).UTC(),
			HasLLM:       hasLLM,
			InputTokens:  inputTok,
			OutputTokens: outputTok,
		})
	}
	return out, rows.Err()
}

// Ping checks the underlying connection.
func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

// Close releases the connection pool.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nullableText(value string, present bool) sql.NullString {
	if !present {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
