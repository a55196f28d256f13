package observability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrRecordNotFound is returned when an interaction id is unknown.
var ErrRecordNotFound = errors.New("interaction not found")

// SQLiteSink persists interaction records to a SQLite database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at dbPath and initializes the schema.
func NewSQLiteSink(ctx context.Context, dbPath string) (*SQLiteSink, error) {
	// WAL mode allows readers while the orchestrator writes
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support multiple writers well
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func (s *SQLiteSink) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS interactions (
		id             TEXT PRIMARY KEY,
		ts_unix_nano   INTEGER NOT NULL,
		query          TEXT NOT NULL,
		final_response TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agent_responses (
		interaction_id TEXT NOT NULL REFERENCES interactions(id),
		position       INTEGER NOT NULL,
		agent          TEXT NOT NULL,
		response       TEXT NOT NULL,
		PRIMARY KEY (interaction_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_interactions_ts ON interactions(ts_unix_nano);
	CREATE INDEX IF NOT EXISTS idx_agent_responses_agent ON agent_responses(agent);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interactions (id, ts_unix_nano, query, final_response) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), rec.Query, rec.FinalResponse,
	); err != nil {
		return fmt.Errorf("failed to insert interaction: %w", err)
	}

	for i, ar := range rec.AgentResponses {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO agent_responses (interaction_id, position, agent, response) VALUES (?, ?, ?, ?)`,
			rec.ID, i, ar.Agent, ar.Response,
		); err != nil {
			return fmt.Errorf("failed to insert agent response: %w", err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored interactions.
func (s *SQLiteSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return n, nil
}

// Recent returns up to limit of the newest interactions, oldest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts_unix_nano, query, final_response FROM (
			SELECT rowid AS rid, id, ts_unix_nano, query, final_response
			FROM interactions ORDER BY ts_unix_nano DESC, rowid DESC LIMIT ?
		) ORDER BY ts_unix_nano ASC, rid ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range records {
		if records[i].AgentResponses, err = s.agentResponses(ctx, records[i].ID); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// Get returns a single interaction.
func (s *SQLiteSink) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, ts_unix_nano, query, final_response FROM interactions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if rec.AgentResponses, err = s.agentResponses(ctx, id); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// UsageStats counts agent appearances across all stored interactions.
func (s *SQLiteSink) UsageStats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT agent, COUNT(*) FROM agent_responses GROUP BY agent`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var agent string
		var n int
		if err := rows.Scan(&agent, &n); err != nil {
			return nil, err
		}
		stats[agent] = n
	}
	return stats, rows.Err()
}

func (s *SQLiteSink) agentResponses(ctx context.Context, id string) ([]AgentResponse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent, response FROM agent_responses WHERE interaction_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent responses: %w", err)
	}
	defer rows.Close()

	out := []AgentResponse{}
	for rows.Next() {
		var ar AgentResponse
		if err := rows.Scan(&ar.Agent, &ar.Response); err != nil {
			return nil, err
		}
		out = append(out, ar)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var ts int64
	if err := row.Scan(&rec.ID, &ts, &rec.Query, &rec.FinalResponse); err != nil {
		return Record{}, err
	}
	rec.Timestamp = time.Unix(0, ts)
	return rec, nil
}
