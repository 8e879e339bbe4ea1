package deadletter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore backs the Store contract with a dead_letters table. Clear
// relocates rows into dead_letter_archive under a batch id instead of
// renaming a file; nothing is ever deleted without first being copied.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Connection pool tuning
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS dead_letters (
    id           BIGSERIAL PRIMARY KEY,
    entry_id     TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL,
    chat_id      TEXT NOT NULL,
    contact_id   TEXT NOT NULL DEFAULT '',
    job_id       TEXT NOT NULL DEFAULT '',
    stage        TEXT NOT NULL DEFAULT '',
    tier         TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    chat_payload JSONB
);
CREATE TABLE IF NOT EXISTS dead_letter_archive (
    id           BIGSERIAL PRIMARY KEY,
    batch_id     TEXT NOT NULL,
    entry_id     TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL,
    chat_id      TEXT NOT NULL,
    contact_id   TEXT NOT NULL DEFAULT '',
    job_id       TEXT NOT NULL DEFAULT '',
    stage        TEXT NOT NULL DEFAULT '',
    tier         TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    chat_payload JSONB,
    archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) Append(ctx context.Context, entry *Entry) error {
	const query = `INSERT INTO dead_letters (entry_id, ts, chat_id, contact_id, job_id, stage, tier, error, chat_payload)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		entry.EntryID,
		entry.Timestamp,
		entry.ChatID,
		entry.ContactID,
		entry.JobID,
		entry.Stage,
		entry.Tier,
		entry.Error,
		[]byte(entry.ChatPayload),
	)
	return err
}

func (s *PostgresStore) ReadAll(ctx context.Context) ([]*Entry, error) {
	const query = `SELECT entry_id, ts, chat_id, contact_id, job_id, stage, tier, error, chat_payload
              FROM dead_letters ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.ChatID, &e.ContactID, &e.JobID, &e.Stage, &e.Tier, &e.Error, &payload); err != nil {
			return nil, err
		}
		e.ChatPayload = payload
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&n)
	return n, err
}

func (s *PostgresStore) Clear(ctx context.Context) (string, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	batchID := uuid.NewString()
	res, err := tx.ExecContext(ctx, `
INSERT INTO dead_letter_archive (batch_id, entry_id, ts, chat_id, contact_id, job_id, stage, tier, error, chat_payload)
SELECT $1, entry_id, ts, chat_id, contact_id, job_id, stage, tier, error, chat_payload FROM dead_letters ORDER BY id`, batchID)
	if err != nil {
		return "", 0, err
	}
	moved, err := res.RowsAffected()
	if err != nil {
		return "", 0, err
	}
	if moved == 0 {
		return "", 0, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM dead_letters`); err != nil {
		return "", 0, err
	}
	if err := tx.Commit(); err != nil {
		return "", 0, err
	}
	return fmt.Sprintf("archive:%s", batchID), int(moved), nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
