// Package history persists the append-only conversation log.
//
// There is one turn log per CompanionKey and it is the single source of
// truth for conversation state: the structured message API and the
// free-text prompt history are both projections of the same rows. Turns
// are never mutated or deleted; reads are capped to a trailing window
// so prompt size stays bounded even though storage is not.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solacelabs/companiond/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id           TEXT    PRIMARY KEY,
	companion_id TEXT    NOT NULL,
	user_id      TEXT    NOT NULL,
	model_name   TEXT    NOT NULL,
	seq          INTEGER NOT NULL,
	role         TEXT    NOT NULL,
	speaker      TEXT    NOT NULL,
	content      TEXT    NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	UNIQUE (companion_id, user_id, model_name, seq)
);
CREATE INDEX IF NOT EXISTS turns_by_key ON turns (companion_id, user_id, model_name, seq);
`

// Store is the sqlite-backed turn log.
type Store struct {
	db     *sql.DB
	window int
}

// New creates a Store and ensures its schema. window caps how many
// trailing lines ReadLatest returns.
func New(db *sql.DB, window int) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create turns table: %w", err)
	}
	if window <= 0 {
		window = 30
	}
	return &Store{db: db, window: window}, nil
}

// Append adds one turn to the log for key. Sequence numbers are
// assigned inside the insert itself, so ordering is whatever order the
// database serializes writers in.
func (s *Store) Append(ctx context.Context, key core.CompanionKey, role core.Role, speaker, content string) error {
	if err := key.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, companion_id, user_id, model_name, seq, role, speaker, content, created_at)
		SELECT ?, ?, ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?
		FROM turns WHERE companion_id = ? AND user_id = ? AND model_name = ?
	`, uuid.New().String(), key.CompanionID, key.UserID, key.ModelName,
		string(role), speaker, content, time.Now().UTC(),
		key.CompanionID, key.UserID, key.ModelName)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Seed initializes an empty log with the companion's canned opening
// content, split on sep. The emptiness check and the inserts share one
// transaction, so two concurrent first turns cannot both seed.
// Returns true when seeding actually ran.
func (s *Store) Seed(ctx context.Context, key core.CompanionKey, seedText, sep string) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	if strings.TrimSpace(seedText) == "" {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed tx: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM turns
		WHERE companion_id = ? AND user_id = ? AND model_name = ?
	`, key.CompanionID, key.UserID, key.ModelName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count turns: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	now := time.Now().UTC()
	seq := int64(0)
	for _, chunk := range strings.Split(seedText, sep) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		seq++
		_, err = tx.ExecContext(ctx, `
			INSERT INTO turns (id, companion_id, user_id, model_name, seq, role, speaker, content, created_at)
			VALUES (?, ?, ?, ?, ?, ?, '', ?, ?)
		`, uuid.New().String(), key.CompanionID, key.UserID, key.ModelName,
			seq, string(core.RoleSeed), chunk, now)
		if err != nil {
			return false, fmt.Errorf("insert seed turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}

	log.Printf("[HISTORY] Seeded %d turns for %s", seq, key)
	return seq > 0, nil
}

// ReadLatest returns the trailing window of the log as free-text lines,
// oldest-first. Reads reflect every write that completed before them on
// the same key.
func (s *Store) ReadLatest(ctx context.Context, key core.CompanionKey) ([]string, error) {
	turns, err := s.readTail(ctx, key, s.window)
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, t.Line())
	}
	return lines, nil
}

// ReadMessages returns the trailing structured turns, oldest-first,
// for API consumers that want roles and timestamps rather than the
// prompt projection.
func (s *Store) ReadMessages(ctx context.Context, key core.CompanionKey, limit int) ([]core.Turn, error) {
	if limit <= 0 || limit > s.window {
		limit = s.window
	}
	return s.readTail(ctx, key, limit)
}

func (s *Store) readTail(ctx context.Context, key core.CompanionKey, limit int) ([]core.Turn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, role, speaker, content, created_at FROM (
			SELECT id, seq, role, speaker, content, created_at
			FROM turns
			WHERE companion_id = ? AND user_id = ? AND model_name = ?
			ORDER BY seq DESC
			LIMIT ?
		) ORDER BY seq ASC
	`, key.CompanionID, key.UserID, key.ModelName, limit)
	if err != nil {
		return nil, fmt.Errorf("read turns: %w", err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		var role string
		if err := rows.Scan(&t.ID, &t.Seq, &role, &t.Speaker, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = core.Role(role)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return turns, nil
}
