// Package companion persists persona records. Personas are read on
// every chat request and immutable during a session, so Get is served
// through a ristretto cache in front of sqlite.
package companion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"

	"github.com/solacelabs/companiond/internal/core"
)

// Companion is a persona record: the character configuration that
// drives model behavior. Instructions become the system portion of the
// prompt, Seed is the canned opening history, Background is the
// document the vector memory index is built from.
type Companion struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Instructions string    `json:"instructions"`
	Seed         string    `json:"seed"`
	Background   string    `json:"background"`
	CreatedAt    time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS companions (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	instructions TEXT NOT NULL,
	seed         TEXT NOT NULL,
	background   TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
`

// Store is the sqlite-backed persona store with a read-through cache.
type Store struct {
	db    *sql.DB
	cache *ristretto.Cache
}

// NewStore creates a Store and ensures its schema.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create companions table: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 24, // 16 MiB of persona records
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create persona cache: %w", err)
	}

	return &Store{db: db, cache: cache}, nil
}

// Create persists a new companion. An empty ID gets a generated one.
func (s *Store) Create(ctx context.Context, c *Companion) error {
	if c.Name == "" || c.Instructions == "" {
		return fmt.Errorf("%w: companion needs a name and instructions", core.ErrMalformedRequest)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companions (id, name, instructions, seed, background, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.ID, c.Name, c.Instructions, c.Seed, c.Background, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert companion: %w", err)
	}

	s.cache.Set(c.ID, c, int64(len(c.Instructions)+len(c.Seed)+len(c.Background)))
	return nil
}

// Get returns the companion by ID, from cache when possible.
// Returns core.ErrNotFound for unknown IDs.
func (s *Store) Get(ctx context.Context, id string) (*Companion, error) {
	if cached, ok := s.cache.Get(id); ok {
		if c, ok := cached.(*Companion); ok {
			return c, nil
		}
	}

	c := &Companion{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, instructions, seed, background, created_at
		FROM companions WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Instructions, &c.Seed, &c.Background, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("companion %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get companion: %w", err)
	}

	s.cache.Set(c.ID, c, int64(len(c.Instructions)+len(c.Seed)+len(c.Background)))
	return c, nil
}

// List returns all companions, newest first.
func (s *Store) List(ctx context.Context) ([]*Companion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, instructions, seed, background, created_at
		FROM companions ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list companions: %w", err)
	}
	defer rows.Close()

	var companions []*Companion
	for rows.Next() {
		c := &Companion{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Instructions, &c.Seed, &c.Background, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan companion: %w", err)
		}
		companions = append(companions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companions: %w", err)
	}

	return companions, nil
}

// Close releases the cache.
func (s *Store) Close() {
	s.cache.Close()
}
