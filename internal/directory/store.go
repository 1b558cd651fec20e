package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Specialist is one entry in the provider directory.
type Specialist struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
	Active    bool      `json:"active"`
	Available bool      `json:"available"`
	CreatedAt time.Time `json:"created_at"`
}

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store queries the specialist directory.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	if db == nil {
		panic("directory: db cannot be nil")
	}
	return &Store{db: db}
}

// FindAvailable returns the first active, available specialist matching
// the given specialty, or nil when none exists. No ranking beyond
// directory insertion order.
func (s *Store) FindAvailable(ctx context.Context, specialty string) (*Specialist, error) {
	const q = `
		SELECT id, name, specialty, active, available, created_at
		FROM specialists
		WHERE LOWER(specialty) = LOWER($1) AND active AND available
		ORDER BY created_at
		LIMIT 1`

	var sp Specialist
	err := s.db.QueryRow(ctx, q, specialty).Scan(
		&sp.ID, &sp.Name, &sp.Specialty, &sp.Active, &sp.Available, &sp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: find specialist for %q: %w", specialty, err)
	}
	return &sp, nil
}
