package accessory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeLayout is fixed-width so created_at sorts chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store persists the accessory cache.
type Store interface {
	// List returns every entry, oldest first.
	List(ctx context.Context) ([]*Entry, error)

	// Get returns ErrAccessoryNotFound for an unknown identity.
	Get(ctx context.Context, id Identity) (*Entry, error)

	// Create returns ErrAccessoryExists if the identity is already stored.
	Create(ctx context.Context, entries ...*Entry) error
}

// SQLiteStore implements Store on the accessories table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database that has been migrated.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// List returns every cached entry ordered by creation time.
func (s *SQLiteStore) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity, display_name, context, created_at
		FROM accessories
		ORDER BY created_at, identity`)
	if err != nil {
		return nil, fmt.Errorf("querying accessories: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating accessories: %w", err)
	}
	return entries, nil
}

// Get returns one entry.
func (s *SQLiteStore) Get(ctx context.Context, id Identity) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT identity, display_name, context, created_at
		FROM accessories
		WHERE identity = ?`, string(id))

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccessoryNotFound
	}
	return e, err
}

// Create inserts entries in one transaction; either all are stored or none.
func (s *SQLiteStore) Create(ctx context.Context, entries ...*Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, e := range entries {
		if e == nil || !e.Identity.Valid() {
			return ErrInvalidEntry
		}
		contextJSON, err := json.Marshal(e.Context)
		if err != nil {
			return fmt.Errorf("marshalling context: %w", err)
		}
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO accessories (identity, display_name, context, created_at)
			VALUES (?, ?, ?, ?)`,
			string(e.Identity),
			e.DisplayName,
			string(contextJSON),
			createdAt.UTC().Format(timeLayout),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s", ErrAccessoryExists, e.Identity)
			}
			return fmt.Errorf("inserting accessory: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing accessories: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e           Entry
		identity    string
		contextJSON string
		createdAt   string
	)
	if err := row.Scan(&identity, &e.DisplayName, &contextJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning accessory: %w", err)
	}
	e.Identity = Identity(identity)

	if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
		return nil, fmt.Errorf("unmarshalling context of %s: %w", identity, err)
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", identity, err)
	}
	e.CreatedAt = t
	return &e, nil
}

// isUniqueConstraintError checks for a SQLite primary key or unique violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
