// Package store persists the front-end's own small data: CSP violation
// reports posted by browsers. Everything account-related lives behind the
// remote API; this database never holds user records or tokens.
package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CSPReports returns the CSP violation report repository.
func (s *Store) CSPReports() *CSPReports { return &CSPReports{db: s.db} }
