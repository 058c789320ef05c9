// Package history caches the user's past orders locally so the order
// history view renders without waiting on the backend. The cache is a
// pure mirror: every refresh replaces it wholesale with the server's
// answer, and the server remains the source of truth.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/grubslash/client/order"
)

// Store is a SQLite-backed order history cache.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the cache database and runs migrations.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("history store: wal: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id              TEXT PRIMARY KEY,
			link            TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'open',
			created_at      TEXT NOT NULL,
			completed_at    TEXT,
			closed_at       TEXT,
			completion_link TEXT NOT NULL DEFAULT '',
			validation      TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`)
	if err != nil {
		return fmt.Errorf("history store: migrate: %w", err)
	}
	return nil
}

// ReplaceAll overwrites the cache with the server's current ticket list.
// Runs in one transaction so readers never see a half-applied refresh.
func (s *Store) ReplaceAll(tickets []order.Ticket) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("history store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tickets`); err != nil {
		return fmt.Errorf("history store: clear: %w", err)
	}

	for _, t := range tickets {
		var validation *string
		if t.Validation != nil {
			raw, err := json.Marshal(t.Validation)
			if err != nil {
				return fmt.Errorf("history store: encode validation: %w", err)
			}
			v := string(raw)
			validation = &v
		}

		_, err := tx.Exec(`
			INSERT INTO tickets (id, link, status, created_at, completed_at, closed_at, completion_link, validation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Link, string(t.Status), t.CreatedAt.Format(time.RFC3339),
			formatTimePtr(t.CompletedAt), formatTimePtr(t.ClosedAt), t.CompletionLink, validation)
		if err != nil {
			return fmt.Errorf("history store: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history store: commit: %w", err)
	}
	return nil
}

// List returns the cached tickets, newest first.
func (s *Store) List() ([]order.Ticket, error) {
	rows, err := s.db.Query(`
		SELECT id, link, status, created_at, completed_at, closed_at, completion_link, validation
		FROM tickets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("history store: list: %w", err)
	}
	defer rows.Close()

	var tickets []order.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("history store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Get returns one cached ticket, or false when the id is unknown.
func (s *Store) Get(id string) (order.Ticket, bool, error) {
	rows, err := s.db.Query(`
		SELECT id, link, status, created_at, completed_at, closed_at, completion_link, validation
		FROM tickets WHERE id = ?
	`, id)
	if err != nil {
		return order.Ticket{}, false, fmt.Errorf("history store: get: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return order.Ticket{}, false, rows.Err()
	}
	t, err := scanTicket(rows)
	if err != nil {
		return order.Ticket{}, false, fmt.Errorf("history store: get scan: %w", err)
	}
	return t, true, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}

func scanTicket(rows *sql.Rows) (order.Ticket, error) {
	var t order.Ticket
	var status, createdAt string
	var completedAt, closedAt, validation *string

	if err := rows.Scan(&t.ID, &t.Link, &status, &createdAt, &completedAt, &closedAt, &t.CompletionLink, &validation); err != nil {
		return order.Ticket{}, err
	}

	t.Status = order.TicketStatus(status)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt != nil {
		ct, _ := time.Parse(time.RFC3339, *completedAt)
		t.CompletedAt = &ct
	}
	if closedAt != nil {
		ct, _ := time.Parse(time.RFC3339, *closedAt)
		t.ClosedAt = &ct
	}
	if validation != nil {
		var v order.ValidationResult
		if err := json.Unmarshal([]byte(*validation), &v); err == nil {
			t.Validation = &v
		}
	}
	return t, nil
}
