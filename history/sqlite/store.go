package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hooknotify/hooknotify/event"
	"github.com/hooknotify/hooknotify/history"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const defaultSearchLimit = 100

// Store is the sqlite-backed history recorder
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path and applies the
// schema
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	st := &Store{db: db}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating history schema: %w", err)
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one delivered notification
func (s *Store) Append(ctx context.Context, ev event.Event) error {
	data := ""
	if len(ev.AdditionalData) > 0 {
		raw, err := json.Marshal(ev.AdditionalData)
		if err != nil {
			return fmt.Errorf("serializing additional data: %w", err)
		}
		data = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications(event_id, event_type, message, event_at, data, received_at)
		 VALUES(?,?,?,?,?,?)`,
		ev.ID, ev.Type, ev.Message,
		ev.Timestamp.UTC().Format(time.RFC3339Nano), data,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending notification: %w", err)
	}
	return nil
}

// Search returns the newest matching entries, newest first
func (s *Store) Search(ctx context.Context, query string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	pattern := "%" + query + "%"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, event_type, message, event_at, data, received_at
		 FROM notifications
		 WHERE event_type LIKE ? OR message LIKE ?
		 ORDER BY received_at DESC, id DESC
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching notifications: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			e                  history.Entry
			eventAt, receivedAt string
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &e.Message, &eventAt, &e.DataJSON, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, eventAt); err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}
		if e.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt); err != nil {
			return nil, fmt.Errorf("parsing received timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	return entries, nil
}
