package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"propbot/internal/model"
	"propbot/migrations"
)

// Fixed width so that stored timestamps compare correctly as strings.
const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser returns the preferences of a chat.
func (s *SQLite) GetUser(ctx context.Context, chatID int64) (*model.User, error) {
	var u model.User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, language, daily_limit, created_at FROM users WHERE chat_id = ?`, chatID,
	).Scan(&u.ChatID, &u.Language, &u.DailyLimit, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// SaveUser creates or updates the preferences of a chat.
func (s *SQLite) SaveUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (chat_id, language, daily_limit, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (chat_id) DO UPDATE SET language = excluded.language, daily_limit = excluded.daily_limit`,
		u.ChatID, u.Language, u.DailyLimit, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetCursor returns a named scheduler position, or 0 if none was stored.
func (s *SQLite) GetCursor(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM scheduler_state WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor %s: %w", name, err)
	}
	return v, nil
}

// SetCursor stores a named scheduler position.
func (s *SQLite) SetCursor(ctx context.Context, name string, value int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduler_state (name, value) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET value = excluded.value`,
		name, value,
	)
	if err != nil {
		return fmt.Errorf("set cursor %s: %w", name, err)
	}
	return nil
}

// Stats returns row counts for metrics.
func (s *SQLite) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{
		Listings:      make(map[model.ListingStatus]int),
		Notifications: make(map[model.NotificationStatus]int),
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM listings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count listings: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan listing count: %w", err)
		}
		st.Listings[model.ListingStatus(status)] = n
	}
	_ = rows.Close()

	rows, err = s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM notifications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan notification count: %w", err)
		}
		st.Notifications[model.NotificationStatus(status)] = n
	}
	_ = rows.Close()

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_searches WHERE active = 1 AND enabled = 1`,
	).Scan(&st.ActiveSearches)
	if err != nil {
		return nil, fmt.Errorf("count searches: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_history`).Scan(&st.PriceHistoryLen)
	if err != nil {
		return nil, fmt.Errorf("count price history: %w", err)
	}
	return st, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

type scannable interface {
	Scan(dest ...any) error
}
