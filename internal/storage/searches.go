package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"propbot/internal/model"
)

const searchColumns = `id, owner_id, name, property_type, location, bedrooms, min_price, max_price,
	cadence, enabled, active, created_at, updated_at`

// CreateSearch inserts a new saved search and populates its ID and timestamps.
func (s *SQLite) CreateSearch(ctx context.Context, ss *model.SavedSearch) error {
	now := time.Now().UTC()
	var bedrooms *int64
	if ss.Criteria.Bedrooms != nil {
		v := int64(*ss.Criteria.Bedrooms)
		bedrooms = &v
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_searches (owner_id, name, property_type, location, bedrooms, min_price, max_price,
		   cadence, enabled, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		ss.OwnerID, ss.Name, ss.Criteria.PropertyType, ss.Criteria.Location, bedrooms,
		ss.Criteria.MinPrice, ss.Criteria.MaxPrice, string(ss.Cadence), boolToInt(ss.Enabled),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	ss.ID = id
	ss.Active = true
	ss.CreatedAt = parseTime(formatTime(now))
	ss.UpdatedAt = ss.CreatedAt
	return nil
}

// GetSearch returns a saved search by ID, including soft-deleted ones.
func (s *SQLite) GetSearch(ctx context.Context, id int64) (*model.SavedSearch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+searchColumns+` FROM saved_searches WHERE id = ?`, id)
	return scanSearch(row)
}

// ListSearches returns the active saved searches of an owner.
func (s *SQLite) ListSearches(ctx context.Context, ownerID int64) ([]model.SavedSearch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+searchColumns+` FROM saved_searches WHERE owner_id = ? AND active = 1 ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSearches(rows)
}

// ListActiveSearches returns enabled, active searches with the given cadence.
// An empty cadence returns all of them.
func (s *SQLite) ListActiveSearches(ctx context.Context, cadence model.Cadence) ([]model.SavedSearch, error) {
	query := `SELECT ` + searchColumns + ` FROM saved_searches WHERE active = 1 AND enabled = 1`
	var args []any
	if cadence != "" {
		query += ` AND cadence = ?`
		args = append(args, string(cadence))
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query active searches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSearches(rows)
}

// SetSearchEnabled toggles notifications of an active search.
func (s *SQLite) SetSearchEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE saved_searches SET enabled = ?, updated_at = ? WHERE id = ? AND active = 1`,
		boolToInt(enabled), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("update search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateSearch soft-deletes a search. It cannot be re-enabled afterwards.
func (s *SQLite) DeactivateSearch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE saved_searches SET active = 0, enabled = 0, updated_at = ? WHERE id = ? AND active = 1`,
		formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("deactivate search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSearch(row scannable) (*model.SavedSearch, error) {
	var ss model.SavedSearch
	var cadence, created, updated string
	var bedrooms sql.NullInt64
	var enabled, active int
	err := row.Scan(&ss.ID, &ss.OwnerID, &ss.Name, &ss.Criteria.PropertyType, &ss.Criteria.Location,
		&bedrooms, &ss.Criteria.MinPrice, &ss.Criteria.MaxPrice, &cadence, &enabled, &active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan search: %w", err)
	}
	if bedrooms.Valid {
		v := int(bedrooms.Int64)
		ss.Criteria.Bedrooms = &v
	}
	ss.Cadence = model.Cadence(cadence)
	ss.Enabled = enabled == 1
	ss.Active = active == 1
	ss.CreatedAt = parseTime(created)
	ss.UpdatedAt = parseTime(updated)
	return &ss, nil
}

func scanSearches(rows *sql.Rows) ([]model.SavedSearch, error) {
	var searches []model.SavedSearch
	for rows.Next() {
		ss, err := scanSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *ss)
	}
	return searches, rows.Err()
}
