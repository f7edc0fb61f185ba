package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"propbot/internal/model"
)

const listingColumns = `id, source, external_id, url, title, property_type, location, neighborhood,
	bedrooms, area, price, currency, price_usd, features, photos, description, status, epoch, version,
	published_at, first_seen_at, last_seen_at, last_changed_at`

// BeginPass starts a reconciliation pass for source and returns its epoch.
func (s *SQLite) BeginPass(ctx context.Context, source string) (int64, error) {
	var epoch int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO source_epochs (source, epoch) VALUES (?, 1)
		 ON CONFLICT (source) DO UPDATE SET epoch = epoch + 1
		 RETURNING epoch`,
		source,
	).Scan(&epoch)
	if err != nil {
		return 0, fmt.Errorf("bump epoch: %w", err)
	}
	return epoch, nil
}

// GetListing returns a listing by its internal ID.
func (s *SQLite) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	return scanListing(row)
}

// GetListingByKey returns a listing by its external identity.
func (s *SQLite) GetListingByKey(ctx context.Context, key model.ListingKey) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE source = ? AND external_id = ?`,
		key.Source, key.ExternalID,
	)
	return scanListing(row)
}

// SaveListing applies one reconciliation result atomically. It returns
// ErrConflict when another writer inserted or updated the same identity first.
func (s *SQLite) SaveListing(ctx context.Context, change *ListingChange) error {
	l := change.Listing
	features, err := json.Marshal(nonNil(l.Features))
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	photos, err := json.Marshal(nonNil(l.Photos))
	if err != nil {
		return fmt.Errorf("encode photos: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if change.Insert {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO listings (source, external_id, url, title, property_type, location, neighborhood,
			   bedrooms, area, price, currency, price_usd, features, photos, description, status, epoch,
			   version, published_at, first_seen_at, last_seen_at, last_changed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
			 ON CONFLICT (source, external_id) DO NOTHING`,
			l.Source, l.ExternalID, l.URL, l.Title, l.PropertyType, l.Location, l.Neighborhood,
			l.Bedrooms, l.Area, l.Price, l.Currency, l.PriceUSD, string(features), string(photos),
			l.Description, string(l.Status), l.Epoch, formatTimePtr(l.PublishedAt),
			formatTime(l.FirstSeenAt), formatTime(l.LastSeenAt), formatTime(l.LastChangedAt),
		)
		if err != nil {
			return fmt.Errorf("insert listing: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		l.ID = id
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE listings SET url = ?, title = ?, property_type = ?, location = ?, neighborhood = ?,
			   bedrooms = ?, area = ?, price = ?, currency = ?, price_usd = ?, features = ?, photos = ?,
			   description = ?, status = ?, epoch = ?, version = version + 1, published_at = ?,
			   last_seen_at = ?, last_changed_at = ?
			 WHERE id = ? AND version = ?`,
			l.URL, l.Title, l.PropertyType, l.Location, l.Neighborhood,
			l.Bedrooms, l.Area, l.Price, l.Currency, l.PriceUSD, string(features), string(photos),
			l.Description, string(l.Status), l.Epoch, formatTimePtr(l.PublishedAt),
			formatTime(l.LastSeenAt), formatTime(l.LastChangedAt),
			l.ID, l.Version,
		)
		if err != nil {
			return fmt.Errorf("update listing: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrConflict
		}
	}

	if h := change.History; h != nil {
		h.ListingID = l.ID
		h.CreatedAt = change.At
		res, err := tx.ExecContext(ctx,
			`INSERT INTO price_history (listing_id, old_price, new_price, old_currency, new_currency,
			   change_type, change_pct, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			h.ListingID, h.OldPrice, h.NewPrice, h.OldCurrency, h.NewCurrency,
			string(h.ChangeType), h.Percentage, formatTime(h.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert price history: %w", err)
		}
		if h.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
	}

	for _, kind := range change.Events {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO listing_events (listing_id, kind, created_at) VALUES (?, ?, ?)`,
			l.ID, string(kind), formatTime(change.At),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit listing: %w", err)
	}
	if change.Insert {
		l.Version = 1
	} else {
		l.Version++
	}
	return nil
}

// DeactivateStale marks every active listing of source that was not observed
// in the pass with the given epoch as inactive.
func (s *SQLite) DeactivateStale(ctx context.Context, source string, epoch int64, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE listings SET status = ?, last_changed_at = ?, version = version + 1
		 WHERE source = ? AND status = ? AND epoch < ?`,
		string(model.ListingInactive), formatTime(at), source, string(model.ListingActive), epoch,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate stale: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// ListListings returns listings matching q ordered by most recent change.
func (s *SQLite) ListListings(ctx context.Context, q ListingQuery) ([]model.Listing, error) {
	var where []string
	var args []any
	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, q.Source)
	}
	if q.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.MinPriceUSD > 0 || q.MaxPriceUSD > 0 {
		// Listings without a known USD price never satisfy a price bound.
		where = append(where, "price_usd > 0")
	}
	if q.MinPriceUSD > 0 {
		where = append(where, "price_usd >= ?")
		args = append(args, q.MinPriceUSD)
	}
	if q.MaxPriceUSD > 0 {
		where = append(where, "price_usd <= ?")
		args = append(args, q.MaxPriceUSD)
	}
	if q.ChangedSince != nil {
		where = append(where, "last_changed_at > ?")
		args = append(args, formatTime(*q.ChangedSince))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY last_changed_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

// ListPriceHistory returns the price changes of a listing in creation order.
func (s *SQLite) ListPriceHistory(ctx context.Context, listingID int64) ([]model.PriceHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, listing_id, old_price, new_price, old_currency, new_currency, change_type, change_pct, created_at
		 FROM price_history WHERE listing_id = ? ORDER BY id`, listingID,
	)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.PriceHistoryEntry
	for rows.Next() {
		var h model.PriceHistoryEntry
		var changeType, created string
		err := rows.Scan(&h.ID, &h.ListingID, &h.OldPrice, &h.NewPrice, &h.OldCurrency, &h.NewCurrency,
			&changeType, &h.Percentage, &created)
		if err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		h.ChangeType = model.PriceChangeType(changeType)
		h.CreatedAt = parseTime(created)
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// ListEventsAfter returns change events with an ID greater than afterID.
func (s *SQLite) ListEventsAfter(ctx context.Context, afterID int64, limit int) ([]model.ListingEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, listing_id, kind, created_at FROM listing_events WHERE id > ? ORDER BY id LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.ListingEvent
	for rows.Next() {
		var e model.ListingEvent
		var kind, created string
		if err := rows.Scan(&e.ID, &e.ListingID, &kind, &created); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = model.EventKind(kind)
		e.CreatedAt = parseTime(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanListing(row scannable) (*model.Listing, error) {
	var l model.Listing
	var status, features, photos, firstSeen, lastSeen, lastChanged string
	var published sql.NullString
	err := row.Scan(&l.ID, &l.Source, &l.ExternalID, &l.URL, &l.Title, &l.PropertyType, &l.Location,
		&l.Neighborhood, &l.Bedrooms, &l.Area, &l.Price, &l.Currency, &l.PriceUSD, &features, &photos,
		&l.Description, &status, &l.Epoch, &l.Version, &published, &firstSeen, &lastSeen, &lastChanged)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan listing: %w", err)
	}
	if l.Features, err = decodeStrings(features); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	if l.Photos, err = decodeStrings(photos); err != nil {
		return nil, fmt.Errorf("decode photos: %w", err)
	}
	l.Status = model.ListingStatus(status)
	l.PublishedAt = parseTimePtr(published)
	l.FirstSeenAt = parseTime(firstSeen)
	l.LastSeenAt = parseTime(lastSeen)
	l.LastChangedAt = parseTime(lastChanged)
	return &l, nil
}

func decodeStrings(raw string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
