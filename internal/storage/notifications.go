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

const notificationColumns = `id, owner_id, search_id, listing_id, type, dedup_key, status, payload,
	attempts, error, created_at, updated_at, sent_at`

// EnqueueNotification records a pending notification unless one with the same
// dedup key already exists. It reports whether a new row was created.
func (s *SQLite) EnqueueNotification(ctx context.Context, n *model.Notification) (bool, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.Status = model.StatusPending
	n.UpdatedAt = n.CreatedAt

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (owner_id, search_id, listing_id, type, dedup_key, status, payload,
		   attempts, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?, ?)
		 ON CONFLICT (dedup_key) DO NOTHING`,
		n.OwnerID, n.SearchID, n.ListingID, string(n.Type), n.DedupKey, string(n.Status), string(payload),
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return false, nil
	}
	if n.ID, err = res.LastInsertId(); err != nil {
		return false, fmt.Errorf("last insert id: %w", err)
	}
	return true, nil
}

// GetNotificationByKey returns the notification recorded for a dedup key.
func (s *SQLite) GetNotificationByKey(ctx context.Context, dedupKey string) (*model.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE dedup_key = ?`, dedupKey,
	)
	return scanNotification(row)
}

// ClaimNotification moves a deliverable notification into the sending state.
// A sending row whose last update is older than staleBefore can be reclaimed.
// It reports false when another dispatcher owns the row or it was already sent.
func (s *SQLite) ClaimNotification(ctx context.Context, id int64, staleBefore, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, attempts = attempts + 1, updated_at = ?
		 WHERE id = ? AND (status IN (?, ?) OR (status = ? AND updated_at < ?))`,
		string(model.StatusSending), formatTime(at), id,
		string(model.StatusPending), string(model.StatusFailed),
		string(model.StatusSending), formatTime(staleBefore),
	)
	if err != nil {
		return false, fmt.Errorf("claim notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkNotificationSent records a successful delivery.
func (s *SQLite) MarkNotificationSent(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, sent_at = ?, updated_at = ?, error = '' WHERE id = ?`,
		string(model.StatusSent), formatTime(at), formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkNotificationFailed records a failed delivery attempt.
func (s *SQLite) MarkNotificationFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status != ?`,
		string(model.StatusFailed), reason, formatTime(at), id, string(model.StatusSent),
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// CancelNotification closes an unsent notification for good.
func (s *SQLite) CancelNotification(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status != ?`,
		string(model.StatusCancelled), reason, formatTime(at), id, string(model.StatusSent),
	)
	if err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return nil
}

// ListDueNotifications returns notifications that may be attempted now,
// oldest first.
func (s *SQLite) ListDueNotifications(ctx context.Context, q DueQuery) ([]model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		 WHERE id > ?
		   AND (status = ?
		    OR (status = ? AND attempts < ?)
		    OR (status = ? AND updated_at < ? AND attempts < ?))`
	args := []any{
		q.AfterID,
		string(model.StatusPending),
		string(model.StatusFailed), q.MaxAttempts,
		string(model.StatusSending), formatTime(q.StaleBefore), q.MaxAttempts,
	}
	if len(q.ExcludeOwners) > 0 {
		query += ` AND owner_id NOT IN (?` + strings.Repeat(", ?", len(q.ExcludeOwners)-1) + `)`
		for _, id := range q.ExcludeOwners {
			args = append(args, id)
		}
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

// CountSentSince counts notifications delivered to owner at or after since.
func (s *SQLite) CountSentSince(ctx context.Context, ownerID int64, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE owner_id = ? AND status = ? AND sent_at >= ?`,
		ownerID, string(model.StatusSent), formatTime(since),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent: %w", err)
	}
	return count, nil
}

func scanNotification(row scannable) (*model.Notification, error) {
	var n model.Notification
	var searchID, listingID sql.NullInt64
	var typ, status, payload, created, updated string
	var sent sql.NullString
	err := row.Scan(&n.ID, &n.OwnerID, &searchID, &listingID, &typ, &n.DedupKey, &status, &payload,
		&n.Attempts, &n.Error, &created, &updated, &sent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if searchID.Valid {
		n.SearchID = &searchID.Int64
	}
	if listingID.Valid {
		n.ListingID = &listingID.Int64
	}
	n.Type = model.NotificationType(typ)
	n.Status = model.NotificationStatus(status)
	n.CreatedAt = parseTime(created)
	n.UpdatedAt = parseTime(updated)
	n.SentAt = parseTimePtr(sent)
	return &n, nil
}
