// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"propbot/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost a race.
	ErrConflict = errors.New("write conflict")
)

// ListingChange is one atomic listing write produced by reconciliation.
// Insert creates the row; otherwise the update is applied only if the stored
// version still equals Listing.Version.
type ListingChange struct {
	Listing *model.Listing
	Insert  bool
	History *model.PriceHistoryEntry
	Events  []model.EventKind
	At      time.Time
}

// ListingQuery filters the catalog read path. Zero values are unset.
type ListingQuery struct {
	Source       string
	Status       model.ListingStatus
	MinPriceUSD  float64
	MaxPriceUSD  float64
	ChangedSince *time.Time
	Limit        int
	Offset       int
}

// DueQuery selects notifications that should be attempted in a flush.
// Rows are returned in ID order starting after AfterID, so a caller can page
// through the whole backlog. ExcludeOwners drops owners already known to be
// over their cap.
type DueQuery struct {
	MaxAttempts   int
	StaleBefore   time.Time
	AfterID       int64
	ExcludeOwners []int64
	Limit         int
}

// Stats is a snapshot of row counts used for metrics.
type Stats struct {
	Listings        map[model.ListingStatus]int
	ActiveSearches  int
	Notifications   map[model.NotificationStatus]int
	PriceHistoryLen int
}

// Storage is the interface for all persistence operations.
type Storage interface {
	BeginPass(ctx context.Context, source string) (int64, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	GetListingByKey(ctx context.Context, key model.ListingKey) (*model.Listing, error)
	SaveListing(ctx context.Context, change *ListingChange) error
	DeactivateStale(ctx context.Context, source string, epoch int64, at time.Time) (int, error)
	ListListings(ctx context.Context, q ListingQuery) ([]model.Listing, error)
	ListPriceHistory(ctx context.Context, listingID int64) ([]model.PriceHistoryEntry, error)
	ListEventsAfter(ctx context.Context, afterID int64, limit int) ([]model.ListingEvent, error)

	CreateSearch(ctx context.Context, s *model.SavedSearch) error
	GetSearch(ctx context.Context, id int64) (*model.SavedSearch, error)
	ListSearches(ctx context.Context, ownerID int64) ([]model.SavedSearch, error)
	ListActiveSearches(ctx context.Context, cadence model.Cadence) ([]model.SavedSearch, error)
	SetSearchEnabled(ctx context.Context, id int64, enabled bool) error
	DeactivateSearch(ctx context.Context, id int64) error

	GetUser(ctx context.Context, chatID int64) (*model.User, error)
	SaveUser(ctx context.Context, u *model.User) error

	EnqueueNotification(ctx context.Context, n *model.Notification) (bool, error)
	GetNotificationByKey(ctx context.Context, dedupKey string) (*model.Notification, error)
	ClaimNotification(ctx context.Context, id int64, staleBefore, at time.Time) (bool, error)
	MarkNotificationSent(ctx context.Context, id int64, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id int64, reason string, at time.Time) error
	CancelNotification(ctx context.Context, id int64, reason string, at time.Time) error
	ListDueNotifications(ctx context.Context, q DueQuery) ([]model.Notification, error)
	CountSentSince(ctx context.Context, ownerID int64, since time.Time) (int, error)

	GetCursor(ctx context.Context, name string) (int64, error)
	SetCursor(ctx context.Context, name string, value int64) error

	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
