// Package model defines the domain types used across the application.
package model

import "time"

// ListingStatus is the lifecycle state of a catalog listing.
type ListingStatus string

// Supported listing statuses.
const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
)

// Listing is a canonical catalog entry identified by (Source, ExternalID).
type Listing struct {
	ID            int64
	Source        string
	ExternalID    string
	URL           string
	Title         string
	PropertyType  string
	Location      string
	Neighborhood  string
	Bedrooms      int
	Area          float64
	Price         float64
	Currency      string
	PriceUSD      float64
	Features      []string
	Photos        []string
	Description   string
	Status        ListingStatus
	Epoch         int64
	Version       int64
	PublishedAt   *time.Time
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	LastChangedAt time.Time
}

// Key returns the external identity of the listing.
func (l *Listing) Key() ListingKey {
	return ListingKey{Source: l.Source, ExternalID: l.ExternalID}
}

// ListingKey is the external identity of a listing.
type ListingKey struct {
	Source     string
	ExternalID string
}

// RawListing is one record produced by a crawler for a single source.
type RawListing struct {
	Source       string     `json:"source"`
	ExternalID   string     `json:"external_id"`
	URL          string     `json:"url"`
	Title        string     `json:"title"`
	PropertyType string     `json:"property_type"`
	Location     string     `json:"location"`
	Neighborhood string     `json:"neighborhood"`
	Price        float64    `json:"price"`
	Currency     string     `json:"currency"`
	Rooms        int        `json:"rooms"`
	Area         float64    `json:"area"`
	Features     []string   `json:"features"`
	Photos       []string   `json:"photos"`
	Description  string     `json:"description"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
}

// PriceChangeType classifies a price history entry.
type PriceChangeType string

// Supported price change types.
const (
	PriceIncrease       PriceChangeType = "increase"
	PriceDecrease       PriceChangeType = "decrease"
	PriceCurrencyChange PriceChangeType = "currency_change"
)

// PriceHistoryEntry records one detected price change of a listing.
type PriceHistoryEntry struct {
	ID          int64
	ListingID   int64
	OldPrice    float64
	NewPrice    float64
	OldCurrency string
	NewCurrency string
	ChangeType  PriceChangeType
	Percentage  float64
	CreatedAt   time.Time
}

// EventKind is the type of a listing change event.
type EventKind string

// Supported listing event kinds.
const (
	EventCreated      EventKind = "created"
	EventPriceChanged EventKind = "price_changed"
	EventReactivated  EventKind = "reactivated"
)

// ListingEvent is a durable change event emitted during reconciliation.
type ListingEvent struct {
	ID        int64
	ListingID int64
	Kind      EventKind
	CreatedAt time.Time
}

// Cadence is the notification timing class of a saved search.
type Cadence string

// Supported cadences.
const (
	CadenceImmediate Cadence = "immediate"
	CadenceDaily     Cadence = "daily"
	CadenceWeekly    Cadence = "weekly"
)

// Valid reports whether c is a known cadence.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceImmediate, CadenceDaily, CadenceWeekly:
		return true
	}
	return false
}

// AnyValue marks an unset string criterion.
const AnyValue = "any"

// Criteria is the predicate of a saved search. Empty or "any" strings,
// a nil Bedrooms and zero price bounds are unset.
type Criteria struct {
	PropertyType string  `json:"property_type"`
	Location     string  `json:"location"`
	Bedrooms     *int    `json:"bedrooms"`
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
}

// SavedSearch is a user-defined search that drives notifications.
type SavedSearch struct {
	ID        int64
	OwnerID   int64
	Name      string
	Criteria  Criteria
	Cadence   Cadence
	Enabled   bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NotificationType is the kind of message a notification carries.
type NotificationType string

// Supported notification types.
const (
	NotifyNewListing    NotificationType = "new_listing"
	NotifyPriceChange   NotificationType = "price_change"
	NotifyDailySummary  NotificationType = "daily_summary"
	NotifyWeeklySummary NotificationType = "weekly_summary"
)

// NotificationStatus is the delivery state of a notification record.
type NotificationStatus string

// Supported notification statuses. Sending is held while a dispatcher owns the
// record. Cancelled is terminal: the search behind the record stopped qualifying.
const (
	StatusPending   NotificationStatus = "pending"
	StatusSending   NotificationStatus = "sending"
	StatusSent      NotificationStatus = "sent"
	StatusFailed    NotificationStatus = "failed"
	StatusCancelled NotificationStatus = "cancelled"
)

// Notification is the audit record of one notification obligation.
type Notification struct {
	ID        int64
	OwnerID   int64
	SearchID  *int64
	ListingID *int64
	Type      NotificationType
	DedupKey  string
	Status    NotificationStatus
	Payload   Payload
	Attempts  int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
	SentAt    *time.Time
}

// Payload is the formatter input stored with a notification.
type Payload struct {
	Type       NotificationType `json:"type"`
	Lang       string           `json:"lang"`
	SearchName string           `json:"search_name"`
	Items      []ListingCard    `json:"items"`
	Total      int              `json:"total"`
	Change     *PriceChange     `json:"change,omitempty"`
}

// ListingCard is the subset of a listing shown in a message.
type ListingCard struct {
	ListingID    int64   `json:"listing_id"`
	Title        string  `json:"title"`
	URL          string  `json:"url"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	Location     string  `json:"location"`
	Bedrooms     int     `json:"bedrooms"`
	Area         float64 `json:"area"`
	PropertyType string  `json:"property_type"`
}

// PriceChange describes a price movement in a price change notification.
type PriceChange struct {
	OldPrice    float64 `json:"old_price"`
	OldCurrency string  `json:"old_currency"`
	Percentage  float64 `json:"percentage"`
}

// CardFromListing builds the message card for a listing.
func CardFromListing(l *Listing) ListingCard {
	loc := l.Neighborhood
	if loc == "" {
		loc = l.Location
	}
	return ListingCard{
		ListingID:    l.ID,
		Title:        l.Title,
		URL:          l.URL,
		Price:        l.Price,
		Currency:     l.Currency,
		Location:     loc,
		Bedrooms:     l.Bedrooms,
		Area:         l.Area,
		PropertyType: l.PropertyType,
	}
}

// User holds per-chat preferences.
type User struct {
	ChatID     int64
	Language   string
	DailyLimit int
	CreatedAt  time.Time
}
