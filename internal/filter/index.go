package filter

import (
	"context"
	"fmt"
	"time"

	"propbot/internal/model"
	"propbot/internal/storage"
)

// Index answers matching queries over the saved searches and listings held
// in storage. It keeps no state of its own so it is always consistent with
// the latest writes.
type Index struct {
	store storage.Storage
}

// NewIndex creates an Index over store.
func NewIndex(store storage.Storage) *Index {
	return &Index{store: store}
}

// Snapshot is a point-in-time view of enabled, active searches.
type Snapshot struct {
	searches []model.SavedSearch
}

// Load captures the enabled, active searches with the given cadence.
// An empty cadence loads every cadence.
func (ix *Index) Load(ctx context.Context, cadence model.Cadence) (*Snapshot, error) {
	searches, err := ix.store.ListActiveSearches(ctx, cadence)
	if err != nil {
		return nil, fmt.Errorf("load searches: %w", err)
	}
	return &Snapshot{searches: searches}, nil
}

// Len returns the number of searches in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.searches)
}

// Searches returns the searches in the snapshot.
func (s *Snapshot) Searches() []model.SavedSearch {
	return s.searches
}

// Find returns every search in the snapshot that matches l.
func (s *Snapshot) Find(l *model.Listing) []model.SavedSearch {
	var out []model.SavedSearch
	for _, ss := range s.searches {
		if Match(ss.Criteria, l) {
			out = append(out, ss)
		}
	}
	return out
}

// FindSearches returns all enabled, active searches of any cadence that match l.
func (ix *Index) FindSearches(ctx context.Context, l *model.Listing) ([]model.SavedSearch, error) {
	snap, err := ix.Load(ctx, "")
	if err != nil {
		return nil, err
	}
	return snap.Find(l), nil
}

// FindListings returns active listings changed after since that match c,
// most recently changed first.
func (ix *Index) FindListings(ctx context.Context, c model.Criteria, since time.Time) ([]model.Listing, error) {
	candidates, err := ix.store.ListListings(ctx, storage.ListingQuery{
		Status:       model.ListingActive,
		MinPriceUSD:  c.MinPrice,
		MaxPriceUSD:  c.MaxPrice,
		ChangedSince: &since,
	})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	var out []model.Listing
	for i := range candidates {
		if Match(c, &candidates[i]) {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}
