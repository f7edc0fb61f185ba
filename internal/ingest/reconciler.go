// Package ingest merges raw crawler batches into the listing catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"propbot/internal/model"
	"propbot/internal/storage"
)

const (
	defaultMaxRetries = 3
	defaultRetryBase  = 100 * time.Millisecond
	defaultCurrency   = "ARS"
)

// Report summarises one reconciliation pass.
type Report struct {
	Source       string   `json:"source"`
	Epoch        int64    `json:"epoch"`
	Received     int      `json:"received"`
	Created      int      `json:"created"`
	Updated      int      `json:"updated"`
	PriceChanged int      `json:"price_changed"`
	Unchanged    int      `json:"unchanged"`
	Reactivated  int      `json:"reactivated"`
	Deactivated  int      `json:"deactivated"`
	Skipped      int      `json:"skipped"`
	Malformed    int      `json:"malformed"`
	Duplicates   int      `json:"duplicates"`
	SweepSkipped bool     `json:"sweep_skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// Reconciler upserts raw listings into storage and retires listings that a
// full pass no longer observes.
type Reconciler struct {
	store      storage.Storage
	locker     Locker
	log        *slog.Logger
	usdRate    float64
	maxRetries uint64
	retryBase  time.Duration
	now        func() time.Time
}

// NewReconciler creates a Reconciler. usdRate is the number of ARS per USD.
func NewReconciler(store storage.Storage, locker Locker, usdRate float64, log *slog.Logger) *Reconciler {
	return &Reconciler{
		store:      store,
		locker:     locker,
		log:        log,
		usdRate:    usdRate,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetRetry overrides the per-record retry budget.
func (r *Reconciler) SetRetry(maxRetries uint64, base time.Duration) {
	r.maxRetries = maxRetries
	r.retryBase = base
}

type outcome int

const (
	outcomeUnchanged outcome = iota
	outcomeCreated
	outcomeUpdated
)

type result struct {
	outcome      outcome
	priceChanged bool
	reactivated  bool
}

// Reconcile applies a full batch for source. Record-level problems are
// counted in the report; an error is returned only when the pass could not
// start or was cancelled.
func (r *Reconciler) Reconcile(ctx context.Context, source string, batch []model.RawListing) (*Report, error) {
	unlock, err := r.locker.Lock(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("lock source %s: %w", source, err)
	}
	defer unlock()

	epoch, err := r.store.BeginPass(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("begin pass: %w", err)
	}

	rep := &Report{Source: source, Epoch: epoch, Received: len(batch)}
	now := r.now()
	seen := make(map[string]struct{}, len(batch))
	valid, failed := 0, false

	for _, raw := range batch {
		if ctx.Err() != nil {
			rep.SweepSkipped = true
			return rep, ctx.Err()
		}

		extID := strings.TrimSpace(raw.ExternalID)
		if strings.TrimSpace(raw.Source) != source || extID == "" {
			rep.Malformed++
			continue
		}
		if _, dup := seen[extID]; dup {
			rep.Duplicates++
			continue
		}
		seen[extID] = struct{}{}
		valid++

		var res result
		b := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.retryBase))
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			var err error
			res, err = r.apply(ctx, source, extID, epoch, raw, now)
			if err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			failed = true
			rep.Skipped++
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", extID, err))
			r.log.Warn("skip listing", "source", source, "external_id", extID, "error", err)
			continue
		}

		switch res.outcome {
		case outcomeCreated:
			rep.Created++
		case outcomeUpdated:
			rep.Updated++
		default:
			if !res.reactivated {
				rep.Unchanged++
			}
		}
		if res.priceChanged {
			rep.PriceChanged++
		}
		if res.reactivated {
			rep.Reactivated++
		}
	}

	switch {
	case failed, valid == 0:
		rep.SweepSkipped = true
	default:
		n, err := r.store.DeactivateStale(ctx, source, epoch, now)
		if err != nil {
			rep.SweepSkipped = true
			rep.Errors = append(rep.Errors, fmt.Sprintf("deactivate stale: %v", err))
			r.log.Error("deactivate stale", "source", source, "error", err)
		} else {
			rep.Deactivated = n
		}
	}

	r.log.Info("reconciled batch",
		"source", source, "epoch", epoch, "received", rep.Received,
		"created", rep.Created, "updated", rep.Updated, "price_changed", rep.PriceChanged,
		"reactivated", rep.Reactivated, "deactivated", rep.Deactivated,
		"skipped", rep.Skipped, "malformed", rep.Malformed, "sweep_skipped", rep.SweepSkipped,
	)
	return rep, nil
}

// apply performs one read-compare-write for a record. A lost race surfaces as
// storage.ErrConflict and the caller retries with a fresh read.
func (r *Reconciler) apply(ctx context.Context, source, extID string, epoch int64, raw model.RawListing, now time.Time) (result, error) {
	incoming := r.fromRaw(source, extID, raw)

	existing, err := r.store.GetListingByKey(ctx, model.ListingKey{Source: source, ExternalID: extID})
	if errors.Is(err, storage.ErrNotFound) {
		incoming.Status = model.ListingActive
		incoming.Epoch = epoch
		incoming.FirstSeenAt = now
		incoming.LastSeenAt = now
		incoming.LastChangedAt = now
		change := &storage.ListingChange{
			Listing: incoming,
			Insert:  true,
			Events:  []model.EventKind{model.EventCreated},
			At:      now,
		}
		if err := r.store.SaveListing(ctx, change); err != nil {
			return result{}, err
		}
		return result{outcome: outcomeCreated}, nil
	}
	if err != nil {
		return result{}, err
	}

	next := *existing
	var res result
	change := &storage.ListingChange{Listing: &next, At: now}

	if existing.Price != incoming.Price || existing.Currency != incoming.Currency {
		res.priceChanged = true
		change.History = r.priceHistory(existing, incoming)
		change.Events = append(change.Events, model.EventPriceChanged)
	}
	if res.priceChanged || trackedFieldsDiffer(existing, incoming) {
		res.outcome = outcomeUpdated
	}
	if existing.Status != model.ListingActive {
		res.reactivated = true
		change.Events = append(change.Events, model.EventReactivated)
	}

	copyTracked(&next, incoming)
	next.PriceUSD = incoming.PriceUSD
	if incoming.PublishedAt != nil {
		next.PublishedAt = incoming.PublishedAt
	}
	next.Status = model.ListingActive
	next.Epoch = epoch
	next.LastSeenAt = now
	if res.outcome == outcomeUpdated || res.reactivated {
		next.LastChangedAt = now
	}

	if err := r.store.SaveListing(ctx, change); err != nil {
		return result{}, err
	}
	return res, nil
}

func (r *Reconciler) fromRaw(source, extID string, raw model.RawListing) *model.Listing {
	currency := strings.ToUpper(strings.TrimSpace(raw.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return &model.Listing{
		Source:       source,
		ExternalID:   extID,
		URL:          strings.TrimSpace(raw.URL),
		Title:        strings.TrimSpace(raw.Title),
		PropertyType: strings.ToLower(strings.TrimSpace(raw.PropertyType)),
		Location:     strings.TrimSpace(raw.Location),
		Neighborhood: strings.TrimSpace(raw.Neighborhood),
		Bedrooms:     raw.Rooms,
		Area:         raw.Area,
		Price:        raw.Price,
		Currency:     currency,
		PriceUSD:     r.toUSD(raw.Price, currency),
		Features:     orderedSet(raw.Features),
		Photos:       orderedSet(raw.Photos),
		Description:  strings.TrimSpace(raw.Description),
		PublishedAt:  raw.PublishedAt,
	}
}

// toUSD returns the USD equivalent of a price, or 0 when it cannot be known.
func (r *Reconciler) toUSD(price float64, currency string) float64 {
	if price <= 0 {
		return 0
	}
	switch currency {
	case "USD":
		return price
	case "ARS":
		if r.usdRate <= 0 {
			return 0
		}
		return round2(price / r.usdRate)
	}
	return 0
}

func (r *Reconciler) priceHistory(old, cur *model.Listing) *model.PriceHistoryEntry {
	h := &model.PriceHistoryEntry{
		OldPrice:    old.Price,
		NewPrice:    cur.Price,
		OldCurrency: old.Currency,
		NewCurrency: cur.Currency,
	}
	switch {
	case old.Currency != cur.Currency:
		h.ChangeType = model.PriceCurrencyChange
		oldUSD := r.toUSD(old.Price, old.Currency)
		if oldUSD > 0 && cur.PriceUSD > 0 {
			h.Percentage = percentChange(oldUSD, cur.PriceUSD)
		}
	case cur.Price > old.Price:
		h.ChangeType = model.PriceIncrease
		h.Percentage = percentChange(old.Price, cur.Price)
	default:
		h.ChangeType = model.PriceDecrease
		h.Percentage = percentChange(old.Price, cur.Price)
	}
	return h
}

func percentChange(old, cur float64) float64 {
	if old == 0 {
		return 0
	}
	return round2((cur - old) / old * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func trackedFieldsDiffer(a, b *model.Listing) bool {
	return a.Bedrooms != b.Bedrooms ||
		a.Area != b.Area ||
		a.Title != b.Title ||
		a.URL != b.URL ||
		a.PropertyType != b.PropertyType ||
		a.Location != b.Location ||
		a.Neighborhood != b.Neighborhood ||
		a.Description != b.Description ||
		!slices.Equal(a.Features, b.Features) ||
		!slices.Equal(a.Photos, b.Photos)
}

func copyTracked(dst, src *model.Listing) {
	dst.URL = src.URL
	dst.Title = src.Title
	dst.PropertyType = src.PropertyType
	dst.Location = src.Location
	dst.Neighborhood = src.Neighborhood
	dst.Bedrooms = src.Bedrooms
	dst.Area = src.Area
	dst.Price = src.Price
	dst.Currency = src.Currency
	dst.Features = src.Features
	dst.Photos = src.Photos
	dst.Description = src.Description
}

// orderedSet trims values and drops blanks and repeats, keeping first-seen order.
func orderedSet(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
