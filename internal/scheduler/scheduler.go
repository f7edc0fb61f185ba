// Package scheduler turns catalog changes into notification records and
// flushes them through the dispatcher on three independent cadences.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"propbot/internal/dispatch"
	"propbot/internal/filter"
	"propbot/internal/model"
	"propbot/internal/storage"
)

const (
	cursorImmediate = "immediate_events"
	eventBatchSize  = 500
	flushBatchSize  = 500
)

// Config controls scheduling and delivery limits.
type Config struct {
	Interval     time.Duration
	DailyCap     int
	MaxAttempts  int
	DailyHour    int
	WeeklyDay    int
	Location     *time.Location
	SummaryItems int
	DefaultLang  string
}

// Scheduler runs the immediate, daily and weekly notification loops.
type Scheduler struct {
	store storage.Storage
	index *filter.Index
	disp  *dispatch.Dispatcher
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
	batch int
}

// New creates a Scheduler.
func New(store storage.Storage, index *filter.Index, disp *dispatch.Dispatcher, cfg Config, log *slog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SummaryItems <= 0 {
		cfg.SummaryItems = 10
	}
	return &Scheduler{
		store: store,
		index: index,
		disp:  disp,
		cfg:   cfg,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		batch: flushBatchSize,
	}
}

// Run starts all loops and blocks until ctx is cancelled. Work that is
// already running when ctx ends is allowed to finish its in-flight sends.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithLocation(s.cfg.Location),
		cron.WithLogger(cronLogger{s.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * *", s.cfg.DailyHour), func() {
		s.runSummaries(ctx, model.CadenceDaily)
	}); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}
	if _, err := c.AddFunc(fmt.Sprintf("0 %d * * %d", s.cfg.DailyHour, s.cfg.WeeklyDay), func() {
		s.runSummaries(ctx, model.CadenceWeekly)
	}); err != nil {
		return fmt.Errorf("schedule weekly summary: %w", err)
	}
	c.Start()

	s.catchUp(ctx)
	s.runImmediate(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-c.Stop().Done()
			return nil
		case <-ticker.C:
			s.runImmediate(ctx)
		}
	}
}

// catchUp produces summaries whose trigger time already passed today, e.g.
// after a restart. Dedup keys make repeated runs for the same bucket no-ops.
func (s *Scheduler) catchUp(ctx context.Context) {
	local := s.now().In(s.cfg.Location)
	if local.Hour() < s.cfg.DailyHour {
		return
	}
	s.runSummaries(ctx, model.CadenceDaily)
	if int(local.Weekday()) == s.cfg.WeeklyDay {
		s.runSummaries(ctx, model.CadenceWeekly)
	}
}

// runImmediate enqueues one notification per new or re-priced active listing
// and matching immediate search, then flushes.
func (s *Scheduler) runImmediate(ctx context.Context) {
	if err := s.scanEvents(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("scan listing events", "error", err)
	}
	s.flush(ctx)
}

func (s *Scheduler) scanEvents(ctx context.Context) error {
	cursor, err := s.store.GetCursor(ctx, cursorImmediate)
	if err != nil {
		return err
	}
	snap, err := s.index.Load(ctx, model.CadenceImmediate)
	if err != nil {
		return err
	}
	langs := make(map[int64]string)

	for {
		events, err := s.store.ListEventsAfter(ctx, cursor, eventBatchSize)
		if err != nil {
			return err
		}

		var scanErr error
		for _, ev := range events {
			if ctx.Err() != nil {
				break
			}
			if snap.Len() > 0 {
				if err := s.enqueueForEvent(ctx, snap, ev, langs); err != nil {
					scanErr = fmt.Errorf("event %d: %w", ev.ID, err)
					break
				}
			}
			cursor = ev.ID
		}

		if err := s.store.SetCursor(ctx, cursorImmediate, cursor); err != nil {
			return err
		}
		if scanErr != nil {
			return scanErr
		}
		if len(events) < eventBatchSize || ctx.Err() != nil {
			return nil
		}
	}
}

// enqueueForEvent records obligations for one change event. An error leaves
// the event unconsumed so the next cycle retries it; enqueueing is idempotent.
func (s *Scheduler) enqueueForEvent(ctx context.Context, snap *filter.Snapshot, ev model.ListingEvent, langs map[int64]string) error {
	var typ model.NotificationType
	switch ev.Kind {
	case model.EventCreated:
		typ = model.NotifyNewListing
	case model.EventPriceChanged:
		typ = model.NotifyPriceChange
	default:
		return nil
	}

	l, err := s.store.GetListing(ctx, ev.ListingID)
	if err != nil {
		return fmt.Errorf("get listing: %w", err)
	}
	if l.Status != model.ListingActive {
		return nil
	}
	matches := snap.Find(l)
	if len(matches) == 0 {
		return nil
	}

	var change *model.PriceChange
	if typ == model.NotifyPriceChange {
		if change, err = s.priceChangeFor(ctx, l.ID, ev.CreatedAt); err != nil {
			return err
		}
	}

	var failed error
	for _, ss := range matches {
		key := fmt.Sprintf("search:%d:listing:%d:created", ss.ID, l.ID)
		if typ == model.NotifyPriceChange {
			key = fmt.Sprintf("search:%d:listing:%d:price:%d", ss.ID, l.ID, ev.ID)
		}
		searchID, listingID := ss.ID, l.ID
		n := &model.Notification{
			OwnerID:   ss.OwnerID,
			SearchID:  &searchID,
			ListingID: &listingID,
			Type:      typ,
			DedupKey:  key,
			CreatedAt: s.now(),
			Payload: model.Payload{
				Type:       typ,
				Lang:       s.language(ctx, ss.OwnerID, langs),
				SearchName: ss.Name,
				Items:      []model.ListingCard{model.CardFromListing(l)},
				Total:      1,
				Change:     change,
			},
		}
		if _, err := s.store.EnqueueNotification(ctx, n); err != nil {
			s.log.Error("enqueue notification", "search_id", ss.ID, "listing_id", l.ID, "error", err)
			failed = err
		}
	}
	return failed
}

func (s *Scheduler) priceChangeFor(ctx context.Context, listingID int64, at time.Time) (*model.PriceChange, error) {
	history, err := s.store.ListPriceHistory(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	var entry *model.PriceHistoryEntry
	for i := range history {
		if !history[i].CreatedAt.After(at) {
			entry = &history[i]
		}
	}
	if entry == nil {
		return nil, errors.New("price change event without history entry")
	}
	return &model.PriceChange{
		OldPrice:    entry.OldPrice,
		OldCurrency: entry.OldCurrency,
		Percentage:  entry.Percentage,
	}, nil
}

// runSummaries enqueues one summary per search of the given cadence for the
// current bucket, then flushes. A failing search does not stop the others.
func (s *Scheduler) runSummaries(ctx context.Context, cadence model.Cadence) {
	now := s.now()
	window, bucket, typ := 24*time.Hour, "daily:"+now.In(s.cfg.Location).Format("2006-01-02"), model.NotifyDailySummary
	if cadence == model.CadenceWeekly {
		y, w := now.In(s.cfg.Location).ISOWeek()
		window, bucket, typ = 7*24*time.Hour, fmt.Sprintf("weekly:%d-W%02d", y, w), model.NotifyWeeklySummary
	}

	snap, err := s.index.Load(ctx, cadence)
	if err != nil {
		s.log.Error("load searches", "cadence", cadence, "error", err)
		return
	}

	langs := make(map[int64]string)
	queued := 0
	for _, ss := range snap.Searches() {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.enqueueSummary(ctx, ss, typ, bucket, now.Add(-window), langs)
		if err != nil {
			s.log.Error("build summary", "search_id", ss.ID, "owner_id", ss.OwnerID, "error", err)
			continue
		}
		if ok {
			queued++
		}
	}
	s.log.Info("summaries queued", "cadence", cadence, "bucket", bucket, "count", queued)

	s.flush(ctx)
}

func (s *Scheduler) enqueueSummary(ctx context.Context, ss model.SavedSearch, typ model.NotificationType, bucket string, since time.Time, langs map[int64]string) (bool, error) {
	listings, err := s.index.FindListings(ctx, ss.Criteria, since)
	if err != nil {
		return false, err
	}
	if len(listings) == 0 {
		return false, nil
	}

	items := make([]model.ListingCard, 0, min(len(listings), s.cfg.SummaryItems))
	for i := range listings[:min(len(listings), s.cfg.SummaryItems)] {
		items = append(items, model.CardFromListing(&listings[i]))
	}

	searchID := ss.ID
	return s.store.EnqueueNotification(ctx, &model.Notification{
		OwnerID:   ss.OwnerID,
		SearchID:  &searchID,
		Type:      typ,
		DedupKey:  fmt.Sprintf("search:%d:%s", ss.ID, bucket),
		CreatedAt: s.now(),
		Payload: model.Payload{
			Type:       typ,
			Lang:       s.language(ctx, ss.OwnerID, langs),
			SearchName: ss.Name,
			Items:      items,
			Total:      len(listings),
		},
	})
}

// FlushResult counts what happened to the records seen by one flush.
type FlushResult struct {
	Sent      int
	Failed    int
	Deferred  int
	Skipped   int
	Cancelled int
}

// flush attempts every due record at most once. Owners that reached their
// rolling 24h cap keep their records pending for a later cycle and are left
// out of the following pages, so one backlog cannot hold back other owners.
func (s *Scheduler) flush(ctx context.Context) FlushResult {
	var res FlushResult
	now := s.now()
	q := storage.DueQuery{
		MaxAttempts: s.cfg.MaxAttempts,
		StaleBefore: now.Add(-s.disp.Lease()),
		Limit:       s.batch,
	}
	remaining := make(map[int64]int)

	for ctx.Err() == nil {
		due, err := s.store.ListDueNotifications(ctx, q)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error("list due notifications", "error", err)
			}
			break
		}
		if len(due) == 0 {
			break
		}
		q.AfterID = due[len(due)-1].ID

		for _, n := range due {
			if ctx.Err() != nil {
				break
			}
			s.flushOne(ctx, n, now, remaining, &res)
		}

		q.ExcludeOwners = q.ExcludeOwners[:0]
		for owner, left := range remaining {
			if left <= 0 {
				q.ExcludeOwners = append(q.ExcludeOwners, owner)
			}
		}
	}

	if res.Sent+res.Failed+res.Deferred+res.Cancelled > 0 {
		s.log.Info("flushed notifications", "sent", res.Sent, "failed", res.Failed,
			"deferred", res.Deferred, "skipped", res.Skipped, "cancelled", res.Cancelled)
	}
	return res
}

func (s *Scheduler) flushOne(ctx context.Context, n model.Notification, now time.Time, remaining map[int64]int, res *FlushResult) {
	left, ok := remaining[n.OwnerID]
	if !ok {
		var err error
		left, err = s.capacity(ctx, n.OwnerID, now)
		if err != nil {
			s.log.Error("count sent notifications", "owner_id", n.OwnerID, "error", err)
			return
		}
	}
	if left <= 0 {
		remaining[n.OwnerID] = 0
		res.Deferred++
		return
	}

	outcome, err := s.disp.Deliver(ctx, n.DedupKey)
	switch outcome {
	case dispatch.Delivered:
		left--
		res.Sent++
	case dispatch.Failed:
		res.Failed++
		s.log.Warn("deliver notification", "owner_id", n.OwnerID, "dedup_key", n.DedupKey, "error", err)
	case dispatch.Cancelled:
		res.Cancelled++
	default:
		res.Skipped++
	}
	remaining[n.OwnerID] = left
}

func (s *Scheduler) capacity(ctx context.Context, ownerID int64, now time.Time) (int, error) {
	limit := s.cfg.DailyCap
	u, err := s.store.GetUser(ctx, ownerID)
	switch {
	case err == nil && u.DailyLimit > 0:
		limit = u.DailyLimit
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return 0, err
	}
	sent, err := s.store.CountSentSince(ctx, ownerID, now.Add(-24*time.Hour))
	if err != nil {
		return 0, err
	}
	return limit - sent, nil
}

func (s *Scheduler) language(ctx context.Context, ownerID int64, cache map[int64]string) string {
	if lang, ok := cache[ownerID]; ok {
		return lang
	}
	lang := s.cfg.DefaultLang
	if u, err := s.store.GetUser(ctx, ownerID); err == nil && u.Language != "" {
		lang = u.Language
	}
	cache[ownerID] = lang
	return lang
}

type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
