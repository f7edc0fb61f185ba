package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"propbot/internal/model"
	"propbot/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestReconciler(store storage.Storage) *Reconciler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewReconciler(store, NewLocalLocker(), 1000, log)
	r.SetRetry(2, time.Millisecond)
	r.now = func() time.Time { return testNow }
	return r
}

func raw(source, extID string, price float64, currency string) model.RawListing {
	return model.RawListing{
		Source:       source,
		ExternalID:   extID,
		URL:          "https://" + source + ".example/" + extID,
		Title:        "Departamento " + extID,
		PropertyType: "Apartment",
		Neighborhood: "Palermo",
		Price:        price,
		Currency:     currency,
		Rooms:        2,
		Area:         50,
		Features:     []string{"balcón", "cochera", "balcón", " "},
	}
}

var ignoreReportErrors = cmpopts.IgnoreFields(Report{}, "Errors")

func TestReconcileCreatesListings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{
		raw("siteA", "1", 100000000, "ARS"),
		raw("siteA", "2", 95000, "usd"),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 1, Received: 2, Created: 2}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	got, err := store.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "1"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	wantListing := model.Listing{
		ID:            got.ID,
		Source:        "siteA",
		ExternalID:    "1",
		URL:           "https://siteA.example/1",
		Title:         "Departamento 1",
		PropertyType:  "apartment",
		Neighborhood:  "Palermo",
		Bedrooms:      2,
		Area:          50,
		Price:         100000000,
		Currency:      "ARS",
		PriceUSD:      100000,
		Features:      []string{"balcón", "cochera"},
		Status:        model.ListingActive,
		Epoch:         1,
		Version:       1,
		FirstSeenAt:   testNow,
		LastSeenAt:    testNow,
		LastChangedAt: testNow,
	}
	if diff := cmp.Diff(wantListing, *got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}

	events, _ := store.ListEventsAfter(ctx, 0, 10)
	if diff := cmp.Diff(2, len(events)); diff != "" {
		t.Errorf("event count (-want +got):\n%s", diff)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	batch := []model.RawListing{
		raw("siteA", "1", 100000, "ARS"),
		raw("siteA", "2", 120000, "USD"),
		raw("siteA", "3", 0, ""),
	}
	if _, err := r.Reconcile(ctx, "siteA", batch); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	before, _ := store.ListListings(ctx, storage.ListingQuery{})
	eventsBefore, _ := store.ListEventsAfter(ctx, 0, 100)

	r.now = func() time.Time { return testNow.Add(time.Hour) }
	rep, err := r.Reconcile(ctx, "siteA", batch)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 2, Received: 3, Unchanged: 3}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("second report mismatch (-want +got):\n%s", diff)
	}

	after, _ := store.ListListings(ctx, storage.ListingQuery{})
	ignoreSeen := cmpopts.IgnoreFields(model.Listing{}, "LastSeenAt", "Epoch", "Version")
	if diff := cmp.Diff(before, after, ignoreSeen); diff != "" {
		t.Errorf("catalog changed on identical batch (-before +after):\n%s", diff)
	}
	for _, l := range after {
		if !l.LastChangedAt.Equal(testNow) {
			t.Errorf("listing %s LastChangedAt bumped to %v", l.ExternalID, l.LastChangedAt)
		}
		if !l.LastSeenAt.Equal(testNow.Add(time.Hour)) {
			t.Errorf("listing %s LastSeenAt not bumped: %v", l.ExternalID, l.LastSeenAt)
		}
	}

	eventsAfter, _ := store.ListEventsAfter(ctx, 0, 100)
	if diff := cmp.Diff(len(eventsBefore), len(eventsAfter)); diff != "" {
		t.Errorf("events added on identical batch (-want +got):\n%s", diff)
	}
	st, _ := store.Stats(ctx)
	if diff := cmp.Diff(0, st.PriceHistoryLen); diff != "" {
		t.Errorf("price history rows (-want +got):\n%s", diff)
	}
}

func TestReconcilePriceHistory(t *testing.T) {
	tests := []struct {
		name      string
		oldPrice  float64
		oldCur    string
		newPrice  float64
		newCur    string
		wantType  model.PriceChangeType
		wantPct   float64
		wantEvent bool
	}{
		{
			name:     "increase",
			oldPrice: 100000, oldCur: "ARS", newPrice: 120000, newCur: "ARS",
			wantType: model.PriceIncrease, wantPct: 20,
		},
		{
			name:     "decrease",
			oldPrice: 150000, oldCur: "USD", newPrice: 135000, newCur: "USD",
			wantType: model.PriceDecrease, wantPct: -10,
		},
		{
			name:     "rounded percentage",
			oldPrice: 300, oldCur: "USD", newPrice: 400, newCur: "USD",
			wantType: model.PriceIncrease, wantPct: 33.33,
		},
		{
			name:     "currency change compares usd prices",
			oldPrice: 100000000, oldCur: "ARS", newPrice: 110000, newCur: "USD",
			wantType: model.PriceCurrencyChange, wantPct: 10,
		},
		{
			name:     "currency change with unknown usd price",
			oldPrice: 100000, oldCur: "EUR", newPrice: 110000, newCur: "USD",
			wantType: model.PriceCurrencyChange, wantPct: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(t)
			r := newTestReconciler(store)

			if _, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "1", tt.oldPrice, tt.oldCur)}); err != nil {
				t.Fatalf("first pass: %v", err)
			}
			rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "1", tt.newPrice, tt.newCur)})
			if err != nil {
				t.Fatalf("second pass: %v", err)
			}
			want := &Report{Source: "siteA", Epoch: 2, Received: 1, Updated: 1, PriceChanged: 1}
			if diff := cmp.Diff(want, rep); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}

			l, _ := store.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "1"})
			history, err := store.ListPriceHistory(ctx, l.ID)
			if err != nil {
				t.Fatalf("history: %v", err)
			}
			wantHistory := []model.PriceHistoryEntry{{
				ListingID:   l.ID,
				OldPrice:    tt.oldPrice,
				NewPrice:    tt.newPrice,
				OldCurrency: tt.oldCur,
				NewCurrency: tt.newCur,
				ChangeType:  tt.wantType,
				Percentage:  tt.wantPct,
				CreatedAt:   testNow,
			}}
			if diff := cmp.Diff(wantHistory, history, cmpopts.IgnoreFields(model.PriceHistoryEntry{}, "ID")); diff != "" {
				t.Errorf("history mismatch (-want +got):\n%s", diff)
			}

			events, _ := store.ListEventsAfter(ctx, 0, 10)
			var kinds []model.EventKind
			for _, e := range events {
				kinds = append(kinds, e.Kind)
			}
			if diff := cmp.Diff([]model.EventKind{model.EventCreated, model.EventPriceChanged}, kinds); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReconcileNonPriceUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	first := raw("siteA", "1", 1000, "USD")
	if _, err := r.Reconcile(ctx, "siteA", []model.RawListing{first}); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	second := first
	second.Area = 65
	r.now = func() time.Time { return testNow.Add(time.Hour) }
	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{second})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 2, Received: 1, Updated: 1}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	l, _ := store.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "1"})
	if diff := cmp.Diff(65.0, l.Area); diff != "" {
		t.Errorf("area (-want +got):\n%s", diff)
	}
	if !l.LastChangedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("LastChangedAt = %v, want bumped", l.LastChangedAt)
	}
	if !l.FirstSeenAt.Equal(testNow) {
		t.Errorf("FirstSeenAt = %v, want unchanged", l.FirstSeenAt)
	}
}

func TestReconcileDelistingIsPerSource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	if _, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "a1", 1, "USD"), raw("siteA", "a2", 1, "USD")}); err != nil {
		t.Fatalf("siteA: %v", err)
	}
	if _, err := r.Reconcile(ctx, "siteB", []model.RawListing{raw("siteB", "b1", 1, "USD")}); err != nil {
		t.Fatalf("siteB: %v", err)
	}

	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "a1", 1, "USD")})
	if err != nil {
		t.Fatalf("siteA again: %v", err)
	}
	if diff := cmp.Diff(1, rep.Deactivated); diff != "" {
		t.Errorf("deactivated (-want +got):\n%s", diff)
	}

	tests := []struct {
		key  model.ListingKey
		want model.ListingStatus
	}{
		{model.ListingKey{Source: "siteA", ExternalID: "a1"}, model.ListingActive},
		{model.ListingKey{Source: "siteA", ExternalID: "a2"}, model.ListingInactive},
		{model.ListingKey{Source: "siteB", ExternalID: "b1"}, model.ListingActive},
	}
	for _, tt := range tests {
		l, err := store.GetListingByKey(ctx, tt.key)
		if err != nil {
			t.Fatalf("get %v: %v", tt.key, err)
		}
		if diff := cmp.Diff(tt.want, l.Status); diff != "" {
			t.Errorf("status of %v (-want +got):\n%s", tt.key, diff)
		}
	}
}

func TestReconcileReactivates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	a1, a2 := raw("siteA", "a1", 1, "USD"), raw("siteA", "a2", 1, "USD")
	for _, batch := range [][]model.RawListing{{a1, a2}, {a1}} {
		if _, err := r.Reconcile(ctx, "siteA", batch); err != nil {
			t.Fatalf("reconcile: %v", err)
		}
	}

	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{a1, a2})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 3, Received: 2, Unchanged: 1, Reactivated: 1}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	l, _ := store.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "a2"})
	if diff := cmp.Diff(model.ListingActive, l.Status); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

func TestReconcileSkipsMalformedRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{
		raw("siteA", "1", 1, "USD"),
		raw("siteA", "", 1, "USD"),
		raw("", "2", 1, "USD"),
		raw("siteB", "3", 1, "USD"),
		raw("siteA", "1", 2, "USD"),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 1, Received: 5, Created: 1, Malformed: 3, Duplicates: 1}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileEmptyBatchSkipsSweep(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	if _, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "1", 1, "USD")}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "", 1, "USD")})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !rep.SweepSkipped {
		t.Error("expected sweep to be skipped")
	}
	l, _ := store.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "1"})
	if diff := cmp.Diff(model.ListingActive, l.Status); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

// flakyStore fails SaveListing for selected external IDs.
type flakyStore struct {
	storage.Storage
	mu       sync.Mutex
	failures map[string]int
	calls    map[string]int
}

func (f *flakyStore) SaveListing(ctx context.Context, change *storage.ListingChange) error {
	f.mu.Lock()
	id := change.Listing.ExternalID
	f.calls[id]++
	fail := f.failures[id] != 0 && (f.failures[id] < 0 || f.calls[id] <= f.failures[id])
	f.mu.Unlock()
	if fail {
		return errors.New("disk I/O error")
	}
	return f.Storage.SaveListing(ctx, change)
}

func TestReconcileRetriesAndSkips(t *testing.T) {
	ctx := context.Background()
	base := newTestStore(t)
	r := newTestReconciler(base)
	if _, err := r.Reconcile(ctx, "siteA", []model.RawListing{raw("siteA", "old", 1, "USD")}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := &flakyStore{
		Storage:  base,
		failures: map[string]int{"transient": 2, "broken": -1},
		calls:    map[string]int{},
	}
	r = newTestReconciler(store)

	rep, err := r.Reconcile(ctx, "siteA", []model.RawListing{
		raw("siteA", "transient", 1, "USD"),
		raw("siteA", "broken", 1, "USD"),
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := &Report{Source: "siteA", Epoch: 2, Received: 2, Created: 1, Skipped: 1, SweepSkipped: true}
	if diff := cmp.Diff(want, rep, ignoreReportErrors); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, len(rep.Errors)); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(3, store.calls["broken"]); diff != "" {
		t.Errorf("attempts on broken record (-want +got):\n%s", diff)
	}

	old, _ := base.GetListingByKey(ctx, model.ListingKey{Source: "siteA", ExternalID: "old"})
	if diff := cmp.Diff(model.ListingActive, old.Status); diff != "" {
		t.Errorf("listing swept despite failed pass (-want +got):\n%s", diff)
	}
}

func TestReconcileConcurrentSameSource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	r := newTestReconciler(store)

	batch := []model.RawListing{raw("siteA", "1", 1, "USD"), raw("siteA", "2", 1, "USD")}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Reconcile(ctx, "siteA", batch); err != nil {
				t.Errorf("reconcile: %v", err)
			}
		}()
	}
	wg.Wait()

	all, _ := store.ListListings(ctx, storage.ListingQuery{})
	if diff := cmp.Diff(2, len(all)); diff != "" {
		t.Errorf("row count (-want +got):\n%s", diff)
	}
	for _, l := range all {
		if l.Status != model.ListingActive {
			t.Errorf("listing %s is %s", l.ExternalID, l.Status)
		}
	}
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.Lock(context.Background(), "siteA")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "siteA"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	other, err := l.Lock(context.Background(), "siteB")
	if err != nil {
		t.Fatalf("lock other key: %v", err)
	}
	other()

	unlock()
	unlock()
	again, err := l.Lock(context.Background(), "siteA")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestKeepAliveExtendsUntilStopped(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	extend := func(context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return true, nil
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		keepAlive(ctx, 5*time.Millisecond, extend)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not stop after cancel")
	}

	got := count()
	if got < 2 {
		t.Errorf("extend called %d times, want at least 2", got)
	}
	time.Sleep(20 * time.Millisecond)
	if diff := cmp.Diff(got, count()); diff != "" {
		t.Errorf("extend called after stop (-want +got):\n%s", diff)
	}
}

func TestKeepAliveStopsWhenLockLost(t *testing.T) {
	var mu sync.Mutex
	results := []error{errors.New("connection reset"), nil}
	extend := func(context.Context) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		err := results[0]
		results = results[1:]
		return false, err
	}

	done := make(chan struct{})
	go func() {
		keepAlive(context.Background(), 5*time.Millisecond, extend)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after the lock was lost")
	}
	mu.Lock()
	defer mu.Unlock()
	if diff := cmp.Diff(0, len(results)); diff != "" {
		t.Errorf("remaining extend results (-want +got):\n%s", diff)
	}
}
