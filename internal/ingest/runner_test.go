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

	"propbot/internal/config"
	"propbot/internal/model"
	"propbot/internal/storage"
)

type mockFetcher struct {
	mu      sync.Mutex
	batches map[string][]model.RawListing
	errs    map[string]error
	calls   []string
}

func (m *mockFetcher) Fetch(_ context.Context, src config.Source) ([]model.RawListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, src.Name)
	if err := m.errs[src.Name]; err != nil {
		return nil, err
	}
	return m.batches[src.Name], nil
}

func TestRunnerIngestsEverySource(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &mockFetcher{
		batches: map[string][]model.RawListing{
			"siteA": {raw("siteA", "a1", 1, "USD")},
			"siteB": {raw("siteB", "b1", 1, "USD"), raw("siteB", "b2", 1, "USD")},
		},
		errs: map[string]error{"siteC": errors.New("connection refused")},
	}
	sources := []config.Source{{Name: "siteA"}, {Name: "siteB"}, {Name: "siteC"}}
	runner := NewRunner(f, newTestReconciler(store), sources, time.Hour, time.Second, log)

	runner.runAll(ctx)

	if diff := cmp.Diff(3, len(f.calls)); diff != "" {
		t.Errorf("fetch calls (-want +got):\n%s", diff)
	}
	all, err := store.ListListings(ctx, storage.ListingQuery{Status: model.ListingActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(3, len(all)); diff != "" {
		t.Errorf("active listings (-want +got):\n%s", diff)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &mockFetcher{batches: map[string][]model.RawListing{}}
	runner := NewRunner(f, newTestReconciler(store), []config.Source{{Name: "siteA"}}, 10*time.Millisecond, time.Second, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
