package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"propbot/internal/config"
	"propbot/internal/model"
)

// Fetcher retrieves the current raw batch of a source.
type Fetcher interface {
	Fetch(ctx context.Context, src config.Source) ([]model.RawListing, error)
}

// Runner periodically fetches every configured source and reconciles it.
type Runner struct {
	fetcher  Fetcher
	rec      *Reconciler
	sources  []config.Source
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// NewRunner creates a Runner. timeout bounds each fetch.
func NewRunner(f Fetcher, rec *Reconciler, sources []config.Source, interval, timeout time.Duration, log *slog.Logger) *Runner {
	return &Runner{
		fetcher:  f,
		rec:      rec,
		sources:  sources,
		interval: interval,
		timeout:  timeout,
		log:      log,
	}
}

// Run ingests all sources immediately and then on every interval until ctx
// is cancelled.
func (r *Runner) Run(ctx context.Context) {
	if len(r.sources) == 0 {
		r.log.Info("no ingest sources configured")
		return
	}

	r.runAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runAll(ctx)
		}
	}
}

// Sources are independent so they are ingested concurrently.
func (r *Runner) runAll(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(4)
	for _, src := range r.sources {
		src := src
		g.Go(func() error {
			r.runSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runSource(ctx context.Context, src config.Source) {
	if ctx.Err() != nil {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	batch, err := r.fetcher.Fetch(fetchCtx, src)
	cancel()
	if err != nil {
		r.log.Error("fetch source", "source", src.Name, "url", src.URL, "error", err)
		return
	}

	if _, err := r.rec.Reconcile(ctx, src.Name, batch); err != nil {
		r.log.Error("reconcile source", "source", src.Name, "error", err)
	}
}
