package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"propbot/internal/storage"
)

// statsCollector exports catalog and outbox counts read from storage on
// every scrape.
type statsCollector struct {
	store   storage.Storage
	log     *slog.Logger
	timeout time.Duration

	listingsTotal  *prometheus.Desc
	listings       *prometheus.Desc
	activeSearches *prometheus.Desc
	priceHistory   *prometheus.Desc
	notifications  *prometheus.Desc
}

func newStatsCollector(store storage.Storage, log *slog.Logger) *statsCollector {
	return &statsCollector{
		store:          store,
		log:            log,
		timeout:        5 * time.Second,
		listingsTotal:  prometheus.NewDesc("propbot_listings_total", "Listings in the catalog.", nil, nil),
		listings:       prometheus.NewDesc("propbot_listings", "Listings by status.", []string{"status"}, nil),
		activeSearches: prometheus.NewDesc("propbot_searches_active", "Enabled saved searches.", nil, nil),
		priceHistory:   prometheus.NewDesc("propbot_price_history_entries", "Recorded price changes.", nil, nil),
		notifications:  prometheus.NewDesc("propbot_notifications", "Notifications by delivery status.", []string{"status"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.listingsTotal
	ch <- c.listings
	ch <- c.activeSearches
	ch <- c.priceHistory
	ch <- c.notifications
}

// Collect implements prometheus.Collector.
func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	st, err := c.store.Stats(ctx)
	if err != nil {
		c.log.Error("collect stats", "error", err)
		ch <- prometheus.NewInvalidMetric(c.listingsTotal, err)
		return
	}

	total := 0
	for status, n := range st.Listings {
		total += n
		ch <- prometheus.MustNewConstMetric(c.listings, prometheus.GaugeValue, float64(n), string(status))
	}
	ch <- prometheus.MustNewConstMetric(c.listingsTotal, prometheus.GaugeValue, float64(total))
	ch <- prometheus.MustNewConstMetric(c.activeSearches, prometheus.GaugeValue, float64(st.ActiveSearches))
	ch <- prometheus.MustNewConstMetric(c.priceHistory, prometheus.GaugeValue, float64(st.PriceHistoryLen))
	for status, n := range st.Notifications {
		ch <- prometheus.MustNewConstMetric(c.notifications, prometheus.GaugeValue, float64(n), string(status))
	}
}
