package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeCollectorOnce     sync.Once
	storeCollectorInstance *StoreCollector
)

// StatsSnapshot is a point-in-time summary of store contents for metrics.
type StatsSnapshot struct {
	VulnerabilitiesByTLP map[string]int
	Duplicates           int
	TasksByStatus        map[string]int
	Users                int
	Companies            int
	Vendors              int
}

// StatsSource provides store counts on demand. Implemented by the store.
type StatsSource interface {
	MetricsSnapshot(ctx context.Context) (*StatsSnapshot, error)
}

// StoreCollector collects gauges from the database on-demand when /metrics
// is scraped, so counts reflect current rows rather than process lifetime.
type StoreCollector struct {
	source StatsSource
	logger *slog.Logger

	vulnerabilitiesDesc *prometheus.Desc
	duplicatesDesc      *prometheus.Desc
	tasksDesc           *prometheus.Desc
	usersDesc           *prometheus.Desc
	companiesDesc       *prometheus.Desc
	vendorsDesc         *prometheus.Desc
}

// NewStoreCollector creates a new store metrics collector
func NewStoreCollector(source StatsSource, logger *slog.Logger) *StoreCollector {
	return &StoreCollector{
		source: source,
		logger: logger,
		vulnerabilitiesDesc: prometheus.NewDesc(
			"vulnradar_vulnerabilities",
			"Current number of stored vulnerabilities by TLP rating",
			[]string{"tlp_rating"},
			nil,
		),
		duplicatesDesc: prometheus.NewDesc(
			"vulnradar_duplicate_vulnerabilities",
			"Current number of vulnerabilities flagged as duplicates",
			nil,
			nil,
		),
		tasksDesc: prometheus.NewDesc(
			"vulnradar_tasks",
			"Current number of tasks by status",
			[]string{"status"},
			nil,
		),
		usersDesc: prometheus.NewDesc(
			"vulnradar_users",
			"Current number of registered users",
			nil,
			nil,
		),
		companiesDesc: prometheus.NewDesc(
			"vulnradar_companies",
			"Current number of companies",
			nil,
			nil,
		),
		vendorsDesc: prometheus.NewDesc(
			"vulnradar_vendors",
			"Current number of vendors in the catalog",
			nil,
			nil,
		),
	}
}

// RegisterStoreCollector registers the store collector exactly once
func RegisterStoreCollector(source StatsSource, logger *slog.Logger) {
	storeCollectorOnce.Do(func() {
		storeCollectorInstance = NewStoreCollector(source, logger)
		prometheus.MustRegister(storeCollectorInstance)
		logger.Info("store metrics collector registered")
	})
}

// Describe sends the metric descriptors to the provided channel
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.vulnerabilitiesDesc
	ch <- c.duplicatesDesc
	ch <- c.tasksDesc
	ch <- c.usersDesc
	ch <- c.companiesDesc
	ch <- c.vendorsDesc
}

// Collect queries the store and sends current gauges to the provided
// channel. Scrapes are bounded so a contended database cannot hang the
// /metrics endpoint.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	snap, err := c.source.MetricsSnapshot(ctx)
	if err != nil {
		c.logger.Warn("store metrics snapshot failed", "error", err.Error())
		return
	}

	for rating, count := range snap.VulnerabilitiesByTLP {
		ch <- prometheus.MustNewConstMetric(
			c.vulnerabilitiesDesc, prometheus.GaugeValue, float64(count), rating)
	}
	ch <- prometheus.MustNewConstMetric(
		c.duplicatesDesc, prometheus.GaugeValue, float64(snap.Duplicates))
	for status, count := range snap.TasksByStatus {
		ch <- prometheus.MustNewConstMetric(
			c.tasksDesc, prometheus.GaugeValue, float64(count), status)
	}
	ch <- prometheus.MustNewConstMetric(
		c.usersDesc, prometheus.GaugeValue, float64(snap.Users))
	ch <- prometheus.MustNewConstMetric(
		c.companiesDesc, prometheus.GaugeValue, float64(snap.Companies))
	ch <- prometheus.MustNewConstMetric(
		c.vendorsDesc, prometheus.GaugeValue, float64(snap.Vendors))
}
