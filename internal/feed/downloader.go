package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/vulnradar/vulnradar/internal/observability"
	"github.com/vulnradar/vulnradar/internal/types"
)

// Fetcher is the slice of the client the downloader needs.
type Fetcher interface {
	FetchByKeyword(ctx context.Context, keyword string) ([]types.Vulnerability, error)
}

// Downloader walks the vendor catalog and pulls candidates for each vendor,
// sequentially and rate-limited. NVD throttles aggressively, so requests
// are spaced by a fixed delay rather than parallelized.
type Downloader struct {
	fetcher Fetcher
	delay   time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// VendorResult is the per-vendor outcome of a download run.
type VendorResult struct {
	Vendor     types.Vendor
	Candidates []types.Vulnerability
	Err        error
}

// NewDownloader creates a downloader.
func NewDownloader(fetcher Fetcher, delay time.Duration, logger *slog.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
		metrics: observability.GetMetrics(),
	}
}

// DownloadAll fetches candidates for every vendor. A vendor failure is
// recorded in its result and does not abort the batch; cancellation does.
func (d *Downloader) DownloadAll(ctx context.Context, vendors []types.Vendor) ([]VendorResult, error) {
	start := time.Now()
	results := make([]VendorResult, 0, len(vendors))

	for i, vendor := range vendors {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(d.delay):
			}
		}

		keyword := vendor.FeedKeyword
		if keyword == "" {
			keyword = vendor.Name
		}

		candidates, err := d.fetcher.FetchByKeyword(ctx, keyword)
		result := VendorResult{Vendor: vendor, Candidates: candidates, Err: err}
		results = append(results, result)

		d.metrics.FeedVendorsProcessed.Inc()
		if err != nil {
			d.metrics.FeedVendorErrors.Inc()
			d.metrics.FeedRequestsTotal.WithLabelValues("error").Inc()
			d.logger.Warn("vendor feed download failed",
				"vendor", vendor.Name,
				"keyword", keyword,
				"error", err.Error())
			continue
		}
		d.metrics.FeedRequestsTotal.WithLabelValues("ok").Inc()
		d.logger.Info("vendor feed downloaded",
			"vendor", vendor.Name,
			"keyword", keyword,
			"candidates", len(candidates))
	}

	d.metrics.FeedDownloadDuration.Observe(time.Since(start).Seconds())
	return results, nil
}
