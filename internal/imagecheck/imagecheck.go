// Package imagecheck validates shipment image URLs with HEAD requests.
package imagecheck

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"shipstream/internal/model"
)

var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
	"image/bmp":  {},
	"image/tiff": {},
}

// Checker probes image URLs concurrently.
type Checker struct {
	client      *http.Client
	concurrency int
}

// New builds a Checker with a bounded number of in-flight requests.
func New(concurrency int, timeout time.Duration) *Checker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Checker{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		concurrency: concurrency,
	}
}

// CheckAll probes every shipment that carries an image URL and returns
// one result per probed URL, in shipment order.
func (c *Checker) CheckAll(ctx context.Context, shipments []model.Shipment) ([]model.URLCheck, error) {
	type indexed struct {
		pos   int
		check model.URLCheck
	}

	var (
		mu      sync.Mutex
		results []indexed
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, s := range shipments {
		if s.ImageURL == "" {
			continue
		}
		i, s := i, s
		g.Go(func() error {
			check := c.Check(ctx, s)
			mu.Lock()
			results = append(results, indexed{pos: i, check: check})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ordered := make([]model.URLCheck, 0, len(results))
	for pos := 0; pos < len(shipments); pos++ {
		for _, r := range results {
			if r.pos == pos {
				ordered = append(ordered, r.check)
			}
		}
	}
	return ordered, nil
}

// Check probes a single shipment image URL.
func (c *Checker) Check(ctx context.Context, s model.Shipment) model.URLCheck {
	check := model.URLCheck{ShipmentID: s.ID, URL: s.ImageURL}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.ImageURL, nil)
	if err != nil {
		check.Error = fmt.Sprintf("invalid url: %s", err)
		return check
	}

	resp, err := c.client.Do(req)
	if err != nil {
		check.Error = fmt.Sprintf("request failed: %s", err)
		return check
	}
	defer resp.Body.Close()

	check.StatusCode = resp.StatusCode
	check.ContentType = normalizeContentType(resp.Header.Get("Content-Type"))
	check.ContentLength = resp.ContentLength

	if resp.StatusCode != http.StatusOK {
		check.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return check
	}
	if _, ok := allowedContentTypes[check.ContentType]; !ok {
		check.Error = fmt.Sprintf("unsupported content type %q", check.ContentType)
		return check
	}

	check.Valid = true
	return check
}

// Summarize aggregates a batch of URL checks.
func Summarize(checks []model.URLCheck) model.URLCheckStats {
	stats := model.URLCheckStats{
		Total:        len(checks),
		ErrorsByType: make(map[string]int),
	}

	for _, c := range checks {
		if c.Valid {
			stats.Valid++
			continue
		}
		stats.Invalid++
		stats.ErrorsByType[errorKind(c)]++
	}

	if stats.Total > 0 {
		stats.ValidPercent = float64(int64(float64(stats.Valid)/float64(stats.Total)*10000+0.5)) / 100
	}

	return stats
}

func errorKind(c model.URLCheck) string {
	switch {
	case c.StatusCode != 0 && c.StatusCode != http.StatusOK:
		return fmt.Sprintf("status_%d", c.StatusCode)
	case strings.HasPrefix(c.Error, "unsupported content type"):
		return "unsupported_content_type"
	case strings.HasPrefix(c.Error, "invalid url"):
		return "invalid_url"
	default:
		return "request_failed"
	}
}

func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
