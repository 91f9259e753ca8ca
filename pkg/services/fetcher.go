package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

var ErrFetcherClosed = errors.New("fetcher closed")

// Fetcher downloads raw resources (page images, covers), optionally spacing
// requests with a shared ticker.
type Fetcher struct {
	client      *http.Client
	rateLimiter *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewFetcher creates a fetcher. A zero interval disables rate limiting.
func NewFetcher(client *http.Client, interval time.Duration) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &Fetcher{client: client, done: make(chan struct{})}
	if interval > 0 {
		f.rateLimiter = time.NewTicker(interval)
	}
	return f
}

// Fetch downloads url. progress, when not nil, receives the fraction of the
// body read so far; it is only called with 1 when the size is unknown.
func (f *Fetcher) Fetch(ctx context.Context, url string, progress func(float64)) ([]byte, string, error) {
	select {
	case <-f.done:
		return nil, "", ErrFetcherClosed
	default:
	}
	if f.rateLimiter != nil {
		select {
		case <-f.rateLimiter.C:
		case <-f.done:
			return nil, "", ErrFetcherClosed
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("bad status: %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if progress != nil && resp.ContentLength > 0 {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, report: progress}
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read content: %w", err)
	}
	if progress != nil {
		progress(1)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	return content, contentType, nil
}

// Close stops the rate limiter. Fetches waiting on it, and any later ones,
// fail with ErrFetcherClosed.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		close(f.done)
		if f.rateLimiter != nil {
			f.rateLimiter.Stop()
		}
	})
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(float64(p.read) / float64(p.total))
	}
	return n, err
}
