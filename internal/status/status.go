// Package status polls the public game-server status API and caches the
// last good response for concurrent readers.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/c-pro/geche"

	"horizon/internal/models"
)

const cacheKey = "status"

// Snapshot is the current server status plus whether it is stale, that
// is, the last poll failed and this is a retained previous value.
type Snapshot struct {
	models.ServerStatus
	Stale     bool
	FetchedAt time.Time
}

// Poller fetches the status of one server host on a fixed interval.
type Poller struct {
	http     *http.Client
	baseURL  string
	host     string
	interval time.Duration

	cache geche.Geche[string, Snapshot]

	mux  sync.RWMutex
	last Snapshot
	ok   bool

	now func() time.Time
}

func NewPoller(ctx context.Context, baseURL, host string, interval time.Duration) *Poller {
	return &Poller{
		http:     &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		host:     host,
		interval: interval,
		cache:    geche.NewMapTTLCache[string, Snapshot](ctx, interval, interval),
		now:      time.Now,
	}
}

// Current returns the cached status. Between polls every reader hits
// the cache; the bool is false until the first successful fetch.
func (p *Poller) Current() (Snapshot, bool) {
	if snap, err := p.cache.Get(cacheKey); err == nil {
		return snap, true
	}
	p.mux.RLock()
	defer p.mux.RUnlock()
	return p.last, p.ok
}

// Run polls until the context is cancelled: one immediate fetch, then
// the ticker. A failed fetch keeps the previous value and marks it stale.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	status, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("server status poll failed", "host", p.host, "error", err)
		}
		p.markStale()
		return
	}

	snap := Snapshot{ServerStatus: status, FetchedAt: p.now()}
	p.cache.Set(cacheKey, snap)
	p.mux.Lock()
	p.last = snap
	p.ok = true
	p.mux.Unlock()
}

func (p *Poller) markStale() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if !p.ok {
		return
	}
	p.last.Stale = true
	p.cache.Set(cacheKey, p.last)
}

func (p *Poller) fetch(ctx context.Context) (models.ServerStatus, error) {
	var status models.ServerStatus
	url := p.baseURL + "/" + p.host
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return status, fmt.Errorf("failed to build status request: %w", err)
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return status, fmt.Errorf("status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return status, fmt.Errorf("status request returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("failed to decode status response: %w", err)
	}
	return status, nil
}
