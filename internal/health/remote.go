package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

const cacheTTL = 5 * time.Minute

// RemoteProvider polls a JSON bridge that exports the phone's health data.
//
// The bridge answers GET <url>?date=YYYY-MM-DD with
// {"steps": n, "water_glasses": n, "distance_km": n}.
type RemoteProvider struct {
	url    string
	client *http.Client

	mu        sync.RWMutex
	cached    model.HealthSnapshot
	cachedDay string
	lastFetch time.Time
}

func NewRemoteProvider(rawURL string) *RemoteProvider {
	return &RemoteProvider{
		url:    rawURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Today returns the cached snapshot while it is fresh. On fetch failure the
// stale snapshot for the same day is returned instead of an error.
func (p *RemoteProvider) Today(ctx context.Context, now time.Time) (model.HealthSnapshot, error) {
	day := clock.DateKey(now)

	p.mu.RLock()
	if p.cachedDay == day && now.Sub(p.lastFetch) < cacheTTL {
		s := p.cached
		p.mu.RUnlock()
		return s, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cachedDay == day && now.Sub(p.lastFetch) < cacheTTL {
		return p.cached, nil
	}

	s, err := p.fetch(ctx, day)
	if err != nil {
		if p.cachedDay == day {
			return p.cached, nil
		}
		return model.HealthSnapshot{}, err
	}

	p.cached = s
	p.cachedDay = day
	p.lastFetch = now
	return s, nil
}

type bridgeResponse struct {
	Steps        float64 `json:"steps"`
	WaterGlasses float64 `json:"water_glasses"`
	DistanceKm   float64 `json:"distance_km"`
}

func (p *RemoteProvider) fetch(ctx context.Context, day string) (model.HealthSnapshot, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return model.HealthSnapshot{}, fmt.Errorf("parse health bridge url: %w", err)
	}
	q := u.Query()
	q.Set("date", day)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.HealthSnapshot{}, fmt.Errorf("build health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return model.HealthSnapshot{}, fmt.Errorf("health bridge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.HealthSnapshot{}, fmt.Errorf("health bridge returned status %d", resp.StatusCode)
	}

	var br bridgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return model.HealthSnapshot{}, fmt.Errorf("decode health response: %w", err)
	}

	return model.HealthSnapshot{
		Steps:        br.Steps,
		WaterGlasses: br.WaterGlasses,
		DistanceKm:   br.DistanceKm,
	}, nil
}
