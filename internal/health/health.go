// Package health supplies today's cumulative step, water and distance
// figures to the daily task set.
package health

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

// Provider reports the totals for the calendar day containing now.
type Provider interface {
	Today(ctx context.Context, now time.Time) (model.HealthSnapshot, error)
}

// SampleStore sums samples logged through the API.
type SampleStore interface {
	Totals(from, to time.Time) (model.HealthSnapshot, error)
}

// StoreProvider reads manually logged samples.
type StoreProvider struct {
	store SampleStore
}

func NewStoreProvider(s SampleStore) *StoreProvider {
	return &StoreProvider{store: s}
}

func (p *StoreProvider) Today(_ context.Context, now time.Time) (model.HealthSnapshot, error) {
	from := clock.StartOfDay(now)
	return p.store.Totals(from, from.AddDate(0, 0, 1))
}

// Combined merges several providers, keeping the largest value per metric.
// A provider that fails is skipped; the call only fails if all of them do.
type Combined []Provider

func (c Combined) Today(ctx context.Context, now time.Time) (model.HealthSnapshot, error) {
	var out model.HealthSnapshot
	var errs []error
	for _, p := range c {
		s, err := p.Today(ctx, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Steps = max(out.Steps, s.Steps)
		out.WaterGlasses = max(out.WaterGlasses, s.WaterGlasses)
		out.DistanceKm = max(out.DistanceKm, s.DistanceKm)
	}
	if len(c) > 0 && len(errs) == len(c) {
		return model.HealthSnapshot{}, errors.Join(errs...)
	}
	return out, nil
}
