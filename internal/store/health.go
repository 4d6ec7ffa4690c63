package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/daybreak/internal/model"
)

// HealthStore holds manually logged health samples (water glasses, steps, distance).
type HealthStore struct {
	db *sql.DB
}

func NewHealthStore(db *sql.DB) *HealthStore {
	return &HealthStore{db: db}
}

func (s *HealthStore) Add(metric model.HealthMetric, value float64, at time.Time) (*model.HealthSample, error) {
	result, err := s.db.Exec(
		`INSERT INTO health_samples (metric, value, recorded_at) VALUES (?, ?, ?)`,
		metric, value, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert health sample: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &model.HealthSample{ID: id, Metric: metric, Value: value, RecordedAt: at.UTC()}, nil
}

// Totals sums samples recorded in [from, to) per metric.
func (s *HealthStore) Totals(from, to time.Time) (model.HealthSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT metric, COALESCE(SUM(value), 0) FROM health_samples
		 WHERE recorded_at >= ? AND recorded_at < ? GROUP BY metric`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return model.HealthSnapshot{}, fmt.Errorf("sum health samples: %w", err)
	}
	defer rows.Close()

	var snap model.HealthSnapshot
	for rows.Next() {
		var metric model.HealthMetric
		var total sql.NullFloat64
		if err := rows.Scan(&metric, &total); err != nil {
			return model.HealthSnapshot{}, fmt.Errorf("scan health total: %w", err)
		}
		switch metric {
		case model.MetricSteps:
			snap.Steps = total.Float64
		case model.MetricWater:
			snap.WaterGlasses = total.Float64
		case model.MetricDistance:
			snap.DistanceKm = total.Float64
		}
	}
	return snap, rows.Err()
}
