package model

import "time"

type HealthMetric string

const (
	MetricSteps    HealthMetric = "steps"
	MetricWater    HealthMetric = "water"
	MetricDistance HealthMetric = "distance"
)

func (m HealthMetric) IsValid() bool {
	switch m {
	case MetricSteps, MetricWater, MetricDistance:
		return true
	default:
		return false
	}
}

// HealthSnapshot holds cumulative values for one day.
type HealthSnapshot struct {
	Steps        float64 `json:"steps"`
	WaterGlasses float64 `json:"water_glasses"`
	DistanceKm   float64 `json:"distance_km"`
}

// Value returns the snapshot's value for m.
func (s HealthSnapshot) Value(m HealthMetric) float64 {
	switch m {
	case MetricSteps:
		return s.Steps
	case MetricWater:
		return s.WaterGlasses
	case MetricDistance:
		return s.DistanceKm
	default:
		return 0
	}
}

type HealthSample struct {
	ID         int64        `json:"id"`
	Metric     HealthMetric `json:"metric"`
	Value      float64      `json:"value"`
	RecordedAt time.Time    `json:"recorded_at"`
}
