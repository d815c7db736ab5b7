package domain

import (
	"sort"
	"time"
)

// ForecastSample is a single Kp forecast value for the 3-hour block starting at Time.
type ForecastSample struct {
	Time time.Time `json:"time"`
	Kp   float64   `json:"kp"`
}

// ForecastSeries is an ordered run of samples with strictly increasing times.
type ForecastSeries []ForecastSample

// NormalizeSeries sorts samples by time, converts timestamps to UTC and drops
// later duplicates of the same timestamp along with negative Kp values.
// The input slice is not modified.
func NormalizeSeries(samples []ForecastSample) ForecastSeries {
	out := make(ForecastSeries, 0, len(samples))
	for _, s := range samples {
		if s.Kp < 0 || s.Time.IsZero() {
			continue
		}
		out = append(out, ForecastSample{Time: s.Time.UTC(), Kp: s.Kp})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})

	deduped := out[:0]
	for i, s := range out {
		if i > 0 && s.Time.Equal(deduped[len(deduped)-1].Time) {
			continue
		}
		deduped = append(deduped, s)
	}
	return deduped
}

// EvaluationResult is the outcome of checking a series against a threshold.
// Triggered is true iff Qualifying is non-empty.
type EvaluationResult struct {
	Triggered  bool             `json:"triggered"`
	Qualifying []ForecastSample `json:"qualifying"`
}

// Peak returns the qualifying sample with the highest Kp. Ties go to the
// earliest sample. ok is false when nothing qualified.
func (r EvaluationResult) Peak() (peak ForecastSample, ok bool) {
	for i, s := range r.Qualifying {
		if i == 0 || s.Kp > peak.Kp {
			peak = s
		}
	}
	return peak, len(r.Qualifying) > 0
}
