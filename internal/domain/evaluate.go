package domain

import "time"

// Window is the half-open interval [Start, End) in which forecast samples count.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the window that opens offset after now and lasts duration.
func WindowAt(now time.Time, offset, duration time.Duration) Window {
	start := now.Add(offset)
	return Window{Start: start, End: start.Add(duration)}
}

// Contains reports whether t falls inside the window. Start is inclusive, End
// is exclusive.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Evaluate selects the samples inside window whose Kp meets or exceeds
// threshold, preserving series order. An empty window is not an error; it
// simply never triggers.
func Evaluate(series ForecastSeries, threshold float64, window Window) EvaluationResult {
	qualifying := make([]ForecastSample, 0)
	for _, s := range series {
		if !window.Contains(s.Time) {
			continue
		}
		if s.Kp >= threshold {
			qualifying = append(qualifying, s)
		}
	}
	return EvaluationResult{
		Triggered:  len(qualifying) > 0,
		Qualifying: qualifying,
	}
}
