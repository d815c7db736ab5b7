package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
)

const (
	peakLayout   = "Mon 02 Jan 2006 15:04 MST"
	sampleLayout = "Mon 02 Jan 15:04 MST"
)

// BuildMessage renders a triggered result as of now. Times are shown in
// cfg.Location and the alert date is the calendar day of now there.
func BuildMessage(result domain.EvaluationResult, cfg Config, now time.Time) Message {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	peak, _ := result.Peak()
	threshold := strconv.FormatFloat(cfg.Threshold, 'f', -1, 64)

	var b strings.Builder
	fmt.Fprintf(&b, "The NOAA SWPC forecast reaches Kp %.2f, at or above your threshold of Kp %s.\n", peak.Kp, threshold)
	fmt.Fprintf(&b, "Northern lights may be visible tonight.\n\n")
	fmt.Fprintf(&b, "Peak: Kp %.2f at %s\n\n", peak.Kp, peak.Time.In(loc).Format(peakLayout))
	fmt.Fprintf(&b, "Forecast periods at or above Kp %s:\n", threshold)
	for _, s := range result.Qualifying {
		fmt.Fprintf(&b, "  %s  Kp %.2f\n", s.Time.In(loc).Format(sampleLayout), s.Kp)
	}

	samples := make([]domain.ForecastSample, len(result.Qualifying))
	copy(samples, result.Qualifying)

	return Message{
		Subject:   fmt.Sprintf("Aurora alert: Kp %.2f forecast", peak.Kp),
		Body:      b.String(),
		Recipient: cfg.Recipient,
		Alert: Alert{
			Date:      domain.DateOf(now, loc),
			Threshold: cfg.Threshold,
			Peak:      peak,
			Samples:   samples,
			SentAt:    now.UTC(),
		},
	}
}
