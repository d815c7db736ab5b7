// Package scheduler runs the daily forecast check: wait for the configured
// time of day, fetch, evaluate, and notify at most once per calendar day.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultNotifyTimeout = 15 * time.Second
)

// ForecastSource retrieves the current Kp forecast.
type ForecastSource interface {
	Fetch(ctx context.Context) (domain.ForecastSeries, error)
}

// AlertNotifier delivers a triggered evaluation.
type AlertNotifier interface {
	Notify(ctx context.Context, result domain.EvaluationResult) error
}

// Settings configure the check schedule and evaluation.
type Settings struct {
	Threshold      float64
	CheckTime      domain.TimeOfDay
	Location       *time.Location
	WindowOffset   time.Duration
	WindowDuration time.Duration
	FetchTimeout   time.Duration
	NotifyTimeout  time.Duration
	RunOnStart     bool
}

// State is the scheduler's activity state.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Outcome classifies a completed cycle.
type Outcome string

const (
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFetchFailed    Outcome = "fetch_failed"
	OutcomeQuiet          Outcome = "quiet"
	OutcomeNotified       Outcome = "notified"
	OutcomeDeliveryFailed Outcome = "delivery_failed"
)

// RunRecord is the in-memory history used to suppress duplicate
// notifications. It is lost on restart.
type RunRecord struct {
	LastRunDate      domain.Date
	LastNotifiedDate domain.Date // zero when no notification has been attempted
}

// Scheduler drives check cycles on a daily schedule.
type Scheduler struct {
	source   ForecastSource
	notifier AlertNotifier
	settings Settings
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu          sync.Mutex // guards record and lastOutcome
	record      RunRecord
	lastOutcome Outcome
	state       atomic.Int32
	started     atomic.Bool
}

// New creates a Scheduler. Zero timeouts take defaults and a nil Location
// means UTC.
func New(source ForecastSource, notifier AlertNotifier, settings Settings, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.FetchTimeout <= 0 {
		settings.FetchTimeout = defaultFetchTimeout
	}
	if settings.NotifyTimeout <= 0 {
		settings.NotifyTimeout = defaultNotifyTimeout
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		settings: settings,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// State reports whether a cycle is in progress.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Record returns a copy of the run record.
func (s *Scheduler) Record() RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Status is a point-in-time view of the scheduler for operators.
type Status struct {
	State            string    `json:"state"`
	CheckTime        string    `json:"check_time"`
	Timezone         string    `json:"timezone"`
	Threshold        float64   `json:"threshold"`
	NextRun          time.Time `json:"next_run"`
	LastRunDate      string    `json:"last_run_date,omitempty"`
	LastNotifiedDate string    `json:"last_notified_date,omitempty"`
	LastOutcome      string    `json:"last_outcome,omitempty"`
}

// Status reports the current state, run record and next scheduled check.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	rec, outcome := s.record, s.lastOutcome
	s.mu.Unlock()

	st := Status{
		State:       s.State().String(),
		CheckTime:   s.settings.CheckTime.String(),
		Timezone:    s.settings.Location.String(),
		Threshold:   s.settings.Threshold,
		NextRun:     NextRun(s.clock.Now(), s.settings.CheckTime, s.settings.Location),
		LastOutcome: string(outcome),
	}
	if !rec.LastRunDate.IsZero() {
		st.LastRunDate = rec.LastRunDate.String()
	}
	if !rec.LastNotifiedDate.IsZero() {
		st.LastNotifiedDate = rec.LastNotifiedDate.String()
	}
	return st
}

// CheckReadiness returns nil once the scheduling loop has started.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.started.Load() {
		return errors.New("scheduler has not started yet")
	}
	return nil
}

// NextRun returns the first occurrence of at in loc strictly after now.
func NextRun(now time.Time, at domain.TimeOfDay, loc *time.Location) time.Time {
	today := domain.DateOf(now, loc)
	next := at.On(today, loc)
	if !next.After(now) {
		tomorrow := today
		tomorrow.Day++
		next = at.On(tomorrow, loc)
	}
	return next
}

// Run waits for each scheduled check time and runs a cycle, until ctx is
// cancelled. Cycle failures never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"check_time", s.settings.CheckTime.String(),
		"timezone", s.settings.Location.String(),
		"threshold", s.settings.Threshold,
		"run_on_start", s.settings.RunOnStart,
	)
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)
	s.started.Store(true)

	if s.settings.RunOnStart {
		s.RunCycle(ctx)
	}

	for {
		now := s.clock.Now()
		next := NextRun(now, s.settings.CheckTime, s.settings.Location)
		s.metrics.NextRun.Set(float64(next.Unix()))
		s.logger.Info("next check scheduled", "at", next, "in", next.Sub(now).Round(time.Second))

		if !s.sleep(ctx, next.Sub(now)) {
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		}
		s.RunCycle(ctx)
	}
}

// RunCycle performs one check immediately and returns its outcome.
func (s *Scheduler) RunCycle(ctx context.Context) Outcome {
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Idle))

	now := s.clock.Now()
	today := domain.DateOf(now, s.settings.Location)
	logger := s.logger.With("cycle_id", uuid.NewString(), "date", today.String())
	logger.Info("check cycle started")

	outcome := s.runCycle(ctx, now, today, logger)
	s.mu.Lock()
	s.lastOutcome = outcome
	s.mu.Unlock()

	s.metrics.CyclesTotal.WithLabelValues(string(outcome)).Inc()
	s.metrics.LastCycle.Set(float64(s.clock.Now().Unix()))
	logger.Info("check cycle finished", "outcome", string(outcome))
	return outcome
}

func (s *Scheduler) runCycle(ctx context.Context, now time.Time, today domain.Date, logger *slog.Logger) Outcome {
	if s.Record().LastNotifiedDate == today {
		logger.Info("already notified today, skipping")
		return OutcomeSkipped
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.settings.FetchTimeout)
	series, err := s.source.Fetch(fetchCtx)
	cancel()
	if err != nil {
		s.metrics.FetchErrors.Inc()
		logger.Warn("forecast fetch failed, waiting for next check", "error", err)
		return OutcomeFetchFailed
	}

	window := domain.WindowAt(now, s.settings.WindowOffset, s.settings.WindowDuration)
	result := domain.Evaluate(series, s.settings.Threshold, window)
	windowPeak, hasData := maxKp(series, window)
	if hasData {
		s.metrics.ForecastPeakKp.Set(windowPeak)
	}
	logger.Info("forecast evaluated",
		"samples", len(series),
		"window_start", window.Start,
		"window_end", window.End,
		"window_has_data", hasData,
		"window_peak_kp", windowPeak,
		"threshold", s.settings.Threshold,
		"triggered", result.Triggered,
	)

	if !result.Triggered {
		s.markRun(today, false)
		return OutcomeQuiet
	}

	peak, _ := result.Peak()
	logger.Info("threshold met, sending notification",
		"peak_kp", peak.Kp,
		"peak_time", peak.Time,
		"qualifying", len(result.Qualifying),
	)

	notifyCtx, cancel := context.WithTimeout(ctx, s.settings.NotifyTimeout)
	err = s.notifier.Notify(notifyCtx, result)
	cancel()

	// Delivery is attempted at most once per day, whether or not it succeeds.
	s.markRun(today, true)
	if err != nil {
		logger.Error("notification delivery failed", "error", err)
		return OutcomeDeliveryFailed
	}
	logger.Info("notification sent")
	return OutcomeNotified
}

func (s *Scheduler) markRun(today domain.Date, notified bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastRunDate = today
	if notified {
		s.record.LastNotifiedDate = today
	}
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func maxKp(series domain.ForecastSeries, w domain.Window) (float64, bool) {
	var peak float64
	found := false
	for _, s := range series {
		if !w.Contains(s.Time) {
			continue
		}
		if !found || s.Kp > peak {
			peak = s.Kp
			found = true
		}
	}
	return peak, found
}
