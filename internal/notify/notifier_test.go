package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	sent []Message
	err  error
}

func (c *recordingChannel) Send(_ context.Context, msg Message) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

var (
	cycleTime = time.Date(2024, time.October, 19, 0, 30, 0, 0, time.UTC)
	edt       = time.FixedZone("EDT", -4*60*60)
)

func triggeredResult() domain.EvaluationResult {
	return domain.EvaluationResult{
		Triggered: true,
		Qualifying: []domain.ForecastSample{
			{Time: time.Date(2024, time.October, 19, 3, 0, 0, 0, time.UTC), Kp: 5.33},
			{Time: time.Date(2024, time.October, 19, 6, 0, 0, 0, time.UTC), Kp: 5.67},
			{Time: time.Date(2024, time.October, 19, 9, 0, 0, 0, time.UTC), Kp: 5.00},
		},
	}
}

func newTestNotifier(ch Channel) (*Notifier, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	n := New(ch, Config{
		ChannelName: "log",
		Recipient:   "user@example.com",
		Threshold:   5,
		Location:    edt,
	}, clockwork.NewFakeClockAt(cycleTime), m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return n, m
}

func TestNotify_Delivers(t *testing.T) {
	ch := &recordingChannel{}
	n, m := newTestNotifier(ch)

	require.NoError(t, n.Notify(context.Background(), triggeredResult()))

	require.Len(t, ch.sent, 1)
	msg := ch.sent[0]
	assert.Equal(t, "user@example.com", msg.Recipient)
	assert.Equal(t, "Aurora alert: Kp 5.67 forecast", msg.Subject)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("log", "sent")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Notifications.WithLabelValues("log", "failed")), 0)
}

func TestNotify_ChannelFailureWrapsErrDelivery(t *testing.T) {
	cause := errors.New("smtp down")
	n, m := newTestNotifier(&recordingChannel{err: cause})

	err := n.Notify(context.Background(), triggeredResult())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "log channel")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Notifications.WithLabelValues("log", "failed")), 0)
}

func TestNotify_RejectsUntriggeredResult(t *testing.T) {
	ch := &recordingChannel{}
	n, _ := newTestNotifier(ch)

	err := n.Notify(context.Background(), domain.EvaluationResult{Qualifying: []domain.ForecastSample{}})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDelivery)
	assert.Empty(t, ch.sent)
}

func TestBuildMessage_Body(t *testing.T) {
	msg := BuildMessage(triggeredResult(), Config{
		Recipient: "user@example.com",
		Threshold: 5,
		Location:  edt,
	}, cycleTime)

	want := "The NOAA SWPC forecast reaches Kp 5.67, at or above your threshold of Kp 5.\n" +
		"Northern lights may be visible tonight.\n\n" +
		"Peak: Kp 5.67 at Sat 19 Oct 2024 02:00 EDT\n\n" +
		"Forecast periods at or above Kp 5:\n" +
		"  Fri 18 Oct 23:00 EDT  Kp 5.33\n" +
		"  Sat 19 Oct 02:00 EDT  Kp 5.67\n" +
		"  Sat 19 Oct 05:00 EDT  Kp 5.00\n"
	assert.Equal(t, want, msg.Body)
}

func TestBuildMessage_Alert(t *testing.T) {
	result := triggeredResult()
	msg := BuildMessage(result, Config{Threshold: 4.5, Location: edt}, cycleTime)

	// 00:30 UTC on the 19th is the evening of the 18th in EDT.
	assert.Equal(t, domain.Date{Year: 2024, Month: time.October, Day: 18}, msg.Alert.Date)
	assert.InDelta(t, 4.5, msg.Alert.Threshold, 0)
	assert.Equal(t, result.Qualifying[1], msg.Alert.Peak)
	assert.Equal(t, result.Qualifying, msg.Alert.Samples)
	assert.Equal(t, cycleTime, msg.Alert.SentAt)

	msg.Alert.Samples[0].Kp = 9
	assert.InDelta(t, 5.33, result.Qualifying[0].Kp, 0, "alert samples must not alias the result")
}

func TestBuildMessage_NilLocationUsesUTC(t *testing.T) {
	msg := BuildMessage(triggeredResult(), Config{Threshold: 5}, cycleTime)
	assert.Contains(t, msg.Body, "Peak: Kp 5.67 at Sat 19 Oct 2024 06:00 UTC")
}
