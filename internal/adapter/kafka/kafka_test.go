package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var sentAt = time.Date(2024, time.October, 19, 0, 30, 0, 0, time.UTC)

func testAlert() notify.Alert {
	peak := domain.ForecastSample{Time: time.Date(2024, time.October, 19, 6, 0, 0, 0, time.UTC), Kp: 5.67}
	return notify.Alert{
		Date:      domain.Date{Year: 2024, Month: time.October, Day: 18},
		Threshold: 5,
		Peak:      peak,
		Samples: []domain.ForecastSample{
			{Time: time.Date(2024, time.October, 19, 3, 0, 0, 0, time.UTC), Kp: 5.33},
			peak,
		},
		SentAt: sentAt,
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testAlert())
	require.NoError(t, err)

	assert.Equal(t, []byte("2024-10-18"), msg.Key)
	assert.JSONEq(t, `{
		"date": "2024-10-18",
		"threshold": 5,
		"peak_kp": 5.67,
		"peak_time": "2024-10-19T06:00:00Z",
		"samples": [
			{"time": "2024-10-19T03:00:00Z", "kp": 5.33},
			{"time": "2024-10-19T06:00:00Z", "kp": 5.67}
		],
		"sent_at": "2024-10-19T00:30:00Z"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("aurora_alert"), msg.Headers[0].Value)
	assert.Equal(t, "sent_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(sentAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_EmptySamples(t *testing.T) {
	alert := testAlert()
	alert.Samples = nil

	msg, err := serializeToMessage(alert)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"samples":[]`)
}

func TestWriter_Send(t *testing.T) {
	fw := &fakeWriter{}
	w := &Writer{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Send(context.Background(), notify.Message{Alert: testAlert()}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, []byte("2024-10-18"), fw.msgs[0].Key)

	require.NoError(t, w.Close())
	assert.True(t, fw.closed)
}

func TestWriter_SendError(t *testing.T) {
	cause := errors.New("leader not available")
	w := &Writer{writer: &fakeWriter{err: cause}, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Send(context.Background(), notify.Message{Alert: testAlert()})
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "publish aurora alert")
}
