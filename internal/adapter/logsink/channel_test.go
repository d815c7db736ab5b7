package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/couchcryptid/aurora-watch/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_LogsRedactedMessage(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := ch.Send(context.Background(), notify.Message{
		Subject:   "Aurora alert: Kp 5.67 forecast",
		Body:      "Peak: Kp 5.67",
		Recipient: "user@example.com",
	})
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "aurora notification", rec["msg"])
	assert.Equal(t, "u***@example.com", rec["to"])
	assert.Equal(t, "Aurora alert: Kp 5.67 forecast", rec["subject"])
	assert.Equal(t, "Peak: Kp 5.67", rec["body"])
	assert.NotContains(t, buf.String(), "user@example.com")
}

func TestSend_CanceledContext(t *testing.T) {
	var buf bytes.Buffer
	ch := NewChannel(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ch.Send(ctx, notify.Message{Subject: "x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, buf.String())
}
