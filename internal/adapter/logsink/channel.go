// Package logsink delivers notifications to the application log. It is the
// default channel and needs no external service.
package logsink

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/aurora-watch/internal/notify"
)

// Channel writes each notification as a single info-level log record.
type Channel struct {
	logger *slog.Logger
}

// NewChannel creates a log channel.
func NewChannel(logger *slog.Logger) *Channel {
	return &Channel{logger: logger}
}

// Send logs the message. It fails only when ctx is already done.
func (c *Channel) Send(ctx context.Context, msg notify.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "aurora notification",
		"to", notify.RedactEmail(msg.Recipient),
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

var _ notify.Channel = (*Channel)(nil)
