// Package notify turns a triggered evaluation into a rendered message and
// hands it to a delivery channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/aurora-watch/internal/domain"
	"github.com/couchcryptid/aurora-watch/internal/observability"
	"github.com/jonboulle/clockwork"
)

var errNotTriggered = errors.New("evaluation did not trigger")

// Channel delivers a rendered message. Implementations must not retry
// internally and should honor ctx cancellation.
type Channel interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a rendered notification.
type Message struct {
	Subject   string
	Body      string
	Recipient string
	Alert     Alert
}

// Alert is the structured payload behind a Message, for channels that
// publish machine-readable events.
type Alert struct {
	Date      domain.Date
	Threshold float64
	Peak      domain.ForecastSample
	Samples   []domain.ForecastSample
	SentAt    time.Time
}

// Config controls message rendering and metric labelling.
type Config struct {
	ChannelName string
	Recipient   string
	Threshold   float64
	Location    *time.Location
}

// Notifier renders evaluation results and delivers them over a single Channel.
type Notifier struct {
	channel Channel
	cfg     Config
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Notifier. A nil Location renders times in UTC.
func New(channel Channel, cfg Config, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Notifier{
		channel: channel,
		cfg:     cfg,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Notify delivers one message for a triggered result. Channel failures are
// returned wrapped in domain.ErrDelivery.
func (n *Notifier) Notify(ctx context.Context, result domain.EvaluationResult) error {
	if !result.Triggered {
		return errNotTriggered
	}

	msg := BuildMessage(result, n.cfg, n.clock.Now())
	if err := n.channel.Send(ctx, msg); err != nil {
		n.metrics.Notifications.WithLabelValues(n.cfg.ChannelName, "failed").Inc()
		return fmt.Errorf("%w: %s channel: %w", domain.ErrDelivery, n.cfg.ChannelName, err)
	}

	n.metrics.Notifications.WithLabelValues(n.cfg.ChannelName, "sent").Inc()
	n.logger.Debug("notification delivered",
		"channel", n.cfg.ChannelName,
		"recipient", RedactEmail(n.cfg.Recipient),
		"subject", msg.Subject,
	)
	return nil
}
