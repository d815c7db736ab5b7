// Package ses delivers notifications as email through AWS SES v2.
package ses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/couchcryptid/aurora-watch/internal/notify"
)

const charset = "UTF-8"

// API is the subset of the SES v2 client used by Channel.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Config holds sender settings for the SES channel.
type Config struct {
	From string
	// ConfigurationSet is optional; empty means none.
	ConfigurationSet string
}

// Channel sends plain-text email via SES. Credentials come from the AWS
// default chain; the SDK's own retryer is left in place.
type Channel struct {
	api    API
	cfg    Config
	logger *slog.Logger
}

// NewChannel creates an SES channel from an AWS config.
func NewChannel(awsCfg aws.Config, cfg Config, logger *slog.Logger) *Channel {
	return NewChannelWithAPI(sesv2.NewFromConfig(awsCfg), cfg, logger)
}

// NewChannelWithAPI creates an SES channel over an existing API client.
func NewChannelWithAPI(api API, cfg Config, logger *slog.Logger) *Channel {
	return &Channel{api: api, cfg: cfg, logger: logger}
}

// Send emails msg to msg.Recipient.
func (c *Channel) Send(ctx context.Context, msg notify.Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.cfg.From),
		Destination: &sestypes.Destination{
			ToAddresses: []string{msg.Recipient},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String(charset),
				},
				Body: &sestypes.Body{
					Text: &sestypes.Content{
						Data:    aws.String(msg.Body),
						Charset: aws.String(charset),
					},
				},
			},
		},
		EmailTags: []sestypes.MessageTag{
			{Name: aws.String("alert_date"), Value: aws.String(msg.Alert.Date.String())},
		},
	}
	if c.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(c.cfg.ConfigurationSet)
	}

	out, err := c.api.SendEmail(ctx, input)
	if err != nil {
		return mapSESError(err)
	}

	c.logger.InfoContext(ctx, "aurora email sent",
		"to", notify.RedactEmail(msg.Recipient),
		"message_id", aws.ToString(out.MessageId),
	)
	return nil
}

func mapSESError(err error) error {
	var rejected *sestypes.MessageRejected
	if errors.As(err, &rejected) {
		return fmt.Errorf("ses rejected message: %w", err)
	}

	var throttled *sestypes.TooManyRequestsException
	if errors.As(err, &throttled) {
		return fmt.Errorf("ses rate limit exceeded: %w", err)
	}

	var paused *sestypes.SendingPausedException
	if errors.As(err, &paused) {
		return fmt.Errorf("ses account sending paused: %w", err)
	}

	return fmt.Errorf("ses send: %w", err)
}

var _ notify.Channel = (*Channel)(nil)
