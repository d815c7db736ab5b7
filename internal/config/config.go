// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/couchcryptid/aurora-watch/internal/domain"
)

// Notification channel names accepted by NOTIFY_CHANNEL.
const (
	ChannelLog   = "log"
	ChannelSES   = "ses"
	ChannelKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ForecastURL     string        `envconfig:"FORECAST_URL" default:"https://services.swpc.noaa.gov/text/3-day-forecast.txt" validate:"required,url"`
	ForecastTimeout time.Duration `envconfig:"FORECAST_TIMEOUT" default:"10s" validate:"gt=0"`

	KpThreshold    float64       `envconfig:"KP_THRESHOLD" default:"5" validate:"gte=0,lte=9"`
	CheckTimeRaw   string        `envconfig:"CHECK_TIME" default:"20:30" validate:"required"`
	TimezoneName   string        `envconfig:"TIMEZONE" default:"Local" validate:"required"`
	WindowOffset   time.Duration `envconfig:"WINDOW_OFFSET" default:"0s" validate:"gte=0"`
	WindowDuration time.Duration `envconfig:"WINDOW_DURATION" default:"12h" validate:"gt=0"`
	RunOnStart     bool          `envconfig:"RUN_ON_START" default:"false"`

	NotifyChannel   string        `envconfig:"NOTIFY_CHANNEL" default:"log" validate:"oneof=log ses kafka"`
	NotifyRecipient string        `envconfig:"NOTIFY_RECIPIENT" default:"user@example.com" validate:"required"`
	NotifyFrom      string        `envconfig:"NOTIFY_FROM" default:"northernlights.notify@gmail.com" validate:"required,email"`
	NotifyTimeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"15s" validate:"gt=0"`

	KafkaBrokersRaw     string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic          string `envconfig:"KAFKA_TOPIC" default:"aurora-alerts" validate:"required"`
	SESConfigurationSet string `envconfig:"SES_CONFIGURATION_SET"`

	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Derived from the raw fields above.
	CheckTime       domain.TimeOfDay `ignored:"true" validate:"-"`
	Location        *time.Location   `ignored:"true" validate:"-"`
	KafkaBrokers    []string         `ignored:"true" validate:"-"`
	ShutdownTimeout time.Duration    `ignored:"true" validate:"-"`
}

// Error reports an invalid or missing setting. It matches
// domain.ErrConfiguration under errors.Is.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{domain.ErrConfiguration, e.Err}
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; it never
// overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		var pe *envconfig.ParseError
		if errors.As(err, &pe) {
			return nil, &Error{Key: pe.KeyName, Err: pe.Err}
		}
		return nil, &Error{Err: err}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, validationError(err)
	}

	if err := cfg.derive(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() error {
	var err error
	if c.CheckTime, err = domain.ParseTimeOfDay(c.CheckTimeRaw); err != nil {
		return &Error{Key: "CHECK_TIME", Err: err}
	}
	if c.Location, err = time.LoadLocation(c.TimezoneName); err != nil {
		return &Error{Key: "TIMEZONE", Err: err}
	}
	if c.ShutdownTimeout, err = sharedcfg.ParseShutdownTimeout(); err != nil {
		return &Error{Key: "SHUTDOWN_TIMEOUT", Err: err}
	}

	c.KafkaBrokers = sharedcfg.ParseBrokers(c.KafkaBrokersRaw)

	switch c.NotifyChannel {
	case ChannelKafka:
		if len(c.KafkaBrokers) == 0 {
			return &Error{Key: "KAFKA_BROKERS", Err: errors.New("required when NOTIFY_CHANNEL is kafka")}
		}
	case ChannelSES:
		if err := validator.New().Var(c.NotifyRecipient, "email"); err != nil {
			return &Error{Key: "NOTIFY_RECIPIENT", Err: errors.New("must be an email address when NOTIFY_CHANNEL is ses")}
		}
	}
	return nil
}

// validationError converts the first validator failure into an Error keyed
// by the offending environment variable.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Err: err}
	}
	fe := verrs[0]
	key := fe.StructField()
	if f, ok := reflect.TypeOf(Config{}).FieldByName(fe.StructField()); ok {
		key = f.Tag.Get("envconfig")
	}
	msg := fmt.Sprintf("failed %q validation", fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("failed %q validation (%s)", fe.Tag(), fe.Param())
	}
	return &Error{Key: key, Err: fmt.Errorf("%s, got %v", msg, fe.Value())}
}
