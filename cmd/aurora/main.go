package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/aurora-watch/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/aurora-watch/internal/adapter/kafka"
	"github.com/couchcryptid/aurora-watch/internal/adapter/logsink"
	sesadapter "github.com/couchcryptid/aurora-watch/internal/adapter/ses"
	"github.com/couchcryptid/aurora-watch/internal/adapter/swpc"
	"github.com/couchcryptid/aurora-watch/internal/config"
	"github.com/couchcryptid/aurora-watch/internal/notify"
	"github.com/couchcryptid/aurora-watch/internal/observability"
	"github.com/couchcryptid/aurora-watch/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	channel, closeChannel, err := newChannel(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create notification channel", "channel", cfg.NotifyChannel, "error", err)
		os.Exit(1)
	}

	client := swpc.NewClient(cfg.ForecastURL, cfg.ForecastTimeout, metrics, logger)
	notifier := notify.New(channel, notify.Config{
		ChannelName: cfg.NotifyChannel,
		Recipient:   cfg.NotifyRecipient,
		Threshold:   cfg.KpThreshold,
		Location:    cfg.Location,
	}, clock, metrics, logger)

	sched := scheduler.New(client, notifier, scheduler.Settings{
		Threshold:      cfg.KpThreshold,
		CheckTime:      cfg.CheckTime,
		Location:       cfg.Location,
		WindowOffset:   cfg.WindowOffset,
		WindowDuration: cfg.WindowDuration,
		FetchTimeout:   cfg.ForecastTimeout,
		NotifyTimeout:  cfg.NotifyTimeout,
		RunOnStart:     cfg.RunOnStart,
	}, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, sched, sched, logger)

	logger.Info("aurora watch starting",
		"forecast_url", cfg.ForecastURL,
		"channel", cfg.NotifyChannel,
		"recipient", notify.RedactEmail(cfg.NotifyRecipient),
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return sched.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	runErr := g.Wait()

	if err := closeChannel(); err != nil {
		logger.Error("notification channel close error", "error", err)
	}

	if runErr != nil {
		logger.Error("aurora watch stopped with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// newChannel builds the configured delivery channel and a function that
// releases its resources.
func newChannel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Channel, func() error, error) {
	noop := func() error { return nil }

	switch cfg.NotifyChannel {
	case config.ChannelSES:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		return sesadapter.NewChannel(awsCfg, sesadapter.Config{
			From:             cfg.NotifyFrom,
			ConfigurationSet: cfg.SESConfigurationSet,
		}, logger), noop, nil

	case config.ChannelKafka:
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		return w, w.Close, nil

	default:
		return logsink.NewChannel(logger), noop, nil
	}
}
