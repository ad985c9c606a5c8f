package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/agendly/agendly/libs/config"
	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/libs/kafkax"
	libotel "github.com/agendly/agendly/libs/otel"
	"github.com/agendly/agendly/libs/runtime"
	"github.com/agendly/agendly/services/notifier-service/internal/consumer"
	"github.com/agendly/agendly/services/notifier-service/internal/email"
	"github.com/agendly/agendly/services/notifier-service/internal/inbox"
	"github.com/agendly/agendly/services/notifier-service/migrations"
)

const serviceName = "notifier-service"

func main() {
	logger := runtime.NewLogger(serviceName)
	if err := run(logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := runtime.SignalContext()
	defer stop()

	shutdownTracing, err := libotel.Setup(ctx, libotel.ConfigFromEnv(serviceName))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	port, err := config.Port("PORT", "8083")
	if err != nil {
		return err
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	brokersRaw, err := config.RequiredString("KAFKA_BROKERS")
	if err != nil {
		return err
	}
	brokers := kafkax.SplitBrokers(brokersRaw)

	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Run(ctx, pool); err != nil {
		return err
	}

	var sender email.Sender
	if smtpAddr := config.String("SMTP_ADDR", ""); smtpAddr != "" {
		sender = &email.SMTPSender{
			Addr: smtpAddr,
			From: config.String("SMTP_FROM", "bookings@agendly.local"),
		}
	} else {
		logger.Warn("SMTP_ADDR not set, emails will be logged instead of sent")
		sender = &email.LogSender{Logger: logger}
	}

	c := consumer.New(brokers, config.String("KAFKA_GROUP_ID", serviceName), inbox.New(pool), sender, logger)
	defer c.Close()
	go c.Run(ctx)

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
