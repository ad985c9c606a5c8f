package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agendly/agendly/libs/config"
	"github.com/agendly/agendly/libs/db"
	"github.com/agendly/agendly/libs/httpx"
	"github.com/agendly/agendly/libs/kafkax"
	libotel "github.com/agendly/agendly/libs/otel"
	"github.com/agendly/agendly/libs/runtime"
	"github.com/agendly/agendly/services/booking-service/internal/booking"
	"github.com/agendly/agendly/services/booking-service/internal/handlers"
	"github.com/agendly/agendly/services/booking-service/internal/outbox"
	"github.com/agendly/agendly/services/booking-service/internal/schedule"
	"github.com/agendly/agendly/services/booking-service/internal/storage"
	"github.com/agendly/agendly/services/booking-service/internal/timeutil"
	"github.com/agendly/agendly/services/booking-service/migrations"
)

const serviceName = "booking-service"

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

	port, err := config.Port("PORT", "8082")
	if err != nil {
		return err
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}

	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Run(ctx, pool); err != nil {
		return err
	}

	hours, err := businessHours()
	if err != nil {
		return err
	}
	cancelLead := time.Duration(config.Int("CANCEL_LEAD_MINUTES", 120)) * time.Minute

	outboxRepo := outbox.NewRepository(pool)
	engine := booking.NewEngine(booking.EngineConfig{
		Services:     storage.NewServiceRepository(pool),
		Appointments: storage.NewAppointmentRepository(pool),
		Events:       outboxRepo,
		Hours:        hours,
		CancelLead:   cancelLead,
		Logger:       logger,
	})

	readyChecks := []runtime.ReadyCheck{{Name: "postgres", Check: db.ReadyCheck(pool)}}
	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		publisher := outbox.NewPublisher(outboxRepo, brokers, logger)
		defer publisher.Close()
		go publisher.Run(ctx)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set, events stay in the outbox")
	}

	mux := runtime.NewBaseMux(readyChecks...)
	handlers.New(engine, logger, config.Bool("DEBUG_ERRORS", false)).Register(mux)

	handler := httpx.Chain(
		otelhttp.NewHandler(mux, serviceName),
		httpx.WithRequestID(),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
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

// businessHours reads the shop's operating window from the environment,
// defaulting to 08:00-18:00 with 15-minute slot starts.
func businessHours() (schedule.Hours, error) {
	open, err := timeutil.ParseClock(config.String("BUSINESS_OPEN", "08:00"))
	if err != nil {
		return schedule.Hours{}, err
	}
	close, err := timeutil.ParseClock(config.String("BUSINESS_CLOSE", "18:00"))
	if err != nil {
		return schedule.Hours{}, err
	}
	step := config.Int("SLOT_STEP_MINUTES", 15)
	if step <= 0 || open >= close {
		return schedule.Hours{}, errors.New("invalid business hours configuration")
	}
	return schedule.Hours{Open: open, Close: close, SlotStep: step}, nil
}
