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
	libotel "github.com/agendly/agendly/libs/otel"
	"github.com/agendly/agendly/libs/runtime"
	"github.com/agendly/agendly/services/identity-service/internal/handlers"
	"github.com/agendly/agendly/services/identity-service/internal/sessions"
	"github.com/agendly/agendly/services/identity-service/internal/storage"
	"github.com/agendly/agendly/services/identity-service/migrations"
)

const serviceName = "identity-service"

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

	port, err := config.Port("PORT", "8081")
	if err != nil {
		return err
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
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

	accessTTL := time.Duration(config.Int("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute
	refreshTTL := time.Duration(config.Int("REFRESH_TOKEN_TTL_HOURS", 720)) * time.Hour

	accounts := storage.NewAccountRepository(pool)
	profiles := storage.NewClientRepository(pool)
	sess := sessions.NewRepository(pool, refreshTTL)
	signer := handlers.NewHS256Signer([]byte(jwtSecret), accessTTL)

	mux := runtime.NewBaseMux(runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(pool)})
	handlers.NewAuthHandler(accounts, sess, signer, logger).Register(mux)
	handlers.NewClientsHandler(accounts, profiles, sess, logger).Register(mux)

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
