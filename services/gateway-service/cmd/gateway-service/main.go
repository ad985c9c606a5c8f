// The gateway terminates authentication for the public API. It verifies
// bearer tokens once, translates them into trusted identity headers, and
// proxies to the backing services.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/agendly/agendly/libs/auth"
	"github.com/agendly/agendly/libs/config"
	"github.com/agendly/agendly/libs/httpx"
	libotel "github.com/agendly/agendly/libs/otel"
	"github.com/agendly/agendly/libs/runtime"
)

const serviceName = "gateway-service"

type gateway struct {
	identity http.Handler
	booking  http.Handler
	secret   []byte
	// jwks is set when an external identity provider issues RS256 tokens;
	// tokens carrying a kid are verified against it instead of the shared
	// secret.
	jwks   *auth.JWKSClient
	logger *slog.Logger
}

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

	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		return err
	}
	identityURL, err := config.RequiredString("IDENTITY_SERVICE_URL")
	if err != nil {
		return err
	}
	bookingURL, err := config.RequiredString("BOOKING_SERVICE_URL")
	if err != nil {
		return err
	}

	identityProxy, err := newProxy(identityURL)
	if err != nil {
		return err
	}
	bookingProxy, err := newProxy(bookingURL)
	if err != nil {
		return err
	}

	g := &gateway{
		identity: identityProxy,
		booking:  bookingProxy,
		secret:   []byte(jwtSecret),
		logger:   logger,
	}
	if jwksURL := config.String("AUTH_JWKS_URL", ""); jwksURL != "" {
		g.jwks = auth.NewJWKSClient(jwksURL)
	}

	mux := runtime.NewBaseMux()
	g.routes(mux)

	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		limiter = httpx.WithRedisRateLimit(rdb, logger, rateLimit, time.Minute)
	} else {
		logger.Warn("REDIS_ADDR not set, rate limiting is per instance")
		limiter = httpx.WithRateLimit(rateLimit, time.Minute)
	}

	handler := httpx.Chain(
		otelhttp.NewHandler(mux, serviceName),
		httpx.WithRequestID(),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		limiter,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
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

func newProxy(target string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

func (g *gateway) routes(mux *http.ServeMux) {
	// Registration, login and token exchange are the only public endpoints.
	mux.Handle("/api/v1/auth/", g.identity)
	mux.Handle("GET /api/v1/auth/me", g.requireAuth(g.identity))

	mux.Handle("/api/v1/professionals", g.requireAuth(g.identity))
	mux.Handle("/api/v1/clients", g.requireAuth(g.requireRole("professional", g.identity)))
	mux.Handle("/api/v1/clients/", g.requireAuth(g.requireRole("professional", g.identity)))

	mux.Handle("/api/v1/appointments", g.requireAuth(g.booking))
	mux.Handle("/api/v1/appointments/", g.requireAuth(g.booking))
	mux.Handle("/api/v1/availability", g.requireAuth(g.booking))
	mux.Handle("/api/v1/services", g.requireAuth(g.booking))
	mux.Handle("/api/v1/services/", g.requireAuth(g.booking))
	mux.Handle("/api/v1/reports/", g.requireAuth(g.requireRole("professional", g.booking)))
}

// requireAuth verifies the bearer token and replaces any inbound identity
// headers with values derived from the verified claims. Backends trust these
// headers, so nothing client-supplied may pass through.
func (g *gateway) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stripIdentityHeaders(r)
		token, err := auth.ParseHeader(r.Header.Get("Authorization"))
		if err != nil {
			unauthorized(w, "authentication required")
			return
		}
		claims, err := g.verify(r.Context(), token)
		if err != nil {
			unauthorized(w, "token invalid or expired")
			return
		}
		r.Header.Set("X-User-Id", claims.Sub)
		r.Header.Set("X-Role", claims.Role)
		r.Header.Set("X-User-Email", claims.Email)
		r.Header.Set("X-User-Name", claims.Name)
		next.ServeHTTP(w, r)
	})
}

// requireRole gates a route group on the role requireAuth resolved.
func (g *gateway) requireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Role") != role {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "insufficient role"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *gateway) verify(ctx context.Context, token string) (auth.Claims, error) {
	if g.jwks != nil {
		if kid, err := auth.KeyID(token); err == nil && kid != "" {
			key, err := g.jwks.Key(ctx, kid)
			if err != nil {
				return auth.Claims{}, err
			}
			return auth.VerifyRS256(token, key)
		}
	}
	return auth.ParseAndVerifyHS256(token, g.secret)
}

func stripIdentityHeaders(r *http.Request) {
	r.Header.Del("X-User-Id")
	r.Header.Del("X-Role")
	r.Header.Del("X-User-Email")
	r.Header.Del("X-User-Name")
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
