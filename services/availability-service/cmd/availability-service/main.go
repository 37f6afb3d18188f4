package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/availbridge/libs/config"
	"github.com/md-rashed-zaman/availbridge/libs/httpx"
	otelx "github.com/md-rashed-zaman/availbridge/libs/otel"
	"github.com/md-rashed-zaman/availbridge/libs/runtime"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/availbridge/services/availability-service/internal/upstream"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := runtime.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "availability-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var cache upstream.Cache
	var checks []runtime.ReadyCheck
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rc := upstream.NewRedisCache(rdb, config.String("UPSTREAM_CACHE_PREFIX", "availbridge"))
		cache = rc
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: rc.Ping})
		logger.Info("upstream cache enabled (redis)", "redis_addr", addr)
	}

	cfg := upstream.Config{
		BaseURL:  config.String("UPSTREAM_BASE_URL", "https://www.planyo.com/rest/"),
		APIKey:   config.String(upstream.APIKeyEnv, ""),
		Username: config.String("UPSTREAM_USERNAME", ""),
		Password: config.String("UPSTREAM_PASSWORD", ""),
		Timeout:  config.Seconds("UPSTREAM_TIMEOUT_SECONDS", 0),
		CacheTTL: config.Seconds("UPSTREAM_CACHE_TTL_SECONDS", 60*time.Second),
	}
	if cfg.APIKey == "" {
		logger.Warn("upstream api key not set; availability requests will fail", "env", upstream.APIKeyEnv)
	}
	client := upstream.NewClient(cfg, cache, logger)

	handler := newHandler(client, logger, corsPolicyFromEnv(), checks...)
	handler = otelhttp.NewHandler(handler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		logger.Error("server exited", "err", err)
	}
}

func corsPolicyFromEnv() httpx.CORSPolicy {
	return httpx.CORSPolicy{
		AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
		AllowedMethods: config.List("CORS_ALLOWED_METHODS", "GET,OPTIONS"),
		AllowedHeaders: config.List("CORS_ALLOWED_HEADERS", "Content-Type,X-Request-Id"),
		MaxAge:         config.Seconds("CORS_MAX_AGE_SECONDS", 600*time.Second),
		Strict:         config.Bool("CORS_STRICT", true),
	}
}

func newHandler(client handlers.Upstream, logger *slog.Logger, cors httpx.CORSPolicy, checks ...runtime.ReadyCheck) http.Handler {
	mux := runtime.NewBaseMuxWithReady(checks...)
	registerRoutes(mux, handlers.NewAvailabilityHandler(client, logger))

	return httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(cors),
	)
}

func registerRoutes(mux *http.ServeMux, h *handlers.AvailabilityHandler) {
	mux.HandleFunc("/api/v1/availability/search", h.Search)
	mux.HandleFunc("/api/v1/availability/usage", h.Usage)
}
