package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/minhvu-dev/sakura-store/internal/cart"
	"github.com/minhvu-dev/sakura-store/internal/catalog"
	"github.com/minhvu-dev/sakura-store/internal/checkout"
	"github.com/minhvu-dev/sakura-store/internal/common"
	"github.com/minhvu-dev/sakura-store/internal/config"
	"github.com/minhvu-dev/sakura-store/internal/events"
	"github.com/minhvu-dev/sakura-store/internal/health"
	"github.com/minhvu-dev/sakura-store/internal/i18n"
	"github.com/minhvu-dev/sakura-store/internal/invoice"
	"github.com/minhvu-dev/sakura-store/internal/lock"
	"github.com/minhvu-dev/sakura-store/internal/obs"
	"github.com/minhvu-dev/sakura-store/internal/payment"
	"github.com/minhvu-dev/sakura-store/internal/pricing"
	"github.com/minhvu-dev/sakura-store/internal/ratelimit"
	"github.com/minhvu-dev/sakura-store/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "sakura")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "sakura-store-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	translator, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		logger.Fatal().Err(err).Msg("load locale catalogs")
	}

	catalogSvc := catalog.NewService(catalog.NewCache(redisClient, cfg.CatalogCacheTTL))
	catalogHandler := catalog.Handler{Svc: catalogSvc}

	cartSvc := &cart.Service{R: redisClient, Catalog: catalogSvc, TTL: cfg.CartTTL}
	cartHandler := cart.Handler{Svc: cartSvc}

	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("stripe").
		WithLogger(logger)
	provider := payment.Stripe{
		SecretKey: cfg.StripeSecretKey,
		BaseURL:   cfg.StripeBaseURL,
		HTTP: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker: breaker,
			Timeout: cfg.PaymentTimeout,
		},
		Log: logger,
	}
	relayHandler := payment.Handler{
		Provider: provider,
		Currency: cfg.CurrencyCode,
		T:        translator,
		Locale:   cfg.DefaultLocale,
		Log:      logger,
	}

	bus := events.NewBus(logger)
	bus.Subscribe(events.LogNotifier{Log: logger})

	renderer := &invoice.Renderer{
		T:        translator,
		FontPath: envOrDefault("INVOICE_FONT_PATH", ""),
	}
	checkoutSvc := &checkout.Service{
		R:        redisClient,
		Cart:     cartSvc,
		Provider: provider,
		Renderer: renderer,
		Locker:   lock.Locker{R: redisClient},
		Events:   bus,
		Log:      logger,
		Store: invoice.StoreProfile{
			Name:     cfg.Store.Name,
			Address:  cfg.Store.Address,
			Phone:    cfg.Store.Phone,
			Email:    cfg.Store.Email,
			TaxID:    cfg.Store.TaxID,
			LogoPath: cfg.Store.LogoPath,
		},
		Currency:   cfg.CurrencyCode,
		TaxBps:     cfg.TaxRateBPS,
		Shipping:   pricing.Money(cfg.ShippingFlatFee),
		Locale:     cfg.DefaultLocale,
		LockTTL:    cfg.CheckoutLockTTL,
		InvoiceTTL: cfg.InvoiceCacheTTL,
	}
	checkoutHandler := checkout.Handler{
		Svc: checkoutSvc,
		V:   validator.New(),
		T:   translator,
		Log: logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}
	relayLimit := ratelimit.Middleware{
		Limiter: ratelimit.SlidingWindow{R: redisClient},
		Window:  cfg.RelayRateWindow,
		Max:     int64(cfg.RelayRateMax),
		Prefix:  "rl:intent",
		Log:     logger,
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", cart.SessionHeader},
		ExposedHeaders:   []string{"X-Total-Count", cart.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	checker := health.Checker{
		Redis:   redisClient,
		Timeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", checker.Live)
	r.Get("/health/ready", checker.Ready)

	// The storefront's payment relay keeps its original path and flat JSON
	// shape. It is unauthenticated, so it carries its own rate limit.
	r.With(relayLimit.Handler).Post("/api/create-payment-intent", relayHandler.CreateIntent)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/featured", catalogHandler.Featured)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Get("/categories", catalogHandler.Categories)

		v.Route("/cart", func(c chi.Router) {
			c.Use(cart.SessionMiddleware)
			c.Get("/", cartHandler.Get)
			c.Post("/items", cartHandler.Add)
			c.Post("/items/{productId}/increase", cartHandler.Increase)
			c.Post("/items/{productId}/decrease", cartHandler.Decrease)
			c.Delete("/items/{productId}", cartHandler.Remove)
			c.Delete("/", cartHandler.Clear)
		})

		v.With(cart.SessionMiddleware, idem.Middleware).Post("/checkout", checkoutHandler.Submit)
		v.Get("/invoices/{invoiceNumber}/pdf", checkoutHandler.InvoicePDF)
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
