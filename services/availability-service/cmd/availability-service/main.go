package main

import (
	"context"
	"net"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/bookable/libs/config"
	"github.com/md-rashed-zaman/bookable/libs/db"
	"github.com/md-rashed-zaman/bookable/libs/httpx"
	"github.com/md-rashed-zaman/bookable/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookable/libs/otel"
	"github.com/md-rashed-zaman/bookable/libs/runtime"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/cache"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/consumer"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/grpcserver"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/handlers"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/metrics"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/storage"
	"github.com/md-rashed-zaman/bookable/services/availability-service/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	cfg, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		otelShutdown = nil
	}

	if cfg.runMigrations {
		if err := storage.Migrate(cfg.databaseURL); err != nil {
			logger.Error("migrations failed", "err", err)
			panic(err)
		}
		logger.Info("migrations applied")
	}

	pool, err := db.Open(ctx, cfg.databaseURL, db.PoolOptions{MaxConns: cfg.dbMaxConns})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	recorder := telemetry.NewRecorder(logger, m, nil)

	calc := availability.NewCalculator(storage.NewGateway(pool), availability.Options{
		Policy:             availability.ConflictPolicy{MinOverlapMinutes: cfg.minOverlapMinutes},
		Location:           cfg.location,
		MaxConcurrentReads: cfg.maxConcurrentReads,
		Telemetry:          recorder,
	})

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	var computer telemetry.Computer = calc
	var rateLimit httpx.Middleware = httpx.NewRateLimiter(cfg.rateLimitPerMinute, time.Minute).Middleware()

	if cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.redisAddr, Password: cfg.redisPassword, DB: cfg.redisDB})
		defer func() { _ = rdb.Close() }()

		resultCache := cache.New(rdb, calc, cfg.cacheTTL, logger, m).WithLocation(cfg.location)
		computer = resultCache
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: cache.ReadyCheck(rdb)})
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.rateLimitPerMinute, time.Minute, "avail:rl").Middleware(logger, true)

		if cfg.kafkaBrokers != "" && len(cfg.kafkaTopics) > 0 {
			reader := consumer.NewReader(consumer.Config{
				Brokers: cfg.kafkaBrokers,
				GroupID: cfg.kafkaGroupID,
				Topics:  cfg.kafkaTopics,
			})
			go consumer.New(logger, reader, resultCache, m, cfg.location).Run(ctx)
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.kafkaBrokers)})
			logger.Info("cache invalidation consumer started", "topics", cfg.kafkaTopics)
		}
	} else {
		logger.Warn("REDIS_ADDR not set; serving without result cache")
	}

	computer = recorder.Instrument(computer)

	grpcSrv, healthSrv := grpcserver.NewServer(logger, computer)
	lis, err := net.Listen("tcp", ":"+cfg.grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", metrics.Handler(reg))
	handlers.NewAvailabilityHandler(computer, logger).Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger, mux, m),
		httpx.WithCORS(httpx.PublicReadCORS(cfg.corsOrigins)),
		rateLimit,
		httpx.WithTimeout(cfg.requestTimeout),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           otelhttp.NewHandler(httpHandler, "availability"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	healthSrv.Shutdown()
	_ = runtime.Shutdown(logger, 10*time.Second,
		runtime.Shutdowner{Name: "http", Fn: srv.Shutdown},
		runtime.Shutdowner{Name: "grpc", Fn: func(context.Context) error {
			grpcSrv.GracefulStop()
			return nil
		}},
		runtime.Shutdowner{Name: "otel", Fn: otelShutdown},
	)
	logger.Info("servers stopped")
}
