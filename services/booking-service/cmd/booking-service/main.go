package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salonhub/scheduling/libs/auth"
	"github.com/salonhub/scheduling/libs/db"
	"github.com/salonhub/scheduling/libs/grpcx"
	"github.com/salonhub/scheduling/libs/httpx"
	"github.com/salonhub/scheduling/libs/kafkax"
	otelx "github.com/salonhub/scheduling/libs/otel"
	"github.com/salonhub/scheduling/libs/runtime"
	"github.com/salonhub/scheduling/services/booking-service/internal/blocks"
	"github.com/salonhub/scheduling/services/booking-service/internal/config"
	"github.com/salonhub/scheduling/services/booking-service/internal/consumer"
	"github.com/salonhub/scheduling/services/booking-service/internal/handlers"
	"github.com/salonhub/scheduling/services/booking-service/internal/inbox"
	"github.com/salonhub/scheduling/services/booking-service/internal/outbox"
	"github.com/salonhub/scheduling/services/booking-service/internal/staff"
	"github.com/salonhub/scheduling/services/booking-service/internal/storage"
	"github.com/salonhub/scheduling/services/booking-service/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		appointments store.Repository
		directory    staff.Directory
		recorder     inbox.Recorder
		dbReady      func(context.Context) error
	)
	if cfg.UsesDatabase() {
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: cfg.DBMaxConns})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		outboxRepo := outbox.NewRepository()
		appointments = storage.NewAppointmentRepository(pool, outboxRepo)
		directory = storage.NewStaffDirectory(pool)
		recorder = inbox.NewRepository(pool)
		dbReady = db.ReadyCheck(pool)

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.Kafka.Brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go publisher.Run(ctx)
	} else {
		logger.Warn("DATABASE_URL not set; appointments and staff are kept in memory")
		appointments = store.NewMemoryRepository()
		directory = staff.NewMemoryDirectory()
		mem, err := inbox.NewMemory(4096)
		if err != nil {
			panic(err)
		}
		recorder = mem
	}

	var (
		rdb        *redis.Client
		redisReady func(context.Context) error
	)
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		redisReady = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	var blockStore blocks.BlockStore = blocks.NewMemoryBlockStore()
	if cfg.Blocks.Store == config.BlocksInRedis {
		blockStore = blocks.NewRedisBlockStore(rdb, "booking:blocks")
	}
	blockRegistry := blocks.NewRegistry(blockStore, blocks.Options{Logger: logger, Location: cfg.Location()})

	storeOpts := store.Options{Logger: logger, Latency: cfg.Store.Latency}
	if cfg.Blocks.GateBookings {
		storeOpts.Blocks = blockRegistry
	}
	stores, err := store.NewRegistry(appointments, cfg.Store.CacheSize, storeOpts)
	if err != nil {
		panic(err)
	}

	if cfg.Kafka.Brokers != "" && cfg.Kafka.StaffTopic != "" {
		staffConsumer := consumer.New(logger, recorder, consumer.Config{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.StaffTopic,
		}, consumer.StaffUpdated(directory))
		go staffConsumer.Run(ctx)
	}

	api := handlers.New(handlers.Deps{
		Stores:   stores,
		Blocks:   blockRegistry,
		Staff:    directory,
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger:   logger,
		Location: cfg.Location(),
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: dbReady},
		runtime.ReadyCheck{Name: "redis", Check: redisReady},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.Kafka.Brokers)},
	)
	api.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.SalonIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		rateLimit(cfg, rdb, logger),
		httpx.WithBodyLimit(cfg.HTTP.BodyLimitBytes),
		httpx.WithTimeout(cfg.HTTP.RequestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcx.NewServer(logger)
	grpcServer.SetServing(cfg.ServiceName, true)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		if err := grpcServer.Serve(ctx, lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "timezone", cfg.Location().String(),
			"blocks_store", string(cfg.Blocks.Store), "database", cfg.UsesDatabase())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	grpcServer.SetServing(cfg.ServiceName, false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

// rateLimit shares counters through Redis when it is configured so limits hold
// across replicas.
func rateLimit(cfg *config.Config, rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	if cfg.HTTP.RateLimitPerMinute <= 0 {
		return nil
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, cfg.HTTP.RateLimitPerMinute, time.Minute, "booking:ratelimit").
			Middleware(logger, true)
	}
	return httpx.NewRateLimiter(cfg.HTTP.RateLimitPerMinute, time.Minute).Middleware()
}
