package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/database"
	"github.com/iliyamo/cinema-seat-booking/internal/handler"
	"github.com/iliyamo/cinema-seat-booking/internal/lock"
	"github.com/iliyamo/cinema-seat-booking/internal/logger"
	"github.com/iliyamo/cinema-seat-booking/internal/metrics"
	"github.com/iliyamo/cinema-seat-booking/internal/middleware"
	"github.com/iliyamo/cinema-seat-booking/internal/queue"
	"github.com/iliyamo/cinema-seat-booking/internal/repository"
	"github.com/iliyamo/cinema-seat-booking/internal/router"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg, config.LoadPoolConfig())
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.Migrate(db.DB); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		logger.Info("migrations applied")
	}

	// Redis is optional: without it the lock falls back to in-process,
	// and rate limiting and caching are disabled.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	locker := newLocker(config.LoadLockConfig(), rdb)
	m := metrics.New()

	opts := []service.Option{
		service.WithMetrics(m),
		service.WithLogger(logger.Get()),
	}
	qcfg := config.LoadQueueConfig()
	if qcfg.Enabled {
		pub := queue.NewPublisher(qcfg.URL, qcfg.Queue)
		defer pub.Close()
		opts = append(opts, service.WithPublisher(pub))
	}

	bookings := repository.NewBookingRepo(db)
	coord := service.NewCoordinator(bookings, locker, opts...)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Prometheus(m))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(db)), cfg.JWTSecret)
	bookingHandler := handler.NewBookingHandler(coord)
	router.RegisterPublic(e,
		handler.NewCatalogHandler(repository.NewShowRepo(db)),
		bookingHandler,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	router.RegisterBooking(e, bookingHandler, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if qcfg.Enabled && qcfg.StartConsumer {
		consumer := queue.NewConsumer(qcfg.URL, qcfg.Queue, qcfg.LogDir, logger.With(zap.String("component", "consumer")))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("lock", locker.Backend()))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newLocker picks the per-show lock backend.  The Redis lock is used
// only when configured and reachable.
func newLocker(cfg config.LockConfig, rdb *redis.Client) lock.Locker {
	if cfg.Backend == config.LockBackendRedis {
		if rdb != nil {
			return lock.NewRedis(rdb, lock.RedisOptions{
				Prefix:        cfg.Prefix,
				TTL:           cfg.TTL,
				WaitTimeout:   cfg.WaitTimeout,
				RetryInterval: cfg.RetryInterval,
			})
		}
		logger.Warn("LOCK_BACKEND=redis but redis is unavailable; using in-process lock")
	}
	return lock.NewKeyed(cfg.WaitTimeout)
}
