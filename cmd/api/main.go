package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpadp "loan-amortization/internal/adapter/http"
	mw "loan-amortization/internal/adapter/middleware"
	"loan-amortization/internal/adapter/repository/memory"
	"loan-amortization/internal/adapter/repository/mysql"
	"loan-amortization/internal/config"
	"loan-amortization/internal/domain/chat"
	"loan-amortization/internal/domain/uow"
	"loan-amortization/internal/infrastructure/cache"
	"loan-amortization/internal/infrastructure/db"
	"loan-amortization/internal/usecase/amortization"
	chatuc "loan-amortization/internal/usecase/chat"
	"loan-amortization/pkg/id"
)

func main() {
	cfg := config.Load()
	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.Error("exit", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

// run wires the service and blocks until a signal or a server failure. Every
// resource it opens is released before it returns.
func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// chat catalog store
	replies, unit, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := chatuc.Seed(ctx, unit); err != nil {
		return fmt.Errorf("seed chat replies: %w", err)
	}

	// optional redis
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		log.Info("redis: connected", zap.String("addr", cfg.RedisAddr))
	}

	calc := amortization.NewCalculator(amortization.Limits{
		MaxPrincipal:         cfg.MaxPrincipal,
		MaxAnnualRatePercent: cfg.MaxAnnualRate,
		MaxTermPeriods:       cfg.MaxTermPeriods,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: id.New}),
		requestLogger(log),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSAllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, mw.HeaderIdempotencyKey},
		}),
	)

	var apiMW []echo.MiddlewareFunc
	if rdb != nil {
		apiMW = append(apiMW,
			mw.RateLimit(rdb, cfg.RateLimitPerMin, log),
			mw.Idempotency(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second, log),
		)
	} else {
		apiMW = append(apiMW, mw.MemoryRateLimit(cfg.RateLimitPerMin))
	}

	httpadp.Routes{
		Health:     httpadp.NewHandler(),
		Calculator: httpadp.NewCalculatorHandler(calc, log),
		Chat:       httpadp.NewChatHandler(chatuc.NewUsecase(replies, log), log),
	}.Register(e, apiMW...)

	e.Server.ReadHeaderTimeout = 5 * time.Second
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.IdleTimeout = 60 * time.Second

	log.Info("listening", zap.String("addr", ":"+cfg.AppPort), zap.String("env", cfg.AppEnv))
	return serve(ctx, e, ":"+cfg.AppPort, time.Duration(cfg.ShutdownTimeoutSecs)*time.Second, log)
}

// serve runs e until ctx is done, then shuts it down within timeout. A server
// that fails to start or dies returns its error here instead of exiting.
func serve(ctx context.Context, e *echo.Echo, addr string, timeout time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log
}

// openStore returns the chat catalog, its unit of work and a closer: gorm for
// sqlite or mysql, an in-process map for DB_DRIVER=none.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (chat.Repository, uow.UnitOfWork, func(), error) {
	if cfg.DBDriver == config.DBDriverNone {
		log.Info("db: disabled, using in-memory chat catalog")
		repo := memory.NewReplyRepository()
		return repo, memory.NewUoW(repo), func() {}, nil
	}

	gdb, err := db.OpenGorm(db.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DSN(),
		LogLevel: db.ParseLogLevel(cfg.DBLogLevel),
		Log:      log,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("db: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := mysql.Migrate(ctx, gdb); err != nil {
		closeDB()
		return nil, nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return mysql.NewReplyRepository(gdb), mysql.NewGormUoW(gdb), closeDB, nil
}

func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
