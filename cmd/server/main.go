package main

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/account-service/internal/config"
    "github.com/iliyamo/account-service/internal/database"
    "github.com/iliyamo/account-service/internal/metrics"
    "github.com/iliyamo/account-service/internal/middleware"
    "github.com/iliyamo/account-service/internal/queue"
    "github.com/iliyamo/account-service/internal/repository"
    "github.com/iliyamo/account-service/internal/router"
    "github.com/iliyamo/account-service/internal/service"
    "github.com/iliyamo/account-service/internal/utils"
)

func main() {
    _ = godotenv.Load() // .env is optional

    cfg, err := config.Load()
    if err != nil {
        logrus.WithError(err).Fatal("invalid configuration")
    }
    log := config.NewLogger(cfg)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    store, db, err := openStore(ctx, cfg, log)
    if err != nil {
        log.WithError(err).Fatal("open account store")
    }
    if db != nil {
        defer db.Close()
    }

    hasher := utils.NewHasher(cfg.BcryptCost)
    codec := utils.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL())
    m := metrics.New()

    opts := []service.Option{service.WithLogger(log)}
    if cfg.AMQPURL != "" {
        opts = append(opts, service.WithEvents(queue.NewPublisher(cfg.AMQPURL, log)))
    } else {
        log.Info("RABBITMQ_URL not set; account events disabled")
    }
    accounts := service.NewAccountService(store, hasher, codec, opts...)

    var limiter *middleware.RateLimiter
    rlCfg := config.LoadRateLimitConfig()
    if rlCfg.Enabled {
        rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
        if rdb == nil {
            log.Warn("redis unreachable; rate limiting disabled")
        } else {
            defer rdb.Close()
            limiter = middleware.NewRateLimiter(rlCfg, rdb, log, m)
        }
    }

    e := router.New(router.Deps{
        Accounts:    accounts,
        Resolver:    service.NewResolver(codec, store),
        Metrics:     m,
        Limiter:     limiter,
        Log:         log,
        CORSOrigins: cfg.CORSOrigins,
    })

    addr := ":" + cfg.Port
    go func() {
        log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.Store}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.WithError(err).Fatal("server stopped")
        }
    }()

    <-ctx.Done()
    log.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Error("graceful shutdown failed")
    }
}

// openStore returns the configured account store.  For MySQL it also runs
// migrations when DB_MIGRATE is set; a failed migration is logged and the
// server starts anyway.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (repository.TxStore, *sql.DB, error) {
    if cfg.Store == config.StoreMemory {
        log.Warn("using in-memory account store; data is lost on exit")
        return repository.NewMemoryStore(), nil, nil
    }
    db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        return nil, nil, err
    }
    if cfg.DBMigrate {
        log.Info("running database migrations")
        if err := database.Migrate(ctx, db); err != nil {
            log.WithError(err).Error("database migration failed; schema may be out of date")
        } else {
            log.Info("database migrations completed")
        }
    }
    return repository.NewMySQLStore(db), db, nil
}
