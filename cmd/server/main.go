package main

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/matrimony-api/internal/config"
    "github.com/iliyamo/matrimony-api/internal/database"
    "github.com/iliyamo/matrimony-api/internal/handler"
    "github.com/iliyamo/matrimony-api/internal/logger"
    "github.com/iliyamo/matrimony-api/internal/metrics"
    "github.com/iliyamo/matrimony-api/internal/middleware"
    "github.com/iliyamo/matrimony-api/internal/queue"
    "github.com/iliyamo/matrimony-api/internal/repository"
    "github.com/iliyamo/matrimony-api/internal/repository/memory"
    "github.com/iliyamo/matrimony-api/internal/router"
    "github.com/iliyamo/matrimony-api/internal/service"
    "github.com/iliyamo/matrimony-api/internal/utils"
)

// stores groups the persistence implementations selected by DB_DRIVER.
type stores struct {
    users    service.UserStore
    tokens   service.TokenStore
    conns    service.ConnectionStore
    profiles service.ProfileStore
    activity service.ActivityRecorder
    ping     handler.Pinger
}

func main() {
    cfg := config.Load()

    lg, err := logger.New(cfg.LogLevel, cfg.LogFormat)
    if err != nil {
        log.Fatalf("logger: %v", err)
    }
    defer func() { _ = lg.Sync() }()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    m := metrics.New(reg)

    var (
        db *sql.DB
        st stores
    )
    switch cfg.DBDriver {
    case "memory":
        lg.Warn("using the in-memory store; data is lost on exit")
        mem := memory.New()
        st = stores{
            users: mem.Users(), tokens: mem.Tokens(), conns: mem.Connections(),
            profiles: mem.Profiles(), activity: mem.Activities(), ping: mem,
        }
    case "mysql":
        db, err = database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.PoolConfig{
            MaxOpen: cfg.DBMaxOpenConns, MaxIdle: cfg.DBMaxIdleConns, MaxLifetime: cfg.DBConnMaxLifetime,
        })
        if err != nil {
            lg.Fatal("database connection failed", zap.Error(err))
        }
        if err := database.Migrate(ctx, db); err != nil {
            lg.Fatal("schema migration failed", zap.Error(err))
        }
        users := repository.NewUserRepo(db)
        st = stores{
            users: users, tokens: repository.NewTokenRepo(db), conns: repository.NewConnectionRepo(db),
            profiles: repository.NewProfileRepo(db), activity: repository.NewActivityRepo(db), ping: users,
        }
    default:
        lg.Fatal("unsupported DB_DRIVER", zap.String("driver", cfg.DBDriver))
    }

    rdb := config.NewRedisClient()
    var limiter middleware.Limiter = middleware.NewMemoryLimiter()
    if rdb != nil {
        limiter = middleware.NewRedisLimiter(rdb)
    } else {
        lg.Info("redis unavailable; rate limits are per instance and responses are not cached")
    }
    cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, lg, m)

    activity := service.MultiRecorder{st.activity}
    var sms service.SMSSender = service.LogSMSSender{Log: lg}
    var pub *queue.Publisher
    if cfg.AMQPEnabled {
        pub, err = queue.NewPublisher(cfg.AMQPURL, lg)
        if err != nil {
            lg.Error("rabbitmq unavailable; activity stays in the database and login codes are only logged", zap.Error(err))
        } else {
            activity = append(activity, pub)
            sms = pub
            go queue.StartActivityConsumer(ctx, cfg.AMQPURL, "logs", lg)
        }
    }
    if pub == nil && !cfg.OTPExposeCode {
        lg.Warn("no SMS transport configured; mobile login codes cannot reach users")
    }

    hasher := utils.NewHasher(cfg.BcryptCost, cfg.HashWorkers)
    tm := utils.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

    authSvc := service.NewAuthService(st.users, st.tokens, hasher, tm, activity, sms, lg, m, service.AuthOptions{
        LoginCodeTTL:    cfg.LoginCodeTTL,
        ExposeLoginCode: cfg.OTPExposeCode,
    })
    connSvc := service.NewConnectionService(st.users, st.conns, lg, m)
    profileSvc := service.NewProfileService(st.profiles)

    checks := map[string]handler.Pinger{"database": st.ping}
    if rdb != nil {
        checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
    }

    e := router.New(router.Deps{
        Log:         lg,
        Metrics:     m,
        Tokens:      tm,
        Limiter:     limiter,
        RateLimit:   config.LoadRateLimitConfig(),
        Cache:       cache,
        TrustProxy:  cfg.TrustProxy,
        Health:      handler.Health(lg, checks),
        Auth:        handler.NewAuthHandler(authSvc, lg),
        Connections: handler.NewConnectionHandler(connSvc, lg),
        Profiles:    handler.NewProfileHandler(profileSvc, cache, lg),
        Admin:       handler.NewAdminHandler(authSvc, cache, lg),
    })

    go func() {
        addr := ":" + cfg.Port
        lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            lg.Error("server stopped", zap.Error(err))
            stop()
        }
    }()

    <-ctx.Done()
    lg.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        lg.Warn("graceful shutdown incomplete", zap.Error(err))
    }
    closeAll(lg, db, rdb, pub)
}

func closeAll(lg *zap.Logger, db *sql.DB, rdb *redis.Client, pub *queue.Publisher) {
    if pub != nil {
        if err := pub.Close(); err != nil {
            lg.Warn("rabbitmq close", zap.Error(err))
        }
    }
    if rdb != nil {
        if err := rdb.Close(); err != nil {
            lg.Warn("redis close", zap.Error(err))
        }
    }
    if db != nil {
        if err := db.Close(); err != nil {
            lg.Warn("database close", zap.Error(err))
        }
    }
}
