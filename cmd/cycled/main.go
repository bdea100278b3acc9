package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/mattdomit/dotted-sub000/internal/ai"
	"github.com/mattdomit/dotted-sub000/internal/app"
	"github.com/mattdomit/dotted-sub000/internal/config"
	cronrunner "github.com/mattdomit/dotted-sub000/internal/cron"
	"github.com/mattdomit/dotted-sub000/internal/db"
	"github.com/mattdomit/dotted-sub000/internal/events"
	"github.com/mattdomit/dotted-sub000/internal/handler"
	"github.com/mattdomit/dotted-sub000/internal/lock"
	"github.com/mattdomit/dotted-sub000/internal/logger"
	gormrepository "github.com/mattdomit/dotted-sub000/internal/repository/gorm"
	"github.com/mattdomit/dotted-sub000/internal/service"

	_ "github.com/mattdomit/dotted-sub000/docs"
)

func main() {
	cfgPath := os.Getenv("DOTTED_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("DOTTED_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log, "cycled")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}
	store := gormrepository.New(dbConn.Gorm)

	var rdb *redis.Client
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis ping failed", zap.String("addr", addr), zap.Error(err))
		}
		cancel()
	}

	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	dispatcher, hub := events.Setup(cfg.Broadcast, rdb, logger.Named("broadcast"))
	dispatcher.Enabled = func(ctx context.Context) bool {
		return settingsSvc.IsEnabled(ctx, service.FeatureBroadcast, true)
	}
	defer dispatcher.Close()

	suggester, err := ai.NewFromConfig(cfg.AI, logger.Named("ai"))
	if err != nil {
		logger.Warn("ai suggester disabled", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	}

	locker := lock.Chain{lock.NewLocal()}
	if rdb != nil {
		locker = append(locker, &lock.Redis{
			Client: rdb,
			Prefix: cfg.Lock.KeyPrefix,
			TTL:    cfg.Lock.TTL,
			Logger: logger.Named("lock"),
		})
	}

	orch := app.NewOrchestrator(cfg, store, app.Deps{
		Logger:    logger,
		Suggester: suggester,
		Publisher: dispatcher,
		Locker:    locker,
	})

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.WriteAudit(logger.Named("api")))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var schedLoc *time.Location
	if tz := strings.TrimSpace(cfg.Sweep.DefaultTimezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			schedLoc = loc
		} else {
			logger.Warn("invalid sweep timezone, using local time", zap.String("timezone", tz), zap.Error(err))
		}
	}
	cronRunner := cronrunner.New(logger.Named("cron"), ctx, schedLoc)
	n := cronRunner.RegisterSweeps(cfg.Cron, orch, settingsSvc)
	logger.Info("sweep schedules registered", zap.Int("jobs", n))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Redis: rdb}
	healthHandler.Register(engine)
	(&handler.CycleHandler{Repo: store, Engine: orch, Logger: logger.Named("api")}).Register(engine)
	(&handler.ZoneHandler{Repo: store}).Register(engine)
	(&handler.SweepHandler{Sweeper: orch, Jobs: cronRunner}).Register(engine)
	(&handler.SettingsHandler{Repo: store, Settings: settingsSvc}).Register(engine)
	if hub != nil {
		hub.Register(engine)
	}

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
