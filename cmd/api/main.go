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

	"recipe-planner/internal/api"
	"recipe-planner/internal/api/handlers/health"
	"recipe-planner/internal/core/cache"
	"recipe-planner/internal/core/catalog"
	"recipe-planner/internal/core/events"
	"recipe-planner/internal/core/grocery"
	"recipe-planner/internal/core/mealplan"
	"recipe-planner/internal/infrastructure/config"
	"recipe-planner/internal/infrastructure/storage"
	"recipe-planner/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("env", cfg.App.Env),
		zap.String("database", cfg.Database.Path),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("catalog_enabled", cfg.Catalog.Enabled),
		zap.String("catalog_api_key", config.MaskAPIKey(cfg.Catalog.APIKey)),
		zap.Bool("events_enabled", cfg.Events.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		common.LogFatal("Failed to open database", zap.Error(err))
	}
	defer repo.Close()

	store, err := cache.NewStore(cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	assembler := grocery.NewAssembler(grocery.WithDisplayPrecision(cfg.Grocery.DisplayPrecision))
	opts := []mealplan.Option{
		mealplan.WithPrefetchWorkers(cfg.Grocery.PrefetchWorkers),
		mealplan.WithCache(store, cfg.Cache.TTL),
	}
	if cfg.Catalog.Enabled {
		opts = append(opts, mealplan.WithLineSource(catalog.NewClient(cfg.Catalog)))
		common.LogInfo("Using remote recipe catalog", zap.String("base_url", cfg.Catalog.BaseURL))
	}
	service := mealplan.NewService(repo, assembler, opts...)

	checks := map[string]health.Checker{"database": repo.Ping}
	if store != nil {
		checks["cache"] = func(ctx context.Context) error {
			if _, err := store.Get(ctx, "readiness-probe"); err != nil && !errors.Is(err, common.ErrCacheMiss) {
				return err
			}
			return nil
		}
	}

	if cfg.Events.Enabled {
		client, err := events.NewClient(cfg.Events.URL, cfg.Events.Exchange, cfg.Events.Queue)
		if err != nil {
			common.LogFatal("Failed to connect to AMQP", zap.Error(err))
		}
		defer client.Close()

		go func() {
			err := client.Consume(ctx, func(ctx context.Context, msg *events.MealPlanChangedMessage) error {
				return service.Invalidate(ctx, msg.UserID)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				common.LogError("Event consumer stopped", zap.Error(err))
			}
		}()
	}

	router := api.SetupRouter(cfg, api.Dependencies{
		MealPlans: service,
		Checks:    checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo(common.MsgServerStart,
			zap.Int("port", cfg.Server.Port),
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogError("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	common.LogInfo(common.MsgServerStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo(common.MsgServerExited)
}
