package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chefsire/internal/api"
	"chefsire/internal/api/handlers/health"
	"chefsire/internal/api/middleware"
	"chefsire/internal/core/ai/openrouter"
	"chefsire/internal/core/cache"
	"chefsire/internal/core/mealdb"
	"chefsire/internal/core/recipe"
	"chefsire/internal/core/storage"
	"chefsire/internal/core/substitution"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/infrastructure/database"
	"chefsire/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.Log.Level, cfg.Log.Dir, cfg.App.Name); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("Configuration loaded",
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("database_dsn", cfg.Database.DSN),
		zap.String("openrouter_api_key", cfg.OpenRouter.APIKey),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("cache_backend", cfg.Cache.Backend),
	)

	if err := run(cfg); err != nil {
		common.LogError("Server exited with error", zap.Error(err))
		common.Sync()
		os.Exit(1)
	}
	common.LogInfo("Server exited")
}

func run(cfg *config.Config) error {
	// 初始化資料庫
	db, err := database.Open(&cfg.Database, cfg.App.Debug)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			common.LogWarn("Failed to close database", zap.Error(err))
		}
	}()

	var store interface {
		recipe.Store
		Ping(ctx context.Context) error
	}
	if db == nil {
		store = storage.NewMemoryStore()
	} else {
		store = storage.NewGormStore(db)
	}

	// 初始化快取
	cacheBackend, err := cache.New(&cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	if cacheBackend != nil {
		defer cacheBackend.Close()
	}

	// 初始化服務
	source := mealdb.NewClient(&cfg.MealDB, cacheBackend)
	recipeSvc := recipe.NewService(store, source, recipe.WithDefaultTerm(cfg.MealDB.DefaultTerm))

	var completer substitution.Completer
	if cfg.AIEnabled() {
		completer = openrouter.NewClient(&cfg.OpenRouter)
	} else {
		common.LogWarn("OpenRouter API key not set, substitutions use static suggestions")
	}
	substitutionSvc := substitution.NewService(completer, cacheBackend)

	// 只有記憶體快取提供統計
	var cacheStats health.StatsProvider
	if m, ok := cacheBackend.(*cache.Manager); ok {
		cacheStats = m
	}

	dedup := middleware.NewDeduplicator(cfg.DedupWindow)
	defer dedup.Close()

	// 設置路由
	router := api.SetupRouter(cfg, api.Dependencies{
		Recipes:       recipeSvc,
		Substitutions: substitutionSvc,
		Store:         store,
		Dedup:         dedup,
		CacheStats:    cacheStats,
	})

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	serverErr := make(chan error, 1)
	go func() {
		common.LogInfo("Starting server",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-quit:
	}

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
