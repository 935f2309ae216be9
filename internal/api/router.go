package api

import (
	"time"

	"chefsire/internal/api/handlers"
	"chefsire/internal/api/handlers/health"
	recipeHandler "chefsire/internal/api/handlers/recipe"
	substitutionHandler "chefsire/internal/api/handlers/substitution"
	"chefsire/internal/api/middleware"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Recipes       recipeHandler.Service
	Substitutions substitutionHandler.Service
	Store         health.Pinger
	Dedup         *middleware.Deduplicator
	CacheStats    health.StatsProvider
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.RegisterValidation()

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           12 * time.Hour,
	}))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, cfg.Database.Driver, cfg.AIEnabled(), deps.Store, deps.CacheStats)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api")
	api.Use(middleware.BodySizeLimit(cfg.MaxBodySize))
	api.Use(middleware.Timeout(cfg.RequestTimeout))
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 匯入本身可重複執行，去重只用在新增食譜
	var createMiddleware []gin.HandlerFunc
	if deps.Dedup != nil {
		createMiddleware = append(createMiddleware, deps.Dedup.Middleware())
	}
	{
		api.GET("/health", healthHandler.HealthCheck)
		recipeHandler.NewHandler(deps.Recipes).Register(api, createMiddleware...)
		substitutionHandler.NewHandler(deps.Substitutions).Register(api)
	}

	common.LogInfo("Router setup completed",
		zap.Duration("timeout", cfg.RequestTimeout),
		zap.Int64("max_body_size", cfg.MaxBodySize),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
	)

	return router
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
