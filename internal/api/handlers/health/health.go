package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"chefsire/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Store     string                 `json:"store"`
	AI        bool                   `json:"ai_enabled"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
	Runtime   map[string]interface{} `json:"runtime"`
}

// Pinger 可檢查連線的依賴
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider 提供快取統計
type StatsProvider interface {
	Stats() map[string]interface{}
}

// Handler 健康檢查處理器
type Handler struct {
	version   string
	storeKind string
	aiEnabled bool
	store     Pinger
	cache     StatsProvider
}

// NewHandler 創建健康檢查處理器；cache 可為 nil
func NewHandler(version, storeKind string, aiEnabled bool, store Pinger, cache StatsProvider) *Handler {
	return &Handler{
		version:   version,
		storeKind: storeKind,
		aiEnabled: aiEnabled,
		store:     store,
		cache:     cache,
	}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	var cacheStats map[string]interface{}
	if h.cache != nil {
		cacheStats = h.cache.Stats()
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Cache:     cacheStats,
		Timestamp: time.Now(),
		Version:   h.version,
		Store:     h.storeKind,
		AI:        h.aiEnabled,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":  m.Alloc,
				"sys":    m.Sys,
				"num_gc": m.NumGC,
			},
		},
	})
}

// ReadinessCheck 就緒檢查：確認儲存層可連線
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			common.LogWarn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"store":  h.storeKind,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
