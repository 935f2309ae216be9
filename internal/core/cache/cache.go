package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"go.uber.org/zap"
)

// Cache 字串快取介面，未命中時回傳 common.ErrCacheMiss
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// New 依設定選擇快取後端；停用時回傳 nil，呼叫端直接略過快取
func New(cfg *config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil, nil
	}

	switch cfg.Backend {
	case "redis":
		return NewRedisCache(cfg)
	case "memory", "":
		return NewManager(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// Key 組合命名空間與原始鍵；過長的鍵以 SHA-256 縮短
func Key(namespace, raw string) string {
	if len(raw) <= 128 {
		return namespace + ":" + raw
	}
	hash := sha256.Sum256([]byte(raw))
	return namespace + ":" + hex.EncodeToString(hash[:])
}

// GetOrLoad 讀取快取，未命中時呼叫 load 並回寫；快取錯誤只記錄不影響結果
func GetOrLoad(ctx context.Context, c Cache, key string, load func() (string, error)) (string, error) {
	if c == nil {
		return load()
	}

	if value, err := c.Get(ctx, key); err == nil {
		common.LogCacheHit(key)
		return value, nil
	} else if !errors.Is(err, common.ErrCacheMiss) {
		common.LogWarn("cache get failed", zap.String("key", key), zap.Error(err))
	} else {
		common.LogCacheMiss(key)
	}

	value, err := load()
	if err != nil {
		return "", err
	}

	if err := c.Set(ctx, key, value); err != nil {
		common.LogWarn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
