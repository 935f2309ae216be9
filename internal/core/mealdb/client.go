package mealdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chefsire/internal/core/cache"
	"chefsire/internal/core/recipe"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

const upstreamName = "themealdb"

// Client TheMealDB 客戶端，不做重試
type Client struct {
	http  *resty.Client
	cache cache.Cache
}

// NewClient 創建 TheMealDB 客戶端；c 為 nil 時不使用快取
func NewClient(cfg *config.MealDBConfig, c cache.Cache) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{http: client, cache: c}
}

// SearchByName 依名稱搜尋；沒有結果時回傳空切片
func (c *Client) SearchByName(ctx context.Context, query string) ([]recipe.Normalized, error) {
	meals, err := c.fetch(ctx, "search", "/search.php", "s", query)
	if err != nil {
		return nil, err
	}

	out := make([]recipe.Normalized, 0, len(meals))
	for _, m := range meals {
		out = append(out, Normalize(m))
	}
	return out, nil
}

// LookupByID 依 id 查詢；找不到時回傳 nil, nil。
// 匯入依賴這個查詢取得最新資料，所以不經過快取。
func (c *Client) LookupByID(ctx context.Context, id string) (*recipe.Normalized, error) {
	body, err := c.get(ctx, "lookup", "/lookup.php", "i", id)
	if err != nil {
		return nil, err
	}
	meals, err := decodeMeals([]byte(body))
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, nil
	}

	n := Normalize(meals[0])
	return &n, nil
}

// fetch 經由快取讀取搜尋結果
func (c *Client) fetch(ctx context.Context, op, path, param, value string) ([]Meal, error) {
	key := cache.Key("mealdb:"+op, value)
	body, err := cache.GetOrLoad(ctx, c.cache, key, func() (string, error) {
		return c.get(ctx, op, path, param, value)
	})
	if err != nil {
		return nil, err
	}
	return decodeMeals([]byte(body))
}

func (c *Client) get(ctx context.Context, op, path, param, value string) (string, error) {
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		Get(path)
	if err == nil && !resp.IsSuccess() {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	common.LogUpstreamCall(upstreamName, op, time.Since(start), err)
	if err != nil {
		return "", common.ErrUpstreamUnavailable.Wrap(err)
	}

	// 先確認格式再寫入快取
	if _, err := decodeMeals(resp.Body()); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// decodeMeals 解析回應；meals 不存在、為 null 或不是陣列都視為沒有結果
func decodeMeals(body []byte) ([]Meal, error) {
	var payload struct {
		Meals json.RawMessage `json:"meals"`
	}
	if err := common.ParseJSONBytes(body, &payload); err != nil {
		return nil, common.ErrUpstreamUnavailable.Wrap(fmt.Errorf("invalid response body: %w", err))
	}

	raw := bytes.TrimSpace(payload.Meals)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}

	var meals []Meal
	if err := json.Unmarshal(raw, &meals); err != nil {
		return nil, common.ErrUpstreamUnavailable.Wrap(fmt.Errorf("invalid meals payload: %w", err))
	}

	// 陣列中的 null 項目略過
	out := meals[:0]
	for _, m := range meals {
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}
