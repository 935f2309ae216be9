package recipe

import (
	"context"
	"errors"
	"strings"
	"time"

	"chefsire/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	DefaultLimit  = 24
	MaxLimit      = 100
	LocalPageSize = 24

	// DefaultBrowseTerm 本地沒有食譜時用來填滿瀏覽頁的搜尋詞
	DefaultBrowseTerm = "chicken"
)

// Store 食譜儲存層；找不到時回傳 common.ErrNotFound，
// (source, sourceId) 重複時 Insert 回傳 common.ErrConstraintViolation
type Store interface {
	FindByID(ctx context.Context, id string) (*Recipe, error)
	FindBySourceIdentity(ctx context.Context, source Source, sourceID string) (*Recipe, error)
	Insert(ctx context.Context, rec *Recipe) error
	Update(ctx context.Context, rec *Recipe) error
	TextSearch(ctx context.Context, query string, limit, offset int) ([]Recipe, error)
}

// ExternalSource 外部食譜來源
type ExternalSource interface {
	SearchByName(ctx context.Context, query string) ([]Normalized, error)
	// LookupByID 找不到時回傳 nil, nil
	LookupByID(ctx context.Context, id string) (*Normalized, error)
}

// Service 食譜服務
type Service struct {
	store       Store
	source      ExternalSource
	now         func() time.Time
	newID       func() string
	defaultTerm string
}

// Option 服務選項
type Option func(*Service)

// WithClock 指定時間來源
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator 指定 id 產生方式
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithDefaultTerm 指定瀏覽頁的預設搜尋詞
func WithDefaultTerm(term string) Option {
	return func(s *Service) {
		if term = strings.TrimSpace(term); term != "" {
			s.defaultTerm = term
		}
	}
}

// defaultNow 以 UTC 微秒精度記錄時間，與資料庫保存的精度一致
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewService 創建新的食譜服務
func NewService(store Store, source ExternalSource, opts ...Option) *Service {
	s := &Service{
		store:       store,
		source:      source,
		now:         defaultNow,
		newID:       common.GenerateUUID,
		defaultTerm: DefaultBrowseTerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search 搜尋食譜。
// 空查詢先找本地最新食譜，本地沒有資料時改用預設詞搜尋外部來源；
// 非空查詢只搜尋外部來源並在記憶體中分頁，total 為分頁前的總數。
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	if q.Limit < 1 || q.Limit > MaxLimit {
		return nil, common.ErrInvalidQuery.WithMessage("limit must be between 1 and 100")
	}
	if q.Offset < 0 {
		return nil, common.ErrInvalidQuery.WithMessage("offset must not be negative")
	}

	query := strings.TrimSpace(q.Query)
	if query == "" {
		return s.browse(ctx, q.Limit, q.Offset)
	}

	meals, err := s.source.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}

	start := min(q.Offset, len(meals))
	end := min(start+q.Limit, len(meals))
	return &SearchResult{
		Items:  externalItems(meals[start:end]),
		Total:  len(meals),
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

func (s *Service) browse(ctx context.Context, limit, offset int) (*SearchResult, error) {
	local, err := s.store.TextSearch(ctx, "", min(limit, LocalPageSize), offset)
	if err != nil {
		return nil, err
	}

	if len(local) > 0 {
		items := make([]SearchItem, 0, len(local))
		for _, r := range local {
			items = append(items, SearchItem{
				Source:   ItemLocal,
				ID:       r.ID,
				Title:    r.Title,
				ImageURL: r.ImageURL,
				Category: r.Category,
				Cuisine:  r.Cuisine,
				Tags:     r.Tags,
			})
		}
		return &SearchResult{Items: items, Total: len(items), Limit: limit, Offset: offset}, nil
	}

	common.LogDebug("local store empty, browsing external source", zap.String("term", s.defaultTerm))
	meals, err := s.source.SearchByName(ctx, s.defaultTerm)
	if err != nil {
		return nil, err
	}
	items := externalItems(meals[:min(limit, len(meals))])
	return &SearchResult{Items: items, Total: len(items), Limit: limit, Offset: offset}, nil
}

func externalItems(meals []Normalized) []SearchItem {
	items := make([]SearchItem, 0, len(meals))
	for _, m := range meals {
		items = append(items, SearchItem{
			Source:   ItemExternal,
			SourceID: m.SourceID,
			Title:    m.Title,
			ImageURL: m.ImageURL,
			Category: m.Category,
			Cuisine:  m.Cuisine,
			Tags:     m.Tags,
		})
	}
	return items
}

// Import 依外部 id 或名稱匯入食譜；名稱匯入取第一筆搜尋結果再以 id 查詢
func (s *Service) Import(ctx context.Context, req ImportRequest) (*Recipe, error) {
	sourceID := strings.TrimSpace(req.SourceID)
	name := strings.TrimSpace(req.Name)
	if (sourceID == "") == (name == "") {
		return nil, common.ErrInvalidRequest.WithMessage("exactly one of idMeal or name is required")
	}

	var normalized *Normalized
	if sourceID != "" {
		n, err := s.source.LookupByID(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		normalized = n
	} else {
		meals, err := s.source.SearchByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(meals) > 0 {
			normalized = &meals[0]
			// 搜尋結果可能來自快取，以 id 重新查詢取得最新內容
			if normalized.SourceID != "" {
				fresh, err := s.source.LookupByID(ctx, normalized.SourceID)
				if err != nil {
					return nil, err
				}
				if fresh != nil {
					normalized = fresh
				}
			}
		}
	}

	if normalized == nil {
		return nil, common.ErrNotFound.WithMessage("recipe not found in external source")
	}
	return s.Upsert(ctx, normalized)
}

// Upsert 依 (source, sourceId) 新增或合併食譜。
// 寫入不受呼叫端取消影響；並行新增撞到唯一鍵時改為更新，只重試一次。
func (s *Service) Upsert(ctx context.Context, n *Normalized) (*Recipe, error) {
	if strings.TrimSpace(n.SourceID) == "" {
		return nil, common.ErrInvalidRequest.WithMessage("source id is required")
	}
	ctx = context.WithoutCancel(ctx)

	rec, err := s.upsertOnce(ctx, n)
	if errors.Is(err, common.ErrConstraintViolation) {
		common.LogInfo("concurrent import detected, retrying as update",
			zap.String("source_id", n.SourceID),
		)
		rec, err = s.upsertOnce(ctx, n)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) upsertOnce(ctx context.Context, n *Normalized) (*Recipe, error) {
	existing, err := s.store.FindBySourceIdentity(ctx, SourceExternal, n.SourceID)
	switch {
	case err == nil:
		merged := Merge(existing, n, s.now())
		if err := s.store.Update(ctx, merged); err != nil {
			return nil, err
		}
		common.LogInfo("recipe updated from external source",
			zap.String("id", merged.ID),
			zap.String("source_id", n.SourceID),
		)
		return merged, nil
	case errors.Is(err, common.ErrNotFound):
		rec := NewFromNormalized(s.newID(), n, s.now())
		if err := s.store.Insert(ctx, rec); err != nil {
			return nil, err
		}
		common.LogInfo("recipe imported from external source",
			zap.String("id", rec.ID),
			zap.String("source_id", n.SourceID),
		)
		return rec, nil
	default:
		return nil, err
	}
}

// Get 依 id 取得食譜
func (s *Service) Get(ctx context.Context, id string) (*Recipe, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, common.ErrInvalidRequest.WithMessage("recipe id is required")
	}
	return s.store.FindByID(ctx, id)
}

// Create 新增使用者食譜，不做重複檢查
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Recipe, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, common.ErrInvalidRequest.WithMessage("title is required")
	}

	ingredients := make([]Ingredient, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		var measure *string
		if ing.Measure != nil {
			measure = common.NilIfBlank(*ing.Measure)
		}
		ingredients = append(ingredients, Ingredient{Name: name, Measure: measure})
	}
	if len(ingredients) == 0 {
		return nil, common.ErrInvalidRequest.WithMessage("at least one ingredient is required")
	}

	instructions := make([]string, 0, len(req.Instructions))
	for _, step := range req.Instructions {
		if step = strings.TrimSpace(step); step != "" {
			instructions = append(instructions, step)
		}
	}
	if len(instructions) == 0 {
		return nil, common.ErrInvalidRequest.WithMessage("at least one instruction is required")
	}

	var tags []string
	for _, tag := range req.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	category := optional(req.Category)
	cuisine := optional(req.Cuisine)
	now := s.now()
	rec := &Recipe{
		ID:           s.newID(),
		Source:       SourceUser,
		Title:        title,
		ImageURL:     optional(req.ImageURL),
		Ingredients:  datatypes.JSONSlice[Ingredient](ingredients),
		Instructions: datatypes.JSONSlice[string](instructions),
		Category:     category,
		Cuisine:      cuisine,
		Tags:         datatypes.JSONSlice[string](tags),
		YoutubeURL:   optional(req.YoutubeURL),
		SourceURL:    optional(req.SourceURL),
		SearchText:   BuildSearchText(title, category, cuisine, ingredients, tags),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	common.LogInfo("user recipe created", zap.String("id", rec.ID))
	return rec, nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	return common.NilIfBlank(*s)
}
