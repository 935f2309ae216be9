package storage

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"chefsire/internal/core/recipe"
	"chefsire/internal/pkg/common"
)

type identityKey struct {
	source   recipe.Source
	sourceID string
}

// MemoryStore 記憶體食譜儲存層，讀寫皆複製資料
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]recipe.Recipe
	byIdentity map[identityKey]string
}

// NewMemoryStore 創建記憶體儲存層
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]recipe.Recipe),
		byIdentity: make(map[identityKey]string),
	}
}

// FindByID 依 id 查詢
func (s *MemoryStore) FindByID(_ context.Context, id string) (*recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneRecipe(rec), nil
}

// FindBySourceIdentity 依 (source, sourceId) 查詢
func (s *MemoryStore) FindBySourceIdentity(_ context.Context, source recipe.Source, sourceID string) (*recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byIdentity[identityKey{source, sourceID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneRecipe(s.byID[id]), nil
}

// Insert 新增食譜
func (s *MemoryStore) Insert(_ context.Context, rec *recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.ID]; exists {
		return common.ErrConstraintViolation.WithMessage("duplicate recipe id")
	}
	if rec.SourceID != nil {
		key := identityKey{rec.Source, *rec.SourceID}
		if _, exists := s.byIdentity[key]; exists {
			return common.ErrConstraintViolation
		}
		s.byIdentity[key] = rec.ID
	}
	s.byID[rec.ID] = *cloneRecipe(*rec)
	return nil
}

// Update 以 id 覆寫食譜，保留建立時間與來源身分
func (s *MemoryStore) Update(_ context.Context, rec *recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[rec.ID]
	if !ok {
		return common.ErrNotFound
	}

	updated := *cloneRecipe(*rec)
	updated.CreatedAt = existing.CreatedAt
	updated.Source = existing.Source
	updated.SourceID = existing.SourceID
	s.byID[rec.ID] = updated
	return nil
}

// TextSearch 以 searchText 子字串搜尋，依建立時間新到舊排序
func (s *MemoryStore) TextSearch(_ context.Context, query string, limit, offset int) ([]recipe.Recipe, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	matched := make([]recipe.Recipe, 0, len(s.byID))
	for _, rec := range s.byID {
		if query == "" || strings.Contains(rec.SearchText, query) {
			matched = append(matched, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	if offset >= len(matched) {
		return []recipe.Recipe{}, nil
	}
	page := matched[offset:min(offset+limit, len(matched))]
	out := make([]recipe.Recipe, 0, len(page))
	for _, rec := range page {
		out = append(out, *cloneRecipe(rec))
	}
	return out, nil
}

// Ping 記憶體儲存層永遠可用
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func cloneRecipe(rec recipe.Recipe) *recipe.Recipe {
	rec.SourceID = clonePtr(rec.SourceID)
	rec.ImageURL = clonePtr(rec.ImageURL)
	rec.Category = clonePtr(rec.Category)
	rec.Cuisine = clonePtr(rec.Cuisine)
	rec.YoutubeURL = clonePtr(rec.YoutubeURL)
	rec.SourceURL = clonePtr(rec.SourceURL)
	rec.Instructions = slices.Clone(rec.Instructions)
	rec.Tags = slices.Clone(rec.Tags)
	if rec.Ingredients != nil {
		ingredients := make([]recipe.Ingredient, len(rec.Ingredients))
		for i, ing := range rec.Ingredients {
			ingredients[i] = recipe.Ingredient{Name: ing.Name, Measure: clonePtr(ing.Measure)}
		}
		rec.Ingredients = ingredients
	}
	return &rec
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
