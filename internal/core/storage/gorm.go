package storage

import (
	"context"
	"errors"
	"strings"

	"chefsire/internal/core/recipe"
	"chefsire/internal/infrastructure/database"
	"chefsire/internal/pkg/common"

	"gorm.io/gorm"
)

// GormStore 以 gorm 實作的食譜儲存層（postgres / sqlite）
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 創建 gorm 儲存層
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindByID 依 id 查詢
func (s *GormStore) FindByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// FindBySourceIdentity 依 (source, sourceId) 查詢
func (s *GormStore) FindBySourceIdentity(ctx context.Context, source recipe.Source, sourceID string) (*recipe.Recipe, error) {
	var rec recipe.Recipe
	if err := s.db.WithContext(ctx).
		Where("source = ? AND source_id = ?", source, sourceID).
		Take(&rec).Error; err != nil {
		return nil, translate(err)
	}
	return &rec, nil
}

// Insert 新增食譜，唯一鍵衝突回傳 common.ErrConstraintViolation
func (s *GormStore) Insert(ctx context.Context, rec *recipe.Recipe) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return translate(err)
	}
	return nil
}

// Update 以 id 覆寫全部欄位（created_at 除外）
func (s *GormStore) Update(ctx context.Context, rec *recipe.Recipe) error {
	res := s.db.WithContext(ctx).
		Model(rec).
		Select("*").
		Omit("id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

// TextSearch 以 search_text 子字串搜尋，依建立時間新到舊排序
func (s *GormStore) TextSearch(ctx context.Context, query string, limit, offset int) ([]recipe.Recipe, error) {
	q := s.db.WithContext(ctx).Model(&recipe.Recipe{})
	if query = strings.ToLower(strings.TrimSpace(query)); query != "" {
		q = q.Where(`search_text LIKE ? ESCAPE '\'`, "%"+escapeLike(query)+"%")
	}

	var rows []recipe.Recipe
	if err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

// Ping 檢查資料庫連線
func (s *GormStore) Ping(ctx context.Context) error {
	return database.Ping(ctx, s.db)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// translate 轉換 gorm 錯誤為共用錯誤
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return common.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return common.ErrConstraintViolation.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrRequestTimeout.Wrap(err)
	default:
		return common.ErrInternalError.Wrap(err)
	}
}
