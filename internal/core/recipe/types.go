package recipe

import (
	"time"

	"gorm.io/datatypes"
)

// Source 食譜來源
type Source string

const (
	SourceUser     Source = "user"
	SourceExternal Source = "external"
)

// ItemSource 搜尋結果項目的來源標記
type ItemSource string

const (
	ItemLocal    ItemSource = "local"
	ItemExternal ItemSource = "external"
)

// Ingredient 食材
type Ingredient struct {
	Name    string  `json:"name" binding:"required"`
	Measure *string `json:"measure"`
}

// Recipe 本地儲存的食譜
type Recipe struct {
	ID           string                          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Source       Source                          `json:"source" gorm:"type:varchar(16);not null;uniqueIndex:recipes_source_identity_uq,priority:1"`
	SourceID     *string                         `json:"sourceId" gorm:"type:varchar(64);uniqueIndex:recipes_source_identity_uq,priority:2"`
	Title        string                          `json:"title" gorm:"not null"`
	ImageURL     *string                         `json:"imageUrl"`
	Ingredients  datatypes.JSONSlice[Ingredient] `json:"ingredients" gorm:"not null"`
	Instructions datatypes.JSONSlice[string]     `json:"instructions" gorm:"not null"`
	Category     *string                         `json:"category"`
	Cuisine      *string                         `json:"cuisine"`
	Tags         datatypes.JSONSlice[string]     `json:"tags"`
	YoutubeURL   *string                         `json:"youtubeUrl"`
	SourceURL    *string                         `json:"sourceUrl"`
	SearchText   string                          `json:"-" gorm:"type:text;index:recipes_search_idx"`
	CreatedAt    time.Time                       `json:"createdAt" gorm:"autoCreateTime:false;index"`
	UpdatedAt    time.Time                       `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName 資料表名稱
func (Recipe) TableName() string {
	return "recipes"
}

// Normalized 外部來源正規化後、尚未指派身分的食譜
type Normalized struct {
	SourceID     string
	Title        string
	ImageURL     *string
	Ingredients  []Ingredient
	Instructions []string
	Category     *string
	Cuisine      *string
	Tags         []string // nil 表示來源沒有標籤
	YoutubeURL   *string
	SourceURL    *string
	SearchText   string
}

// SearchQuery 搜尋參數
type SearchQuery struct {
	Query  string
	Limit  int
	Offset int
}

// SearchItem 搜尋結果項目；local 帶 id，external 帶 sourceId
type SearchItem struct {
	Source   ItemSource `json:"source"`
	ID       string     `json:"id,omitempty"`
	SourceID string     `json:"sourceId,omitempty"`
	Title    string     `json:"title"`
	ImageURL *string    `json:"imageUrl"`
	Category *string    `json:"category"`
	Cuisine  *string    `json:"cuisine"`
	Tags     []string   `json:"tags"`
}

// SearchResult 搜尋回應
type SearchResult struct {
	Items  []SearchItem `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ImportRequest 匯入請求，SourceID 與 Name 擇一
type ImportRequest struct {
	SourceID string `json:"idMeal"`
	Name     string `json:"name"`
}

// CreateRequest 使用者提交的食譜
type CreateRequest struct {
	Title        string       `json:"title" binding:"required,max=200"`
	ImageURL     *string      `json:"imageUrl" binding:"omitempty,url"`
	Ingredients  []Ingredient `json:"ingredients" binding:"required,min=1,dive"`
	Instructions []string     `json:"instructions" binding:"required,min=1,dive,required"`
	Category     *string      `json:"category"`
	Cuisine      *string      `json:"cuisine"`
	Tags         []string     `json:"tags" binding:"omitempty,dive,required"`
	YoutubeURL   *string      `json:"youtubeUrl" binding:"omitempty,url"`
	SourceURL    *string      `json:"sourceUrl" binding:"omitempty,url"`
}
