package recipe

import (
	"time"

	"gorm.io/datatypes"
)

// NewFromNormalized 以正規化結果建立新的外部食譜
func NewFromNormalized(id string, n *Normalized, now time.Time) *Recipe {
	sourceID := n.SourceID
	return &Recipe{
		ID:           id,
		Source:       SourceExternal,
		SourceID:     &sourceID,
		Title:        n.Title,
		ImageURL:     n.ImageURL,
		Ingredients:  datatypes.JSONSlice[Ingredient](OrUnknownIngredient(n.Ingredients)),
		Instructions: datatypes.JSONSlice[string](orNoInstructions(n.Instructions)),
		Category:     n.Category,
		Cuisine:      n.Cuisine,
		Tags:         datatypes.JSONSlice[string](n.Tags),
		YoutubeURL:   n.YoutubeURL,
		SourceURL:    n.SourceURL,
		SearchText:   n.SearchText,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Merge 合併重新匯入的資料：非 nil 欄位覆蓋舊值，nil 欄位保留舊值。
// 標題、食材、步驟與 searchText 一律取新值；updatedAt 更新為 now。
func Merge(existing *Recipe, incoming *Normalized, now time.Time) *Recipe {
	merged := *existing

	merged.Title = incoming.Title
	merged.Ingredients = datatypes.JSONSlice[Ingredient](OrUnknownIngredient(incoming.Ingredients))
	merged.Instructions = datatypes.JSONSlice[string](orNoInstructions(incoming.Instructions))
	merged.SearchText = incoming.SearchText

	merged.ImageURL = pick(incoming.ImageURL, existing.ImageURL)
	merged.Category = pick(incoming.Category, existing.Category)
	merged.Cuisine = pick(incoming.Cuisine, existing.Cuisine)
	merged.YoutubeURL = pick(incoming.YoutubeURL, existing.YoutubeURL)
	merged.SourceURL = pick(incoming.SourceURL, existing.SourceURL)
	if incoming.Tags != nil {
		merged.Tags = datatypes.JSONSlice[string](incoming.Tags)
	}

	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	merged.UpdatedAt = now
	return &merged
}

func pick(incoming, existing *string) *string {
	if incoming != nil {
		return incoming
	}
	return existing
}

func orNoInstructions(steps []string) []string {
	if len(steps) == 0 {
		return []string{NoInstructions}
	}
	return steps
}
