package recipe

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// UnknownIngredient 來源沒有任何食材時的替代名稱
	UnknownIngredient = "Unknown ingredient"
	// NoInstructions 來源沒有步驟時的替代步驟
	NoInstructions = "No instructions available."
	// UntitledRecipe 來源沒有標題時的替代標題
	UntitledRecipe = "Untitled recipe"

	// MaxSearchTextLength searchText 最大字元數
	MaxSearchTextLength = 100000
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// SplitInstructions 依換行切割步驟，去除空白行；結果為空時回傳替代步驟
func SplitInstructions(text string) []string {
	lines := strings.Split(lineBreaks.Replace(text), "\n")
	steps := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}
	if len(steps) == 0 {
		return []string{NoInstructions}
	}
	return steps
}

// ParseTags 解析逗號分隔的標籤；沒有任何標籤時回傳 nil
func ParseTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// OrUnknownIngredient 空食材清單以替代食材取代
func OrUnknownIngredient(ingredients []Ingredient) []Ingredient {
	if len(ingredients) == 0 {
		return []Ingredient{{Name: UnknownIngredient}}
	}
	return ingredients
}

// BuildSearchText 依序串接標題、分類、菜系、食材名稱與標籤，轉小寫並合併空白
func BuildSearchText(title string, category, cuisine *string, ingredients []Ingredient, tags []string) string {
	parts := make([]string, 0, 3+len(ingredients)+len(tags))
	parts = append(parts, title)
	if category != nil {
		parts = append(parts, *category)
	}
	if cuisine != nil {
		parts = append(parts, *cuisine)
	}
	for _, ing := range ingredients {
		parts = append(parts, ing.Name)
	}
	parts = append(parts, tags...)

	text := norm.NFC.String(strings.ToLower(strings.Join(parts, " ")))
	text = strings.Join(strings.Fields(text), " ")
	return truncateRunes(text, MaxSearchTextLength)
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return strings.TrimRight(s[:i], " ")
		}
		count++
	}
	return s
}
