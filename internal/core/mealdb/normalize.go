package mealdb

import (
	"fmt"
	"strconv"
	"strings"

	"chefsire/internal/core/recipe"
)

// MaxIngredientSlots TheMealDB 每道菜最多 20 組食材欄位
const MaxIngredientSlots = 20

// Meal TheMealDB 原始資料，欄位值可能為字串、數字或 null
type Meal map[string]any

// field 取出欄位並去除前後空白；null 與非字串值視情況轉換
func (m Meal) field(key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (m Meal) optional(key string) *string {
	if v := m.field(key); v != "" {
		return &v
	}
	return nil
}

// Normalize 將 TheMealDB 原始資料轉為正規化食譜；不會失敗，缺少的資料以替代值補上
func Normalize(m Meal) recipe.Normalized {
	var ingredients []recipe.Ingredient
	for i := 1; i <= MaxIngredientSlots; i++ {
		name := m.field(fmt.Sprintf("strIngredient%d", i))
		if name == "" {
			continue
		}
		ingredients = append(ingredients, recipe.Ingredient{
			Name:    name,
			Measure: m.optional(fmt.Sprintf("strMeasure%d", i)),
		})
	}

	title := m.field("strMeal")
	if title == "" {
		title = recipe.UntitledRecipe
	}

	category := m.optional("strCategory")
	cuisine := m.optional("strArea")
	tags := recipe.ParseTags(m.field("strTags"))

	return recipe.Normalized{
		SourceID:     m.field("idMeal"),
		Title:        title,
		ImageURL:     m.optional("strMealThumb"),
		Ingredients:  recipe.OrUnknownIngredient(ingredients),
		Instructions: recipe.SplitInstructions(m.field("strInstructions")),
		Category:     category,
		Cuisine:      cuisine,
		Tags:         tags,
		YoutubeURL:   m.optional("strYoutube"),
		SourceURL:    m.optional("strSource"),
		// searchText 只包含來源實際提供的食材
		SearchText: recipe.BuildSearchText(title, category, cuisine, ingredients, tags),
	}
}
