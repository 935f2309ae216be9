package recipe

import (
	"testing"
	"time"

	"chefsire/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullNormalized(sourceID string) *Normalized {
	return &Normalized{
		SourceID:     sourceID,
		Title:        "Tea",
		ImageURL:     common.StringPtr("https://img/tea.jpg"),
		Ingredients:  []Ingredient{{Name: "Water", Measure: common.StringPtr("1 cup")}},
		Instructions: []string{"Boil.", "Steep."},
		Category:     common.StringPtr("Drink"),
		Cuisine:      common.StringPtr("British"),
		Tags:         []string{"Hot"},
		YoutubeURL:   common.StringPtr("https://youtube/tea"),
		SourceURL:    common.StringPtr("https://source/tea"),
		SearchText:   "tea drink british water hot",
	}
}

func TestMergePreservesUnsetFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := NewFromNormalized("id-1", fullNormalized("52"), created)

	sparse := &Normalized{
		SourceID:     "52",
		Title:        "Tea v2",
		Ingredients:  []Ingredient{{Name: "Water"}},
		Instructions: []string{"Boil."},
		SearchText:   "tea v2 water",
	}
	merged := Merge(existing, sparse, created.Add(time.Hour))

	assert.Equal(t, "id-1", merged.ID)
	assert.Equal(t, "Tea v2", merged.Title)
	assert.Equal(t, "tea v2 water", merged.SearchText)
	assert.Equal(t, []string{"Boil."}, []string(merged.Instructions))
	assert.Equal(t, existing.ImageURL, merged.ImageURL)
	assert.Equal(t, existing.Category, merged.Category)
	assert.Equal(t, existing.Cuisine, merged.Cuisine)
	assert.Equal(t, existing.YoutubeURL, merged.YoutubeURL)
	assert.Equal(t, existing.SourceURL, merged.SourceURL)
	assert.Equal(t, []string{"Hot"}, []string(merged.Tags))
	assert.Equal(t, created, merged.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), merged.UpdatedAt)

	// existing 不被修改
	assert.Equal(t, "Tea", existing.Title)
	assert.Equal(t, created, existing.UpdatedAt)
}

func TestMergeOverwritesPresentFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := NewFromNormalized("id-1", fullNormalized("52"), created)

	incoming := fullNormalized("52")
	incoming.ImageURL = common.StringPtr("https://img/new.jpg")
	incoming.Tags = []string{"Cold"}
	merged := Merge(existing, incoming, created.Add(time.Minute))

	assert.Equal(t, "https://img/new.jpg", *merged.ImageURL)
	assert.Equal(t, []string{"Cold"}, []string(merged.Tags))
}

func TestMergeUpdatedAtStrictlyIncreases(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := NewFromNormalized("id-1", fullNormalized("52"), created)

	merged := Merge(existing, fullNormalized("52"), created)
	assert.True(t, merged.UpdatedAt.After(existing.UpdatedAt))
}

func TestNewFromNormalizedSentinels(t *testing.T) {
	rec := NewFromNormalized("id", &Normalized{SourceID: "1", Title: "Empty"}, time.Now())

	assert.Equal(t, SourceExternal, rec.Source)
	require.NotNil(t, rec.SourceID)
	assert.Equal(t, "1", *rec.SourceID)
	assert.Equal(t, []Ingredient{{Name: UnknownIngredient}}, []Ingredient(rec.Ingredients))
	assert.Equal(t, []string{NoInstructions}, []string(rec.Instructions))
	assert.Nil(t, rec.Tags)
}
