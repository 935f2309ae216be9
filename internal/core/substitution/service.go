package substitution

import (
	"context"
	"fmt"
	"strings"

	"chefsire/internal/core/ai/openrouter"
	"chefsire/internal/core/cache"
	"chefsire/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	// NoteAIDisabled 未設定 AI 時附上的說明
	NoteAIDisabled = "Set OPENROUTER_API_KEY to enable AI-generated suggestions."
	// NoteAIFailed AI 回應無法使用時附上的說明
	NoteAIFailed = "AI response failed to parse; showing a safe fallback."

	temperature = 0.3

	systemPrompt = `Return concise cooking substitution suggestions as strict JSON only.
Each suggestion must include: substitute, reason (<=1 sentence), ratio (e.g. "1:1"), impact (<=1 sentence).
Provide 4-6 options spanning budget, dietary, availability. No prose outside JSON.`
)

// Suggestion 替代建議
type Suggestion struct {
	Substitute string `json:"substitute"`
	Reason     string `json:"reason"`
	Ratio      string `json:"ratio"`
	Impact     string `json:"impact"`
}

// Result 替代建議回應
type Result struct {
	Ingredient  string       `json:"ingredient"`
	Suggestions []Suggestion `json:"suggestions"`
	Note        string       `json:"note,omitempty"`
}

// Completer 對話模型
type Completer interface {
	Complete(ctx context.Context, messages []openrouter.Message, temperature float64) (string, error)
}

var staticSuggestions = []Suggestion{
	{Substitute: "Margarine", Reason: "Similar fat content and texture", Ratio: "1:1", Impact: "Slight flavor change"},
	{Substitute: "Coconut oil", Reason: "Solid fat; melts like butter", Ratio: "1:1", Impact: "Adds coconut aroma"},
	{Substitute: "Olive oil", Reason: "Good for sautéing and baking", Ratio: "3/4 cup per 1 cup butter", Impact: "Less rich; no dairy solids"},
}

var fallbackSuggestions = []Suggestion{
	{Substitute: "Greek yogurt", Reason: "Creamy tang in sauces/bakes", Ratio: "1:1", Impact: "Tangier flavor, higher protein"},
	{Substitute: "Silken tofu (blended)", Reason: "Neutral creamy base, dairy-free", Ratio: "1:1", Impact: "Less rich; season more"},
}

// Service 食材替代建議服務
type Service struct {
	ai    Completer
	cache cache.Cache
}

// NewService 創建替代建議服務；ai 為 nil 時回傳靜態建議
func NewService(ai Completer, c cache.Cache) *Service {
	return &Service{ai: ai, cache: c}
}

// Suggest 取得食材替代建議；AI 失敗時回傳安全的預設建議而不是錯誤
func (s *Service) Suggest(ctx context.Context, ingredient string) (*Result, error) {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return nil, common.ErrInvalidQuery.WithMessage("ingredient is required")
	}

	if s.ai == nil {
		return &Result{
			Ingredient:  ingredient,
			Suggestions: append([]Suggestion(nil), staticSuggestions...),
			Note:        NoteAIDisabled,
		}, nil
	}

	key := cache.Key("substitutions", strings.ToLower(ingredient))
	raw, err := cache.GetOrLoad(ctx, s.cache, key, func() (string, error) {
		payload, err := s.ask(ctx, ingredient)
		if err != nil {
			return "", err
		}
		return common.ToJSON(payload)
	})
	if err != nil {
		common.LogWarn("substitution lookup failed, using fallback",
			zap.String("ingredient", ingredient),
			zap.Error(err),
		)
		return &Result{
			Ingredient:  ingredient,
			Suggestions: append([]Suggestion(nil), fallbackSuggestions...),
			Note:        NoteAIFailed,
		}, nil
	}

	var result Result
	if err := common.ParseJSON(raw, &result); err != nil {
		return nil, common.ErrInternalError.Wrap(err)
	}
	return &result, nil
}

func (s *Service) ask(ctx context.Context, ingredient string) (*Result, error) {
	messages := []openrouter.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Ingredient: " + ingredient},
		{Role: "user", Content: fmt.Sprintf(`Respond ONLY with JSON: {"ingredient":%q,"suggestions":[{"substitute":"...","reason":"...","ratio":"...","impact":"..."}]}`, ingredient)},
	}

	text, err := s.ai.Complete(ctx, messages, temperature)
	if err != nil {
		return nil, err
	}
	return parsePayload(text)
}

// parsePayload 解析模型輸出；整段不是 JSON 時改取其中的物件區塊
func parsePayload(text string) (*Result, error) {
	var payload Result
	if err := common.ParseJSON(text, &payload); err != nil {
		block, ok := common.ExtractJSONObject(text)
		if !ok {
			return nil, common.ErrAIServiceError.Wrap(fmt.Errorf("no JSON object in response"))
		}
		payload = Result{}
		if err := common.ParseJSON(block, &payload); err != nil {
			return nil, common.ErrAIServiceError.Wrap(err)
		}
	}

	if strings.TrimSpace(payload.Ingredient) == "" || payload.Suggestions == nil {
		return nil, common.ErrAIServiceError.Wrap(fmt.Errorf("AI JSON missing required fields"))
	}
	payload.Note = ""
	return &payload, nil
}
