package substitution

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chefsire/internal/core/ai/openrouter"
	"chefsire/internal/core/cache"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply string
	err   error
	calls int
	last  []openrouter.Message
}

func (f *fakeCompleter) Complete(_ context.Context, messages []openrouter.Message, _ float64) (string, error) {
	f.calls++
	f.last = messages
	return f.reply, f.err
}

const aiReply = `{"ingredient":"butter","suggestions":[{"substitute":"Ghee","reason":"Clarified butter","ratio":"1:1","impact":"Nuttier"}]}`

func TestSuggestWithoutAI(t *testing.T) {
	svc := NewService(nil, nil)

	got, err := svc.Suggest(context.Background(), " butter ")
	require.NoError(t, err)
	assert.Equal(t, "butter", got.Ingredient)
	assert.Equal(t, NoteAIDisabled, got.Note)
	require.Len(t, got.Suggestions, 3)
	assert.Equal(t, "Margarine", got.Suggestions[0].Substitute)
}

func TestSuggestBlankIngredient(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.Suggest(context.Background(), "  ")
	assert.ErrorIs(t, err, common.ErrInvalidQuery)
}

func TestSuggestParsesAIReply(t *testing.T) {
	ai := &fakeCompleter{reply: aiReply}
	svc := NewService(ai, nil)

	got, err := svc.Suggest(context.Background(), "butter")
	require.NoError(t, err)
	assert.Empty(t, got.Note)
	require.Len(t, got.Suggestions, 1)
	assert.Equal(t, "Ghee", got.Suggestions[0].Substitute)

	require.Len(t, ai.last, 3)
	assert.Equal(t, "system", ai.last[0].Role)
	assert.Equal(t, "Ingredient: butter", ai.last[1].Content)
}

func TestSuggestExtractsEmbeddedJSON(t *testing.T) {
	ai := &fakeCompleter{reply: "Sure! Here you go:\n```json\n" + aiReply + "\n```"}
	svc := NewService(ai, nil)

	got, err := svc.Suggest(context.Background(), "butter")
	require.NoError(t, err)
	assert.Equal(t, "Ghee", got.Suggestions[0].Substitute)
}

func TestSuggestFallsBack(t *testing.T) {
	tests := []struct {
		name string
		ai   *fakeCompleter
	}{
		{"upstream error", &fakeCompleter{err: errors.New("boom")}},
		{"not json", &fakeCompleter{reply: "I cannot help with that."}},
		{"missing suggestions", &fakeCompleter{reply: `{"ingredient":"butter"}`}},
		{"missing ingredient", &fakeCompleter{reply: `{"suggestions":[]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewService(tt.ai, nil).Suggest(context.Background(), "butter")
			require.NoError(t, err)
			assert.Equal(t, "butter", got.Ingredient)
			assert.Equal(t, NoteAIFailed, got.Note)
			require.Len(t, got.Suggestions, 2)
			assert.Equal(t, "Greek yogurt", got.Suggestions[0].Substitute)
		})
	}
}

func TestSuggestCachesAIReplies(t *testing.T) {
	mem := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })
	ai := &fakeCompleter{reply: aiReply}
	svc := NewService(ai, mem)

	for _, in := range []string{"butter", "Butter", " BUTTER "} {
		_, err := svc.Suggest(context.Background(), in)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ai.calls)

	ai.err = errors.New("down")
	_, err := svc.Suggest(context.Background(), "milk")
	require.NoError(t, err)
	ai.err = nil
	ai.reply = `{"ingredient":"milk","suggestions":[]}`
	got, err := svc.Suggest(context.Background(), "milk")
	require.NoError(t, err)
	assert.Empty(t, got.Note)
}

func TestOpenRouterClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req openrouter.Request
		if !assert.NoError(t, common.DecodeJSONStrict(r.Body, &req)) || len(req.Messages) < 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "test-model", req.Model)
		assert.InDelta(t, 0.3, req.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		if req.Messages[1].Content == "Ingredient: error" {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		resp := openrouter.Response{Choices: []openrouter.Choice{{Message: openrouter.Message{Role: "assistant", Content: aiReply}}}}
		body, _ := common.ToJSON(resp)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client := openrouter.NewClient(&config.OpenRouterConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	})
	svc := NewService(client, nil)

	got, err := svc.Suggest(context.Background(), "butter")
	require.NoError(t, err)
	assert.Equal(t, "Ghee", got.Suggestions[0].Substitute)

	got, err = svc.Suggest(context.Background(), "error")
	require.NoError(t, err)
	assert.Equal(t, NoteAIFailed, got.Note)
	assert.Equal(t, int32(2), calls.Load())

	_, err = client.Complete(context.Background(), []openrouter.Message{{Role: "user", Content: "x"}, {Role: "user", Content: "Ingredient: error"}}, 0.3)
	assert.ErrorIs(t, err, common.ErrAIServiceError)
}
