package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dietica/logger"
	"dietica/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyStore struct {
	created []*models.Recommendation
	err     error
}

func (s *spyStore) CreateRecommendation(_ context.Context, rec *models.Recommendation) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, rec)
	return nil
}

func TestGenerateStoresValidReply(t *testing.T) {
	gen := &fakeGenerator{reply: validReply}
	store := &spyStore{}
	svc := NewRecommendationService(gen, store, logger.Discard())
	fixed := time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rec, err := svc.Generate(context.Background(), 42, "the prompt")
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Same(t, rec, store.created[0])
	assert.Equal(t, uint(42), rec.UserID)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Equal(t, "Balance your plate", rec.FoodTitle)
	assert.Equal(t, "Drink another 5 glasses of water today", rec.WaterDescription)

	require.Equal(t, 1, gen.calls())
	assert.Equal(t, "the prompt", gen.reqs[0].Prompt)
	assert.Equal(t, AdvisorInstruction, gen.reqs[0].SystemInstruction)
	assert.Same(t, RecommendationSchema, gen.reqs[0].Schema)
}

func TestGenerateRejectsIncompleteReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{
		"food": {"title": "Balance your plate", "description": "1800 kcal"},
		"exercise": {"title": "Keep moving", "description": "2 sessions"}
	}`}
	store := &spyStore{}
	svc := NewRecommendationService(gen, store, logger.Discard())

	rec, err := svc.Generate(context.Background(), 1, "prompt")
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrGenerationFormat))
	assert.Contains(t, err.Error(), `"water"`)
	assert.Empty(t, store.created)
}

func TestGeneratePropagatesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: transport("gemini", errors.New("connection refused"))}
	store := &spyStore{}
	svc := NewRecommendationService(gen, store, logger.Discard())

	_, err := svc.Generate(context.Background(), 1, "prompt")
	assert.True(t, errors.Is(err, ErrTransport))
	assert.Empty(t, store.created)
}

func TestParseRecommendation(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		rec, err := ParseRecommendation("```json\n" + validReply + "\n```")
		require.NoError(t, err)
		assert.Equal(t, "Keep moving", rec.ExerciseTitle)
	})

	bad := map[string]string{
		"not json":          "Sure! Here is your plan.",
		"blank title":       `{"food":{"title":" ","description":"x"},"exercise":{"title":"a","description":"b"},"water":{"title":"a","description":"b"}}`,
		"missing desc":      `{"food":{"title":"a"},"exercise":{"title":"a","description":"b"},"water":{"title":"a","description":"b"}}`,
		"category is null":  `{"food":null,"exercise":{"title":"a","description":"b"},"water":{"title":"a","description":"b"}}`,
		"wrong field types": `{"food":{"title":1,"description":"x"},"exercise":{"title":"a","description":"b"},"water":{"title":"a","description":"b"}}`,
	}
	for name, reply := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRecommendation(reply)
			assert.True(t, errors.Is(err, ErrGenerationFormat))
		})
	}
}

func TestGeminiClientGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get("x-goog-api-key"))

		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGeminiClient("k-123", "gemini-test").WithBaseURL(srv.URL + "/")
	reply, err := g.Generate(context.Background(), GenerateRequest{
		SystemInstruction: "be brief",
		History:           []ChatTurn{{Role: "user", Text: "hi"}, {Role: "model", Text: "hello"}},
		Prompt:            "plan my day",
		Schema:            RecommendationSchema,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, reply)

	contents, ok := got["contents"].([]any)
	require.True(t, ok)
	assert.Len(t, contents, 3)
	assert.Contains(t, got, "systemInstruction")

	cfg, ok := got["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.Contains(t, cfg, "responseSchema")
}

func TestGeminiClientErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"backend overloaded"}}`))
		}))
		defer srv.Close()

		_, err := NewGeminiClient("k", "m").WithBaseURL(srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
		assert.True(t, errors.Is(err, ErrTransport))
		assert.Contains(t, err.Error(), "backend overloaded")
	})

	t.Run("no candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		_, err := NewGeminiClient("k", "m").WithBaseURL(srv.URL).Generate(context.Background(), GenerateRequest{Prompt: "x"})
		assert.True(t, errors.Is(err, ErrGenerationFormat))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewGeminiClient("", "m").Generate(context.Background(), GenerateRequest{Prompt: "x"})
		assert.True(t, errors.Is(err, ErrTransport))
	})
}
