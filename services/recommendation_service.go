package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dietica/models"

	"github.com/charmbracelet/log"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// AdvisorInstruction is the system instruction for to-do generation.
const AdvisorInstruction = "You are a diet and exercise advisor. " +
	"Only reply to diet and exercise topics. " +
	"Provide steps to improve diet and suggest exercises."

// Schema is the subset of the OpenAPI schema object accepted as a response shape.
type Schema struct {
	Type       string             `json:"type"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

func titledItem() *Schema {
	return &Schema{
		Type: "OBJECT",
		Properties: map[string]*Schema{
			"title":       {Type: "STRING"},
			"description": {Type: "STRING"},
		},
		Required: []string{"title", "description"},
	}
}

// RecommendationSchema is the reply shape: food, exercise and water, each with a
// title and a description.
var RecommendationSchema = &Schema{
	Type: "OBJECT",
	Properties: map[string]*Schema{
		"food":     titledItem(),
		"exercise": titledItem(),
		"water":    titledItem(),
	},
	Required: []string{"food", "exercise", "water"},
}

type ChatTurn struct {
	Role string // "user" | "model"
	Text string
}

type GenerateRequest struct {
	SystemInstruction string
	History           []ChatTurn
	Prompt            string
	// Schema constrains the reply to JSON of this shape when set.
	Schema *Schema
}

// TextGenerator is the generative-text capability.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type GeminiClient struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
	}
}

// WithBaseURL points the client at another endpoint (tests, proxies).
func (g *GeminiClient) WithBaseURL(u string) *GeminiClient {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  *struct {
		ResponseMimeType string  `json:"responseMimeType"`
		ResponseSchema   *Schema `json:"responseSchema"`
	} `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if g.apiKey == "" {
		return "", transport("gemini", errors.New("GEMINI_API_KEY not set"))
	}

	body := geminiRequest{}
	if req.SystemInstruction != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.SystemInstruction}}}
	}
	for _, t := range req.History {
		body.Contents = append(body.Contents, geminiContent{Role: t.Role, Parts: []geminiPart{{Text: t.Text}}})
	}
	body.Contents = append(body.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}})
	if req.Schema != nil {
		body.GenerationConfig = &struct {
			ResponseMimeType string  `json:"responseMimeType"`
			ResponseSchema   *Schema `json:"responseSchema"`
		}{ResponseMimeType: "application/json", ResponseSchema: req.Schema}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", transport("gemini request", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transport("read gemini response", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBytes, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", transport("gemini", fmt.Errorf("api error (%d): %s", resp.StatusCode, apiErr.Error.Message))
		}
		return "", transport("gemini", fmt.Errorf("api error (%d): %s", resp.StatusCode, preview(respBytes)))
	}

	var out geminiResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", fmt.Errorf("%w: decode gemini response: %v | body: %s", ErrGenerationFormat, err, preview(respBytes))
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in gemini response", ErrGenerationFormat)
	}
	var text strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}

func preview(b []byte) string {
	s := string(b)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// RecommendationStore persists generated recommendations.
type RecommendationStore interface {
	CreateRecommendation(ctx context.Context, rec *models.Recommendation) error
}

type RecommendationService struct {
	gen   TextGenerator
	store RecommendationStore
	log   *log.Logger
	now   func() time.Time
}

func NewRecommendationService(gen TextGenerator, store RecommendationStore, logger *log.Logger) *RecommendationService {
	return &RecommendationService{gen: gen, store: store, log: logger, now: time.Now}
}

// Generate asks the model for a recommendation, validates the reply and stores
// it. Nothing is stored when the reply does not match RecommendationSchema.
func (s *RecommendationService) Generate(ctx context.Context, userID uint, prompt string) (*models.Recommendation, error) {
	reply, err := s.gen.Generate(ctx, GenerateRequest{
		SystemInstruction: AdvisorInstruction,
		Prompt:            prompt,
		Schema:            RecommendationSchema,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("recommendation reply", "user", userID, "prompt", prompt, "reply", reply)

	rec, err := ParseRecommendation(reply)
	if err != nil {
		return nil, err
	}
	rec.UserID = userID
	rec.CreatedAt = s.now().UTC()

	if err := s.store.CreateRecommendation(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type titled struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (t *titled) valid() bool {
	return t != nil && t.Title != nil && t.Description != nil &&
		strings.TrimSpace(*t.Title) != "" && strings.TrimSpace(*t.Description) != ""
}

// ParseRecommendation decodes a model reply. A reply wrapped in a markdown code
// fence is accepted; anything missing a category, title or description is not.
func ParseRecommendation(reply string) (*models.Recommendation, error) {
	raw := strings.TrimSpace(reply)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var shape struct {
		Food     *titled `json:"food"`
		Exercise *titled `json:"exercise"`
		Water    *titled `json:"water"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}
	for name, item := range map[string]*titled{"food": shape.Food, "exercise": shape.Exercise, "water": shape.Water} {
		if !item.valid() {
			return nil, fmt.Errorf("%w: %q needs a non-empty title and description", ErrGenerationFormat, name)
		}
	}

	return &models.Recommendation{
		FoodTitle:           *shape.Food.Title,
		FoodDescription:     *shape.Food.Description,
		ExerciseTitle:       *shape.Exercise.Title,
		ExerciseDescription: *shape.Exercise.Description,
		WaterTitle:          *shape.Water.Title,
		WaterDescription:    *shape.Water.Description,
	}, nil
}
