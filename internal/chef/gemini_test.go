package chef

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"lifestyle-planner/internal/config"
)

type fakeModels struct {
	resp   *genai.GenerateContentResponse
	err    error
	models []string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.models = append(f.models, model)
	f.config = cfg
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGemini(models *fakeModels) *Gemini {
	return newGemini(models, config.AIConfig{Timeout: time.Second}, zap.NewNop())
}

func TestGenerateRecipeData(t *testing.T) {
	models := &fakeModels{resp: textResponse(`{
		"title": "Smoothie bowl",
		"description": "Frisk og rosa",
		"prepTime": "10 minutter",
		"ingredients": [{"item": "bringebær", "amount": "200g"}],
		"instructions": ["Mos", "Pynt"]
	}`)}
	g := newTestGemini(models)

	draft, err := g.GenerateRecipeData(context.Background(), "noe rosa")
	require.NoError(t, err)

	assert.Equal(t, "Smoothie bowl", draft.Title)
	assert.Equal(t, "10 minutter", draft.PrepTime)
	require.Len(t, draft.Ingredients, 1)
	assert.Equal(t, "200g", draft.Ingredients[0].Amount)
	assert.Equal(t, []string{"Mos", "Pynt"}, draft.Instructions)

	assert.Equal(t, []string{"gemini-3-flash-preview"}, models.models)
	require.NotNil(t, models.config)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.ElementsMatch(t, []string{"title", "description", "prepTime", "ingredients", "instructions"}, models.config.ResponseSchema.Required)
}

func TestGenerateRecipeData_Failures(t *testing.T) {
	tests := map[string]*fakeModels{
		"transport":     {err: errors.New("connection reset")},
		"empty":         {resp: textResponse("")},
		"not json":      {resp: textResponse("Here is your recipe!")},
		"missing title": {resp: textResponse(`{"description":"x"}`)},
		"no candidates": {resp: &genai.GenerateContentResponse{}},
	}
	for name, models := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := newTestGemini(models).GenerateRecipeData(context.Background(), "pasta")
			assert.Error(t, err)
		})
	}
}

func TestGenerateRecipeImage(t *testing.T) {
	models := &fakeModels{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{Data: []byte{0x89, 0x50}, MIMEType: "image/png"}},
			}},
		}},
	}}
	g := newTestGemini(models)

	url := g.GenerateRecipeImage(context.Background(), "Taco", "fredagskos")

	assert.Equal(t, "data:image/png;base64,iVA=", url)
	assert.Equal(t, []string{"gemini-2.5-flash-image"}, models.models)
}

func TestGenerateRecipeImage_NeverFails(t *testing.T) {
	tests := map[string]*fakeModels{
		"transport": {err: errors.New("quota exceeded")},
		"text only": {resp: textResponse("no image today")},
		"nil":       {},
	}
	for name, models := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, newTestGemini(models).GenerateRecipeImage(context.Background(), "Taco", ""))
		})
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.AIConfig{}, zap.NewNop())
	require.Error(t, err)
}
