// Package chef generates recipes and food photos with Google's Gemini API.
package chef

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"lifestyle-planner/internal/config"
	"lifestyle-planner/internal/model"
)

const systemInstruction = `Du er en ekspertkokk. Din jobb er å lage deilige, enkle oppskrifter basert på brukerens forespørsel på Norsk.
Returner alltid svaret i strukturert JSON-format.
Inkluder en kort, fristende beskrivelse, en liste over ingredienser med mengder, og steg-for-steg instruksjoner.`

var errEmptyResponse = errors.New("empty response from model")

// contentGenerator is the part of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements the recipe generator on top of the GenAI SDK.
type Gemini struct {
	models      contentGenerator
	recipeModel string
	imageModel  string
	timeout     time.Duration
	log         *zap.Logger
}

// NewGemini creates a GenAI client for the Gemini API.
func NewGemini(ctx context.Context, cfg config.AIConfig, log *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, cfg, log), nil
}

func newGemini(models contentGenerator, cfg config.AIConfig, log *zap.Logger) *Gemini {
	recipeModel := cfg.RecipeModel
	if recipeModel == "" {
		recipeModel = "gemini-3-flash-preview"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}
	return &Gemini{
		models:      models,
		recipeModel: recipeModel,
		imageModel:  imageModel,
		timeout:     cfg.Timeout,
		log:         log.Named("chef"),
	}
}

// GenerateRecipeData asks the model for a recipe as schema-constrained JSON.
func (g *Gemini) GenerateRecipeData(ctx context.Context, prompt string) (model.RecipeDraft, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx,
		g.recipeModel,
		genai.Text("Lag en oppskrift basert på følgende: "+prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    recipeSchema(),
		},
	)
	if err != nil {
		return model.RecipeDraft{}, fmt.Errorf("generate recipe: %w", err)
	}

	if resp == nil {
		return model.RecipeDraft{}, errEmptyResponse
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return model.RecipeDraft{}, errEmptyResponse
	}

	var draft model.RecipeDraft
	if err := json.Unmarshal([]byte(text), &draft); err != nil {
		return model.RecipeDraft{}, fmt.Errorf("decode recipe: %w", err)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return model.RecipeDraft{}, fmt.Errorf("decode recipe: missing title")
	}
	return draft, nil
}

// GenerateRecipeImage returns a data URL for a food photo, or "" on any failure.
func (g *Gemini) GenerateRecipeImage(ctx context.Context, title, description string) string {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	prompt := fmt.Sprintf("Professional food photography of %s. %s. High resolution, appetizing, studio lighting, top down view or 45 degree angle.", title, description)
	resp, err := g.models.GenerateContent(ctx,
		g.imageModel,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: "16:9"},
		},
	)
	if err != nil {
		g.log.Warn("image generation failed", zap.String("title", title), zap.Error(err))
		return ""
	}

	if url := firstInlineImage(resp); url != "" {
		return url
	}
	g.log.Warn("image generation returned no image", zap.String("title", title))
	return ""
}

func (g *Gemini) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func firstInlineImage(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(part.InlineData.Data))
	}
	return ""
}

func recipeSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       str("Navnet på retten"),
			"description": str("En kort, fristende beskrivelse (max 30 ord)"),
			"prepTime":    str("Total tid (f.eks. '30 minutter')"),
			"ingredients": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"item":   str("Navn på ingrediens"),
						"amount": str("Mengde (f.eks. '200g', '1 stk')"),
					},
					Required: []string{"item", "amount"},
				},
			},
			"instructions": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Steg for steg instruksjoner",
			},
		},
		Required: []string{"title", "description", "prepTime", "ingredients", "instructions"},
	}
}
