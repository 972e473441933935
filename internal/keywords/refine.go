package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/api/option"
)

// Refiner re-ranks mined keyword candidates using an external model. It is an
// optional capability: callers fall back to the raw frequency ranking when it
// is unconfigured or fails.
type Refiner interface {
	Refine(ctx context.Context, candidates []string, brandName, pageName string) ([]string, error)
}

// DefaultRefineModel is the Gemini model used for keyword refinement. A small
// model is enough for a re-ranking task.
const DefaultRefineModel = "gemini-2.0-flash"

// refineResponseSchema validates the model's JSON before it replaces the raw
// keyword list.
const refineResponseSchema = `{
	"type": "array",
	"items": {"type": "string", "minLength": 2},
	"maxItems": 50
}`

// GeminiRefiner implements Refiner on top of the Gemini API.
type GeminiRefiner struct {
	client *genai.Client
	model  string
}

// NewGeminiRefiner creates a refiner. apiKey is required.
func NewGeminiRefiner(ctx context.Context, apiKey, model string) (*GeminiRefiner, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultRefineModel
	}
	return &GeminiRefiner{client: client, model: model}, nil
}

// Close releases the underlying client.
func (r *GeminiRefiner) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Refine asks the model to keep the keywords an affiliate advertising this
// brand's niche would plausibly use, dropping noise terms. The response must
// be a JSON array of strings; anything else is an error and the caller keeps
// the raw list.
func (r *GeminiRefiner) Refine(ctx context.Context, candidates []string, brandName, pageName string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	model := r.client.GenerativeModel(r.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	prompt := buildRefinePrompt(candidates, brandName, pageName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("refinement generation failed: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}
	return parseRefineResponse(text)
}

func buildRefinePrompt(candidates []string, brandName, pageName string) string {
	var sb strings.Builder
	sb.WriteString("You are ranking niche search keywords for ad-library searches.\n")
	fmt.Fprintf(&sb, "Brand: %s\n", brandName)
	if pageName != "" {
		fmt.Fprintf(&sb, "Official page: %s\n", pageName)
	}
	sb.WriteString("From the candidate keywords below, keep only terms a third-party ")
	sb.WriteString("advertiser promoting this brand's product niche would plausibly use. ")
	sb.WriteString("Drop generic marketing words and anything naming the brand itself. ")
	sb.WriteString("Order from most to least specific. Respond with a JSON array of strings only.\n\nCandidates:\n")
	for _, c := range candidates {
		sb.WriteString("- " + c + "\n")
	}
	return sb.String()
}

// parseRefineResponse strips markdown fences, validates against the response
// schema and unmarshals the keyword list.
func parseRefineResponse(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	schema := gojsonschema.NewStringLoader(refineResponseSchema)
	document := gojsonschema.NewStringLoader(text)
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return nil, fmt.Errorf("refinement response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("refinement response failed schema validation: %v", result.Errors())
	}

	var keywords []string
	if err := json.Unmarshal([]byte(text), &keywords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal refinement response: %w", err)
	}

	out := keywords[:0]
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}
