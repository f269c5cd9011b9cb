package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider calls Gemini through google.golang.org/genai with a JSON response schema.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a Gemini API client.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Extract(ctx context.Context, req Request) ([]byte, error) {
	var parts []*genai.Part
	if req.InputMode == InputFile {
		if len(req.PDF) == 0 {
			return nil, errors.New("file input mode requires PDF bytes")
		}
		parts = append(parts, genai.NewPartFromBytes(req.PDF, "application/pdf"))
	}
	parts = append(parts, genai.NewPartFromText(BuildPrompt(req)))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType:   "application/json",
		ResponseJsonSchema: BuildRecordSchema(req.SchemaMode),
	})
	if err != nil {
		return nil, err
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return nil, errors.New("gemini returned no output text")
	}
	return []byte(out), nil
}
