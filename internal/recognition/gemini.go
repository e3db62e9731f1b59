package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini implements the Recognizer interface using Google Gemini
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini Recognizer instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Recognize asks the model to read the label and validates its answer
func (g *Gemini) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	// genai.ImageData wants the format suffix ("png"), not the MIME type
	format := strings.TrimPrefix(mimeType, "image/")
	if format == "" {
		format = "png"
	}

	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(labelScanPrompt))
	if err != nil {
		return nil, transportError(fmt.Errorf("generating content: %w", err))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, parseError(fmt.Errorf("no response from gemini"))
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	text, err := extractJSONObject(responseText.String())
	if err != nil {
		return nil, err
	}
	return ParseResult([]byte(text))
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
