package detect

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiDetector locates salient objects with a Gemini vision model.
type GeminiDetector struct {
	client *genai.Client
	model  string
}

func NewGeminiDetector(ctx context.Context, apiKey, model string) (*GeminiDetector, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiDetector{client: client, model: model}, nil
}

func (p *GeminiDetector) Name() string {
	return p.model
}

func (p *GeminiDetector) Detect(ctx context.Context, img Image) ([]Detection, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: objectBoxesPrompt + "\n\n" + userMessage(img)},
				{InlineData: &genai.Blob{Data: img.Data, MIMEType: detectMIMEType(img.Data)}},
			},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		detections, err := parseObjects(content)
		if err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fixJSONMessage(err)}},
				},
			)
			continue
		}

		return detections, nil
	}

	return nil, fmt.Errorf("failed to parse objects JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
