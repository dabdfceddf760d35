package detect

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = openai.ChatModelGPT4_1Mini

// OpenAIDetector locates salient objects with an OpenAI vision model.
type OpenAIDetector struct {
	client *openai.Client
	model  string
}

// NewOpenAIDetector creates a detector. Extra options (e.g. a base URL) are
// passed to the OpenAI client.
func NewOpenAIDetector(apiKey, model string, opts ...option.RequestOption) *OpenAIDetector {
	if model == "" {
		model = defaultOpenAIModel
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIDetector{client: &client, model: model}
}

func (p *OpenAIDetector) Name() string {
	return p.model
}

func (p *OpenAIDetector) Detect(ctx context.Context, img Image) ([]Detection, error) {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.Data)

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(objectBoxesPrompt),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
						openai.TextContentPart(userMessage(img)),
						openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
							URL:    imageURL,
							Detail: "low",
						}),
					},
				},
			},
		},
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(p.model),
			Messages: messages,
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
			MaxTokens: openai.Int(400),
		})
		if err != nil {
			return nil, fmt.Errorf("OpenAI API error: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("no response from OpenAI")
		}

		content := resp.Choices[0].Message.Content
		lastResponse = content

		detections, err := parseObjects(content)
		if err != nil {
			lastError = err
			messages = append(messages,
				openai.ChatCompletionMessageParamUnion{
					OfAssistant: &openai.ChatCompletionAssistantMessageParam{
						Content: openai.ChatCompletionAssistantMessageParamContentUnion{
							OfString: openai.String(content),
						},
					},
				},
				openai.ChatCompletionMessageParamUnion{
					OfUser: &openai.ChatCompletionUserMessageParam{
						Content: openai.ChatCompletionUserMessageParamContentUnion{
							OfString: openai.String(fixJSONMessage(err)),
						},
					},
				},
			)
			continue
		}

		return detections, nil
	}

	return nil, fmt.Errorf("failed to parse objects JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
