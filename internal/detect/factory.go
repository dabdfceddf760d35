package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/database"
)

// NewObjectProvider returns the object detector selected by OBJECT_DETECTOR,
// or nil for "none".
func NewObjectProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Detection.Object {
	case "", "none":
		return nil, nil
	case "openai":
		if cfg.OpenAI.Token == "" {
			return nil, errors.New("OPENAI_TOKEN is required for the openai object detector")
		}
		return NewOpenAIDetector(cfg.OpenAI.Token, cfg.OpenAI.Model), nil
	case "gemini":
		if cfg.Gemini.APIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the gemini object detector")
		}
		return NewGeminiDetector(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "ollama":
		return NewOllamaDetector(cfg.Ollama.URL, cfg.Ollama.Model), nil
	default:
		return nil, fmt.Errorf("unknown object detector %q (use openai, gemini, ollama or none)", cfg.Detection.Object)
	}
}

// NewServiceFromConfig wires a Service from configuration. The face detector
// is enabled when FACE_DETECTOR_URL is set.
func NewServiceFromConfig(ctx context.Context, cfg *config.Config, cache database.KeepRegionWriter, logger *log.Logger) (*Service, error) {
	var faces Provider
	if cfg.Detection.FaceURL != "" {
		faces = NewFaceClient(cfg.Detection.FaceURL)
	}
	objects, err := NewObjectProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewService(faces, objects, cache, Options{
		Timeout:      cfg.Detection.Timeout,
		MaxImageSize: cfg.Detection.MaxImageSize,
	}, logger), nil
}
