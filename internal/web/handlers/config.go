package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/database"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Layout         collage.Config `json:"layout"`
	MaxPhotos      int            `json:"maxPhotos"`
	FaceDetector   bool           `json:"faceDetector"`
	ObjectDetector string         `json:"objectDetector"`
	Providers      []ProviderInfo `json:"providers"`
	RegionCache    string         `json:"regionCache"`
}

// ProviderInfo represents information about an object detection provider
type ProviderInfo struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Get returns the active layout tuning and detector setup
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderInfo{
		{
			Name:      "openai",
			Available: h.config.OpenAI.Token != "",
		},
		{
			Name:      "gemini",
			Available: h.config.Gemini.APIKey != "",
		},
		{
			Name:      "ollama",
			Available: true, // Always available (local)
		},
	}

	cache := "memory"
	if database.IsInitialized() {
		cache = "postgres"
	}

	response := ConfigResponse{
		Layout:         h.config.Layout,
		MaxPhotos:      collage.MaxPhotos,
		FaceDetector:   h.config.Detection.FaceURL != "",
		ObjectDetector: h.config.Detection.Object,
		Providers:      providers,
		RegionCache:    cache,
	}

	respondJSON(w, http.StatusOK, response)
}
