package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/photo-collage/internal/collage"
)

//go:embed tuning.yaml
var tuningYAML []byte

type Config struct {
	LogLevel  string
	Layout    collage.Config
	Detection DetectionConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	Database  DatabaseConfig
	Web       WebConfig
}

type DetectionConfig struct {
	FaceURL      string        // InsightFace-compatible service, e.g. http://localhost:8000 (empty disables faces)
	Object       string        // openai, gemini, ollama or none
	Timeout      time.Duration // per image, defaults to 8s
	MaxImageSize int           // longest side of the preview sent to detectors (default 1024)
	Workers      int           // concurrent images in batch detection (default 4)
}

type OpenAIConfig struct {
	Token string
	Model string // defaults to gpt-4.1-mini
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL (empty uses the in-memory region cache)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	QueueSize      int // layout worker queue (default 16)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the configuration from the environment. Layout tuning starts
// from the embedded tuning.yaml and is overlaid with LAYOUT_TUNING_FILE.
func Load() (*Config, error) {
	layout, err := ParseTuning(tuningYAML, collage.DefaultConfig())
	if err != nil {
		// Embedded file, so this only happens on a broken build.
		panic("failed to unmarshal embedded tuning.yaml: " + err.Error())
	}
	if path := os.Getenv("LAYOUT_TUNING_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading layout tuning file: %w", err)
		}
		if layout, err = ParseTuning(data, layout); err != nil {
			return nil, fmt.Errorf("parsing layout tuning file %s: %w", path, err)
		}
	}

	return &Config{
		LogLevel: envString("LOG_LEVEL", "info"),
		Layout:   layout,
		Detection: DetectionConfig{
			FaceURL:      os.Getenv("FACE_DETECTOR_URL"),
			Object:       strings.ToLower(envString("OBJECT_DETECTOR", "none")),
			Timeout:      time.Duration(envInt("DETECTION_TIMEOUT_MS", 8000)) * time.Millisecond,
			MaxImageSize: envInt("DETECTION_MAX_IMAGE_SIZE", 1024),
			Workers:      envInt("DETECTION_WORKERS", 4),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
			Model: envString("OPENAI_MODEL", "gpt-4.1-mini"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  envString("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Ollama: OllamaConfig{
			URL:   envString("OLLAMA_URL", "http://localhost:11434"),
			Model: envString("OLLAMA_MODEL", "llama3.2-vision:11b"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
			QueueSize:      envInt("WEB_LAYOUT_QUEUE", 16),
		},
	}, nil
}

// ParseTuning overlays YAML tuning data onto base. Keys absent from data keep
// their base values.
func ParseTuning(data []byte, base collage.Config) (collage.Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, err
	}
	return cfg, nil
}
