package detect

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

//go:embed prompts/object_boxes.txt
var objectBoxesPrompt string

// maxRetries bounds how often a vision model is asked to fix malformed JSON.
const maxRetries = 3

// maxObjects caps how many object boxes a single model answer contributes.
const maxObjects = 5

type objectBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type objectItem struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        objectBox `json:"box"`
}

type objectsAnswer struct {
	Objects []objectItem `json:"objects"`
}

// userMessage is the instruction sent next to the image.
func userMessage(img Image) string {
	return fmt.Sprintf("Image size: %dx%d pixels. Locate the subjects.", img.Width, img.Height)
}

// fixJSONMessage is the feedback sent after an unparsable answer.
func fixJSONMessage(err error) string {
	return fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again. Output ONLY valid JSON, no other text.", err)
}

// parseObjects parses a model answer into normalized detections. Boxes are
// clipped to the unit square; empty or non-finite ones are dropped.
func parseObjects(content string) ([]Detection, error) {
	var answer objectsAnswer
	if err := json.Unmarshal([]byte(extractJSON(content)), &answer); err != nil {
		return nil, err
	}

	unit := geometry.Rect{W: 1, H: 1}
	out := make([]Detection, 0, len(answer.Objects))
	for _, o := range answer.Objects {
		box := geometry.Rect{X: o.Box.X, Y: o.Box.Y, W: o.Box.W, H: o.Box.H}
		if !box.Finite() {
			continue
		}
		box = box.Intersect(unit)
		if box.Empty() {
			continue
		}
		score := o.Confidence
		if math.IsNaN(score) || score <= 0 || score > 1 {
			score = 1
		}
		out = append(out, Detection{Box: box, Score: score, Label: NormalizeLabel(o.Label)})
		if len(out) == maxObjects {
			break
		}
	}
	return out, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content[start:]
}
