package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/kozaktomas/photo-collage/internal/geometry"
)

const defaultFaceURL = "http://localhost:8000"

// FaceClient detects faces using an InsightFace-compatible embedding server.
type FaceClient struct {
	baseURL string
	client  *http.Client
}

// NewFaceClient creates a new face detection client.
func NewFaceClient(baseURL string) *FaceClient {
	if baseURL == "" {
		baseURL = defaultFaceURL
	}
	return &FaceClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

// faceDetection represents a single detected face.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

func (c *FaceClient) Name() string {
	return "insightface"
}

// Detect posts the image to /embed/face and returns the face boxes normalized
// to the image size. Faces with a malformed bbox are skipped.
func (c *FaceClient) Detect(ctx context.Context, img Image) ([]Detection, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	body, err := c.postMultipartImage(ctx, "/embed/face", img.Data)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]Detection, 0, len(faceResp.Faces))
	for _, f := range faceResp.Faces {
		if len(f.BBox) != 4 {
			continue
		}
		box := geometry.NewRectFromCorners(f.BBox[0], f.BBox[1], f.BBox[2], f.BBox[3])
		out = append(out, Detection{
			Box:   geometry.ConvertPixelBoxToRelative(box, img.Width, img.Height),
			Score: f.DetScore,
			Label: "face",
		})
	}
	return out, nil
}

// postMultipartImage posts the image as a multipart "file" field with an
// explicit Content-Type detected from magic bytes.
func (c *FaceClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
