package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/kozaktomas/photo-collage/internal/constants"
	"github.com/kozaktomas/photo-collage/internal/detect"
)

// Detector finds keep-regions in an uploaded image. *detect.Service implements it.
type Detector interface {
	Detect(ctx context.Context, photoID string, data []byte) (*detect.Result, error)
}

// DetectHandler handles keep-region detection uploads
type DetectHandler struct {
	detector Detector
	logger   *log.Logger
}

// NewDetectHandler creates a new detect handler. A nil detector disables the endpoint.
func NewDetectHandler(detector Detector, logger *log.Logger) *DetectHandler {
	return &DetectHandler{
		detector: detector,
		logger:   logger,
	}
}

// Detect accepts a multipart upload with a "file" part and an optional
// "photo_id" field, and returns the keep-regions in image pixels.
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	if h.detector == nil {
		respondError(w, http.StatusServiceUnavailable, "detection is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	photoID := r.FormValue("photo_id")
	ctx, cancel := context.WithTimeout(r.Context(), constants.RequestTimeout)
	defer cancel()

	result, err := h.detector.Detect(ctx, photoID, data)
	if err != nil {
		if errors.Is(err, detect.ErrInvalidImage) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("detection failed", "photo", sanitizeForLog(photoID), "error", err)
		respondError(w, http.StatusInternalServerError, "detection failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
