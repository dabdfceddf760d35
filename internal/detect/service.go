package detect

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/database"
	"github.com/kozaktomas/photo-collage/internal/geometry"
)

// ErrInvalidImage is returned when the uploaded bytes cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// Options control a detection Service.
type Options struct {
	Timeout      time.Duration // per image, covers all providers
	MaxImageSize int           // longest side of the preview sent to providers
	// FaceOverlapIoU drops object boxes whose IoU with a face box reaches it,
	// so one subject is not weighted twice.
	FaceOverlapIoU float64
}

// DefaultOptions returns the options used when a field is left zero.
func DefaultOptions() Options {
	return Options{Timeout: 8 * time.Second, MaxImageSize: 1024, FaceOverlapIoU: 0.6}
}

const cacheSaveTimeout = 5 * time.Second

// Service runs the face and object providers on an image and turns their
// boxes into keep-regions in image pixel coordinates. Either provider may be
// nil. Results are cached per photo version when a store is configured.
type Service struct {
	faces   Provider
	objects Provider
	cache   database.KeepRegionWriter
	opts    Options
	logger  *log.Logger
}

// NewService creates a detection service.
func NewService(faces, objects Provider, cache database.KeepRegionWriter, opts Options, logger *log.Logger) *Service {
	def := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = def.MaxImageSize
	}
	if !(opts.FaceOverlapIoU > 0) || opts.FaceOverlapIoU > 1 {
		opts.FaceOverlapIoU = def.FaceOverlapIoU
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Service{faces: faces, objects: objects, cache: cache, opts: opts, logger: logger}
}

// Result is the outcome of detecting one image.
type Result struct {
	PhotoID     string                `json:"photoId,omitempty"`
	ContentHash string                `json:"contentHash"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Regions     []geometry.KeepRegion `json:"regions"`
	Cached      bool                  `json:"cached"`
}

// Apply copies the image size and keep-regions onto a layout photo.
func (r *Result) Apply(p *collage.Photo) {
	p.ImageWidth = float64(r.Width)
	p.ImageHeight = float64(r.Height)
	p.KeepRegions = slices.Clone(r.Regions)
}

// Detectors lists the names of the configured providers joined by "+".
func (s *Service) Detectors() string {
	var names []string
	for _, p := range []Provider{s.faces, s.objects} {
		if p != nil {
			names = append(names, p.Name())
		}
	}
	return strings.Join(names, "+")
}

// ContentHash returns the hex sha256 of image bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Detect finds keep-regions in an encoded image. Provider failures and
// timeouts are logged and contribute no regions; only undecodable input is an
// error. photoID may be empty, which disables caching.
func (s *Service) Detect(ctx context.Context, photoID string, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidImage)
	}
	hash := ContentHash(data)

	if s.cache != nil && photoID != "" {
		rec, err := s.cache.Get(ctx, photoID, hash)
		if err != nil {
			s.logger.Warn("keep-region cache lookup failed", "photo", photoID, "err", err)
		} else if rec != nil {
			s.logger.Debug("keep-region cache hit", "photo", photoID)
			return &Result{
				PhotoID:     photoID,
				ContentHash: hash,
				Width:       rec.Width,
				Height:      rec.Height,
				Regions:     rec.Regions,
				Cached:      true,
			}, nil
		}
	}

	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	res := &Result{
		PhotoID:     photoID,
		ContentHash: hash,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Regions:     []geometry.KeepRegion{},
	}
	if s.faces == nil && s.objects == nil {
		return res, nil
	}

	preview, err := Preview(img, s.opts.MaxImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	detectCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	type outcome struct {
		provider   string
		kind       geometry.RegionKind
		detections []Detection
		err        error
	}
	outcomes := make([]outcome, 2)
	var wg sync.WaitGroup
	for i, p := range []Provider{s.faces, s.objects} {
		if p == nil {
			continue
		}
		kind := geometry.KindFace
		if i == 1 {
			kind = geometry.KindObject
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			dets, err := p.Detect(detectCtx, preview)
			s.logger.Debug("detector finished", "provider", p.Name(), "boxes", len(dets), "took", time.Since(start))
			outcomes[i] = outcome{provider: p.Name(), kind: kind, detections: dets, err: err}
		}()
	}
	wg.Wait()

	failed := false
	for _, o := range outcomes {
		if o.err != nil {
			failed = true
			s.logger.Warn("detector failed", "provider", o.provider, "photo", photoID, "err", o.err)
			continue
		}
		for _, d := range o.detections {
			if r, ok := toKeepRegion(o.kind, d, res.Width, res.Height); ok {
				res.Regions = append(res.Regions, r)
			}
		}
	}
	res.Regions = dropFaceDuplicates(res.Regions, s.opts.FaceOverlapIoU)
	sortRegions(res.Regions)

	// Failed runs are not cached so a later request retries the provider.
	if s.cache != nil && photoID != "" && !failed {
		saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), cacheSaveTimeout)
		defer cancelSave()
		err := s.cache.Save(saveCtx, database.KeepRegionRecord{
			PhotoID:     photoID,
			ContentHash: hash,
			Width:       res.Width,
			Height:      res.Height,
			Regions:     res.Regions,
			Detectors:   s.Detectors(),
		})
		if err != nil {
			s.logger.Warn("keep-region cache save failed", "photo", photoID, "err", err)
		}
	}
	return res, nil
}

// toKeepRegion maps a normalized detection to image pixels, clipped to the
// image. Boxes smaller than a pixel on either side are dropped.
func toKeepRegion(kind geometry.RegionKind, d Detection, width, height int) (geometry.KeepRegion, bool) {
	if !d.Box.Finite() {
		return geometry.KeepRegion{}, false
	}
	full := geometry.Rect{W: float64(width), H: float64(height)}
	box := geometry.ConvertRelativeBoxToPixels(d.Box, width, height).Intersect(full)
	if box.W < 1 || box.H < 1 {
		return geometry.KeepRegion{}, false
	}
	score := d.Score
	if math.IsNaN(score) || score <= 0 || score > 1 {
		score = 1
	}
	return geometry.KeepRegion{Kind: kind, Box: box, Score: score}, true
}

// dropFaceDuplicates removes object regions that largely overlap a face.
func dropFaceDuplicates(regions []geometry.KeepRegion, threshold float64) []geometry.KeepRegion {
	var faces []geometry.Rect
	for _, r := range regions {
		if r.Kind == geometry.KindFace {
			faces = append(faces, r.Box)
		}
	}
	if len(faces) == 0 {
		return regions
	}
	return slices.DeleteFunc(regions, func(r geometry.KeepRegion) bool {
		if r.Kind != geometry.KindObject {
			return false
		}
		for _, f := range faces {
			if geometry.ComputeIoU(r.Box, f) >= threshold {
				return true
			}
		}
		return false
	})
}

// sortRegions orders faces first, then by descending score.
func sortRegions(regions []geometry.KeepRegion) {
	slices.SortStableFunc(regions, func(a, b geometry.KeepRegion) int {
		if a.Kind != b.Kind {
			if a.Kind == geometry.KindFace {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.Score, a.Score)
	})
}
