package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/logging"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <request.json|->",
	Short: "Compute a collage layout for a request",
	Long: `Compute a collage layout for a JSON layout request read from a file
or from stdin ("-") and print the response JSON.

With --images, photos without keep-regions are looked up in the directory
as <photo id>.jpg, .jpeg, .png or .webp and run through keep-region
detection first.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayout,
}

func init() {
	rootCmd.AddCommand(layoutCmd)

	layoutCmd.Flags().String("images", "", "Directory with photo files for keep-region detection")
	layoutCmd.Flags().Int("workers", 0, "Number of images detected in parallel (overrides DETECTION_WORKERS)")
	layoutCmd.Flags().Float64("width", 0, "Override the canvas width")
	layoutCmd.Flags().Float64("height", 0, "Override the canvas height")
	layoutCmd.Flags().Int64("seed", -1, "Override the layout seed")
	layoutCmd.Flags().Bool("report", false, "Print the full layout report (tiles, attempts) instead of the response")
	layoutCmd.Flags().Bool("compact", false, "Print compact JSON")
}

func readLayoutRequest(path string) (collage.Request, error) {
	var req collage.Request
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return req, fmt.Errorf("opening request: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, fmt.Errorf("decoding request: %w", err)
	}
	return req, nil
}

// findPhotoFile returns the image file for a photo id in dir, if any.
func findPhotoFile(dir, photoID string) (string, bool) {
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp", ".JPG", ".JPEG", ".PNG"} {
		path := filepath.Join(dir, photoID+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// attachKeepRegions detects keep-regions for photos that have an image in
// dir and no regions yet.
func attachKeepRegions(ctx context.Context, cmd *cobra.Command, req *collage.Request, dir string) error {
	var paths, ids []string
	var index []int
	for i, p := range req.Photos {
		if len(p.KeepRegions) > 0 {
			continue
		}
		if path, ok := findPhotoFile(dir, p.ID); ok {
			paths = append(paths, path)
			ids = append(ids, p.ID)
			index = append(index, i)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "No photo files found in %s\n", dir)
		return nil
	}

	svc, workers, err := newDetectService(ctx, cmd, true)
	if err != nil {
		return err
	}
	defer closeRegionStore()

	for k, r := range detectFiles(ctx, svc, paths, ids, workers, true) {
		if r.Error != "" {
			fmt.Fprintf(os.Stderr, "Warning: %s: %s\n", r.Path, r.Error)
			continue
		}
		r.Result.Apply(&req.Photos[index[k]])
	}
	return nil
}

func runLayout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.NewFromString(os.Stderr, cfg.LogLevel)

	req, err := readLayoutRequest(args[0])
	if err != nil {
		return err
	}
	if w := mustGetFloat64(cmd, "width"); w > 0 {
		req.CanvasWidth = w
	}
	if h := mustGetFloat64(cmd, "height"); h > 0 {
		req.CanvasHeight = h
	}
	if seed := mustGetInt64(cmd, "seed"); seed >= 0 {
		s := uint32(seed)
		if req.Options == nil {
			req.Options = &collage.Options{}
		}
		req.Options.Seed = &s
	}

	if dir := mustGetString(cmd, "images"); dir != "" {
		if err := attachKeepRegions(context.Background(), cmd, &req, dir); err != nil {
			return err
		}
	}

	engine := collage.NewEngine(cfg.Layout, logger)
	res, layoutErr := engine.Layout(req)

	var out any
	switch {
	case layoutErr != nil:
		out = collage.Response{RequestID: req.RequestID, Error: layoutErr.Error()}
	case mustGetBool(cmd, "report"):
		out = res
	default:
		out = collage.Response{RequestID: req.RequestID, OK: true, Placements: res.Placements}
	}

	enc := json.NewEncoder(os.Stdout)
	if !mustGetBool(cmd, "compact") {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}

	if layoutErr != nil {
		return layoutErr
	}
	p := message.NewPrinter(language.English)
	p.Fprintf(os.Stderr, "Laid out %d photos on a %.0f×%.0f canvas (seed %d, %d attempts",
		len(res.Placements), req.CanvasWidth, req.CanvasHeight, res.Seed, len(res.Attempts))
	if res.UsedFallback {
		p.Fprintf(os.Stderr, ", grid fallback")
	}
	p.Fprintf(os.Stderr, ")\n")
	return nil
}

// printSummary prints a localized success/failure count.
func printSummary(ok, failed int) {
	p := message.NewPrinter(language.English)
	p.Printf("\nProcessed %d images: %d succeeded, %d failed\n", ok+failed, ok, failed)
}
