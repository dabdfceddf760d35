package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-collage/internal/constants"
	"github.com/kozaktomas/photo-collage/internal/database"
	"github.com/kozaktomas/photo-collage/internal/detect"
	"github.com/kozaktomas/photo-collage/internal/logging"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Detect keep-regions (faces and subjects) in images",
	Long: `Detect faces and salient subjects in images and print them as
keep-regions in image pixel coordinates. The photo id of each image is its
file name without extension. Results are cached when DATABASE_URL is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().Int("workers", 0, "Number of images processed in parallel (overrides DETECTION_WORKERS)")
	detectCmd.Flags().Bool("json", false, "Print results as JSON")
	detectCmd.Flags().Bool("no-cache", false, "Skip the keep-region cache")
}

// detectedImage is the detection outcome for one file.
type detectedImage struct {
	Path   string         `json:"path"`
	Result *detect.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// photoIDFromPath derives a photo id from a file name.
func photoIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// detectFiles runs svc on every path with bounded concurrency. Results keep
// the order of paths.
func detectFiles(ctx context.Context, svc *detect.Service, paths, ids []string, workers int, progress bool) []detectedImage {
	if workers < 1 {
		workers = constants.DefaultConcurrency
	}
	results := make([]detectedImage, len(paths))

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Detecting keep-regions"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = detectFile(ctx, svc, path, ids[i])
			if bar != nil {
				bar.Add(1)
			}
		}()
	}
	wg.Wait()
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	return results
}

func detectFile(ctx context.Context, svc *detect.Service, path, photoID string) detectedImage {
	out := detectedImage{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	res, err := svc.Detect(ctx, photoID, data)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	out.Result = res
	return out
}

// newDetectService builds the detection service with or without the cache.
func newDetectService(ctx context.Context, cmd *cobra.Command, useCache bool) (*detect.Service, int, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}
	logger := logging.NewFromString(os.Stderr, cfg.LogLevel)

	workers := cfg.Detection.Workers
	if cmd.Flags().Lookup("workers") != nil {
		if w := mustGetInt(cmd, "workers"); w > 0 {
			workers = w
		}
	}

	var store database.KeepRegionWriter
	if useCache {
		if store, err = openRegionStore(ctx, cfg, logger); err != nil {
			return nil, 0, err
		}
	}
	svc, err := detect.NewServiceFromConfig(ctx, cfg, store, logger)
	if err != nil {
		return nil, 0, fmt.Errorf("configuring detection: %w", err)
	}
	if svc.Detectors() == "" {
		return nil, 0, errors.New("no detector configured: set FACE_DETECTOR_URL and/or OBJECT_DETECTOR")
	}
	return svc, workers, nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	asJSON := mustGetBool(cmd, "json")

	svc, workers, err := newDetectService(ctx, cmd, !mustGetBool(cmd, "no-cache"))
	if err != nil {
		return err
	}
	defer closeRegionStore()

	ids := make([]string, len(args))
	for i, path := range args {
		ids[i] = photoIDFromPath(path)
	}

	results := detectFiles(ctx, svc, args, ids, workers, !asJSON)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			fmt.Printf("%s: error: %s\n", r.Path, r.Error)
			continue
		}
		cached := ""
		if r.Result.Cached {
			cached = " (cached)"
		}
		fmt.Printf("%s: %dx%d, %d regions%s\n", r.Path, r.Result.Width, r.Result.Height, len(r.Result.Regions), cached)
		for _, region := range r.Result.Regions {
			fmt.Printf("  %-6s score %.2f  x=%.0f y=%.0f w=%.0f h=%.0f\n",
				region.Kind, region.Score, region.Box.X, region.Box.Y, region.Box.W, region.Box.H)
		}
	}

	printSummary(len(results)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(results))
	}
	return nil
}
