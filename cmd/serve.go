package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-collage/internal/collage"
	"github.com/kozaktomas/photo-collage/internal/detect"
	"github.com/kozaktomas/photo-collage/internal/logging"
	"github.com/kozaktomas/photo-collage/internal/web"
	"github.com/kozaktomas/photo-collage/internal/web/handlers"
	"github.com/kozaktomas/photo-collage/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Collage web server.
The server exposes the layout engine over a JSON API, runs layouts on a
dedicated worker, and detects keep-regions in uploaded photos.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT, default 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST, default 0.0.0.0)")
	serveCmd.Flags().Bool("no-detect", false, "Disable the keep-region detection endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}

	logger := logging.NewFromString(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	layoutWorker := worker.New(collage.NewEngine(cfg.Layout, logger), cfg.Web.QueueSize, logger)
	layoutWorker.Start(ctx)
	defer layoutWorker.Stop()

	var detector handlers.Detector
	if !mustGetBool(cmd, "no-detect") {
		store, err := openRegionStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeRegionStore()

		svc, err := detect.NewServiceFromConfig(ctx, cfg, store, logger)
		if err != nil {
			return fmt.Errorf("configuring detection: %w", err)
		}
		logger.Info("keep-region detection enabled", "detectors", svc.Detectors())
		detector = svc
	}

	server := web.NewServer(cfg, layoutWorker, detector, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "err", err)
		}
	}()

	fmt.Printf("Starting Photo Collage API on http://%s:%d/api/v1\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
