package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-io/veil/internal/config"
	"github.com/veil-io/veil/internal/dataset"
	"github.com/veil-io/veil/internal/detect"
	"github.com/veil-io/veil/internal/model"
	"github.com/veil-io/veil/internal/server"
	"github.com/veil-io/veil/internal/service"
)

var (
	servePort        int
	serveRetrainCron string
	serveGlobalRPM   int
	serveCallerRPM   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the redaction HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP server port (default: configured port)")
	serveCmd.Flags().StringVar(&serveRetrainCron, "retrain-cron", "", "cron spec for periodic retraining from the corpus (optional)")
	serveCmd.Flags().IntVar(&serveGlobalRPM, "global-rpm", 600, "total requests/minute across all callers")
	serveCmd.Flags().IntVar(&serveCallerRPM, "caller-rpm", 120, "requests/minute per caller")
	rootCmd.AddCommand(serveCmd)
}

// parseAPIKeys splits the comma-separated VEIL_API_KEYS value.
func parseAPIKeys(env string) []string {
	var keys []string
	for _, part := range strings.Split(env, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	detector, err := detect.NewDetector(detect.WithModelPath(cfg.ModelPath))
	if err != nil {
		return fmt.Errorf("building detector: %w", err)
	}
	svc := service.New(detector)

	opts := []server.Option{
		server.WithRateLimiter(server.NewRateLimiter(serveGlobalRPM, serveCallerRPM)),
	}
	if keys := parseAPIKeys(cfg.APIKeys); len(keys) > 0 {
		opts = append(opts, server.WithAPIKeys(keys))
	}
	srv := server.NewServer(svc, opts...)

	port := servePort
	if port == 0 {
		port = cfg.Port
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Scheduled retraining refreshes the artifact on disk for the next
	// process start; the running detector's mode is fixed for its lifetime.
	var scheduler *cron.Cron
	if serveRetrainCron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(serveRetrainCron, func() { retrain(context.Background(), cfg) })
		if err != nil {
			return fmt.Errorf("invalid retrain cron spec %q: %w", serveRetrainCron, err)
		}
		scheduler.Start()
		log.Info().Str("cron", serveRetrainCron).Msg("scheduled periodic retraining")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", port).Str("detector_mode", detector.Mode().String()).Msg("redaction server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// retrain rebuilds the dataset from the configured corpus and trains a fresh
// artifact. Failures are logged, never fatal to the serving process.
func retrain(ctx context.Context, cfg *config.Config) {
	records, err := dataset.LoadCorpus(cfg.CorpusPath)
	if err != nil {
		log.Warn().Err(err).Msg("retrain skipped: corpus unavailable")
		return
	}
	if cfg.StripHTML {
		records = dataset.StripHTML(records)
	}
	builder, err := dataset.NewBuilder()
	if err != nil {
		log.Error().Err(err).Msg("retrain failed: builder")
		return
	}
	examples := builder.Build(ctx, records)

	trainer := &model.LexiconTrainer{OutputDir: cfg.ModelPath}
	handle, err := trainer.Train(ctx, examples)
	if err != nil {
		log.Error().Err(err).Msg("retrain failed: trainer")
		return
	}
	log.Info().Str("model_dir", handle.Dir).Msg("retrained model artifact; restart to load it")
}
