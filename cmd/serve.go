package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AnyUserName/stitch-cli/internal/httpapi"
	"github.com/AnyUserName/stitch-cli/internal/job"
)

var (
	serveAddr      string
	serveWorkers   int
	serveRetention time.Duration
	serveDev       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stitch job service over HTTP",
	Long: `Exposes the engine as a small job API:

  POST /v1/jobs              submit a multipart job (images + options)
  GET  /v1/jobs/{id}         job state and progress
  POST /v1/jobs/{id}/cancel  request cooperative cancellation
  GET  /v1/jobs/{id}/result  download the encoded composite

Finished jobs are kept for --retention and then evicted.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().IntVarP(&serveWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	serveCmd.Flags().DurationVar(&serveRetention, "retention", time.Hour, "how long finished jobs stay fetchable")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "human-readable console logs")
	rootCmd.AddCommand(serveCmd)
}

func newServeLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Logger()
	if serveDev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return logger
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := newServeLogger()

	runner := job.NewRunner(serveWorkers, logger)
	defer runner.Close()

	server := &http.Server{
		Addr:              serveAddr,
		Handler:           httpapi.NewRouter(runner, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Janitor: drop finished jobs past the retention window.
	janitorStop := make(chan struct{})
	defer close(janitorStop)
	interval := serveRetention / 4
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-janitorStop:
				return
			case <-ticker.C:
				if n := runner.Evict(serveRetention); n > 0 {
					logger.Debug().Int("evicted", n).Msg("dropped finished jobs")
				}
			}
		}
	}()

	go func() {
		logger.Info().Str("addr", serveAddr).Msg("stitch service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
	return nil
}
