package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pic2nav/snapsync/internal/connectivity"
	"github.com/pic2nav/snapsync/internal/handlers"
	"github.com/pic2nav/snapsync/internal/pipeline"
	"github.com/pic2nav/snapsync/internal/recog"
	"github.com/pic2nav/snapsync/internal/store"
)

func init() {
	var (
		port      string
		uploadDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the snapsync HTTP API",
		Long: `Starts the snapsync API on the specified port.

Companion apps submit captures to /api/submit and browse history and the
pending queue. A background connectivity prober drains the queue whenever
the recognition service becomes reachable again.`,
		Example: `  # Start server on default port 8787
  snapsync serve

  # Start server on custom port
  snapsync serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			db, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			reg := prometheus.NewRegistry()
			prober := connectivity.NewProber(cfg.ProbeURL, cfg.ProbeInterval, slog.Default())

			pipe, err := pipeline.New(cmd.Context(), pipeline.Options{
				Config:       cfg,
				Store:        db,
				Client:       recog.NewHTTPClient(cfg.RecognizerURL, cfg.RemoteTimeout),
				Connectivity: prober,
				Metrics:      pipeline.NewMetrics(reg),
			})
			if err != nil {
				return err
			}

			proberCtx, stopProber := context.WithCancel(cmd.Context())
			defer stopProber()
			go prober.Run(proberCtx)

			if uploadDir == "" {
				uploadDir = filepath.Join(filepath.Dir(cfg.DBPath), "uploads")
			}
			handler := handlers.New(pipe, uploadDir, slog.Default())

			mux := http.NewServeMux()
			mux.HandleFunc("/api/submit", handler.HandleSubmit)
			mux.HandleFunc("/api/history", handler.HandleHistory)
			mux.HandleFunc("/api/queue", handler.HandleQueue)
			mux.HandleFunc("/api/queue/drain", handler.HandleDrain)
			mux.HandleFunc("/api/cache", handler.HandleCache)
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("snapsync API listening", "addr", addr, "db", cfg.DBPath)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8787", "Port to listen on")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "", "Directory for submitted images (default: next to the database)")

	RootCmd.AddCommand(cmd)
}
