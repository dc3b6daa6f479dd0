package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/capgo/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition HTTP API server",
	Long: `Start an HTTP server that provides recognition API endpoints.

The server provides the following endpoints:
  POST /recognize - Recognize an uploaded CAPTCHA image
  GET  /healthz   - Health check endpoint
  GET  /vocab     - Loaded character set
  GET  /metrics   - Prometheus metrics
  WS   /ws/batch  - Streaming batch recognition

Examples:
  capgo serve
  capgo serve --port 8080
  capgo serve --host 0.0.0.0 --port 3000 --requests-per-minute 120`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host, _ = cmd.Flags().GetString("host")
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", port)
		}

		corsOrigin, _ := cmd.Flags().GetString("cors-origin")

		maxUpload := cfg.Server.MaxUploadBytes
		if cmd.Flags().Changed("max-upload-bytes") {
			maxUpload, _ = cmd.Flags().GetInt64("max-upload-bytes")
		}
		timeout := cfg.Server.TimeoutSeconds
		if cmd.Flags().Changed("timeout") {
			timeout, _ = cmd.Flags().GetInt("timeout")
		}
		shutdownTimeout, _ := cmd.Flags().GetInt("shutdown-timeout")

		recCfg, err := recognizerConfigFromFlags(cmd)
		if err != nil {
			return err
		}

		serverConfig := server.Config{
			Host:             host,
			Port:             port,
			CORSOrigin:       corsOrigin,
			MaxUploadBytes:   maxUpload,
			TimeoutSec:       timeout,
			RecognizerConfig: recCfg,
		}

		if rpm, _ := cmd.Flags().GetInt("requests-per-minute"); rpm > 0 {
			maxData, _ := cmd.Flags().GetInt64("max-data-per-day")
			serverConfig.RateLimit = &server.RateLimitConfig{
				RequestsPerMinute: rpm,
				MaxDataPerDay:     maxData,
			}
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		capgoServer, err := server.NewServer(serverConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize server: %w", err)
		}
		defer func() { _ = capgoServer.Close() }()

		mux := http.NewServeMux()
		capgoServer.SetupRoutes(mux)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       time.Duration(timeout) * time.Second,
			WriteTimeout:      time.Duration(timeout) * time.Second,
		}

		go func() {
			slog.Info("Starting recognition server", "host", host, "port", port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
			time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		slog.Info("Server stopped")
		return nil
	},
}

func init() {
	addRecognizerFlags(serveCmd)
	serveCmd.Flags().String("host", "localhost", "host to bind the server to")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	serveCmd.Flags().Int64("max-upload-bytes", 8<<20, "maximum upload size in bytes")
	serveCmd.Flags().Int("timeout", 30, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	serveCmd.Flags().Int("requests-per-minute", 0, "per-client request rate limit (0 = disabled)")
	serveCmd.Flags().Int64("max-data-per-day", 0, "per-client daily upload quota in bytes (0 = disabled)")
	rootCmd.AddCommand(serveCmd)
}
