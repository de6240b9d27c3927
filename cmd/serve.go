package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"videosum/internal/app"
	"videosum/internal/auth"
	"videosum/internal/metrics"
	"videosum/internal/server"
	"videosum/pkg/config"
)

var (
	serveAddr string
	serveOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	Long: `Serve the upload page, the Google login flow and the JSON API that
issues signed URLs and publishes summary requests.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveOpen, "open", false, "Open the upload page in a browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service, err := app.BuildService(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			slog.Warn("Failed to release clients", "error", err)
		}
	}()

	srv, err := server.New(server.Options{
		Config:   cfg,
		Pipeline: service.Pipeline(),
		Tokens:   auth.NewTokenManager(cfg.APISecretKey),
		OAuth: auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.Auth.RedirectURL,
		}),
		Metrics:  m,
		Gatherer: reg,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		slog.Warn("Google OAuth is not configured, logins will fail", "hint", "set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}

	if serveOpen {
		go openWhenReady(ctx, cfg.Server.BaseURL)
	}

	return srv.Run(ctx)
}

func openWhenReady(ctx context.Context, url string) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(500 * time.Millisecond):
	}
	if err := browser.OpenURL(url); err != nil {
		slog.Warn("Could not open browser", "url", url, "error", err)
	}
}
