// Package server exposes the upload pipeline and the Google login flow over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"videosum/internal/app"
	"videosum/internal/auth"
	"videosum/internal/metrics"
	"videosum/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// OAuthProvider is the part of auth.GoogleProvider the login flow needs.
type OAuthProvider interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (auth.UserInfo, error)
}

type Options struct {
	Config   *config.Config
	Pipeline *app.Pipeline
	Tokens   *auth.TokenManager
	OAuth    OAuthProvider
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

type Server struct {
	engine *gin.Engine
	cfg    *config.Config
}

func New(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Pipeline == nil || opts.Tokens == nil || opts.OAuth == nil {
		return nil, errors.New("server: config, pipeline, tokens and oauth provider are required")
	}
	cfg := opts.Config

	tmpl, err := template.New("").ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	actions, err := loadDashboardActions()
	if err != nil {
		return nil, err
	}

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(Prometheus(opts.Metrics))
	engine.Use(MaxBodySize(cfg.Server.MaxBodyMB << 20))
	engine.Use(CORS(cfg.Server.CORSOrigins))
	engine.SetHTMLTemplate(tmpl)
	engine.StaticFS("/static", http.FS(static))

	api := &API{
		cfg:      cfg,
		pipeline: opts.Pipeline,
		tokens:   opts.Tokens,
		oauth:    opts.OAuth,
		actions:  actions,
		gatherer: gatherer,
		limiter:  newRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst),
	}
	registerRoutes(engine, api)

	return &Server{engine: engine, cfg: cfg}, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", s.cfg.Server.Addr, "url", s.cfg.Server.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
