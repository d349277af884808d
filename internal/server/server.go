// Package server exposes the UniPod HTTP API: account registration and login,
// authenticated podcast generation from uploaded PDFs, and listing of
// previously generated episodes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unipodhq/unipod/internal/health"
	"github.com/unipodhq/unipod/internal/observe"
	"github.com/unipodhq/unipod/internal/pipeline"
	"github.com/unipodhq/unipod/internal/store"
)

// defaultMaxUploadBytes caps a podcast creation request body (PDF plus
// optional voice samples).
const defaultMaxUploadBytes = 64 << 20

// Config holds the server's network and auth settings.
type Config struct {
	// ListenAddr is the TCP address to serve on (e.g., ":8080").
	ListenAddr string

	// JWTSecret signs session tokens. Required.
	JWTSecret string

	// TokenTTL is the session token lifetime. Zero means 24h.
	TokenTTL time.Duration

	// Hosts are the two podcast host names in order. They map the
	// voice_host1/voice_host2 upload fields to voice profiles.
	Hosts [2]string

	// MaxUploadBytes caps the podcast creation request body.
	// Zero means 64 MiB.
	MaxUploadBytes int64

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

// Runner starts one podcast generation run. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Deps bundles the server's collaborators.
type Deps struct {
	Users    store.UserStore
	Podcasts store.PodcastStore
	Runner   Runner

	// Health is optional; when set, /healthz and /readyz are served.
	Health *health.Handler

	// Metrics is optional; when set, HTTP request metrics are recorded.
	Metrics *observe.Metrics
}

func (d Deps) validate() error {
	var errs []error
	if d.Users == nil {
		errs = append(errs, errors.New("user store is required"))
	}
	if d.Podcasts == nil {
		errs = append(errs, errors.New("podcast store is required"))
	}
	if d.Runner == nil {
		errs = append(errs, errors.New("pipeline runner is required"))
	}
	return errors.Join(errs...)
}

// Server is the UniPod HTTP API server.
type Server struct {
	cfg      Config
	engine   *gin.Engine
	http     *http.Server
	auth     *authenticator
	users    store.UserStore
	podcasts store.PodcastStore
	runner   Runner
}

// New creates a Server with all routes registered. It does not bind the
// listen address; call [Server.Start].
func New(cfg Config, deps Deps) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("server: jwt secret is required")
	}
	if cfg.Hosts[0] == "" || cfg.Hosts[1] == "" {
		return nil, errors.New("server: both host names are required")
	}
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		cfg:      cfg,
		engine:   engine,
		auth:     newAuthenticator(cfg.JWTSecret, cfg.TokenTTL),
		users:    deps.Users,
		podcasts: deps.Podcasts,
		runner:   deps.Runner,
	}
	s.routes(deps.Health)

	var handler http.Handler = engine
	if deps.Metrics != nil {
		handler = observe.Middleware(deps.Metrics)(handler)
	}
	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(h *health.Handler) {
	api := s.engine.Group("/api")
	api.POST("/register", s.handleRegister)
	api.POST("/login", s.handleLogin)

	authed := api.Group("", s.auth.middleware())
	authed.POST("/podcasts", s.handleCreatePodcast)
	authed.GET("/podcasts", s.handleListPodcasts)
	authed.GET("/podcasts/:id", s.handleGetPodcast)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if h != nil {
		s.engine.GET("/healthz", gin.WrapF(h.Healthz))
		s.engine.GET("/readyz", gin.WrapF(h.Readyz))
	}
}

// Handler returns the server's root HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start binds the listen address and begins serving. It returns once the
// listener is bound; serving continues in a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("server: bind %s: %w", s.http.Addr, err)
	}
	useTLS := s.cfg.CertFile != "" && s.cfg.KeyFile != ""
	slog.Info("http server listening", "addr", s.http.Addr, "tls", useTLS)

	go func() {
		var err error
		if useTLS {
			err = s.http.ServeTLS(listener, s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.http.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "err", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
