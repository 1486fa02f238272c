package server

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lessonmark/lessonmark/internal/config"
	"github.com/lessonmark/lessonmark/internal/content"
	"github.com/lessonmark/lessonmark/internal/identity"
	lmtls "github.com/lessonmark/lessonmark/internal/tls"
	"github.com/lessonmark/lessonmark/internal/version"
	"github.com/lessonmark/lessonmark/pkg/renderer"
)

const (
	maxBodySize     = 4 * 1024 * 1024 // 4 MiB
	shutdownTimeout = 10 * time.Second
)

// Identity signs learners in and out. It is satisfied by *identity.Provider.
type Identity interface {
	SignIn(ctx context.Context, provider, subject string) (string, *identity.Session, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (*identity.Session, error)
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithTraceWriter sets where spans are exported when tracing is enabled.
func WithTraceWriter(w io.Writer) Option {
	return func(s *Server) {
		s.traceWriter = w
	}
}

type Server struct {
	renderer *renderer.Renderer
	store    content.Store
	identity Identity

	lis        net.Listener
	httpServer *http.Server
	tracing    *tracing
	logger     *zap.Logger

	traceWriter io.Writer
}

func New(
	c config.ServerConfig,
	r *renderer.Renderer,
	store content.Store,
	ids Identity,
	opts ...Option,
) (_ *Server, err error) {
	s := &Server{
		renderer:    r,
		store:       store,
		identity:    ids,
		logger:      zap.NewNop(),
		traceWriter: os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.tracing, err = newTracing(c.Tracing, s.traceWriter)
	if err != nil {
		return nil, err
	}

	addr := c.Address
	protocol := "tcp"

	if strings.HasPrefix(addr, "unix://") {
		protocol = "unix"
		addr = strings.TrimPrefix(addr, "unix://")

		if _, err := os.Stat(addr); !os.IsNotExist(err) {
			return nil, errors.Errorf("socket %q already exists", addr)
		}
	}

	var tlsConfig *tls.Config
	if c.TLS.Enabled {
		tlsConfig, err = lmtls.LoadOrGenerateConfig(c.TLS.CertFile, c.TLS.KeyFile, s.logger)
		if err != nil {
			return nil, err
		}
	}

	if tlsConfig == nil {
		s.lis, err = net.Listen(protocol, addr)
	} else {
		s.lis, err = tls.Listen(protocol, addr, tlsConfig)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("server listening", zap.String("address", s.Addr()), zap.Bool("tracing", c.Tracing), zap.Bool("tls", c.TLS.Enabled))

	return s, nil
}

func (s *Server) Addr() string {
	return s.lis.Addr().String()
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.lis)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.WithStack(err)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if tErr := s.tracing.shutdown(ctx); err == nil {
		err = tErr
	}
	return errors.WithStack(err)
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(s.Serve)
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.tracing.middleware(), requestLogger(s.logger))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})

	api := engine.Group("/api")
	api.POST("/render", s.handleRender)
	api.GET("/courses", s.handleCourses)
	api.GET("/courses/:slug", s.handleCourse)
	api.GET("/courses/:slug/units/:unit", s.handleLesson)

	api.POST("/session", s.handleSignIn)
	authed := api.Group("/session", requireSession(s.identity))
	authed.GET("", s.handleSession)
	authed.DELETE("", s.handleSignOut)

	return engine
}
