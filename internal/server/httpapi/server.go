package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/logging"
	"github.com/dmitrijs2005/demoauth/internal/server/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

// NewRouter mounts the auth routes and /metrics, wrapped in CORS handling
// that allows credentials from the configured origins.
func NewRouter(h *AuthHandler, cfg RouterConfig) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), cfg.Metrics.GinMiddleware())

	api := r.Group("/api/auth")
	api.POST("/login", h.Login)
	api.POST("/refresh-token", h.RefreshToken)
	api.POST("/logout", h.Logout)
	api.GET("/me", h.RequireAccessToken(), h.Me)

	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return corsHandler.Handler(r)
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, handler http.Handler, l logging.Logger) *Server {
	if l == nil {
		l = logging.Nop{}
	}
	return &Server{address: address, handler: handler, logger: l.With("module", "http_server")}
}

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l and shuts down gracefully on ctx.Done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", l.Addr().String())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
