package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/amoylab/rowgate/internal/apiserver/database"
	"github.com/amoylab/rowgate/internal/apiserver/handler"
	"github.com/amoylab/rowgate/internal/apiserver/middleware"
	"github.com/amoylab/rowgate/internal/apiserver/notifier"
	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/internal/common/errorx"
	"github.com/amoylab/rowgate/internal/console"
	"github.com/amoylab/rowgate/internal/gateway"
	"github.com/amoylab/rowgate/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Server is the rowgate HTTP server
type Server struct {
	logger     *zap.Logger
	cfg        *config.RowGateConfig
	router     *gin.Engine
	httpServer *http.Server
	errHandler *errorx.ErrorHandler
}

// NewServer wires the gateway and the admin console onto a gin router.
// m may be nil when metrics are disabled.
func NewServer(logger *zap.Logger, cfg *config.RowGateConfig, db database.Database, n notifier.Notifier, m *metrics.Metrics) *Server {
	s := &Server{
		logger:     logger.Named("server"),
		cfg:        cfg,
		router:     gin.New(),
		errHandler: errorx.NewErrorHandler(logger.Named("errors")),
	}

	s.router.HandleMethodNotAllowed = true
	s.router.Use(s.errHandler.RecoveryMiddleware())
	s.router.Use(otelgin.Middleware(cnst.AppName))
	if m != nil {
		s.router.Use(m.Middleware())
	}
	s.router.Use(middleware.RequestLogger(logger))
	s.router.Use(middleware.CORS(&cfg.CORS))
	s.router.Use(s.errHandler.ErrorMiddleware())

	gw := gateway.New(db, cfg.Gateway, logger, gateway.WithMetrics(m))
	con := console.New(db, logger, console.WithNotifier(n), console.WithMetrics(m))
	h := handler.New(gw, con, s.errHandler, logger)

	api := s.router.Group("/api")
	api.GET("/query", h.HandleQuery)
	api.POST("/query", h.HandleQuery)
	api.GET("/ping", h.HandlePing)
	api.POST("/admin", middleware.AdminSecretMiddleware(cfg.AdminSecret, logger, s.errHandler), h.HandleAdmin)

	if m != nil && cfg.Metrics.Enabled {
		s.router.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	s.router.NoMethod(func(c *gin.Context) {
		s.errHandler.HandleError(c, errorx.ErrMethodNotAllowed.
			WithMessage("Method %s not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})
	s.router.NoRoute(func(c *gin.Context) {
		s.errHandler.HandleError(c, errorx.NotFoundError("endpoint", c.Request.URL.Path))
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background. The returned channel receives the error
// that stopped the listener, such as a port already in use, and is closed
// once serving ends.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// ListenAndServe blocks until the server stops. A graceful shutdown is
// not reported as an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("rowgate listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}
