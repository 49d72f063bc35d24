// Package server assembles the HTTP surface: middleware, public and
// authenticated route groups, health and metrics endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/admin"
	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/internal/listings"
	"github.com/gigbridge/gigbridge/internal/notification"
	"github.com/gigbridge/gigbridge/internal/orders"
	"github.com/gigbridge/gigbridge/internal/wallet"
	"github.com/gigbridge/gigbridge/pkg/validation"
)

// Server represents the HTTP server.
type Server struct {
	logger        *zap.Logger
	authSvc       *auth.Service
	authH         *auth.Handler
	listingsH     *listings.Handler
	ordersH       *orders.Handler
	walletH       *wallet.Handler
	adminH        *admin.Handler
	notificationH *notification.Handler

	httpServer *http.Server
}

// NewServer creates a new HTTP server over the assembled handlers.
func NewServer(
	logger *zap.Logger,
	authSvc *auth.Service,
	authH *auth.Handler,
	listingsH *listings.Handler,
	ordersH *orders.Handler,
	walletH *wallet.Handler,
	adminH *admin.Handler,
	notificationH *notification.Handler,
) *Server {
	return &Server{
		logger:        logger,
		authSvc:       authSvc,
		authH:         authH,
		listingsH:     listingsH,
		ordersH:       ordersH,
		walletH:       walletH,
		adminH:        adminH,
		notificationH: notificationH,
	}
}

// Router creates the HTTP router.
func (s *Server) Router() *gin.Engine {
	validation.Register()

	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(cors.Default())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Public endpoints.
	auth.Routes(v1, s.authH)

	// Everything else needs a valid session.
	authed := v1.Group("", auth.Middleware(s.authSvc))
	listings.Routes(authed, s.listingsH)
	orders.Routes(authed, s.ordersH)
	wallet.Routes(authed, s.walletH)
	admin.Routes(authed, s.adminH)
	notification.Routes(authed, s.notificationH)

	return router
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
