// Package http exposes the spending store over a JSON API.
// This is a thin adapter layer that translates HTTP requests to store calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/application/service"
	"github.com/workdeck/spending/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Exporter renders requests as a downloadable spreadsheet
type Exporter interface {
	Write(w io.Writer, requests []*entity.SpendingRequest) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	AllowedOrigins   []string
	MaxReceiptBytes  int64
	ReceiptURLPrefix string
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:             "0.0.0.0",
		Port:             8080,
		ReadTimeout:      30 * time.Second,
		WriteTimeout:     30 * time.Second,
		AllowedOrigins:   []string{"*"},
		MaxReceiptBytes:  10 << 20,
		ReceiptURLPrefix: "/receipts",
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server. exporter and receipts may be nil, which
// disables the export and receipt download routes.
func NewServer(
	config ServerConfig,
	store service.SpendingStore,
	exporter Exporter,
	receipts port.ReceiptStorage,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		handlers: NewHandlers(store, exporter, receipts, config.MaxReceiptBytes, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	if len(s.config.AllowedOrigins) == 0 || (len(s.config.AllowedOrigins) == 1 && s.config.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.AllowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "If-Match"}
	corsConfig.ExposeHeaders = []string{"ETag", "Content-Disposition"}
	s.router.Use(cors.New(corsConfig))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	if s.config.ReceiptURLPrefix != "" {
		s.router.GET(s.config.ReceiptURLPrefix+"/*path", h.DownloadReceipt)
	}

	api := s.router.Group("/api")
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/me", h.GetCurrentUser)
		api.GET("/reference", h.GetReference)

		// Requests
		api.GET("/requests", h.ListRequests)
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/export", h.ExportRequests)
		api.POST("/requests/bulk-approve", h.BulkApprove)
		api.GET("/requests/:id", h.GetRequest)
		api.PATCH("/requests/:id", h.UpdateRequest)
		api.DELETE("/requests/:id", h.DeleteRequest)
		api.GET("/requests/:id/history", h.GetHistory)

		// Lifecycle
		api.POST("/requests/:id/submit", h.Submit)
		api.POST("/requests/:id/approve", h.Approve)
		api.POST("/requests/:id/deny", h.Deny)
		api.POST("/requests/:id/start-processing", h.StartProcessing)
		api.POST("/requests/:id/mark-ordered", h.MarkOrdered)
		api.POST("/requests/:id/mark-received", h.MarkReceived)
		api.POST("/requests/:id/mark-finalized", h.MarkFinalized)
		api.POST("/requests/:id/reopen", h.Reopen)

		// Line items
		api.POST("/requests/:id/items", h.AddLineItem)
		api.PATCH("/requests/:id/items/:itemId", h.UpdateLineItem)
		api.DELETE("/requests/:id/items/:itemId", h.DeleteLineItem)
		api.POST("/requests/:id/items/:itemId/receipt", h.AttachReceipt)

		// Views
		api.GET("/approvals/pending", h.PendingApprovals)
		api.GET("/processing/:type", h.ProcessingQueue)

		// Suppliers
		api.GET("/suppliers", h.ListSuppliers)
		api.POST("/suppliers", h.AddSupplier)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
