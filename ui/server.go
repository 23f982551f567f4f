// Package ui is the JSON API surface. It translates HTTP requests into
// service calls and domain errors into status codes; no business logic
// lives here.
package ui

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"retailpulse/app"
)

// Server is the public API server.
type Server struct {
	router    *gin.Engine
	analytics *app.AnalyticsService
	forecasts *app.ForecastService
	reports   *app.ReportService

	httpServer *http.Server
}

// Config holds server settings.
type Config struct {
	Port    string
	GinMode string
}

// NewServer creates the API server and wires its routes.
func NewServer(cfg Config, analytics *app.AnalyticsService, forecasts *app.ForecastService, reports *app.ReportService) *Server {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())

	s := &Server{
		router:    router,
		analytics: analytics,
		forecasts: forecasts,
		reports:   reports,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	api.GET("/datasets", s.handleListDatasets)
	api.GET("/datasets/:id", s.handleDatasetInfo)
	api.GET("/datasets/:id/kpis", s.handleKpis)
	api.GET("/datasets/:id/breakdown", s.handleBreakdown)
	api.GET("/datasets/:id/stores/top", s.handleTopStores)
	api.GET("/datasets/:id/rotation", s.handleRotation)
	api.GET("/datasets/:id/margins", s.handleMargins)
	api.GET("/datasets/:id/transfers", s.handleSalesVsTransfers)
	api.GET("/datasets/:id/report", s.handleReport)

	api.POST("/datasets/:id/forecast", s.handleRunForecast)
	api.GET("/datasets/:id/forecast/latest", s.handleLatestJob)
	api.GET("/datasets/:id/forecast/history", s.handleJobHistory)
	api.GET("/jobs/:jobId", s.handleGetJob)
}

// Run serves until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("component", "ui").Str("addr", s.httpServer.Addr).Msg("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("component", "ui").
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
