// Package httpapi exposes the orchestrator over HTTP, matching spec.md
// §6's route table with `labstack/echo/v4`, the teacher's transitive
// dependency promoted to a direct HTTP framework since the teacher's own
// binary is a desktop app with no HTTP surface of its own.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"media-dubber/internal/config"
	"media-dubber/internal/diagnostics"
	"media-dubber/internal/orchestrator"
	"media-dubber/internal/tts"
)

// Server bundles the collaborators every handler needs.
type Server struct {
	Orchestrator *orchestrator.Orchestrator
	TTS          *tts.Registry
	Diagnostics  *diagnostics.Checker
	Settings     config.Settings
	Version      string
	Logger       *slog.Logger
}

// New builds an echo instance with every route from spec.md §6 wired to
// s's handlers, plus recovery and request-id middleware the way a
// production echo service configures them.
func New(s *Server) *echo.Echo {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.logRequests)
	e.HTTPErrorHandler = s.handleError

	e.GET("/health", s.handleHealth)

	v1 := e.Group("/v1")
	v1.POST("/transcribe", s.handleTranscribe)
	v1.POST("/translate", s.handleTranslate)
	v1.POST("/synthesize", s.handleSynthesize)
	v1.POST("/dub", s.handleDub)
	v1.GET("/jobs", s.handleListJobs)
	v1.GET("/jobs/:id", s.handleJobStatus)
	v1.GET("/jobs/:id/artifact", s.handleFetchArtifact)
	v1.DELETE("/jobs/:id", s.handleDeleteJob)
	v1.POST("/jobs/:id/cancel", s.handleCancelJob)
	v1.GET("/tts-providers", s.handleListProviders)
	v1.GET("/tts-providers/:id/voices", s.handleListVoices)
	v1.GET("/tts-cost-comparison", s.handleCostComparison)

	return e
}

func (s *Server) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.Logger.Info("request",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return err
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	report := s.Diagnostics.Run(s.Settings)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          healthStatus(report.HasFailures),
		"version":         s.Version,
		"providers_ready": !report.HasFailures,
	})
}

func healthStatus(hasFailures bool) string {
	if hasFailures {
		return "degraded"
	}
	return "ok"
}
