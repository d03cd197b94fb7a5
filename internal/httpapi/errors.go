package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"media-dubber/internal/domain"
	"media-dubber/internal/jobs"
)

// errorResponse is the JSON body every non-2xx response carries.
type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// handleError maps domain and registry errors onto HTTP status codes,
// keeping every handler free of status-code decisions.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if werr := c.JSON(status, body); werr != nil {
		s.Logger.Error("failed to write error response", "error", werr)
	}
}

func classify(err error) (int, errorResponse) {
	var jobErr *domain.JobError
	if errors.As(err, &jobErr) {
		return statusForKind(jobErr.Kind), errorResponse{Kind: string(jobErr.Kind), Message: jobErr.Error()}
	}
	if errors.Is(err, jobs.ErrNotFound) {
		return http.StatusNotFound, errorResponse{Kind: string(domain.ErrNotFound), Message: err.Error()}
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, errorResponse{Kind: "InvalidRequest", Message: http.StatusText(httpErr.Code)}
	}
	return http.StatusInternalServerError, errorResponse{Kind: string(domain.ErrInternal), Message: err.Error()}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrInvalidRequest:
		return http.StatusBadRequest
	case domain.ErrNotFound, domain.ErrArtifactNotReady:
		return http.StatusNotFound
	case domain.ErrUnsupportedLang, domain.ErrVoiceNotFound:
		return http.StatusUnprocessableEntity
	case domain.ErrBudgetExceeded:
		return http.StatusPaymentRequired
	case domain.ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.ErrCancelled:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
