package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"blogflow/backend/internal/workflow"
	"blogflow/backend/pkg/models"
)

// runError carries the partial result of a step run next to its error so the
// problem response can include the generated text.
type runError struct {
	result *workflow.RunResult
	err    error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// classify maps an error to its HTTP status and problem title.
func classify(err error) (int, string) {
	var (
		httpErr       *echo.HTTPError
		stepNotFound  *models.StepNotFoundError
		noMapping     *models.MappingNotFoundError
		llmErr        *models.LLMRequestError
		columnErr     *models.ColumnError
		notFound      *models.NotFoundError
		validationErr *models.ValidationError
		transitionErr *models.InvalidTransitionError
		conflictErr   *models.ConflictError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, http.StatusText(httpErr.Code)
	case errors.As(err, &stepNotFound):
		return http.StatusNotFound, "Workflow Step Not Found"
	case errors.As(err, &noMapping):
		return http.StatusInternalServerError, "Field Mapping Not Found"
	case errors.As(err, &llmErr):
		return http.StatusBadGateway, "LLM Request Failed"
	case errors.As(err, &columnErr):
		return http.StatusUnprocessableEntity, "Invalid Column"
	case errors.As(err, &notFound):
		return http.StatusNotFound, "Not Found"
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, "Bad Request"
	case errors.As(err, &transitionErr), errors.As(err, &conflictErr):
		return http.StatusConflict, "Conflict"
	}
	return http.StatusInternalServerError, "Internal Server Error"
}

// HTTPErrorHandler renders every error returned by a handler as an RFC 7807
// problem.
func (s *Server) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, title := classify(err)
	problem := models.ProblemDetails{
		Title:    title,
		Status:   status,
		Detail:   err.Error(),
		Instance: c.Request().URL.Path,
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			problem.Detail = msg
		}
	}
	if sc := trace.SpanContextFromContext(c.Request().Context()); sc.HasTraceID() {
		problem.TraceID = sc.TraceID().String()
	}
	var re *runError
	if errors.As(err, &re) && re.result != nil {
		problem.RunID = re.result.RunID
		if workflow.IsWritePhase(re.err) {
			problem.GeneratedText = re.result.RawResponse
		}
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", problem.Instance, "status", status, "error", err)
	}
	writeProblem(c.Response(), problem)
}
