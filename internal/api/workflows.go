// Package api contains the HTTP handlers for the blog workflow service
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"blogflow/backend/internal/auth"
	"blogflow/backend/internal/logging"
	"blogflow/backend/internal/services"
	"blogflow/backend/internal/workflow"
	"blogflow/backend/pkg/models"
)

// WorkflowReader reads the workflow hierarchy.
type WorkflowReader interface {
	WorkflowTree(ctx context.Context) ([]*models.WorkflowStage, error)
}

// StepRunner resolves and executes workflow steps.
type StepRunner interface {
	Resolve(ctx context.Context, ref workflow.StepRef) (*models.WorkflowStep, workflow.Binding, error)
	Run(ctx context.Context, req workflow.RunRequest) (*workflow.RunResult, error)
	WriteResult(ctx context.Context, req workflow.RunRequest, text string) (*workflow.RunResult, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	Workflow WorkflowReader
	Engine   StepRunner
	Posts    PostManager
	LLM      LLMConfigStore
	Services *services.ServiceDirectory
	logger   *logging.Logger
}

// NewServer creates a new Server.
func NewServer(wf WorkflowReader, engine StepRunner, posts PostManager, llm LLMConfigStore, dir *services.ServiceDirectory, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{Workflow: wf, Engine: engine, Posts: posts, LLM: llm, Services: dir, logger: logger}
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, &models.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}

// GetWorkflow returns the full stage/substage/step tree
// (GET /api/v1/workflow)
func (s *Server) GetWorkflow(c echo.Context) error {
	tree, err := s.Workflow.WorkflowTree(c.Request().Context())
	if err != nil {
		return err
	}
	if tree == nil {
		tree = []*models.WorkflowStage{}
	}
	return c.JSON(http.StatusOK, tree)
}

// GetStep returns one step
// (GET /api/v1/workflow/steps/{id})
func (s *Server) GetStep(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	step, _, err := s.Engine.Resolve(c.Request().Context(), workflow.StepRef{ID: id})
	if step == nil {
		return err
	}
	return c.JSON(http.StatusOK, step)
}

// GetStepMapping returns the resolved input and output bindings of a step
// (GET /api/v1/workflow/steps/{id}/mapping)
func (s *Server) GetStepMapping(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	_, binding, err := s.Engine.Resolve(c.Request().Context(), workflow.StepRef{ID: id})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, binding)
}

type runStepRequest struct {
	SectionID   *int64   `json:"section_id"`
	Stage       string   `json:"stage"`
	SubStage    string   `json:"sub_stage"`
	Step        string   `json:"step"`
	Provider    string   `json:"provider"`
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	// Text is only used when storing an already generated result.
	Text string `json:"text"`
}

func (r runStepRequest) toRunRequest(c echo.Context, postID int64, ref workflow.StepRef) workflow.RunRequest {
	return workflow.RunRequest{
		PostID:      postID,
		SectionID:   r.SectionID,
		Step:        ref,
		Provider:    r.Provider,
		Model:       r.Model,
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
		TriggeredBy: auth.EditorFromContext(c.Request().Context()),
	}
}

func bindRun(c echo.Context) (runStepRequest, error) {
	var body runStepRequest
	if err := c.Bind(&body); err != nil {
		return body, &models.ValidationError{Reason: "invalid request body: " + err.Error()}
	}
	if body.MaxTokens < 0 {
		return body, &models.ValidationError{Field: "max_tokens", Reason: "must be positive"}
	}
	return body, nil
}

// RunStep executes a step by id for a post
// (POST /api/v1/posts/{id}/steps/{stepId}/run)
func (s *Server) RunStep(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	stepID, err := pathID(c, "stepId")
	if err != nil {
		return err
	}
	body, err := bindRun(c)
	if err != nil {
		return err
	}
	return s.run(c, body.toRunRequest(c, postID, workflow.StepRef{ID: stepID}))
}

// RunStepByPath executes a step named by stage, substage and step
// (POST /api/v1/posts/{id}/steps/run)
func (s *Server) RunStepByPath(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	body, err := bindRun(c)
	if err != nil {
		return err
	}
	ref := workflow.StepRef{Stage: body.Stage, SubStage: body.SubStage, Step: body.Step}
	return s.run(c, body.toRunRequest(c, postID, ref))
}

func (s *Server) run(c echo.Context, req workflow.RunRequest) error {
	res, err := s.Engine.Run(c.Request().Context(), req)
	if err != nil {
		return &runError{result: res, err: err}
	}
	return c.JSON(http.StatusOK, res)
}

// SaveStepResult stores text generated by an earlier run whose write failed
// (POST /api/v1/posts/{id}/steps/{stepId}/result)
func (s *Server) SaveStepResult(c echo.Context) error {
	postID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	stepID, err := pathID(c, "stepId")
	if err != nil {
		return err
	}
	body, err := bindRun(c)
	if err != nil {
		return err
	}
	if body.Text == "" {
		return &models.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	res, err := s.Engine.WriteResult(c.Request().Context(), body.toRunRequest(c, postID, workflow.StepRef{ID: stepID}), body.Text)
	if err != nil {
		return &runError{result: res, err: err}
	}
	return c.JSON(http.StatusOK, res)
}

// ListServices returns the configured sibling services
// (GET /api/v1/services)
func (s *Server) ListServices(c echo.Context) error {
	if s.Services == nil {
		return c.JSON(http.StatusOK, []services.ServiceEndpoint{})
	}
	return c.JSON(http.StatusOK, s.Services.Endpoints())
}
