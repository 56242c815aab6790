package workflow

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/llm"
	"blogflow/backend/internal/logging"
	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

// Store is the persistence the engine needs to run a step.
type Store interface {
	ColumnStore
	StepByID(ctx context.Context, id int64) (*models.WorkflowStep, error)
	StepByPath(ctx context.Context, stage, subStage, step string) (*models.WorkflowStep, error)
	GetLLMAction(ctx context.Context, id int64) (*models.LLMAction, error)
	RecordStepRun(ctx context.Context, run *models.StepRun) error
}

// Generator runs a prompt against a named provider.
type Generator interface {
	Generate(ctx context.Context, provider string, req llm.Request) (string, error)
}

// Recorder receives run and extraction outcomes.
type Recorder interface {
	StepRun(outcome string)
	Extraction(tier string)
}

type nopRecorder struct{}

func (nopRecorder) StepRun(string)    {}
func (nopRecorder) Extraction(string) {}

// Defaults are the call parameters used when neither the request nor the
// step's LLM action sets them.
type Defaults struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultsFromConfig takes the engine defaults from the llm section.
func DefaultsFromConfig(cfg config.LLMConfig) Defaults {
	return Defaults{
		Provider:    cfg.DefaultProvider,
		Model:       cfg.DefaultModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}

// StepRef identifies a step by id or by its stage/substage/step name path.
type StepRef struct {
	ID       int64  `json:"id,omitempty"`
	Stage    string `json:"stage,omitempty"`
	SubStage string `json:"sub_stage,omitempty"`
	Step     string `json:"step,omitempty"`
}

func (r StepRef) String() string {
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.Stage + "/" + r.SubStage + "/" + r.Step
}

// RunRequest asks for one step to be executed for a post.
type RunRequest struct {
	PostID      int64
	SectionID   *int64
	Step        StepRef
	Provider    string
	Model       string
	Temperature *float64
	MaxTokens   int
	TriggeredBy string
}

func (r RunRequest) key() models.RowKey {
	return models.RowKey{PostID: r.PostID, SectionID: r.SectionID}
}

// RunResult is what a run produced. It is returned alongside write-phase
// errors so that generated text is never lost.
type RunResult struct {
	RunID       string           `json:"run_id"`
	StepID      int64            `json:"step_id"`
	Binding     Binding          `json:"binding"`
	Provider    string           `json:"provider"`
	Model       string           `json:"model"`
	Prompt      string           `json:"prompt"`
	RawResponse string           `json:"raw_response"`
	Extracted   any              `json:"extracted,omitempty"`
	Structured  bool             `json:"structured"`
	Tier        string           `json:"extraction_tier"`
	StoredValue string           `json:"stored_value"`
	Key         models.RowKey    `json:"key"`
	Output      models.ColumnRef `json:"output"`
}

// Engine executes workflow steps: resolve the step and its mapping, fetch the
// inputs, build the prompt, call the model, extract and write the result.
type Engine struct {
	store     Store
	writer    *Writer
	generator Generator
	defaults  Defaults
	recorder  Recorder
	logger    *logging.Logger
	tracer    trace.Tracer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithRecorder reports outcomes, typically to metrics.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithDefaults sets the fallback call parameters.
func WithDefaults(d Defaults) EngineOption {
	return func(e *Engine) { e.defaults = d }
}

// NewEngine creates a new Engine.
func NewEngine(store Store, registry *schema.Registry, generator Generator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:     store,
		writer:    NewWriter(registry, store),
		generator: generator,
		recorder:  nopRecorder{},
		logger:    logging.Nop(),
		tracer:    otel.Tracer("blogflow/backend/internal/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step looks up a step by reference.
func (e *Engine) Step(ctx context.Context, ref StepRef) (*models.WorkflowStep, error) {
	if ref.ID != 0 {
		return e.store.StepByID(ctx, ref.ID)
	}
	if ref.Stage == "" || ref.SubStage == "" || ref.Step == "" {
		return nil, &models.StepNotFoundError{Ref: ref.String()}
	}
	return e.store.StepByPath(ctx, ref.Stage, ref.SubStage, ref.Step)
}

// Resolve returns the step and its canonical binding.
func (e *Engine) Resolve(ctx context.Context, ref StepRef) (*models.WorkflowStep, Binding, error) {
	step, err := e.Step(ctx, ref)
	if err != nil {
		return nil, Binding{}, err
	}
	m, err := ParseMapping(step)
	if err != nil {
		return step, Binding{}, err
	}
	if HasBothSchemes(step, m) {
		e.logger.Warn("step carries both legacy and modern mappings, using modern",
			"step_id", step.ID, "field_name", *step.FieldName)
	}
	return step, m.binding(), nil
}

// Run executes one step for a post. Write-phase failures return the result
// together with the error.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Run", trace.WithAttributes(
		attribute.Int64("post.id", req.PostID),
		attribute.String("step.ref", req.Step.String()),
	))
	defer span.End()

	res, err := e.run(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if res != nil {
		span.SetAttributes(
			attribute.String("run.id", res.RunID),
			attribute.String("llm.provider", res.Provider),
			attribute.String("llm.model", res.Model),
			attribute.String("extraction.tier", res.Tier),
		)
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, req RunRequest) (*RunResult, error) {
	step, binding, err := e.Resolve(ctx, req.Step)
	if err != nil {
		return nil, err
	}
	key := req.key()
	res := &RunResult{
		RunID:   uuid.New().String(),
		StepID:  step.ID,
		Binding: binding,
		Key:     key,
		Output:  binding.Output,
	}
	log := e.logger.With("run_id", res.RunID, "post_id", req.PostID, "step_id", step.ID)

	action := e.action(ctx, step, log)
	params := e.params(req, action)
	res.Provider, res.Model = params.Provider, params.Model

	task := step.TaskPrompt
	if strings.TrimSpace(task) == "" && action != nil {
		task = action.PromptTemplate
	}
	res.Prompt = BuildPrompt(step.SystemPrompt, task, e.inputs(ctx, binding, key, log))

	raw, err := e.generator.Generate(ctx, params.Provider, llm.Request{
		Prompt:      res.Prompt,
		Model:       params.Model,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		e.finish(ctx, req, res, models.StepRunLLMFailed, err, log)
		return res, err
	}
	res.RawResponse = raw
	e.extract(res)

	if err := e.writer.Write(ctx, binding.Output, key, res.StoredValue); err != nil {
		e.finish(ctx, req, res, models.StepRunWriteFailed, err, log)
		return res, err
	}
	e.finish(ctx, req, res, models.StepRunSucceeded, nil, log)
	return res, nil
}

// WriteResult stores text that was already generated for a step, applying the
// same extraction and storage policy as Run. It is the retry path after a
// failed write.
func (e *Engine) WriteResult(ctx context.Context, req RunRequest, text string) (*RunResult, error) {
	step, binding, err := e.Resolve(ctx, req.Step)
	if err != nil {
		return nil, err
	}
	res := &RunResult{
		RunID:       uuid.New().String(),
		StepID:      step.ID,
		Binding:     binding,
		RawResponse: text,
		Key:         req.key(),
		Output:      binding.Output,
	}
	e.extract(res)
	log := e.logger.With("run_id", res.RunID, "post_id", req.PostID, "step_id", step.ID)
	if err := e.writer.Write(ctx, binding.Output, res.Key, res.StoredValue); err != nil {
		e.finish(ctx, req, res, models.StepRunWriteFailed, err, log)
		return res, err
	}
	e.finish(ctx, req, res, models.StepRunSucceeded, nil, log)
	return res, nil
}

func (e *Engine) extract(res *RunResult) {
	value, tier, ok := ExtractTier(res.RawResponse)
	res.Extracted, res.Tier, res.Structured = value, tier, ok
	res.StoredValue = StoredValue(res.RawResponse, value, ok)
	e.recorder.Extraction(tier)
}

func (e *Engine) action(ctx context.Context, step *models.WorkflowStep, log *logging.Logger) *models.LLMAction {
	if step.LLMActionID == nil {
		return nil
	}
	action, err := e.store.GetLLMAction(ctx, *step.LLMActionID)
	if err != nil {
		log.Warn("llm action for step unavailable, using defaults", "llm_action_id", *step.LLMActionID, "error", err)
		return nil
	}
	return action
}

// params picks call parameters: request first, then the LLM action, then the
// configured defaults.
func (e *Engine) params(req RunRequest, action *models.LLMAction) Defaults {
	p := e.defaults
	if action != nil {
		if action.ProviderName != "" {
			p.Provider = action.ProviderName
		}
		if action.Model != "" {
			p.Model = action.Model
		}
		p.Temperature = action.Temperature
		if action.MaxTokens > 0 {
			p.MaxTokens = action.MaxTokens
		}
	}
	if req.Provider != "" {
		p.Provider = req.Provider
	}
	if req.Model != "" {
		p.Model = req.Model
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		p.MaxTokens = req.MaxTokens
	}
	return p
}

// inputs fetches every bound input. Unreadable inputs degrade to "" so the
// model call still happens.
func (e *Engine) inputs(ctx context.Context, b Binding, key models.RowKey, log *logging.Logger) []Input {
	out := make([]Input, 0, len(b.Inputs))
	for _, in := range b.Inputs {
		ref := models.ColumnRef{Table: in.Table, Column: in.Column}
		value, err := e.writer.Fetch(ctx, ref, key)
		if err != nil {
			log.Warn("input unavailable, using empty value", "input", in.Name, "column", ref.String(), "error", err)
			value = ""
		}
		out = append(out, Input{Name: in.Name, Value: value})
	}
	return out
}

func (e *Engine) finish(ctx context.Context, req RunRequest, res *RunResult, status string, runErr error, log *logging.Logger) {
	e.recorder.StepRun(status)
	run := &models.StepRun{
		ID:          res.RunID,
		PostID:      req.PostID,
		StepID:      res.StepID,
		SectionID:   req.SectionID,
		Provider:    res.Provider,
		Model:       res.Model,
		Prompt:      res.Prompt,
		RawResponse: res.RawResponse,
		StoredValue: res.StoredValue,
		Status:      status,
		TriggeredBy: req.TriggeredBy,
		CreatedAt:   time.Now().UTC(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
		log.Error("step run failed", "status", status, "error", runErr)
	} else {
		log.Info("step run succeeded", "output", res.Output.String(), "tier", res.Tier)
	}
	if err := e.store.RecordStepRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("failed to record step run", "error", err)
	}
}

// IsWritePhase reports whether err happened after the model answered, when
// the generated text is still available to the caller.
func IsWritePhase(err error) bool {
	var ce *models.ColumnError
	var nf *models.NotFoundError
	return errors.As(err, &ce) || errors.As(err, &nf)
}
