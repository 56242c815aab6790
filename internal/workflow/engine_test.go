package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"blogflow/backend/internal/llm"
	"blogflow/backend/internal/schema"
	"blogflow/backend/pkg/models"
)

type mockStore struct {
	mockColumnStore
}

func (m *mockStore) StepByID(ctx context.Context, id int64) (*models.WorkflowStep, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.WorkflowStep)
	return s, args.Error(1)
}

func (m *mockStore) StepByPath(ctx context.Context, stage, subStage, step string) (*models.WorkflowStep, error) {
	args := m.Called(ctx, stage, subStage, step)
	s, _ := args.Get(0).(*models.WorkflowStep)
	return s, args.Error(1)
}

func (m *mockStore) GetLLMAction(ctx context.Context, id int64) (*models.LLMAction, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.LLMAction)
	return a, args.Error(1)
}

func (m *mockStore) RecordStepRun(ctx context.Context, run *models.StepRun) error {
	return m.Called(ctx, run).Error(0)
}

type fakeGenerator struct {
	text     string
	err      error
	calls    int
	provider string
	req      llm.Request
}

func (g *fakeGenerator) Generate(_ context.Context, provider string, req llm.Request) (string, error) {
	g.calls++
	g.provider, g.req = provider, req
	return g.text, g.err
}

type countingRecorder struct {
	runs  map[string]int
	tiers map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{runs: map[string]int{}, tiers: map[string]int{}}
}

func (r *countingRecorder) StepRun(outcome string) { r.runs[outcome]++ }
func (r *countingRecorder) Extraction(tier string) { r.tiers[tier]++ }

func titleStep() *models.WorkflowStep {
	return &models.WorkflowStep{
		ID:           21,
		Name:         "Provisional Title",
		SystemPrompt: "You are a blog editor.",
		TaskPrompt:   "Propose a title for [data:idea_seed].",
		Config: json.RawMessage(`{
			"outputs": {"output1": {"label": "Title", "db_field": "provisional_title", "type": "textarea"}},
			"inputs": {"input1": {"db_field": "idea_seed"}}
		}`),
	}
}

func runWithStatus(status string) any {
	return mock.MatchedBy(func(r *models.StepRun) bool { return r.Status == status })
}

var testDefaults = Defaults{Provider: "ollama", Model: "llama3", Temperature: 0.7, MaxTokens: 1000}

func TestEngine_RunWritesExtractedValue(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 5}
	store.On("StepByID", mock.Anything, int64(21)).Return(titleStep(), nil)
	store.On("FetchColumn", mock.Anything, "post_development", "idea_seed", key).Return("Kilt history", nil)
	store.On("WriteColumn", mock.Anything, "post_development", "provisional_title", key, `{"title":"The Kilt"}`).Return(int64(1), nil)
	store.On("RecordStepRun", mock.Anything, runWithStatus(models.StepRunSucceeded)).Return(nil)

	gen := &fakeGenerator{text: "```json\n{\"title\":\"The Kilt\"}\n```"}
	rec := newCountingRecorder()
	e := NewEngine(store, schema.Default(), gen, WithDefaults(testDefaults), WithRecorder(rec))

	res, err := e.Run(context.Background(), RunRequest{PostID: 5, Step: StepRef{ID: 21}, TriggeredBy: "editor@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "You are a blog editor.\n\nPropose a title for Kilt history.\n\nidea_seed: Kilt history", res.Prompt)
	assert.Equal(t, "ollama", gen.provider)
	assert.Equal(t, llm.Request{Prompt: res.Prompt, Model: "llama3", Temperature: 0.7, MaxTokens: 1000}, gen.req)
	assert.Equal(t, map[string]any{"title": "The Kilt"}, res.Extracted)
	assert.True(t, res.Structured)
	assert.Equal(t, "fenced", res.Tier)
	assert.Equal(t, models.ColumnRef{Table: "post_development", Column: "provisional_title"}, res.Output)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 1, rec.runs[models.StepRunSucceeded])
	assert.Equal(t, 1, rec.tiers["fenced"])
	store.AssertExpectations(t)
}

func TestEngine_RunMissingPostKeepsGeneratedText(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 404}
	store.On("StepByID", mock.Anything, int64(21)).Return(titleStep(), nil)
	store.On("FetchColumn", mock.Anything, "post_development", "idea_seed", key).
		Return("", &models.NotFoundError{Resource: "post_development row", Key: key.String()})
	store.On("WriteColumn", mock.Anything, "post_development", "provisional_title", key, mock.Anything).Return(int64(0), nil)
	store.On("RecordStepRun", mock.Anything, runWithStatus(models.StepRunWriteFailed)).Return(nil)

	raw := "```json\n{\"title\":\"The Kilt\"}\n```"
	gen := &fakeGenerator{text: raw}
	e := NewEngine(store, schema.Default(), gen, WithDefaults(testDefaults))

	res, err := e.Run(context.Background(), RunRequest{PostID: 404, Step: StepRef{ID: 21}})
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.True(t, IsWritePhase(err))
	require.NotNil(t, res)
	assert.Equal(t, raw, res.RawResponse)
	assert.Equal(t, `{"title":"The Kilt"}`, res.StoredValue)
	assert.Contains(t, res.Prompt, "idea_seed: ")
	store.AssertExpectations(t)
}

func TestEngine_RunLLMFailureSkipsWrite(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 5}
	store.On("StepByID", mock.Anything, int64(21)).Return(titleStep(), nil)
	store.On("FetchColumn", mock.Anything, "post_development", "idea_seed", key).Return("Kilt history", nil)
	store.On("RecordStepRun", mock.Anything, runWithStatus(models.StepRunLLMFailed)).Return(nil)

	gen := &fakeGenerator{err: &models.LLMRequestError{Provider: "ollama", StatusCode: 500, Message: "boom"}}
	e := NewEngine(store, schema.Default(), gen, WithDefaults(testDefaults))

	_, err := e.Run(context.Background(), RunRequest{PostID: 5, Step: StepRef{ID: 21}})
	var llmErr *models.LLMRequestError
	require.True(t, errors.As(err, &llmErr))
	assert.False(t, IsWritePhase(err))
	store.AssertNotCalled(t, "WriteColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestEngine_RunPlainTextAndRecordFailure(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 5}
	step := &models.WorkflowStep{ID: 30, FieldName: strPtr("summary"), TaskPrompt: "Summarise {topic}."}
	store.On("StepByPath", mock.Anything, "Writing", "Content", "Summary").Return(step, nil)
	store.On("WriteColumn", mock.Anything, "post_development", "summary", key, "A short summary.").Return(int64(1), nil)
	store.On("RecordStepRun", mock.Anything, mock.Anything).Return(errors.New("db down"))

	gen := &fakeGenerator{text: "  A short summary.\n"}
	e := NewEngine(store, schema.Default(), gen, WithDefaults(testDefaults))

	res, err := e.Run(context.Background(), RunRequest{
		PostID: 5,
		Step:   StepRef{Stage: "Writing", SubStage: "Content", Step: "Summary"},
	})
	require.NoError(t, err)
	assert.False(t, res.Structured)
	assert.Equal(t, NoStructuredResult, res.Tier)
	assert.Equal(t, "legacy", res.Binding.Scheme)
	assert.Equal(t, "Summarise .", res.Prompt)
	store.AssertExpectations(t)
}

func TestEngine_ActionAndRequestParameters(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 5}
	actionID := int64(3)
	step := &models.WorkflowStep{ID: 31, FieldName: strPtr("tags"), LLMActionID: &actionID}
	store.On("StepByID", mock.Anything, int64(31)).Return(step, nil)
	store.On("GetLLMAction", mock.Anything, actionID).Return(&models.LLMAction{
		ID:             actionID,
		PromptTemplate: "List tags as JSON.",
		Model:          "gpt-4o-mini",
		ProviderName:   "openai",
		Temperature:    0.1,
		MaxTokens:      200,
	}, nil)
	store.On("WriteColumn", mock.Anything, "post_development", "tags", key, `["kilt","tartan"]`).Return(int64(1), nil)
	store.On("RecordStepRun", mock.Anything, mock.Anything).Return(nil)

	gen := &fakeGenerator{text: `Tags: ["kilt","tartan"]`}
	e := NewEngine(store, schema.Default(), gen, WithDefaults(testDefaults))

	temp := 0.9
	res, err := e.Run(context.Background(), RunRequest{PostID: 5, Step: StepRef{ID: 31}, Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, "openai", gen.provider)
	assert.Equal(t, llm.Request{Prompt: "List tags as JSON.", Model: "gpt-4o-mini", Temperature: 0.9, MaxTokens: 200}, gen.req)
	assert.Equal(t, "span", res.Tier)
	store.AssertExpectations(t)
}

func TestEngine_StepNotFound(t *testing.T) {
	store := &mockStore{}
	store.On("StepByID", mock.Anything, int64(99)).Return(nil, &models.StepNotFoundError{Ref: "99"})
	gen := &fakeGenerator{}
	e := NewEngine(store, schema.Default(), gen)

	_, err := e.Run(context.Background(), RunRequest{PostID: 1, Step: StepRef{ID: 99}})
	var snf *models.StepNotFoundError
	assert.True(t, errors.As(err, &snf))

	_, err = e.Run(context.Background(), RunRequest{PostID: 1, Step: StepRef{Stage: "Idea"}})
	assert.True(t, errors.As(err, &snf))
	assert.Equal(t, 0, gen.calls)
}

func TestEngine_MappingNotFound(t *testing.T) {
	store := &mockStore{}
	store.On("StepByID", mock.Anything, int64(40)).Return(&models.WorkflowStep{ID: 40}, nil)
	gen := &fakeGenerator{}

	_, err := NewEngine(store, schema.Default(), gen).Run(context.Background(), RunRequest{PostID: 1, Step: StepRef{ID: 40}})
	var mnf *models.MappingNotFoundError
	require.True(t, errors.As(err, &mnf))
	assert.Equal(t, int64(40), mnf.StepID)
	assert.Equal(t, 0, gen.calls)
}

func TestEngine_WriteResultRetry(t *testing.T) {
	store := &mockStore{}
	key := models.RowKey{PostID: 5}
	store.On("StepByID", mock.Anything, int64(21)).Return(titleStep(), nil)
	store.On("WriteColumn", mock.Anything, "post_development", "provisional_title", key, `{"title":"The Kilt"}`).Return(int64(1), nil)
	store.On("RecordStepRun", mock.Anything, runWithStatus(models.StepRunSucceeded)).Return(nil)
	gen := &fakeGenerator{}

	res, err := NewEngine(store, schema.Default(), gen).WriteResult(context.Background(),
		RunRequest{PostID: 5, Step: StepRef{ID: 21}}, "```json\n{\"title\":\"The Kilt\"}\n```")
	require.NoError(t, err)
	assert.True(t, res.Structured)
	assert.Equal(t, 0, gen.calls)
	store.AssertExpectations(t)
}

func TestStepRef_String(t *testing.T) {
	assert.Equal(t, "12", StepRef{ID: 12}.String())
	assert.Equal(t, "Idea/Basic/Seed", StepRef{Stage: "Idea", SubStage: "Basic", Step: "Seed"}.String())
}
