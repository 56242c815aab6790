package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogflow/backend/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestResolve_ModernWins(t *testing.T) {
	step := &models.WorkflowStep{
		ID:        10,
		FieldName: strPtr("idea_scope"),
		Config: json.RawMessage(`{
			"outputs": {"output1": {"label": "Title", "db_field": "provisional_title", "type": "textarea"}},
			"inputs": {
				"input10": {"db_field": "topics_to_cover"},
				"input2": {"db_field": "idea_scope"},
				"input1": {"db_field": "idea_seed", "table": "post_development"}
			}
		}`),
	}

	b, err := Resolve(step)
	require.NoError(t, err)
	assert.Equal(t, "modern", b.Scheme)
	assert.Equal(t, models.ColumnRef{Table: "post_development", Column: "provisional_title"}, b.Output)
	require.Len(t, b.Inputs, 3)
	assert.Equal(t, "idea_seed", b.Inputs[0].Name)
	assert.Equal(t, "idea_scope", b.Inputs[1].Name)
	assert.Equal(t, "topics_to_cover", b.Inputs[2].Name)

	m, err := ParseMapping(step)
	require.NoError(t, err)
	assert.True(t, HasBothSchemes(step, m))
}

func TestResolve_ModernSectionTable(t *testing.T) {
	step := &models.WorkflowStep{
		ID:     11,
		Config: json.RawMessage(`{"outputs": {"output1": {"db_field": "draft", "table": "post_section"}}}`),
	}
	b, err := Resolve(step)
	require.NoError(t, err)
	assert.Equal(t, models.ColumnRef{Table: "post_section", Column: "draft"}, b.Output)
	assert.Empty(t, b.Inputs)
}

func TestResolve_LegacyTargetsPostDevelopment(t *testing.T) {
	step := &models.WorkflowStep{ID: 12, FieldName: strPtr(" idea_scope ")}

	b, err := Resolve(step)
	require.NoError(t, err)
	assert.Equal(t, "legacy", b.Scheme)
	assert.Equal(t, models.ColumnRef{Table: "post_development", Column: "idea_scope"}, b.Output)

	m, err := ParseMapping(step)
	require.NoError(t, err)
	assert.False(t, HasBothSchemes(step, m))
}

func TestResolve_LegacyWithConfigInputsOnly(t *testing.T) {
	step := &models.WorkflowStep{
		ID:        13,
		FieldName: strPtr("summary"),
		Config:    json.RawMessage(`{"inputs": {"input1": {"db_field": "idea_seed"}}}`),
	}
	b, err := Resolve(step)
	require.NoError(t, err)
	assert.Equal(t, "legacy", b.Scheme)
	assert.Equal(t, "summary", b.Output.Column)
	require.Len(t, b.Inputs, 1)
}

func TestResolve_NoMapping(t *testing.T) {
	cases := map[string]*models.WorkflowStep{
		"nothing":           {ID: 14},
		"null config":       {ID: 14, Config: json.RawMessage(`null`)},
		"empty field name":  {ID: 14, FieldName: strPtr("  ")},
		"empty output1":     {ID: 14, Config: json.RawMessage(`{"outputs": {"output1": {"label": "x"}}}`)},
		"output2 only":      {ID: 14, Config: json.RawMessage(`{"outputs": {"output2": {"db_field": "summary"}}}`)},
		"invalid json":      {ID: 14, Config: json.RawMessage(`{"outputs":`)},
		"bad column syntax": {ID: 14, Config: json.RawMessage(`{"outputs": {"output1": {"db_field": "title; DROP TABLE post"}}}`)},
	}
	for name, step := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(step)
			var mnf *models.MappingNotFoundError
			require.True(t, errors.As(err, &mnf), "got %v", err)
			assert.Equal(t, int64(14), mnf.StepID)
		})
	}
}
