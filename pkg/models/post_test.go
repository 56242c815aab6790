package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostStatus_CanTransition(t *testing.T) {
	allowed := []struct{ from, to PostStatus }{
		{PostStatusDraft, PostStatusInProcess},
		{PostStatusInProcess, PostStatusPublished},
		{PostStatusInProcess, PostStatusDraft},
		{PostStatusPublished, PostStatusInProcess},
		{PostStatusPublished, PostStatusArchived},
		{PostStatusDraft, PostStatusDeleted},
		{PostStatusArchived, PostStatusDraft},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to PostStatus }{
		{PostStatusDraft, PostStatusPublished},
		{PostStatusDraft, PostStatusDraft},
		{PostStatusDeleted, PostStatusDraft},
		{PostStatusArchived, PostStatusPublished},
		{PostStatusDraft, "bogus"},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestErrorMessages(t *testing.T) {
	section := int64(4)
	assert.Equal(t, "post_section row not found for post 1 section 4",
		(&NotFoundError{Resource: "post_section row", Key: RowKey{PostID: 1, SectionID: &section}.String()}).Error())
	assert.Equal(t, "invalid column post_development.nope: unknown column",
		(&ColumnError{Table: "post_development", Column: "nope", Reason: "unknown column"}).Error())
	assert.Equal(t, "llm request to ollama failed: timed out after 1m0s",
		(&LLMRequestError{Provider: "ollama", Message: "timed out after 1m0s"}).Error())
	assert.Equal(t, "workflow step 7 has no output mapping",
		(&MappingNotFoundError{StepID: 7}).Error())
}
