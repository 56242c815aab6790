package models

import (
	"fmt"
	"strings"
)

// StepNotFoundError reports a workflow step reference that does not resolve.
type StepNotFoundError struct {
	Ref string
}

func (e *StepNotFoundError) Error() string {
	return fmt.Sprintf("workflow step %s not found", e.Ref)
}

// MappingNotFoundError reports a step without a usable output binding.
type MappingNotFoundError struct {
	StepID int64
	Reason string
	Err    error
}

func (e *MappingNotFoundError) Error() string {
	msg := fmt.Sprintf("workflow step %d has no output mapping", e.StepID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MappingNotFoundError) Unwrap() error { return e.Err }

// LLMRequestError reports a failed or timed out model call. StatusCode is 0
// when no HTTP response was received.
type LLMRequestError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *LLMRequestError) Error() string {
	var b strings.Builder
	b.WriteString("llm request to ")
	b.WriteString(e.Provider)
	b.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " with status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *LLMRequestError) Unwrap() error { return e.Err }

// ColumnError reports a write or read against a table or column outside the
// known schema.
type ColumnError struct {
	Table  string
	Column string
	Reason string
	Err    error
}

func (e *ColumnError) Error() string {
	target := e.Table
	if e.Column != "" {
		target += "." + e.Column
	}
	msg := "invalid column " + target
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ColumnError) Unwrap() error { return e.Err }

// NotFoundError reports a missing row, including writes that affected zero rows.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found for %s", e.Resource, e.Key)
}

// ConflictError reports an insert that collides with an existing row.
type ConflictError struct {
	Resource string
	Key      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.Key)
}

// ValidationError reports a request that is malformed before any work is done.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

// InvalidTransitionError reports a post status change the lifecycle does not
// allow.
type InvalidTransitionError struct {
	From PostStatus
	To   PostStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("post cannot move from %s to %s", e.From, e.To)
}
