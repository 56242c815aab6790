// Package models defines the domain models for the blog workflow service
package models

import (
	"fmt"
	"time"
)

// ColumnRef names a physical column that a workflow step reads or writes.
type ColumnRef struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

func (c ColumnRef) String() string {
	return c.Table + "." + c.Column
}

// RowKey identifies the row a step reads from or writes to. SectionID is only
// set for section-scoped steps.
type RowKey struct {
	PostID    int64  `json:"post_id"`
	SectionID *int64 `json:"section_id,omitempty"`
}

func (k RowKey) String() string {
	if k.SectionID != nil {
		return fmt.Sprintf("post %d section %d", k.PostID, *k.SectionID)
	}
	return fmt.Sprintf("post %d", k.PostID)
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
	// GeneratedText carries model output that was produced but could not be saved.
	GeneratedText string `json:"generated_text,omitempty"`
	RunID         string `json:"run_id,omitempty"`
}
