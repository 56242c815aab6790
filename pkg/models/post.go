package models

import "time"

// PostStatus is the lifecycle state of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusInProcess PostStatus = "in_process"
	PostStatusPublished PostStatus = "published"
	PostStatusArchived  PostStatus = "archived"
	PostStatusDeleted   PostStatus = "deleted"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusInProcess, PostStatusPublished, PostStatusArchived, PostStatusDeleted:
		return true
	}
	return false
}

var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:     {PostStatusInProcess},
	PostStatusInProcess: {PostStatusDraft, PostStatusPublished},
	PostStatusPublished: {PostStatusInProcess},
	PostStatusArchived:  {PostStatusDraft},
}

// CanTransition reports whether a post may move from one status to another.
// Posts are never removed; archived and deleted are reachable from any live
// status, and deleted is terminal.
func (s PostStatus) CanTransition(to PostStatus) bool {
	if !to.Valid() || s == PostStatusDeleted || s == to {
		return false
	}
	if to == PostStatusArchived || to == PostStatusDeleted {
		return true
	}
	for _, next := range postTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Post is a single content item moving through the workflow.
type Post struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Status    PostStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PostDevelopment is the wide, one-per-post row holding most step outputs.
// Fields only contains non-null columns.
type PostDevelopment struct {
	PostID int64             `json:"post_id"`
	Fields map[string]string `json:"fields"`
}

// PostSection is one ordered section of a post.
type PostSection struct {
	ID                int64     `json:"id"`
	PostID            int64     `json:"post_id"`
	Order             int       `json:"section_order"`
	Heading           string    `json:"section_heading"`
	Description       string    `json:"section_description,omitempty"`
	Draft             string    `json:"draft,omitempty"`
	Polished          string    `json:"polished,omitempty"`
	ImageConcepts     string    `json:"image_concepts,omitempty"`
	ImagePrompts      string    `json:"image_prompts,omitempty"`
	GeneratedImageURL string    `json:"generated_image_url,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
