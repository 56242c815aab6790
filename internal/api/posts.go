package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"blogflow/backend/pkg/models"
)

// PostManager manages posts, their workflow fields and sections.
type PostManager interface {
	Create(ctx context.Context, title string) (*models.Post, error)
	Get(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context, status models.PostStatus) ([]*models.Post, error)
	Rename(ctx context.Context, id int64, title string) (*models.Post, error)
	Transition(ctx context.Context, id int64, to models.PostStatus) (*models.Post, error)
	Development(ctx context.Context, id int64) (*models.PostDevelopment, error)
	UpdateDevelopment(ctx context.Context, id int64, fields map[string]string) (*models.PostDevelopment, error)
	Sections(ctx context.Context, postID int64) ([]*models.PostSection, error)
	AddSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error)
	UpdateSection(ctx context.Context, postID, sectionID int64, fields map[string]string) (*models.PostSection, error)
	RemoveSection(ctx context.Context, postID, sectionID int64) error
	ReorderSections(ctx context.Context, postID int64, ids []int64) ([]*models.PostSection, error)
	Runs(ctx context.Context, postID int64, limit int) ([]*models.StepRun, error)
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return &models.ValidationError{Reason: "invalid request body: " + err.Error()}
	}
	return nil
}

// ListPosts lists posts, optionally filtered by ?status=
// (GET /api/v1/posts)
func (s *Server) ListPosts(c echo.Context) error {
	posts, err := s.Posts.List(c.Request().Context(), models.PostStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

type postRequest struct {
	Title string `json:"title"`
}

// CreatePost creates a draft post
// (POST /api/v1/posts)
func (s *Server) CreatePost(c echo.Context) error {
	var body postRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	post, err := s.Posts.Create(c.Request().Context(), body.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// GetPost returns one post
// (GET /api/v1/posts/{id})
func (s *Server) GetPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.Posts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// UpdatePost renames a post
// (PATCH /api/v1/posts/{id})
func (s *Server) UpdatePost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body postRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	post, err := s.Posts.Rename(c.Request().Context(), id, body.Title)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// SetPostStatus moves a post through its lifecycle
// (POST /api/v1/posts/{id}/status)
func (s *Server) SetPostStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Status models.PostStatus `json:"status"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	post, err := s.Posts.Transition(c.Request().Context(), id, body.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

type fieldsRequest struct {
	Fields map[string]string `json:"fields"`
}

// GetDevelopment returns the workflow fields of a post
// (GET /api/v1/posts/{id}/development)
func (s *Server) GetDevelopment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	dev, err := s.Posts.Development(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dev)
}

// UpdateDevelopment edits workflow fields by hand
// (PATCH /api/v1/posts/{id}/development)
func (s *Server) UpdateDevelopment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body fieldsRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	dev, err := s.Posts.UpdateDevelopment(c.Request().Context(), id, body.Fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dev)
}

// ListSections returns the sections of a post in order
// (GET /api/v1/posts/{id}/sections)
func (s *Server) ListSections(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sections, err := s.Posts.Sections(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sections)
}

// CreateSection appends a section
// (POST /api/v1/posts/{id}/sections)
func (s *Server) CreateSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Heading     string `json:"section_heading"`
		Description string `json:"section_description"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	sec, err := s.Posts.AddSection(c.Request().Context(), id, body.Heading, body.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sec)
}

// UpdateSection edits section fields
// (PATCH /api/v1/posts/{id}/sections/{sectionId})
func (s *Server) UpdateSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sectionID, err := pathID(c, "sectionId")
	if err != nil {
		return err
	}
	var body fieldsRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	sec, err := s.Posts.UpdateSection(c.Request().Context(), id, sectionID, body.Fields)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sec)
}

// DeleteSection removes a section
// (DELETE /api/v1/posts/{id}/sections/{sectionId})
func (s *Server) DeleteSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	sectionID, err := pathID(c, "sectionId")
	if err != nil {
		return err
	}
	if err := s.Posts.RemoveSection(c.Request().Context(), id, sectionID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ReorderSections rewrites section order
// (PUT /api/v1/posts/{id}/sections/order)
func (s *Server) ReorderSections(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		SectionIDs []int64 `json:"section_ids"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	sections, err := s.Posts.ReorderSections(c.Request().Context(), id, body.SectionIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sections)
}

// ListRuns returns recent step runs of a post
// (GET /api/v1/posts/{id}/runs)
func (s *Server) ListRuns(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > 500 {
			return &models.ValidationError{Field: "limit", Reason: "must be between 1 and 500"}
		}
	}
	runs, err := s.Posts.Runs(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, runs)
}
