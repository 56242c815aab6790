package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blogflow/backend/pkg/models"
)

const postColumns = "id, title, status, created_at, updated_at"

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost creates a post together with its post_development row.
func (s *PostgresStore) CreatePost(ctx context.Context, title string) (*models.Post, error) {
	var post *models.Post
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		post, err = scanPost(tx.QueryRow(ctx, "INSERT INTO post (title) VALUES ($1) RETURNING "+postColumns, title))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "INSERT INTO post_development (post_id) VALUES ($1)", post.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// GetPost retrieves a post by its ID.
func (s *PostgresStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRow(ctx, "SELECT "+postColumns+" FROM post WHERE id = $1", id))
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return post, nil
}

// ListPosts lists posts, most recently updated first.
func (s *PostgresStore) ListPosts(ctx context.Context, status models.PostStatus) ([]*models.Post, error) {
	query := "SELECT " + postColumns + " FROM post WHERE status <> 'deleted' ORDER BY updated_at DESC, id DESC"
	args := []any{}
	if status != "" {
		query = "SELECT " + postColumns + " FROM post WHERE status = $1 ORDER BY updated_at DESC, id DESC"
		args = append(args, status)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdatePostTitle renames a post.
func (s *PostgresStore) UpdatePostTitle(ctx context.Context, id int64, title string) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRow(ctx,
		"UPDATE post SET title = $2, updated_at = NOW() WHERE id = $1 RETURNING "+postColumns, id, title))
	if err != nil {
		return nil, notFound(err, "post", id)
	}
	return post, nil
}

// SetPostStatus moves a post from one status to another. A post that is no
// longer in status from yields an InvalidTransitionError from its current
// status.
func (s *PostgresStore) SetPostStatus(ctx context.Context, id int64, from, to models.PostStatus) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRow(ctx,
		"UPDATE post SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2 RETURNING "+postColumns,
		id, from, to))
	if err == nil {
		return post, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	var current models.PostStatus
	if err := s.db.QueryRow(ctx, "SELECT status FROM post WHERE id = $1", id).Scan(&current); err != nil {
		return nil, notFound(err, "post", id)
	}
	return nil, &models.InvalidTransitionError{From: current, To: to}
}

const sectionColumns = `id, post_id, section_order, section_heading, COALESCE(section_description, ''),
	COALESCE(draft, ''), COALESCE(polished, ''), COALESCE(image_concepts, ''), COALESCE(image_prompts, ''),
	COALESCE(generated_image_url, ''), status, created_at, updated_at`

func scanSection(row pgx.Row) (*models.PostSection, error) {
	var sec models.PostSection
	err := row.Scan(&sec.ID, &sec.PostID, &sec.Order, &sec.Heading, &sec.Description,
		&sec.Draft, &sec.Polished, &sec.ImageConcepts, &sec.ImagePrompts,
		&sec.GeneratedImageURL, &sec.Status, &sec.CreatedAt, &sec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// ListSections returns the sections of a post in order.
func (s *PostgresStore) ListSections(ctx context.Context, postID int64) ([]*models.PostSection, error) {
	rows, err := s.db.Query(ctx, "SELECT "+sectionColumns+" FROM post_section WHERE post_id = $1 ORDER BY section_order, id", postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sections := []*models.PostSection{}
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// GetSection retrieves one section of a post.
func (s *PostgresStore) GetSection(ctx context.Context, postID, sectionID int64) (*models.PostSection, error) {
	sec, err := scanSection(s.db.QueryRow(ctx,
		"SELECT "+sectionColumns+" FROM post_section WHERE post_id = $1 AND id = $2", postID, sectionID))
	if err != nil {
		return nil, notFound(err, "post_section", models.RowKey{PostID: postID, SectionID: &sectionID})
	}
	return sec, nil
}

// CreateSection appends a section to a post.
func (s *PostgresStore) CreateSection(ctx context.Context, postID int64, heading, description string) (*models.PostSection, error) {
	sec, err := scanSection(s.db.QueryRow(ctx, `INSERT INTO post_section (post_id, section_order, section_heading, section_description)
		SELECT $1::bigint, COALESCE(MAX(section_order), 0) + 1, $2::text, $3::text
		FROM post_section WHERE post_id = $1::bigint
		RETURNING `+sectionColumns, postID, heading, description))
	if err != nil {
		switch pgCode(err) {
		case pgForeignKeyViolation:
			return nil, &models.NotFoundError{Resource: "post", Key: fmt.Sprint(postID)}
		case pgUniqueViolation:
			return nil, &models.ConflictError{Resource: "post_section", Key: fmt.Sprintf("order for post %d", postID)}
		}
		return nil, fmt.Errorf("failed to create section: %w", err)
	}
	return sec, nil
}

// DeleteSection removes a section and renumbers the remaining ones from 1.
func (s *PostgresStore) DeleteSection(ctx context.Context, postID, sectionID int64) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM post_section WHERE post_id = $1 AND id = $2", postID, sectionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &models.NotFoundError{Resource: "post_section", Key: models.RowKey{PostID: postID, SectionID: &sectionID}.String()}
		}
		_, err = tx.Exec(ctx, `UPDATE post_section s SET section_order = r.rn, updated_at = NOW()
			FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY section_order, id) AS rn
			      FROM post_section WHERE post_id = $1) r
			WHERE s.id = r.id AND s.section_order <> r.rn`, postID)
		return err
	})
}

// ReorderSections rewrites section order to follow ids, which must list every
// section of the post exactly once.
func (s *PostgresStore) ReorderSections(ctx context.Context, postID int64, ids []int64) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM post_section WHERE post_id = $1", postID).Scan(&count); err != nil {
			return err
		}
		if count != len(ids) {
			return fmt.Errorf("reorder lists %d sections, post %d has %d", len(ids), postID, count)
		}
		tag, err := tx.Exec(ctx, `UPDATE post_section s SET section_order = o.ord, updated_at = NOW()
			FROM unnest($2::bigint[]) WITH ORDINALITY AS o(id, ord)
			WHERE s.id = o.id AND s.post_id = $1`, postID, ids)
		if err != nil {
			if pgCode(err) == pgUniqueViolation {
				return fmt.Errorf("reorder lists a section twice: %w", err)
			}
			return err
		}
		if int(tag.RowsAffected()) != len(ids) {
			return &models.NotFoundError{Resource: "post_section", Key: fmt.Sprintf("post %d ids %v", postID, ids)}
		}
		return nil
	})
}
