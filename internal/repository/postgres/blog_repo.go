package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/repository"
)

// blogRepository implements repository.BlogRepository for PostgreSQL.
type blogRepository struct {
	db *DB
}

// NewBlogRepository creates a new PostgreSQL blog repository.
func NewBlogRepository(db *DB) repository.BlogRepository {
	return &blogRepository{db: db}
}

// blogSelect joins the author so every read returns a populated blog.
const blogSelect = `
	SELECT b.id, b.title, b.description, b.body, b.tags, b.state, b.read_count,
	       b.reading_time, b.author_id, b.created_at, b.updated_at,
	       u.id, u.firstname, u.lastname, u.email_address
	FROM blogs b
	LEFT JOIN users u ON u.id = b.author_id
`

// Create creates a new blog.
func (r *blogRepository) Create(ctx context.Context, blog *domain.Blog) error {
	query := `
		INSERT INTO blogs (id, title, description, body, tags, state, read_count,
		                   reading_time, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		blog.ID,
		blog.Title,
		blog.Description,
		blog.Body,
		blog.Tags,
		string(blog.State),
		blog.ReadCount,
		blog.ReadingTime,
		blog.AuthorID,
		blog.CreatedAt,
		blog.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintBlogTitle) {
			return fmt.Errorf("%w: %s", domain.ErrBlogTitleTaken, blog.Title)
		}
		return fmt.Errorf("failed to create blog: %w", err)
	}

	return nil
}

// GetByID retrieves a blog by ID with its author populated.
func (r *blogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error) {
	blog, err := scanBlog(r.db.Pool.QueryRow(ctx, blogSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBlogNotFound
		}
		return nil, fmt.Errorf("failed to get blog by ID: %w", err)
	}
	return blog, nil
}

// GetByTitle retrieves a blog by its exact title.
func (r *blogRepository) GetByTitle(ctx context.Context, title string) (*domain.Blog, error) {
	blog, err := scanBlog(r.db.Pool.QueryRow(ctx, blogSelect+` WHERE b.title = $1`, title))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrBlogNotFound
		}
		return nil, fmt.Errorf("failed to get blog by title: %w", err)
	}
	return blog, nil
}

// Update persists the mutable fields of a blog.
func (r *blogRepository) Update(ctx context.Context, blog *domain.Blog) error {
	query := `
		UPDATE blogs
		SET title = $1, description = $2, body = $3, tags = $4, state = $5,
		    reading_time = $6, updated_at = $7
		WHERE id = $8
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		blog.Title,
		blog.Description,
		blog.Body,
		blog.Tags,
		string(blog.State),
		blog.ReadingTime,
		blog.UpdatedAt,
		blog.ID,
	)
	if err != nil {
		if isUniqueViolation(err, constraintBlogTitle) {
			return fmt.Errorf("%w: %s", domain.ErrBlogTitleTaken, blog.Title)
		}
		return fmt.Errorf("failed to update blog: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBlogNotFound
	}
	return nil
}

// Delete permanently removes a blog.
func (r *blogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM blogs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBlogNotFound
	}
	return nil
}

// List returns one page of blogs matching filter, newest first, plus the full match count.
func (r *blogRepository) List(ctx context.Context, filter repository.BlogFilter, opts repository.ListOptions) (*repository.ListResult[domain.Blog], error) {
	var conds []string
	var args []any

	if filter.AuthorID != uuid.Nil {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("b.author_id = $%d", len(args)))
	}
	if filter.State != "" {
		args = append(args, string(filter.State))
		conds = append(conds, fmt.Sprintf("b.state = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM blogs b`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count blogs: %w", err)
	}

	query := blogSelect + where +
		fmt.Sprintf(` ORDER BY b.created_at DESC, b.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	rows, err := r.db.Pool.Query(ctx, query, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blogs: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Blog, 0, max(opts.Limit, 0))
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blog: %w", err)
		}
		items = append(items, blog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blogs: %w", err)
	}

	return &repository.ListResult[domain.Blog]{
		Items:  items,
		Total:  total,
		Offset: opts.Offset,
		Limit:  opts.Limit,
	}, nil
}

func scanBlog(row pgx.Row) (*domain.Blog, error) {
	blog := &domain.Blog{}
	var state string
	var authorRowID *uuid.UUID
	var firstName, lastName, email *string

	if err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Description,
		&blog.Body,
		&blog.Tags,
		&state,
		&blog.ReadCount,
		&blog.ReadingTime,
		&blog.AuthorID,
		&blog.CreatedAt,
		&blog.UpdatedAt,
		&authorRowID,
		&firstName,
		&lastName,
		&email,
	); err != nil {
		return nil, err
	}

	blog.State = domain.BlogState(state)
	blog.CreatedAt = blog.CreatedAt.UTC()
	blog.UpdatedAt = blog.UpdatedAt.UTC()

	// The author may have been removed; the blog is still returned without it.
	if authorRowID != nil {
		blog.Author = &domain.Author{
			ID:           *authorRowID,
			FirstName:    deref(firstName),
			LastName:     deref(lastName),
			EmailAddress: deref(email),
		}
	}

	return blog, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
