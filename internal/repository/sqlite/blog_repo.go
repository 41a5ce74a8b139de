package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/repository"
)

// blogRepository implements repository.BlogRepository for SQLite.
type blogRepository struct {
	db *DB
}

// NewBlogRepository creates a new SQLite blog repository.
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		blog.ID.String(),
		blog.Title,
		blog.Description,
		blog.Body,
		blog.Tags,
		string(blog.State),
		blog.ReadCount,
		blog.ReadingTime,
		blog.AuthorID.String(),
		formatTime(blog.CreatedAt),
		formatTime(blog.UpdatedAt),
	)
	if err != nil {
		if uniqueViolationOn(err, "blogs.title") {
			return fmt.Errorf("%w: %s", domain.ErrBlogTitleTaken, blog.Title)
		}
		return fmt.Errorf("failed to create blog: %w", err)
	}

	return nil
}

// GetByID retrieves a blog by ID with its author populated.
func (r *blogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Blog, error) {
	blog, err := scanBlog(r.db.QueryRowContext(ctx, blogSelect+` WHERE b.id = ?`, id.String()))
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
	blog, err := scanBlog(r.db.QueryRowContext(ctx, blogSelect+` WHERE b.title = ?`, title))
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
		SET title = ?, description = ?, body = ?, tags = ?, state = ?,
		    reading_time = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		blog.Title,
		blog.Description,
		blog.Body,
		blog.Tags,
		string(blog.State),
		blog.ReadingTime,
		formatTime(blog.UpdatedAt),
		blog.ID.String(),
	)
	if err != nil {
		if uniqueViolationOn(err, "blogs.title") {
			return fmt.Errorf("%w: %s", domain.ErrBlogTitleTaken, blog.Title)
		}
		return fmt.Errorf("failed to update blog: %w", err)
	}

	return requireAffected(result, domain.ErrBlogNotFound)
}

// Delete permanently removes a blog.
func (r *blogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM blogs WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete blog: %w", err)
	}
	return requireAffected(result, domain.ErrBlogNotFound)
}

// List returns one page of blogs matching filter, newest first, plus the full match count.
func (r *blogRepository) List(ctx context.Context, filter repository.BlogFilter, opts repository.ListOptions) (*repository.ListResult[domain.Blog], error) {
	var conds []string
	var args []interface{}

	if filter.AuthorID != uuid.Nil {
		conds = append(conds, "b.author_id = ?")
		args = append(args, filter.AuthorID.String())
	}
	if filter.State != "" {
		conds = append(conds, "b.state = ?")
		args = append(args, string(filter.State))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blogs b`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count blogs: %w", err)
	}

	query := blogSelect + where + ` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, opts.Limit, opts.Offset)...)
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

func scanBlog(row rowScanner) (*domain.Blog, error) {
	blog := &domain.Blog{}
	var id, state, authorID, createdAt, updatedAt string
	var authorRowID, firstName, lastName, email sql.NullString

	if err := row.Scan(
		&id,
		&blog.Title,
		&blog.Description,
		&blog.Body,
		&blog.Tags,
		&state,
		&blog.ReadCount,
		&blog.ReadingTime,
		&authorID,
		&createdAt,
		&updatedAt,
		&authorRowID,
		&firstName,
		&lastName,
		&email,
	); err != nil {
		return nil, err
	}

	var err error
	if blog.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid stored blog id %q: %w", id, err)
	}
	if blog.AuthorID, err = uuid.Parse(authorID); err != nil {
		return nil, fmt.Errorf("invalid stored author id %q: %w", authorID, err)
	}
	if blog.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if blog.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	blog.State = domain.BlogState(state)

	// The author may have been removed; the blog is still returned without it.
	if authorRowID.Valid {
		blog.Author = &domain.Author{
			ID:           blog.AuthorID,
			FirstName:    firstName.String,
			LastName:     lastName.String,
			EmailAddress: email.String,
		}
	}

	return blog, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
