package sqlite

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/scribe/internal/domain"
	"github.com/prn-tf/scribe/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, DefaultConfig(MemoryPath), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func createUser(t *testing.T, repo repository.UserRepository, email string) *domain.User {
	t.Helper()
	user := domain.NewUser("Ada", "Lovelace", email, "hash")
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestConfig_DSN(t *testing.T) {
	dsn := DefaultConfig("/tmp/scribe.db").DSN()
	assert.Contains(t, dsn, "/tmp/scribe.db?_pragma=busy_timeout(5000)")
	assert.Contains(t, dsn, "_pragma=journal_mode(WAL)")
	assert.Contains(t, dsn, "_pragma=foreign_keys(1)")

	mem := DefaultConfig(MemoryPath).DSN()
	assert.NotContains(t, mem, "journal_mode")
}

func TestMigrator_StatusAndDown(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	m, err := db.Migrator()
	require.NoError(t, err)

	version, err := m.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	statuses, err := m.MigrationStatus(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Applied)

	require.NoError(t, m.MigrateDown(ctx))
	version, err = m.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// Re-applying is idempotent.
	require.NoError(t, m.Migrate(ctx))
	require.NoError(t, m.Migrate(ctx))
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user := createUser(t, repo, "Ada@Example.com")

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.WithinDuration(t, user.CreatedAt, byEmail.CreatedAt, time.Microsecond)

	// Lookup normalizes the same way signup does.
	_, err = repo.GetByEmail(ctx, "  ADA@example.com ")
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", byID.LastName)

	dup := domain.NewUser("Other", "Person", "ada@example.com", "hash2")
	err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestBlogRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	blogs := NewBlogRepository(db)

	author := createUser(t, users, "ada@example.com")

	blog := domain.NewBlog(author.ID, "Engines", "notes", "the analytical engine weaves", "history")
	require.NoError(t, blogs.Create(ctx, blog))

	got, err := blogs.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engines", got.Title)
	assert.Equal(t, domain.BlogStateDraft, got.State)
	assert.Equal(t, "1 min read", got.ReadingTime)
	assert.Equal(t, int64(0), got.ReadCount)
	require.NotNil(t, got.Author)
	assert.Equal(t, "ada@example.com", got.Author.EmailAddress)

	byTitle, err := blogs.GetByTitle(ctx, "Engines")
	require.NoError(t, err)
	assert.Equal(t, blog.ID, byTitle.ID)

	_, err = blogs.GetByTitle(ctx, "engines")
	assert.ErrorIs(t, err, domain.ErrBlogNotFound)

	dup := domain.NewBlog(author.ID, "Engines", "", "another body text", "")
	assert.ErrorIs(t, blogs.Create(ctx, dup), domain.ErrBlogTitleTaken)

	require.NoError(t, got.Publish(author.ID))
	got.Description = "revised"
	require.NoError(t, blogs.Update(ctx, got))

	updated, err := blogs.GetByID(ctx, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BlogStatePublish, updated.State)
	assert.Equal(t, "revised", updated.Description)

	other := domain.NewBlog(author.ID, "Looms", "", "punch cards and patterns", "")
	require.NoError(t, blogs.Create(ctx, other))
	other.Title = "Engines"
	assert.ErrorIs(t, blogs.Update(ctx, other), domain.ErrBlogTitleTaken)

	require.NoError(t, blogs.Delete(ctx, blog.ID))
	_, err = blogs.GetByID(ctx, blog.ID)
	assert.ErrorIs(t, err, domain.ErrBlogNotFound)
	assert.ErrorIs(t, blogs.Delete(ctx, blog.ID), domain.ErrBlogNotFound)

	missing := domain.NewBlog(author.ID, "Ghost", "", "never stored anywhere", "")
	assert.ErrorIs(t, blogs.Update(ctx, missing), domain.ErrBlogNotFound)
}

func TestBlogRepository_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	blogs := NewBlogRepository(db)

	ada := createUser(t, users, "ada@example.com")
	bob := createUser(t, users, "bob@example.com")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		b := domain.NewBlog(ada.ID, fmt.Sprintf("ada-%02d", i), "", "some body text here", "")
		b.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			b.State = domain.BlogStatePublish
		}
		require.NoError(t, blogs.Create(ctx, b))
	}
	for i := 0; i < 3; i++ {
		b := domain.NewBlog(bob.ID, fmt.Sprintf("bob-%02d", i), "", "some body text here", "")
		b.CreatedAt = base.Add(time.Hour + time.Duration(i)*time.Minute)
		b.State = domain.BlogStatePublish
		require.NoError(t, blogs.Create(ctx, b))
	}

	tests := []struct {
		name      string
		filter    repository.BlogFilter
		opts      repository.ListOptions
		wantTotal int64
		wantFirst string
		wantLen   int
	}{
		{
			name:      "all published newest first",
			filter:    repository.BlogFilter{State: domain.BlogStatePublish},
			opts:      repository.ListOptions{Offset: 0, Limit: 20},
			wantTotal: 9,
			wantFirst: "bob-02",
			wantLen:   9,
		},
		{
			name:      "author page two",
			filter:    repository.BlogFilter{AuthorID: ada.ID},
			opts:      repository.ListOptions{Offset: 5, Limit: 5},
			wantTotal: 12,
			wantFirst: "ada-06",
			wantLen:   5,
		},
		{
			name:      "author drafts",
			filter:    repository.BlogFilter{AuthorID: ada.ID, State: domain.BlogStateDraft},
			opts:      repository.ListOptions{Offset: 0, Limit: 20},
			wantTotal: 6,
			wantFirst: "ada-11",
			wantLen:   6,
		},
		{
			name:      "past the end",
			filter:    repository.BlogFilter{AuthorID: bob.ID},
			opts:      repository.ListOptions{Offset: 10, Limit: 5},
			wantTotal: 3,
			wantLen:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := blogs.List(ctx, tt.filter, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			require.Len(t, res.Items, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, res.Items[0].Title)
				assert.NotNil(t, res.Items[0].Author)
			}
		})
	}
}
